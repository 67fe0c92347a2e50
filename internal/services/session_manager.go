package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"auctionsite/internal/domain"
	"auctionsite/pkg/logger"
)

// SessionManager owns the session lifecycle: login, renewal, lazy
// expiration and logout. Expiration is enforced on touch, not by a
// background sweep; the maintenance job is advisory only.
type SessionManager struct {
	store domain.Store
	clock domain.Clock
	creds domain.CredentialStore
	log   logger.Logger
}

func NewSessionManager(
	store domain.Store,
	clock domain.Clock,
	creds domain.CredentialStore,
	log logger.Logger,
) *SessionManager {
	return &SessionManager{
		store: store,
		clock: clock,
		creds: creds,
		log:   log,
	}
}

// Login authenticates a user against a site. Bad credentials and unknown
// users return (nil, nil): a deliberate non-error outcome, distinct from
// infrastructure failure. A live session for the same (user, site) pair
// is renewed and reused instead of minting a duplicate.
func (m *SessionManager) Login(ctx context.Context, siteName, username, password string) (*domain.Session, error) {
	if siteName == "" || username == "" || password == "" {
		return nil, fmt.Errorf("login: %w", domain.ErrNullArgument)
	}

	var session *domain.Session
	err := m.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}

		user, err := tx.Users().ByName(ctx, site.ID, username)
		if errors.Is(err, domain.ErrInexistentName) {
			return nil
		}
		if err != nil {
			return err
		}
		if !m.creds.Verify(password, user.PasswordHash) {
			return nil
		}

		now := m.clock.Now()
		validUntil := now.Add(site.SessionExpiration)

		existing, err := tx.Sessions().ByUser(ctx, site.ID, user.ID)
		if err == nil {
			if !existing.Expired(now) {
				if err := tx.Sessions().UpdateValidUntil(ctx, existing.ID, validUntil); err != nil {
					return err
				}
				existing.ValidUntil = validUntil
				session = existing
				return nil
			}
			// Stale leftover: log it out before minting a fresh one.
			if err := tx.Sessions().Delete(ctx, existing.ID); err != nil {
				return err
			}
		} else if !errors.Is(err, domain.ErrInexistentName) {
			return err
		}

		fresh := &domain.Session{
			ID:         uuid.NewString(),
			SiteID:     site.ID,
			UserID:     user.ID,
			Username:   user.Username,
			ValidUntil: validUntil,
			Status:     domain.StatusActive,
			CreatedAt:  now,
		}
		if err := tx.Sessions().Insert(ctx, fresh); err != nil {
			return err
		}
		session = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	if session != nil {
		m.log.Info("session opened", "site", siteName, "username", username, "session_id", session.ID)
	}
	return session, nil
}

// IsExpired reports whether the session is gone or past its deadline. An
// expired-but-still-stored session is logged out as a side effect.
func (m *SessionManager) IsExpired(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return true, fmt.Errorf("session check: %w", domain.ErrNullArgument)
	}

	expired := false
	err := m.store.WithinTx(ctx, func(tx domain.Tx) error {
		session, err := tx.Sessions().ByID(ctx, sessionID)
		if errors.Is(err, domain.ErrInexistentName) {
			expired = true
			return nil
		}
		if err != nil {
			return err
		}

		if session.Expired(m.clock.Now()) {
			expired = true
			return tx.Sessions().Delete(ctx, sessionID)
		}
		return nil
	})
	if err != nil {
		return true, err
	}
	return expired, nil
}

// Touch slides the session deadline forward by the owning site's
// expiration. Standalone variant of the in-transaction renewal the
// auction engine performs.
func (m *SessionManager) Touch(ctx context.Context, sessionID string) error {
	return m.store.WithinTx(ctx, func(tx domain.Tx) error {
		session, err := tx.Sessions().ByID(ctx, sessionID)
		if err != nil {
			return err
		}
		return m.TouchInTx(ctx, tx, session)
	})
}

// TouchInTx renews the session inside the caller's open transaction so
// the renewal commits or rolls back with the surrounding operation.
func (m *SessionManager) TouchInTx(ctx context.Context, tx domain.Tx, session *domain.Session) error {
	site, err := tx.Sites().ByID(ctx, session.SiteID)
	if err != nil {
		return err
	}
	validUntil := m.clock.Now().Add(site.SessionExpiration)
	if err := tx.Sessions().UpdateValidUntil(ctx, session.ID, validUntil); err != nil {
		return err
	}
	session.ValidUntil = validUntil
	return nil
}

// Logout removes the session. Logging out an already-gone session is an
// invalid operation, never a silent no-op.
func (m *SessionManager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("logout: %w", domain.ErrNullArgument)
	}

	err := m.store.WithinTx(ctx, func(tx domain.Tx) error {
		if err := tx.Sessions().Delete(ctx, sessionID); err != nil {
			if errors.Is(err, domain.ErrInexistentName) {
				return fmt.Errorf("logout of inactive session: %w", domain.ErrInvalidOperation)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info("session closed", "session_id", sessionID)
	return nil
}

// activeSession loads a session inside tx and classifies it. Missing and
// expired sessions are reported through expiredErr, whose kind
// deliberately differs between call sites. An expired one is NOT deleted
// here: the surrounding transaction is about to roll back and would take
// the delete with it, so the error carries the ID and the caller commits
// the logout separately via logoutExpired.
func (m *SessionManager) activeSession(ctx context.Context, tx domain.Tx, sessionID string, expiredErr error) (*domain.Session, error) {
	session, err := tx.Sessions().ByID(ctx, sessionID)
	if errors.Is(err, domain.ErrInexistentName) {
		return nil, fmt.Errorf("session %s gone: %w", sessionID, expiredErr)
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(m.clock.Now()) {
		return nil, &expiredSessionError{sessionID: sessionID, kind: expiredErr}
	}
	return session, nil
}

// expiredSessionError marks a stored-but-expired session. It unwraps to
// the caller-facing error kind; the ID lets the logout commit on its own.
type expiredSessionError struct {
	sessionID string
	kind      error
}

func (e *expiredSessionError) Error() string {
	return fmt.Sprintf("session %s expired: %v", e.sessionID, e.kind)
}

func (e *expiredSessionError) Unwrap() error { return e.kind }

// logoutExpired commits the lazy logout for a session a failed operation
// found expired. Runs as its own unit of work after the operation's
// transaction has already rolled back. No-op for any other error.
func (m *SessionManager) logoutExpired(ctx context.Context, opErr error) {
	var expired *expiredSessionError
	if !errors.As(opErr, &expired) {
		return
	}

	err := m.store.WithinTx(ctx, func(tx domain.Tx) error {
		err := tx.Sessions().Delete(ctx, expired.sessionID)
		if errors.Is(err, domain.ErrInexistentName) {
			return nil
		}
		return err
	})
	if err != nil {
		m.log.Warn("failed to log out expired session", "session_id", expired.sessionID, "error", err)
		return
	}
	m.log.Info("expired session logged out", "session_id", expired.sessionID)
}
