package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auctionsite/internal/domain"
	"auctionsite/pkg/logger"
)

// SiteService is the administrative facade: site and user management plus
// the host-level enumerations. Thin by design; it validates structure and
// delegates state to the store.
type SiteService struct {
	store domain.Store
	clock domain.Clock
	creds domain.CredentialStore
	log   logger.Logger
}

func NewSiteService(
	store domain.Store,
	clock domain.Clock,
	creds domain.CredentialStore,
	log logger.Logger,
) *SiteService {
	return &SiteService{
		store: store,
		clock: clock,
		creds: creds,
		log:   log,
	}
}

// CreateSite registers a new site. Structural constraints are validated
// before touching storage; a uniqueness violation surfaces as
// name-already-in-use.
func (s *SiteService) CreateSite(ctx context.Context, name string, timezone int, sessionExpiration time.Duration, minimumIncrement float64) error {
	if name == "" {
		return fmt.Errorf("create site: %w", domain.ErrNullArgument)
	}
	if len(name) < domain.MinSiteNameLen || len(name) > domain.MaxSiteNameLen {
		return fmt.Errorf("create site: name length out of bounds: %w", domain.ErrInvalidArgument)
	}
	if timezone < domain.MinTimezone || timezone > domain.MaxTimezone {
		return fmt.Errorf("create site: timezone must be within [%d, %d]: %w",
			domain.MinTimezone, domain.MaxTimezone, domain.ErrOutOfRange)
	}
	if sessionExpiration <= 0 {
		return fmt.Errorf("create site: session expiration must be positive: %w", domain.ErrOutOfRange)
	}
	if minimumIncrement <= 0 {
		return fmt.Errorf("create site: minimum increment must be positive: %w", domain.ErrOutOfRange)
	}

	site := &domain.Site{
		ID:                uuid.NewString(),
		Name:              name,
		Timezone:          timezone,
		SessionExpiration: sessionExpiration,
		MinimumIncrement:  minimumIncrement,
		Status:            domain.StatusActive,
		CreatedAt:         s.clock.Now(),
	}

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		return tx.Sites().Insert(ctx, site)
	})
	if err != nil {
		return err
	}

	s.log.Info("site created", "site", name, "timezone", timezone)
	return nil
}

// SiteInfos enumerates (name, timezone) pairs across all sites.
func (s *SiteService) SiteInfos(ctx context.Context) ([]domain.SiteInfo, error) {
	var infos []domain.SiteInfo
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		infos, err = tx.Sites().Infos(ctx)
		return err
	})
	return infos, err
}

// DeleteSite removes the site; referencing users, sessions and auctions
// cascade at the store level. Deleting twice is an error.
func (s *SiteService) DeleteSite(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("delete site: %w", domain.ErrNullArgument)
	}

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, name)
		if errors.Is(err, domain.ErrInexistentName) {
			return fmt.Errorf("delete of inactive site %q: %w", name, domain.ErrInvalidOperation)
		}
		if err != nil {
			return err
		}
		return tx.Sites().Delete(ctx, site.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("site deleted", "site", name)
	return nil
}

// CreateUser registers a user on a site after validating the credential
// bounds.
func (s *SiteService) CreateUser(ctx context.Context, siteName, username, password string) error {
	if siteName == "" || username == "" || password == "" {
		return fmt.Errorf("create user: %w", domain.ErrNullArgument)
	}
	if len(username) < domain.MinUsernameLen || len(username) > domain.MaxUsernameLen {
		return fmt.Errorf("create user: username length out of bounds: %w", domain.ErrInvalidArgument)
	}
	if len(password) < domain.MinPasswordLen {
		return fmt.Errorf("create user: password too short: %w", domain.ErrInvalidArgument)
	}

	hash, err := s.creds.Hash(password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	err = s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		return tx.Users().Insert(ctx, &domain.User{
			ID:           uuid.NewString(),
			SiteID:       site.ID,
			Username:     username,
			PasswordHash: hash,
			Status:       domain.StatusActive,
			CreatedAt:    s.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("user created", "site", siteName, "username", username)
	return nil
}

// DeleteUser removes a user and their sessions. Auctions keep the
// denormalized username for historical queries.
func (s *SiteService) DeleteUser(ctx context.Context, siteName, username string) error {
	if siteName == "" || username == "" {
		return fmt.Errorf("delete user: %w", domain.ErrNullArgument)
	}

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		user, err := tx.Users().ByName(ctx, site.ID, username)
		if errors.Is(err, domain.ErrInexistentName) {
			return fmt.Errorf("delete of inactive user %q: %w", username, domain.ErrInvalidOperation)
		}
		if err != nil {
			return err
		}
		return tx.Users().Delete(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("user deleted", "site", siteName, "username", username)
	return nil
}

// ListUsers enumerates a site's users.
func (s *SiteService) ListUsers(ctx context.Context, siteName string) ([]*domain.User, error) {
	var users []*domain.User
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		users, err = tx.Users().BySite(ctx, site.ID)
		return err
	})
	return users, err
}

// ListSessions enumerates a site's live sessions. Expired sessions found
// on the way are logged out, mirroring lazy expiration.
func (s *SiteService) ListSessions(ctx context.Context, siteName string) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		if _, err := tx.Sessions().DeleteExpired(ctx, site.ID, s.clock.Now()); err != nil {
			return err
		}
		sessions, err = tx.Sessions().BySite(ctx, site.ID)
		return err
	})
	return sessions, err
}

// ListAuctions enumerates a site's auctions, optionally only the ones
// still open at the current instant.
func (s *SiteService) ListAuctions(ctx context.Context, siteName string, onlyOpen bool) ([]domain.AuctionView, error) {
	var views []domain.AuctionView
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		auctions, err := tx.Auctions().BySite(ctx, site.ID, onlyOpen, s.clock.Now())
		if err != nil {
			return err
		}
		views = make([]domain.AuctionView, 0, len(auctions))
		for _, a := range auctions {
			views = append(views, a.View())
		}
		return nil
	})
	return views, err
}

// WonAuctions lists the auctions whose recorded winner is the user. The
// winner column is denormalized, so the query survives seller or session
// deletion.
func (s *SiteService) WonAuctions(ctx context.Context, siteName, username string) ([]domain.AuctionView, error) {
	var views []domain.AuctionView
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		auctions, err := tx.Auctions().ByWinner(ctx, site.ID, username)
		if err != nil {
			return err
		}
		views = make([]domain.AuctionView, 0, len(auctions))
		for _, a := range auctions {
			views = append(views, a.View())
		}
		return nil
	})
	return views, err
}

// Now returns the site-local instant derived from the clock and the
// site's timezone offset.
func (s *SiteService) Now(ctx context.Context, siteName string) (time.Time, error) {
	var now time.Time
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		site, err := tx.Sites().ByName(ctx, siteName)
		if err != nil {
			return err
		}
		now = s.clock.Now().Add(time.Duration(site.Timezone) * time.Hour)
		return nil
	})
	return now, err
}

// SweepExpiredSessions drops every expired session across all sites.
// Best-effort and advisory: every access re-validates on its own.
func (s *SiteService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	var total int64
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		sites, err := tx.Sites().All(ctx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		for _, site := range sites {
			removed, err := tx.Sessions().DeleteExpired(ctx, site.ID, now)
			if err != nil {
				return err
			}
			total += removed
		}
		return nil
	})
	return total, err
}

// WatchExpiredSessions arms a self-renewing one-shot on the clock that
// sweeps expired sessions every interval.
func (s *SiteService) WatchExpiredSessions(interval time.Duration) error {
	var arm func()
	arm = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		removed, err := s.SweepExpiredSessions(ctx)
		cancel()
		if err != nil {
			s.log.Warn("session sweep failed", "error", err)
		} else if removed > 0 {
			s.log.Info("session sweep", "removed", removed)
		}
		if err := s.clock.ScheduleOnce(interval, arm); err != nil {
			s.log.Error("failed to rearm session sweep", "error", err)
		}
	}
	return s.clock.ScheduleOnce(interval, arm)
}
