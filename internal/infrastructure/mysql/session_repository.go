package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auctionsite/internal/domain"
)

type sessionRepo struct {
	tx *sql.Tx
}

const sessionColumns = `id, site_id, user_id, username, valid_until, status, created_at`

func (r *sessionRepo) Insert(ctx context.Context, session *domain.Session) error {
	query := `
        INSERT INTO sessions (id, site_id, user_id, username, valid_until, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.tx.ExecContext(ctx, query,
		session.ID, session.SiteID, session.UserID, session.Username,
		session.ValidUntil, int(session.Status), session.CreatedAt)
	return mapError(err)
}

func (r *sessionRepo) ByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return r.scanOne(r.tx.QueryRowContext(ctx, query, sessionID))
}

func (r *sessionRepo) ByUser(ctx context.Context, siteID, userID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE site_id = ? AND user_id = ?`
	return r.scanOne(r.tx.QueryRowContext(ctx, query, siteID, userID))
}

func (r *sessionRepo) scanOne(row *sql.Row) (*domain.Session, error) {
	var session domain.Session
	var status int

	err := row.Scan(&session.ID, &session.SiteID, &session.UserID,
		&session.Username, &session.ValidUntil, &status, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", domain.ErrInexistentName)
	}
	if err != nil {
		return nil, mapError(err)
	}

	session.Status = domain.EntityStatus(status)
	return &session, nil
}

func (r *sessionRepo) BySite(ctx context.Context, siteID string) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE site_id = ?`
	rows, err := r.tx.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var session domain.Session
		var status int
		if err := rows.Scan(&session.ID, &session.SiteID, &session.UserID,
			&session.Username, &session.ValidUntil, &status, &session.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		session.Status = domain.EntityStatus(status)
		sessions = append(sessions, &session)
	}
	return sessions, mapError(rows.Err())
}

func (r *sessionRepo) UpdateValidUntil(ctx context.Context, sessionID string, validUntil time.Time) error {
	result, err := r.tx.ExecContext(ctx,
		`UPDATE sessions SET valid_until = ? WHERE id = ?`, validUntil, sessionID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		// MySQL reports zero affected rows when the stored value is
		// already equal to the new one, so a zero count cannot tell a
		// missing session from an unchanged deadline on its own.
		var one int
		err := r.tx.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("touch session: %w", domain.ErrInexistentName)
		}
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("delete session: %w", domain.ErrInexistentName)
	}
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, siteID string, now time.Time) (int64, error) {
	result, err := r.tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE site_id = ? AND valid_until < ?`, siteID, now)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return affected, nil
}
