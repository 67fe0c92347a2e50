package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auctionsite/internal/domain"
)

type userRepo struct {
	tx *sql.Tx
}

const userColumns = `id, site_id, username, password_hash, status, created_at`

func (r *userRepo) Insert(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (id, site_id, username, password_hash, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.tx.ExecContext(ctx, query,
		user.ID, user.SiteID, user.Username, user.PasswordHash,
		int(user.Status), user.CreatedAt)
	return mapError(err)
}

func (r *userRepo) ByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanOne(r.tx.QueryRowContext(ctx, query, userID), userID)
}

func (r *userRepo) ByName(ctx context.Context, siteID, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE site_id = ? AND username = ?`
	return r.scanOne(r.tx.QueryRowContext(ctx, query, siteID, username), username)
}

func (r *userRepo) scanOne(row *sql.Row, key string) (*domain.User, error) {
	var user domain.User
	var status int

	err := row.Scan(&user.ID, &user.SiteID, &user.Username, &user.PasswordHash,
		&status, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", key, domain.ErrInexistentName)
	}
	if err != nil {
		return nil, mapError(err)
	}

	user.Status = domain.EntityStatus(status)
	return &user, nil
}

func (r *userRepo) BySite(ctx context.Context, siteID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE site_id = ?`
	rows, err := r.tx.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var user domain.User
		var status int
		if err := rows.Scan(&user.ID, &user.SiteID, &user.Username,
			&user.PasswordHash, &status, &user.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		user.Status = domain.EntityStatus(status)
		users = append(users, &user)
	}
	return users, mapError(rows.Err())
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("delete user: %w", domain.ErrInexistentName)
	}
	return nil
}
