package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auctionsite/internal/domain"
)

type siteRepo struct {
	tx *sql.Tx
}

func (r *siteRepo) Insert(ctx context.Context, site *domain.Site) error {
	query := `
        INSERT INTO sites (id, name, timezone, session_expiration_secs, minimum_increment, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.tx.ExecContext(ctx, query,
		site.ID, site.Name, site.Timezone, int64(site.SessionExpiration.Seconds()),
		site.MinimumIncrement, int(site.Status), site.CreatedAt)
	return mapError(err)
}

const siteColumns = `id, name, timezone, session_expiration_secs, minimum_increment, status, created_at`

func (r *siteRepo) ByID(ctx context.Context, siteID string) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = ?`
	return r.scanOne(r.tx.QueryRowContext(ctx, query, siteID), siteID)
}

func (r *siteRepo) ByName(ctx context.Context, name string) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE name = ?`
	return r.scanOne(r.tx.QueryRowContext(ctx, query, name), name)
}

func (r *siteRepo) scanOne(row *sql.Row, key string) (*domain.Site, error) {
	var site domain.Site
	var expirationSecs int64
	var status int

	err := row.Scan(&site.ID, &site.Name, &site.Timezone, &expirationSecs,
		&site.MinimumIncrement, &status, &site.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %q: %w", key, domain.ErrInexistentName)
	}
	if err != nil {
		return nil, mapError(err)
	}

	site.SessionExpiration = time.Duration(expirationSecs) * time.Second
	site.Status = domain.EntityStatus(status)
	return &site, nil
}

func (r *siteRepo) All(ctx context.Context) ([]*domain.Site, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sites []*domain.Site
	for rows.Next() {
		var site domain.Site
		var expirationSecs int64
		var status int
		if err := rows.Scan(&site.ID, &site.Name, &site.Timezone, &expirationSecs,
			&site.MinimumIncrement, &status, &site.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		site.SessionExpiration = time.Duration(expirationSecs) * time.Second
		site.Status = domain.EntityStatus(status)
		sites = append(sites, &site)
	}
	return sites, mapError(rows.Err())
}

func (r *siteRepo) Infos(ctx context.Context) ([]domain.SiteInfo, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT name, timezone FROM sites`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var infos []domain.SiteInfo
	for rows.Next() {
		var info domain.SiteInfo
		if err := rows.Scan(&info.Name, &info.Timezone); err != nil {
			return nil, mapError(err)
		}
		infos = append(infos, info)
	}
	return infos, mapError(rows.Err())
}

func (r *siteRepo) Delete(ctx context.Context, siteID string) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, siteID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("delete site: %w", domain.ErrInexistentName)
	}
	return nil
}
