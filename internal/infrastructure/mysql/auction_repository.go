package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auctionsite/internal/domain"
)

type auctionRepo struct {
	tx *sql.Tx
}

const auctionColumns = `id, site_id, session_id, seller, description, ends_on,
    starting_price, price, maximum_offer, increment, winner, status, version,
    created_at, updated_at`

func (r *auctionRepo) Insert(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, site_id, session_id, seller, description, ends_on,
            starting_price, price, maximum_offer, increment, winner, status, version,
            created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.tx.ExecContext(ctx, query,
		auction.ID, auction.SiteID, auction.SessionID, auction.Seller,
		auction.Description, auction.EndsOn, auction.StartingPrice,
		auction.Price, auction.MaximumOffer, auction.Increment,
		auction.Winner, int(auction.Status), auction.Version,
		auction.CreatedAt, auction.UpdatedAt)
	return mapError(err)
}

func (r *auctionRepo) ByID(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`
	row := r.tx.QueryRowContext(ctx, query, auctionID)

	auction, err := scanAuction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrInexistentName)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return auction, nil
}

func scanAuction(scan func(dest ...any) error) (*domain.Auction, error) {
	var auction domain.Auction
	var status int

	err := scan(&auction.ID, &auction.SiteID, &auction.SessionID,
		&auction.Seller, &auction.Description, &auction.EndsOn,
		&auction.StartingPrice, &auction.Price, &auction.MaximumOffer,
		&auction.Increment, &auction.Winner, &status, &auction.Version,
		&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.EntityStatus(status)
	return &auction, nil
}

func (r *auctionRepo) BySite(ctx context.Context, siteID string, onlyOpen bool, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE site_id = ?`
	args := []any{siteID}
	if onlyOpen {
		query += ` AND status = ? AND ends_on > ?`
		args = append(args, int(domain.StatusActive), now)
	}

	return r.queryMany(ctx, query, args...)
}

func (r *auctionRepo) ByWinner(ctx context.Context, siteID, username string) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE site_id = ? AND winner = ?`
	return r.queryMany(ctx, query, siteID, username)
}

func (r *auctionRepo) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Auction, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows.Scan)
		if err != nil {
			return nil, mapError(err)
		}
		auctions = append(auctions, auction)
	}
	return auctions, mapError(rows.Err())
}

func (r *auctionRepo) UpdateBidState(ctx context.Context, auction *domain.Auction, expectedVersion int64) error {
	query := `
        UPDATE auctions
        SET price = ?, maximum_offer = ?, winner = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?
    `
	result, err := r.tx.ExecContext(ctx, query,
		auction.Price, auction.MaximumOffer, auction.Winner,
		auction.UpdatedAt, auction.ID, expectedVersion)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("update auction %s: %w", auction.ID, domain.ErrConcurrentChange)
	}

	auction.Version = expectedVersion + 1
	return nil
}

func (r *auctionRepo) CloseEnded(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.tx.ExecContext(ctx,
		`UPDATE auctions SET status = ?, updated_at = ? WHERE status = ? AND ends_on <= ?`,
		int(domain.StatusEnded), now, int(domain.StatusActive), now)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return affected, nil
}

func (r *auctionRepo) Delete(ctx context.Context, auctionID string) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM auctions WHERE id = ?`, auctionID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("delete auction: %w", domain.ErrInexistentName)
	}
	return nil
}
