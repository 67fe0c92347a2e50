package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"auctionsite/internal/domain"
)

// Store adapts a MySQL pool to the domain's unit-of-work port. Every
// mutating operation runs inside one sql.Tx with repeatable-read
// semantics plus an optimistic version check on auctions.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}

	if err := fn(&tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) Sites() domain.SiteRepository       { return &siteRepo{t.tx} }
func (t *tx) Users() domain.UserRepository       { return &userRepo{t.tx} }
func (t *tx) Sessions() domain.SessionRepository { return &sessionRepo{t.tx} }
func (t *tx) Auctions() domain.AuctionRepository { return &auctionRepo{t.tx} }

// MySQL server error numbers the store cares about.
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// mapError folds driver faults into the domain taxonomy. Unmapped errors
// surface as store-unavailable: the engine never retries those itself.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDuplicateEntry:
			return fmt.Errorf("%w: %v", domain.ErrNameAlreadyInUse, err)
		case errDeadlock, errLockWaitTimeout:
			return fmt.Errorf("%w: %v", domain.ErrConcurrentChange, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
