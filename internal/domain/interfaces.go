package domain

import (
	"context"
	"time"
)

// Clock is the injected alarm-clock: a source of "now" plus one-shot
// scheduling. The engine never reads the wall clock directly.
type Clock interface {
	Now() time.Time
	ScheduleOnce(delay time.Duration, fn func()) error
}

// CredentialStore hashes and verifies passwords; opaque beyond that.
type CredentialStore interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Store is the unit-of-work entry point. Every mutating operation runs as
// one atomic transaction: read, decide, write, commit or roll back whole.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx bundles the repositories bound to one open transaction.
type Tx interface {
	Sites() SiteRepository
	Users() UserRepository
	Sessions() SessionRepository
	Auctions() AuctionRepository
}

type SiteRepository interface {
	Insert(ctx context.Context, site *Site) error
	ByID(ctx context.Context, siteID string) (*Site, error)
	ByName(ctx context.Context, name string) (*Site, error)
	All(ctx context.Context) ([]*Site, error)
	Infos(ctx context.Context) ([]SiteInfo, error)
	Delete(ctx context.Context, siteID string) error
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) error
	ByID(ctx context.Context, userID string) (*User, error)
	ByName(ctx context.Context, siteID, username string) (*User, error)
	BySite(ctx context.Context, siteID string) ([]*User, error)
	Delete(ctx context.Context, userID string) error
}

type SessionRepository interface {
	Insert(ctx context.Context, session *Session) error
	ByID(ctx context.Context, sessionID string) (*Session, error)
	ByUser(ctx context.Context, siteID, userID string) (*Session, error)
	BySite(ctx context.Context, siteID string) ([]*Session, error)
	UpdateValidUntil(ctx context.Context, sessionID string, validUntil time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, siteID string, now time.Time) (int64, error)
}

type AuctionRepository interface {
	Insert(ctx context.Context, auction *Auction) error
	ByID(ctx context.Context, auctionID string) (*Auction, error)
	BySite(ctx context.Context, siteID string, onlyOpen bool, now time.Time) ([]*Auction, error)
	ByWinner(ctx context.Context, siteID, username string) ([]*Auction, error)
	// UpdateBidState persists price, winner and sealed maximum, guarded by
	// the optimistic version the auction was read at. A stale version
	// yields ErrConcurrentChange.
	UpdateBidState(ctx context.Context, auction *Auction, expectedVersion int64) error
	CloseEnded(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, auctionID string) error
}

// EventPublisher pushes bid events to downstream consumers, best-effort.
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

// LeaderElection guards maintenance jobs so only one instance runs them.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
