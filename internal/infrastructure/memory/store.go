// Package memory provides a mutex-serialized implementation of the store
// port. It backs the service tests and doubles as an embedded backend.
// Serializing every unit of work on one mutex trivially gives the
// read-decide-write isolation the bidding path requires.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auctionsite/internal/domain"
)

type Store struct {
	mu       sync.Mutex
	sites    map[string]*domain.Site
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	auctions map[string]*domain.Auction
}

func NewStore() *Store {
	return &Store{
		sites:    make(map[string]*domain.Site),
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
		auctions: make(map[string]*domain.Auction),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot for rollback: fn either commits as a whole or leaves no
	// partial state behind.
	backup := s.snapshot()
	if err := fn(&tx{store: s}); err != nil {
		s.restore(backup)
		return err
	}
	return nil
}

type snapshot struct {
	sites    map[string]*domain.Site
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	auctions map[string]*domain.Auction
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		sites:    make(map[string]*domain.Site, len(s.sites)),
		users:    make(map[string]*domain.User, len(s.users)),
		sessions: make(map[string]*domain.Session, len(s.sessions)),
		auctions: make(map[string]*domain.Auction, len(s.auctions)),
	}
	for k, v := range s.sites {
		c := *v
		snap.sites[k] = &c
	}
	for k, v := range s.users {
		c := *v
		snap.users[k] = &c
	}
	for k, v := range s.sessions {
		c := *v
		snap.sessions[k] = &c
	}
	for k, v := range s.auctions {
		c := *v
		snap.auctions[k] = &c
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.sites = snap.sites
	s.users = snap.users
	s.sessions = snap.sessions
	s.auctions = snap.auctions
}

type tx struct {
	store *Store
}

func (t *tx) Sites() domain.SiteRepository       { return &siteRepo{t.store} }
func (t *tx) Users() domain.UserRepository       { return &userRepo{t.store} }
func (t *tx) Sessions() domain.SessionRepository { return &sessionRepo{t.store} }
func (t *tx) Auctions() domain.AuctionRepository { return &auctionRepo{t.store} }

type siteRepo struct{ s *Store }

func (r *siteRepo) Insert(ctx context.Context, site *domain.Site) error {
	for _, existing := range r.s.sites {
		if existing.Name == site.Name {
			return fmt.Errorf("insert site %q: %w", site.Name, domain.ErrNameAlreadyInUse)
		}
	}
	c := *site
	r.s.sites[site.ID] = &c
	return nil
}

func (r *siteRepo) ByID(ctx context.Context, siteID string) (*domain.Site, error) {
	site, ok := r.s.sites[siteID]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", siteID, domain.ErrInexistentName)
	}
	c := *site
	return &c, nil
}

func (r *siteRepo) All(ctx context.Context) ([]*domain.Site, error) {
	sites := make([]*domain.Site, 0, len(r.s.sites))
	for _, site := range r.s.sites {
		c := *site
		sites = append(sites, &c)
	}
	return sites, nil
}

func (r *siteRepo) ByName(ctx context.Context, name string) (*domain.Site, error) {
	for _, site := range r.s.sites {
		if site.Name == name {
			c := *site
			return &c, nil
		}
	}
	return nil, fmt.Errorf("site %q: %w", name, domain.ErrInexistentName)
}

func (r *siteRepo) Infos(ctx context.Context) ([]domain.SiteInfo, error) {
	infos := make([]domain.SiteInfo, 0, len(r.s.sites))
	for _, site := range r.s.sites {
		infos = append(infos, domain.SiteInfo{Name: site.Name, Timezone: site.Timezone})
	}
	return infos, nil
}

func (r *siteRepo) Delete(ctx context.Context, siteID string) error {
	if _, ok := r.s.sites[siteID]; !ok {
		return fmt.Errorf("delete site: %w", domain.ErrInexistentName)
	}
	delete(r.s.sites, siteID)
	// Cascade, mirroring the relational schema.
	for id, u := range r.s.users {
		if u.SiteID == siteID {
			delete(r.s.users, id)
		}
	}
	for id, sess := range r.s.sessions {
		if sess.SiteID == siteID {
			delete(r.s.sessions, id)
		}
	}
	for id, a := range r.s.auctions {
		if a.SiteID == siteID {
			delete(r.s.auctions, id)
		}
	}
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Insert(ctx context.Context, user *domain.User) error {
	for _, existing := range r.s.users {
		if existing.SiteID == user.SiteID && existing.Username == user.Username {
			return fmt.Errorf("insert user %q: %w", user.Username, domain.ErrNameAlreadyInUse)
		}
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *userRepo) ByID(ctx context.Context, userID string) (*domain.User, error) {
	user, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrInexistentName)
	}
	c := *user
	return &c, nil
}

func (r *userRepo) ByName(ctx context.Context, siteID, username string) (*domain.User, error) {
	for _, user := range r.s.users {
		if user.SiteID == siteID && user.Username == username {
			c := *user
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, domain.ErrInexistentName)
}

func (r *userRepo) BySite(ctx context.Context, siteID string) ([]*domain.User, error) {
	var users []*domain.User
	for _, user := range r.s.users {
		if user.SiteID == siteID {
			c := *user
			users = append(users, &c)
		}
	}
	return users, nil
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	if _, ok := r.s.users[userID]; !ok {
		return fmt.Errorf("delete user: %w", domain.ErrInexistentName)
	}
	delete(r.s.users, userID)
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Insert(ctx context.Context, session *domain.Session) error {
	c := *session
	r.s.sessions[session.ID] = &c
	return nil
}

func (r *sessionRepo) ByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrInexistentName)
	}
	c := *sess
	return &c, nil
}

func (r *sessionRepo) ByUser(ctx context.Context, siteID, userID string) (*domain.Session, error) {
	for _, sess := range r.s.sessions {
		if sess.SiteID == siteID && sess.UserID == userID {
			c := *sess
			return &c, nil
		}
	}
	return nil, fmt.Errorf("session for user %s: %w", userID, domain.ErrInexistentName)
}

func (r *sessionRepo) BySite(ctx context.Context, siteID string) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for _, sess := range r.s.sessions {
		if sess.SiteID == siteID {
			c := *sess
			sessions = append(sessions, &c)
		}
	}
	return sessions, nil
}

func (r *sessionRepo) UpdateValidUntil(ctx context.Context, sessionID string, validUntil time.Time) error {
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("touch session: %w", domain.ErrInexistentName)
	}
	sess.ValidUntil = validUntil
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	if _, ok := r.s.sessions[sessionID]; !ok {
		return fmt.Errorf("delete session: %w", domain.ErrInexistentName)
	}
	delete(r.s.sessions, sessionID)
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, siteID string, now time.Time) (int64, error) {
	var removed int64
	for id, sess := range r.s.sessions {
		if sess.SiteID == siteID && now.After(sess.ValidUntil) {
			delete(r.s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

type auctionRepo struct{ s *Store }

func (r *auctionRepo) Insert(ctx context.Context, auction *domain.Auction) error {
	c := *auction
	r.s.auctions[auction.ID] = &c
	return nil
}

func (r *auctionRepo) ByID(ctx context.Context, auctionID string) (*domain.Auction, error) {
	a, ok := r.s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrInexistentName)
	}
	c := *a
	return &c, nil
}

func (r *auctionRepo) BySite(ctx context.Context, siteID string, onlyOpen bool, now time.Time) ([]*domain.Auction, error) {
	var auctions []*domain.Auction
	for _, a := range r.s.auctions {
		if a.SiteID != siteID {
			continue
		}
		if onlyOpen && !a.Open(now) {
			continue
		}
		c := *a
		auctions = append(auctions, &c)
	}
	return auctions, nil
}

func (r *auctionRepo) ByWinner(ctx context.Context, siteID, username string) ([]*domain.Auction, error) {
	var auctions []*domain.Auction
	for _, a := range r.s.auctions {
		if a.SiteID == siteID && a.Winner == username {
			c := *a
			auctions = append(auctions, &c)
		}
	}
	return auctions, nil
}

func (r *auctionRepo) UpdateBidState(ctx context.Context, auction *domain.Auction, expectedVersion int64) error {
	stored, ok := r.s.auctions[auction.ID]
	if !ok {
		return fmt.Errorf("update auction: %w", domain.ErrInexistentName)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("update auction %s: %w", auction.ID, domain.ErrConcurrentChange)
	}
	stored.Price = auction.Price
	stored.MaximumOffer = auction.MaximumOffer
	stored.Winner = auction.Winner
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = auction.UpdatedAt
	auction.Version = stored.Version
	return nil
}

func (r *auctionRepo) CloseEnded(ctx context.Context, now time.Time) (int64, error) {
	var closed int64
	for _, a := range r.s.auctions {
		if a.Status == domain.StatusActive && !now.Before(a.EndsOn) {
			a.Status = domain.StatusEnded
			closed++
		}
	}
	return closed, nil
}

func (r *auctionRepo) Delete(ctx context.Context, auctionID string) error {
	if _, ok := r.s.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction: %w", domain.ErrInexistentName)
	}
	delete(r.s.auctions, auctionID)
	return nil
}
