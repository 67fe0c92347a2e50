package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auctionsite/internal/domain"
	"auctionsite/internal/infrastructure/clock"
	"auctionsite/internal/infrastructure/memory"
	"auctionsite/pkg/logger"
)

// plainCreds keeps service tests fast; the real PBKDF2 store has its own
// tests in the crypto package.
type plainCreds struct{}

func (plainCreds) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainCreds) Verify(password, hash string) bool    { return hash == "plain:"+password }

type env struct {
	store    *memory.Store
	clock    *clock.Manual
	sessions *SessionManager
	engine   *AuctionEngine
	sites    *SiteService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	manual := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	log := logger.Nop()

	sessions := NewSessionManager(store, manual, plainCreds{}, log)
	engine := NewAuctionEngine(store, manual, sessions, nil, log)
	sites := NewSiteService(store, manual, plainCreds{}, log)

	return &env{
		store:    store,
		clock:    manual,
		sessions: sessions,
		engine:   engine,
		sites:    sites,
	}
}

// seedSite creates a site with a 60s session expiration and increment 10,
// plus the given users (password "password!").
func (e *env) seedSite(t *testing.T, name string, usernames ...string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.sites.CreateSite(ctx, name, 0, 60*time.Second, 10))
	for _, username := range usernames {
		require.NoError(t, e.sites.CreateUser(ctx, name, username, "password!"))
	}
}

func (e *env) login(t *testing.T, site, username string) *domain.Session {
	t.Helper()
	session, err := e.sessions.Login(context.Background(), site, username, "password!")
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}
