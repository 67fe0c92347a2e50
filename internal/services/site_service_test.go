package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionsite/internal/domain"
)

func TestCreateSite_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		siteName   string
		timezone   int
		expiration time.Duration
		increment  float64
		wantErr    error
	}{
		{"empty_name", "", 0, time.Minute, 1, domain.ErrNullArgument},
		{"name_too_long", string(make([]byte, 129)), 0, time.Minute, 1, domain.ErrInvalidArgument},
		{"timezone_too_low", "ebid", -13, time.Minute, 1, domain.ErrOutOfRange},
		{"timezone_too_high", "ebid", 13, time.Minute, 1, domain.ErrOutOfRange},
		{"zero_expiration", "ebid", 0, 0, 1, domain.ErrOutOfRange},
		{"zero_increment", "ebid", 0, time.Minute, 0, domain.ErrOutOfRange},
		{"negative_increment", "ebid", 0, time.Minute, -3, domain.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.sites.CreateSite(ctx, tt.siteName, tt.timezone, tt.expiration, tt.increment)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateSite_DuplicateName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.sites.CreateSite(ctx, "ebid", 0, time.Minute, 1))
	err := e.sites.CreateSite(ctx, "ebid", 2, time.Hour, 5)
	assert.ErrorIs(t, err, domain.ErrNameAlreadyInUse)
}

func TestCreateUser_Validation(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid")
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"empty_username", "", "password!", domain.ErrNullArgument},
		{"short_username", "ab", "password!", domain.ErrInvalidArgument},
		{"long_username", string(make([]byte, 65)), "password!", domain.ErrInvalidArgument},
		{"short_password", "alice", "pw", domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.sites.CreateUser(ctx, "ebid", tt.username, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateUser_DuplicatePerSiteOnly(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")
	e.seedSite(t, "other")
	ctx := context.Background()

	err := e.sites.CreateUser(ctx, "ebid", "alice", "password!")
	assert.ErrorIs(t, err, domain.ErrNameAlreadyInUse)

	// Usernames are unique per site, not globally.
	assert.NoError(t, e.sites.CreateUser(ctx, "other", "alice", "password!"))
}

func TestCreateUser_UnknownSite(t *testing.T) {
	e := newEnv(t)

	err := e.sites.CreateUser(context.Background(), "nowhere", "alice", "password!")
	assert.ErrorIs(t, err, domain.ErrInexistentName)
}

func TestDeleteSite_Twice(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid")
	ctx := context.Background()

	require.NoError(t, e.sites.DeleteSite(ctx, "ebid"))
	err := e.sites.DeleteSite(ctx, "ebid")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestDeleteSite_Cascades(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "seller")
	ctx := context.Background()

	seller := e.login(t, "ebid", "seller")
	_, err := e.engine.CreateAuction(ctx, seller.ID, "lamp", e.clock.Now().Add(time.Hour), 10)
	require.NoError(t, err)

	require.NoError(t, e.sites.DeleteSite(ctx, "ebid"))

	// Everything owned by the site went with it.
	err = e.sessions.Logout(ctx, seller.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	_, err = e.sites.ListUsers(ctx, "ebid")
	assert.ErrorIs(t, err, domain.ErrInexistentName)
}

func TestDeleteUser_Twice(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")
	ctx := context.Background()

	require.NoError(t, e.sites.DeleteUser(ctx, "ebid", "alice"))
	err := e.sites.DeleteUser(ctx, "ebid", "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestSiteInfos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.sites.CreateSite(ctx, "ebid", -3, time.Minute, 1))
	require.NoError(t, e.sites.CreateSite(ctx, "bidhub", 5, time.Hour, 2))

	infos, err := e.sites.SiteInfos(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byName := map[string]int{}
	for _, info := range infos {
		byName[info.Name] = info.Timezone
	}
	assert.Equal(t, -3, byName["ebid"])
	assert.Equal(t, 5, byName["bidhub"])
}

func TestListSessions_PurgesExpired(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice", "bob")
	ctx := context.Background()

	e.login(t, "ebid", "alice")
	e.clock.Advance(40 * time.Second)
	bob := e.login(t, "ebid", "bob")

	// alice's 60s deadline has passed, bob's has not.
	e.clock.Advance(30 * time.Second)

	sessions, err := e.sites.ListSessions(ctx, "ebid")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, bob.ID, sessions[0].ID)
}

func TestListAuctions_OnlyOpen(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "seller")
	ctx := context.Background()

	seller := e.login(t, "ebid", "seller")
	short, err := e.engine.CreateAuction(ctx, seller.ID, "short", e.clock.Now().Add(30*time.Second), 10)
	require.NoError(t, err)
	long, err := e.engine.CreateAuction(ctx, seller.ID, "long", e.clock.Now().Add(time.Hour), 10)
	require.NoError(t, err)

	e.clock.Advance(45 * time.Second)

	all, err := e.sites.ListAuctions(ctx, "ebid", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := e.sites.ListAuctions(ctx, "ebid", true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, long.ID, open[0].ID)
	_ = short
}

func TestSiteNow_AppliesTimezone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.sites.CreateSite(ctx, "ebid", 3, time.Minute, 1))

	now, err := e.sites.Now(ctx, "ebid")
	require.NoError(t, err)
	assert.Equal(t, e.clock.Now().Add(3*time.Hour), now)
}

func TestWatchExpiredSessions_SweepsOnSchedule(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")

	e.login(t, "ebid", "alice")
	require.NoError(t, e.sites.WatchExpiredSessions(30*time.Second))

	// First tick: session still live. Second tick: past the deadline,
	// the watch sweeps it out.
	e.clock.Advance(30 * time.Second)
	e.clock.Advance(40 * time.Second)

	sessions, err := e.sites.ListSessions(context.Background(), "ebid")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
