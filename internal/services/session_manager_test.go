package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionsite/internal/domain"
)

func TestLogin_BadCredentialsAreSilent(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")
	ctx := context.Background()

	session, err := e.sessions.Login(ctx, "ebid", "alice", "wrongpass")
	require.NoError(t, err)
	assert.Nil(t, session)

	session, err = e.sessions.Login(ctx, "ebid", "nobody", "password!")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestLogin_NullArguments(t *testing.T) {
	e := newEnv(t)

	_, err := e.sessions.Login(context.Background(), "", "alice", "password!")
	assert.ErrorIs(t, err, domain.ErrNullArgument)

	_, err = e.sessions.Login(context.Background(), "ebid", "alice", "")
	assert.ErrorIs(t, err, domain.ErrNullArgument)
}

func TestLogin_UnknownSite(t *testing.T) {
	e := newEnv(t)

	_, err := e.sessions.Login(context.Background(), "nowhere", "alice", "password!")
	assert.ErrorIs(t, err, domain.ErrInexistentName)
}

func TestLogin_ReusesLiveSession(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")

	first := e.login(t, "ebid", "alice")

	e.clock.Advance(30 * time.Second)
	second := e.login(t, "ebid", "alice")

	// Same session, renewed deadline: one live session per (user, site).
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.ValidUntil.After(first.ValidUntil))
}

func TestLogin_ExpiredSessionIsReplaced(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")

	first := e.login(t, "ebid", "alice")
	e.clock.Advance(61 * time.Second)
	second := e.login(t, "ebid", "alice")

	assert.NotEqual(t, first.ID, second.ID)
}

func TestIsExpired_LazyLogout(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")
	ctx := context.Background()

	session := e.login(t, "ebid", "alice")

	expired, err := e.sessions.IsExpired(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	e.clock.Advance(61 * time.Second)

	expired, err = e.sessions.IsExpired(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	// Detection logged the session out; a second logout is now invalid.
	err = e.sessions.Logout(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestLogout_SecondTimeFails(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")
	ctx := context.Background()

	session := e.login(t, "ebid", "alice")

	require.NoError(t, e.sessions.Logout(ctx, session.ID))
	err := e.sessions.Logout(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestTouch_SlidesDeadline(t *testing.T) {
	e := newEnv(t)
	e.seedSite(t, "ebid", "alice")
	ctx := context.Background()

	session := e.login(t, "ebid", "alice")
	before := session.ValidUntil

	e.clock.Advance(20 * time.Second)
	require.NoError(t, e.sessions.Touch(ctx, session.ID))

	sessions, err := e.sites.ListSessions(ctx, "ebid")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].ValidUntil.After(before))
}
