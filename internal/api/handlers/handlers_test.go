package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auctionsite/internal/infrastructure/clock"
	"auctionsite/internal/infrastructure/memory"
	"auctionsite/internal/services"
	"auctionsite/pkg/logger"
)

type plainCreds struct{}

func (plainCreds) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainCreds) Verify(password, hash string) bool    { return hash == "plain:"+password }

type fixture struct {
	echo    *echo.Echo
	clock   *clock.Manual
	site    *SiteHandler
	auction *AuctionHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	manual := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	log := logger.Nop()

	sessions := services.NewSessionManager(store, manual, plainCreds{}, log)
	engine := services.NewAuctionEngine(store, manual, sessions, nil, log)
	sites := services.NewSiteService(store, manual, plainCreds{}, log)

	return &fixture{
		echo:    echo.New(),
		clock:   manual,
		site:    NewSiteHandler(sites, sessions, log),
		auction: NewAuctionHandler(engine, sites, log),
	}
}

func (f *fixture) request(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return rec, f.echo.NewContext(req, rec)
}

func (f *fixture) createSite(t *testing.T, name string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"timezone":0,"session_expiration_seconds":60,"minimum_increment":10}`, name)
	rec, c := f.request(t, http.MethodPost, "/api/v1/sites", body)
	require.NoError(t, f.site.CreateSite(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (f *fixture) createUser(t *testing.T, site, username string) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"password!"}`, username)
	rec, c := f.request(t, http.MethodPost, "/api/v1/sites/"+site+"/users", body)
	c.SetParamNames("site")
	c.SetParamValues(site)
	require.NoError(t, f.site.CreateUser(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (f *fixture) login(t *testing.T, site, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"password!"}`, username)
	rec, c := f.request(t, http.MethodPost, "/api/v1/sites/"+site+"/login", body)
	c.SetParamNames("site")
	c.SetParamValues(site)
	require.NoError(t, f.site.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.SessionID
}

func (f *fixture) createAuction(t *testing.T, sessionID string) string {
	t.Helper()
	endsOn := f.clock.Now().Add(time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"description":"vintage lamp","ends_on":%q,"starting_price":100}`, endsOn)
	rec, c := f.request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/auctions", body)
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	require.NoError(t, f.auction.CreateAuction(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view.ID
}

func TestCreateSite_InvalidPayload(t *testing.T) {
	f := newFixture(t)

	rec, c := f.request(t, http.MethodPost, "/api/v1/sites",
		`{"name":"","timezone":0,"session_expiration_seconds":60,"minimum_increment":10}`)
	require.NoError(t, f.site.CreateSite(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSite_DuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")

	rec, c := f.request(t, http.MethodPost, "/api/v1/sites",
		`{"name":"ebid","timezone":0,"session_expiration_seconds":60,"minimum_increment":10}`)
	require.NoError(t, f.site.CreateSite(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_WrongPasswordUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")
	f.createUser(t, "ebid", "alice")

	rec, c := f.request(t, http.MethodPost, "/api/v1/sites/ebid/login",
		`{"username":"alice","password":"nope"}`)
	c.SetParamNames("site")
	c.SetParamValues("ebid")
	require.NoError(t, f.site.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The body must not leak whether the user exists.
	assert.NotContains(t, rec.Body.String(), "alice")
}

func TestLogin_UnknownSiteNotFound(t *testing.T) {
	f := newFixture(t)

	rec, c := f.request(t, http.MethodPost, "/api/v1/sites/nowhere/login",
		`{"username":"alice","password":"password!"}`)
	c.SetParamNames("site")
	c.SetParamValues("nowhere")
	require.NoError(t, f.site.Login(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogout_TwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")
	f.createUser(t, "ebid", "alice")
	sessionID := f.login(t, "ebid", "alice")

	rec, c := f.request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/logout", "")
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	require.NoError(t, f.site.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, c = f.request(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/logout", "")
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	require.NoError(t, f.site.Logout(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBidFlow(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")
	f.createUser(t, "ebid", "seller")
	f.createUser(t, "ebid", "alice")

	sellerSession := f.login(t, "ebid", "seller")
	auctionID := f.createAuction(t, sellerSession)

	aliceSession := f.login(t, "ebid", "alice")

	// A losing offer is still a successful request.
	body := fmt.Sprintf(`{"session_id":%q,"offer":90}`, aliceSession)
	rec, c := f.request(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/bids", body)
	c.SetParamNames("id")
	c.SetParamValues(auctionID)
	require.NoError(t, f.auction.Bid(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BidResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)
	assert.Equal(t, 100.0, resp.CurrentPrice)

	body = fmt.Sprintf(`{"session_id":%q,"offer":150}`, aliceSession)
	rec, c = f.request(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/bids", body)
	c.SetParamNames("id")
	c.SetParamValues(auctionID)
	require.NoError(t, f.auction.Bid(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	// The sealed maximum stays hidden; the visible price is untouched by
	// an unchallenged proxy bid.
	assert.Equal(t, 100.0, resp.CurrentPrice)

	rec, c = f.request(t, http.MethodGet, "/api/v1/auctions/"+auctionID, "")
	c.SetParamNames("id")
	c.SetParamValues(auctionID)
	require.NoError(t, f.auction.GetAuction(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var state AuctionStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "alice", state.CurrentWinner)
	assert.Equal(t, 100.0, state.CurrentPrice)
	assert.NotContains(t, rec.Body.String(), "150")
}

func TestBid_ExpiredSessionRejected(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")
	f.createUser(t, "ebid", "seller")
	f.createUser(t, "ebid", "alice")

	sellerSession := f.login(t, "ebid", "seller")
	auctionID := f.createAuction(t, sellerSession)
	aliceSession := f.login(t, "ebid", "alice")

	f.clock.Advance(61 * time.Second)

	body := fmt.Sprintf(`{"session_id":%q,"offer":150}`, aliceSession)
	rec, c := f.request(t, http.MethodPost, "/api/v1/auctions/"+auctionID+"/bids", body)
	c.SetParamNames("id")
	c.SetParamValues(auctionID)
	require.NoError(t, f.auction.Bid(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAuctions_OpenFilter(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")
	f.createUser(t, "ebid", "seller")
	sellerSession := f.login(t, "ebid", "seller")
	f.createAuction(t, sellerSession)

	rec, c := f.request(t, http.MethodGet, "/api/v1/sites/ebid/auctions?open=true", "")
	c.SetParamNames("site")
	c.SetParamValues("ebid")
	require.NoError(t, f.auction.ListAuctions(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var views []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Len(t, views, 1)
}

func TestDeleteAuction_UnknownConflicts(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")

	rec, c := f.request(t, http.MethodDelete, "/api/v1/auctions/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	require.NoError(t, f.auction.DeleteAuction(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSiteInfos(t *testing.T) {
	f := newFixture(t)
	f.createSite(t, "ebid")
	f.createSite(t, "bidhub")

	rec, c := f.request(t, http.MethodGet, "/api/v1/sites", "")
	require.NoError(t, f.site.SiteInfos(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	assert.Len(t, infos, 2)
}
