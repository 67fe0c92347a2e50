package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auctionsite/internal/services"
	"auctionsite/pkg/logger"
)

type SiteHandler struct {
	sites    *services.SiteService
	sessions *services.SessionManager
	log      logger.Logger
}

func NewSiteHandler(sites *services.SiteService, sessions *services.SessionManager, log logger.Logger) *SiteHandler {
	return &SiteHandler{
		sites:    sites,
		sessions: sessions,
		log:      log,
	}
}

type CreateSiteRequest struct {
	Name                     string  `json:"name"`
	Timezone                 int     `json:"timezone"`
	SessionExpirationSeconds int     `json:"session_expiration_seconds"`
	MinimumIncrement         float64 `json:"minimum_increment"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	SessionID  string    `json:"session_id"`
	Username   string    `json:"username"`
	ValidUntil time.Time `json:"valid_until"`
}

func (h *SiteHandler) CreateSite(c echo.Context) error {
	var req CreateSiteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	expiration := time.Duration(req.SessionExpirationSeconds) * time.Second
	if err := h.sites.CreateSite(c.Request().Context(), req.Name, req.Timezone, expiration, req.MinimumIncrement); err != nil {
		h.log.Error("Failed to create site", "site", req.Name, "error", err)
		return httpError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *SiteHandler) SiteInfos(c echo.Context) error {
	infos, err := h.sites.SiteInfos(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list sites", "error", err)
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, infos)
}

func (h *SiteHandler) DeleteSite(c echo.Context) error {
	site := c.Param("site")
	if err := h.sites.DeleteSite(c.Request().Context(), site); err != nil {
		h.log.Error("Failed to delete site", "site", site, "error", err)
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SiteHandler) CreateUser(c echo.Context) error {
	site := c.Param("site")

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := h.sites.CreateUser(c.Request().Context(), site, req.Username, req.Password); err != nil {
		h.log.Error("Failed to create user", "site", site, "username", req.Username, "error", err)
		return httpError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"username": req.Username})
}

func (h *SiteHandler) ListUsers(c echo.Context) error {
	site := c.Param("site")
	users, err := h.sites.ListUsers(c.Request().Context(), site)
	if err != nil {
		return httpError(c, err)
	}

	usernames := make([]string, 0, len(users))
	for _, u := range users {
		usernames = append(usernames, u.Username)
	}
	return c.JSON(http.StatusOK, usernames)
}

func (h *SiteHandler) DeleteUser(c echo.Context) error {
	site := c.Param("site")
	username := c.Param("username")
	if err := h.sites.DeleteUser(c.Request().Context(), site, username); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SiteHandler) ListSessions(c echo.Context) error {
	site := c.Param("site")
	sessions, err := h.sites.ListSessions(c.Request().Context(), site)
	if err != nil {
		return httpError(c, err)
	}

	resp := make([]LoginResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, LoginResponse{
			SessionID:  s.ID,
			Username:   s.Username,
			ValidUntil: s.ValidUntil,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Login authenticates a user against a site. Wrong credentials are a 401
// without detail; the response never says whether the user exists.
func (h *SiteHandler) Login(c echo.Context) error {
	site := c.Param("site")

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	session, err := h.sessions.Login(c.Request().Context(), site, req.Username, req.Password)
	if err != nil {
		return httpError(c, err)
	}
	if session == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		SessionID:  session.ID,
		Username:   session.Username,
		ValidUntil: session.ValidUntil,
	})
}

func (h *SiteHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SiteHandler) SiteNow(c echo.Context) error {
	site := c.Param("site")
	now, err := h.sites.Now(c.Request().Context(), site)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]time.Time{"now": now})
}
