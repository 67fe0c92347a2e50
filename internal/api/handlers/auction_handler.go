package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auctionsite/internal/services"
	"auctionsite/pkg/logger"
)

type AuctionHandler struct {
	engine *services.AuctionEngine
	sites  *services.SiteService
	log    logger.Logger
}

func NewAuctionHandler(engine *services.AuctionEngine, sites *services.SiteService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		engine: engine,
		sites:  sites,
		log:    log,
	}
}

type CreateAuctionRequest struct {
	Description   string    `json:"description"`
	EndsOn        time.Time `json:"ends_on"`
	StartingPrice float64   `json:"starting_price"`
}

type BidRequest struct {
	SessionID string  `json:"session_id"`
	Offer     float64 `json:"offer"`
}

type BidResponse struct {
	Accepted     bool    `json:"accepted"`
	CurrentPrice float64 `json:"current_price"`
}

type AuctionStateResponse struct {
	ID            string    `json:"id"`
	Seller        string    `json:"seller"`
	Description   string    `json:"description"`
	EndsOn        time.Time `json:"ends_on"`
	CurrentPrice  float64   `json:"current_price"`
	CurrentWinner string    `json:"current_winner,omitempty"`
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	sessionID := c.Param("id")

	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	view, err := h.engine.CreateAuction(c.Request().Context(), sessionID, req.Description, req.EndsOn, req.StartingPrice)
	if err != nil {
		h.log.Error("Failed to create auction", "session_id", sessionID, "error", err)
		return httpError(c, err)
	}

	h.log.Info("Auction created", "auction_id", view.ID, "ends_on", view.EndsOn)
	return c.JSON(http.StatusCreated, view)
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	site := c.Param("site")
	onlyOpen := c.QueryParam("open") == "true"

	views, err := h.sites.ListAuctions(c.Request().Context(), site, onlyOpen)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *AuctionHandler) WonAuctions(c echo.Context) error {
	site := c.Param("site")
	username := c.Param("username")

	views, err := h.sites.WonAuctions(c.Request().Context(), site, username)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Bid places an offer on behalf of the bound session. A rejected bid is
// still a 200; acceptance is part of the payload.
func (h *AuctionHandler) Bid(c echo.Context) error {
	auctionID := c.Param("id")

	var req BidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	accepted, err := h.engine.Bid(c.Request().Context(), req.SessionID, auctionID, req.Offer)
	if err != nil {
		h.log.Error("Failed to place bid", "auction_id", auctionID, "error", err)
		return httpError(c, err)
	}

	price, err := h.engine.CurrentPrice(c.Request().Context(), auctionID)
	if err != nil {
		return httpError(c, err)
	}

	return c.JSON(http.StatusOK, BidResponse{Accepted: accepted, CurrentPrice: price})
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID := c.Param("id")
	ctx := c.Request().Context()

	view, err := h.engine.View(ctx, auctionID)
	if err != nil {
		return httpError(c, err)
	}

	winner, err := h.engine.CurrentWinner(ctx, auctionID)
	if err != nil {
		return httpError(c, err)
	}

	resp := AuctionStateResponse{
		ID:           view.ID,
		Seller:       view.Seller,
		Description:  view.Description,
		EndsOn:       view.EndsOn,
		CurrentPrice: view.Price,
	}
	if winner != nil {
		resp.CurrentWinner = winner.Username
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuctionHandler) DeleteAuction(c echo.Context) error {
	if err := h.engine.DeleteAuction(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
