package domain

import (
	"time"
)

// Structural bounds shared by site and user administration.
const (
	MinSiteNameLen = 1
	MaxSiteNameLen = 128
	MinUsernameLen = 3
	MaxUsernameLen = 64
	MinPasswordLen = 4
	MinTimezone    = -12
	MaxTimezone    = 12
)

type Site struct {
	ID                string
	Name              string
	Timezone          int
	SessionExpiration time.Duration
	MinimumIncrement  float64
	Status            EntityStatus
	CreatedAt         time.Time
}

type User struct {
	ID           string
	SiteID       string
	Username     string
	PasswordHash string
	Status       EntityStatus
	CreatedAt    time.Time
}

type Session struct {
	ID         string
	SiteID     string
	UserID     string
	Username   string
	ValidUntil time.Time
	Status     EntityStatus
	CreatedAt  time.Time
}

// Expired reports whether the session deadline has passed. A session is
// usable only while active and now <= ValidUntil.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ValidUntil)
}

type Auction struct {
	ID          string
	SiteID      string
	SessionID   string
	Seller      string
	Description string
	EndsOn      time.Time

	StartingPrice float64
	Price         float64
	// MaximumOffer is the sealed proxy maximum. It never leaves the
	// engine; callers only ever see Price through AuctionView.
	MaximumOffer float64
	Increment    float64
	Winner       string

	Status    EntityStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the auction still accepts bids.
func (a *Auction) Open(now time.Time) bool {
	return a.Status == StatusActive && now.Before(a.EndsOn)
}

// View projects the auction into its caller-visible shape, hiding the
// sealed maximum offer.
func (a *Auction) View() AuctionView {
	return AuctionView{
		ID:          a.ID,
		SiteID:      a.SiteID,
		Seller:      a.Seller,
		Description: a.Description,
		EndsOn:      a.EndsOn,
		Price:       a.Price,
		Winner:      a.Winner,
		Status:      a.Status,
	}
}

// AuctionView is the read-only projection returned to callers.
type AuctionView struct {
	ID          string       `json:"id"`
	SiteID      string       `json:"site_id"`
	Seller      string       `json:"seller"`
	Description string       `json:"description"`
	EndsOn      time.Time    `json:"ends_on"`
	Price       float64      `json:"price"`
	Winner      string       `json:"winner,omitempty"`
	Status      EntityStatus `json:"status"`
}

// SiteInfo is the host-level enumeration row.
type SiteInfo struct {
	Name     string `json:"name"`
	Timezone int    `json:"timezone"`
}

type EntityStatus int

const (
	StatusActive EntityStatus = iota
	StatusDeleted
	// StatusEnded marks auctions the maintenance sweep found past their
	// end time. Advisory only: openness is always recomputed from EndsOn.
	StatusEnded
)

func (s EntityStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDeleted:
		return "deleted"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

type BidEvent struct {
	Type      BidEventType `json:"type"`
	AuctionID string       `json:"auction_id"`
	Bidder    string       `json:"bidder"`
	Amount    float64      `json:"amount"`
	Price     float64      `json:"price"`
	Timestamp time.Time    `json:"timestamp"`
}

type BidEventType string

const (
	BidAccepted BidEventType = "bid_accepted"
	BidRejected BidEventType = "bid_rejected"
)
