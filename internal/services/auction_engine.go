package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auctionsite/internal/domain"
	"auctionsite/pkg/logger"
)

// bidRetries bounds the transparent retries after a lost race on the
// same auction row before the conflict surfaces to the caller.
const bidRetries = 3

// AuctionEngine owns the auction lifecycle and the bid-reconciliation
// state machine. Every state transition runs as one atomic unit of work:
// read the current row, decide, write, renew the session, commit.
type AuctionEngine struct {
	store    domain.Store
	clock    domain.Clock
	sessions *SessionManager
	events   domain.EventPublisher
	log      logger.Logger
}

func NewAuctionEngine(
	store domain.Store,
	clock domain.Clock,
	sessions *SessionManager,
	events domain.EventPublisher,
	log logger.Logger,
) *AuctionEngine {
	return &AuctionEngine{
		store:    store,
		clock:    clock,
		sessions: sessions,
		events:   events,
		log:      log,
	}
}

// CreateAuction opens a new auction owned by the session. The increment
// is captured from the site at creation time and immutable afterwards.
// Auction insert and session renewal commit together.
func (e *AuctionEngine) CreateAuction(ctx context.Context, sessionID, description string, endsOn time.Time, startingPrice float64) (domain.AuctionView, error) {
	if sessionID == "" {
		return domain.AuctionView{}, fmt.Errorf("create auction: %w", domain.ErrNullArgument)
	}

	var view domain.AuctionView
	err := e.store.WithinTx(ctx, func(tx domain.Tx) error {
		session, err := e.sessions.activeSession(ctx, tx, sessionID, domain.ErrInvalidOperation)
		if err != nil {
			return err
		}

		if description == "" {
			return fmt.Errorf("create auction: empty description: %w", domain.ErrInvalidArgument)
		}
		if endsOn.IsZero() {
			return fmt.Errorf("create auction: %w", domain.ErrNullArgument)
		}
		now := e.clock.Now()
		if endsOn.Before(now) {
			return fmt.Errorf("create auction: end time %s already passed: %w", endsOn, domain.ErrImpossibleSchedule)
		}
		if startingPrice < 0 {
			return fmt.Errorf("create auction: negative starting price: %w", domain.ErrOutOfRange)
		}

		site, err := tx.Sites().ByID(ctx, session.SiteID)
		if err != nil {
			return err
		}

		auction := &domain.Auction{
			ID:            uuid.NewString(),
			SiteID:        site.ID,
			SessionID:     session.ID,
			Seller:        session.Username,
			Description:   description,
			EndsOn:        endsOn,
			StartingPrice: startingPrice,
			Price:         startingPrice,
			MaximumOffer:  0,
			Increment:     site.MinimumIncrement,
			Status:        domain.StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Auctions().Insert(ctx, auction); err != nil {
			return err
		}
		if err := e.sessions.TouchInTx(ctx, tx, session); err != nil {
			return err
		}

		view = auction.View()
		return nil
	})
	if err != nil {
		e.sessions.logoutExpired(ctx, err)
		return domain.AuctionView{}, err
	}

	e.log.Info("auction created", "auction_id", view.ID, "seller", view.Seller, "ends_on", view.EndsOn)
	return view, nil
}

// Bid reconciles an offer against the auction. Accepted bids renew the
// session in the same transaction; rejected ones never do, though they
// may still raise the floor price. A lost version race is retried a
// bounded number of times before surfacing.
func (e *AuctionEngine) Bid(ctx context.Context, sessionID, auctionID string, offer float64) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("bid: %w", domain.ErrNullArgument)
	}

	var accepted bool
	var event *domain.BidEvent

	attempt := func() error {
		return e.store.WithinTx(ctx, func(tx domain.Tx) error {
			// The bidding path reports an expired session as an argument
			// fault, unlike every other session-bound operation.
			session, err := e.sessions.activeSession(ctx, tx, sessionID, domain.ErrInvalidArgument)
			if err != nil {
				return err
			}

			if offer < 0 {
				return fmt.Errorf("bid: negative offer: %w", domain.ErrOutOfRange)
			}

			auction, err := tx.Auctions().ByID(ctx, auctionID)
			if errors.Is(err, domain.ErrInexistentName) {
				return fmt.Errorf("bid on missing auction: %w", domain.ErrInvalidOperation)
			}
			if err != nil {
				return err
			}
			now := e.clock.Now()
			if !auction.Open(now) {
				return fmt.Errorf("bid on closed auction %s: %w", auctionID, domain.ErrInvalidOperation)
			}

			readVersion := auction.Version
			outcome := auction.ApplyBid(session.Username, offer)
			accepted = outcome.Accepted

			if outcome.Changed {
				auction.UpdatedAt = now
				if err := tx.Auctions().UpdateBidState(ctx, auction, readVersion); err != nil {
					return err
				}
			}
			if outcome.Accepted {
				if err := e.sessions.TouchInTx(ctx, tx, session); err != nil {
					return err
				}
			}

			eventType := domain.BidRejected
			if outcome.Accepted {
				eventType = domain.BidAccepted
			}
			event = &domain.BidEvent{
				Type:      eventType,
				AuctionID: auction.ID,
				Bidder:    session.Username,
				Amount:    offer,
				Price:     auction.Price,
				Timestamp: now,
			}
			return nil
		})
	}

	var err error
	for i := 0; i < bidRetries; i++ {
		err = attempt()
		if !errors.Is(err, domain.ErrConcurrentChange) {
			break
		}
		e.log.Debug("bid lost version race, retrying", "auction_id", auctionID, "attempt", i+1)
	}
	if err != nil {
		e.sessions.logoutExpired(ctx, err)
		return false, err
	}

	// Publishing stays outside the transaction and never fails the bid.
	if e.events != nil && event != nil {
		if pubErr := e.events.PublishBidEvent(ctx, event); pubErr != nil {
			e.log.Warn("bid event publish failed", "auction_id", auctionID, "error", pubErr)
		}
	}

	e.log.Info("bid processed", "auction_id", auctionID, "accepted", accepted, "offer", offer)
	return accepted, nil
}

// CurrentPrice returns the visible floor price. The sealed maximum never
// leaves the engine.
func (e *AuctionEngine) CurrentPrice(ctx context.Context, auctionID string) (float64, error) {
	var price float64
	err := e.store.WithinTx(ctx, func(tx domain.Tx) error {
		auction, err := tx.Auctions().ByID(ctx, auctionID)
		if err != nil {
			return err
		}
		price = auction.Price
		return nil
	})
	return price, err
}

// CurrentWinner resolves the recorded winner to a user, or nil while no
// bid has ever been accepted (or the user is gone).
func (e *AuctionEngine) CurrentWinner(ctx context.Context, auctionID string) (*domain.User, error) {
	var winner *domain.User
	err := e.store.WithinTx(ctx, func(tx domain.Tx) error {
		auction, err := tx.Auctions().ByID(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction.Winner == "" {
			return nil
		}

		user, err := tx.Users().ByName(ctx, auction.SiteID, auction.Winner)
		if errors.Is(err, domain.ErrInexistentName) {
			return nil
		}
		if err != nil {
			return err
		}
		winner = user
		return nil
	})
	return winner, err
}

// View returns the caller-visible projection of the auction.
func (e *AuctionEngine) View(ctx context.Context, auctionID string) (domain.AuctionView, error) {
	var view domain.AuctionView
	err := e.store.WithinTx(ctx, func(tx domain.Tx) error {
		auction, err := tx.Auctions().ByID(ctx, auctionID)
		if err != nil {
			return err
		}
		view = auction.View()
		return nil
	})
	return view, err
}

// DeleteAuction removes the auction. Deleting twice is an error.
func (e *AuctionEngine) DeleteAuction(ctx context.Context, auctionID string) error {
	if auctionID == "" {
		return fmt.Errorf("delete auction: %w", domain.ErrNullArgument)
	}

	err := e.store.WithinTx(ctx, func(tx domain.Tx) error {
		if err := tx.Auctions().Delete(ctx, auctionID); err != nil {
			if errors.Is(err, domain.ErrInexistentName) {
				return fmt.Errorf("delete of inactive auction: %w", domain.ErrInvalidOperation)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("auction deleted", "auction_id", auctionID)
	return nil
}
