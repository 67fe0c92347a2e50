package domain

// BidOutcome reports what a reconciliation attempt did to the auction.
type BidOutcome struct {
	// Accepted is the caller-visible verdict.
	Accepted bool
	// Changed is true when any persisted field moved; a rejected bid can
	// still raise the floor price.
	Changed bool
}

// ApplyBid runs the proxy-bidding ladder against the auction's current
// state and mutates price, winner and the sealed maximum accordingly.
// It is pure bookkeeping: session checks, persistence and retries belong
// to the engine.
//
// The protocol keeps the winner's true maximum sealed and moves the
// visible price only as far as needed to beat competitors by one
// increment.
func (a *Auction) ApplyBid(bidder string, offer float64) BidOutcome {
	inc := a.Increment

	// First ever offer: meeting the starting price wins, the maximum
	// stays sealed and the price does not move.
	if a.MaximumOffer == 0 {
		if offer < a.Price {
			return BidOutcome{}
		}
		a.MaximumOffer = offer
		a.Winner = bidder
		return BidOutcome{Accepted: true, Changed: true}
	}

	// The standing winner raising their own sealed maximum. Their own
	// floor never moves against them.
	if bidder == a.Winner {
		if offer < a.MaximumOffer+inc {
			return BidOutcome{}
		}
		a.MaximumOffer = offer
		return BidOutcome{Accepted: true, Changed: true}
	}

	// A challenger. Offers that beat the sealed maximum dethrone the
	// winner; these take precedence over the floor check below.
	if offer > a.MaximumOffer && offer < a.MaximumOffer+inc {
		// Barely over the maximum: the full offer becomes both the new
		// price and the new sealed maximum.
		a.Price = offer
		a.MaximumOffer = offer
		a.Winner = bidder
		return BidOutcome{Accepted: true, Changed: true}
	}

	if offer >= a.MaximumOffer+inc {
		// Classic proxy outcome: the price lands one increment above the
		// dethroned maximum, the new maximum is the full offer.
		a.Price = a.MaximumOffer + inc
		a.MaximumOffer = offer
		a.Winner = bidder
		return BidOutcome{Accepted: true, Changed: true}
	}

	// From here on the sealed maximum still dominates the offer.
	if offer < a.Price+inc {
		// Losing attempt, but it still pushes the floor up.
		a.Price = offer + inc
		return BidOutcome{Changed: true}
	}

	if offer > a.Price+inc && offer < a.MaximumOffer {
		// Beats the floor by more than an increment but not the sealed
		// maximum: floor raise only, the winner keeps the auction.
		a.Price = offer + inc
		return BidOutcome{Accepted: true, Changed: true}
	}

	return BidOutcome{}
}
