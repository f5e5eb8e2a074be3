package checkers

import (
	"github.com/dimiro1/health"
	"github.com/hermeznetwork/slotauction/auction"
)

// AuctionChecker reports the state of the in memory auction
type AuctionChecker struct {
	auction *auction.Auction
}

// NewAuctionChecker init auction checker
func NewAuctionChecker(a *auction.Auction) AuctionChecker {
	return AuctionChecker{
		auction: a,
	}
}

// Check auction health.  The auction is always up, the info shows the
// current round and phase.
func (c AuctionChecker) Check() health.Health {
	h := health.NewHealth()
	status := c.auction.Status()
	h.Up().AddInfo("phase", status.Phase)
	if status.Round != nil {
		h.AddInfo("round", status.Round.ID).
			AddInfo("timeLeft", status.TimeLeft).
			AddInfo("players", status.Players)
	}
	return h
}
