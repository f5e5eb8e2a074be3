package common

import (
	"math/big"
)

// RoundReport is everything an arbiter needs to decide the allocation of a
// round
type RoundReport struct {
	Round   Round          `json:"round"`
	Slots   [NumSlots]Slot `json:"slots"`
	Players []Player       `json:"players"`
	Text    string         `json:"text"`
	// Fee is the fee that would be kept if the round was resolved now
	Fee *big.Int `json:"fee"`
	// Distributable is the prize pool after the fee deduction, per currency
	Distributable map[Currency]*big.Int `json:"distributable"`
}

// AuctionStatus is a summary of the auction at a point in time
type AuctionStatus struct {
	Now      int64      `json:"now"`
	Phase    RoundPhase `json:"phase"`
	Round    *Round     `json:"round"`
	TimeLeft int64      `json:"timeLeft"`
	Players  int        `json:"players"`
	Text     string     `json:"text"`
	Pools    Pools      `json:"pools"`
}
