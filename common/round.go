package common

import (
	"math/big"
)

// RoundID identifies a round of the auction.  Round ids are assigned
// incrementally starting at 1 and are never reused.
type RoundID int64

// RoundPhase is the lifecycle phase of a round
type RoundPhase string

const (
	// RoundPhaseNone is reported when no round has ever been created
	RoundPhaseNone RoundPhase = "none"
	// RoundPhasePending is a round that exists but has not received its
	// first bid, so its timer is not running
	RoundPhasePending RoundPhase = "pending"
	// RoundPhaseActive is a round with a running timer
	RoundPhaseActive RoundPhase = "active"
	// RoundPhaseEnded is a round whose timer expired but that has not been
	// resolved yet
	RoundPhaseEnded RoundPhase = "ended"
	// RoundPhaseResolved is the terminal phase of a round
	RoundPhaseResolved RoundPhase = "resolved"
)

// Resolution identifies the path used to resolve a round
type Resolution string

const (
	// ResolutionNone is the resolution of a round that is not resolved
	ResolutionNone Resolution = ""
	// ResolutionArbiter is used when the arbiter submitted the allocation
	ResolutionArbiter Resolution = "arbiter"
	// ResolutionSoloRefund is used when the round had less than two players
	ResolutionSoloRefund Resolution = "soloRefund"
	// ResolutionEmergency is used when the owner distributed the pool
	// proportionally after the arbiter failed to act
	ResolutionEmergency Resolution = "emergency"
)

// Round is one cycle of the auction, from creation to resolution
type Round struct {
	ID        RoundID `meddler:"round_id" json:"id"`
	CreatedAt int64   `meddler:"created_at" json:"createdAt"`
	// StartedAt is 0 until the first bid
	StartedAt int64 `meddler:"started_at" json:"startedAt"`
	// EndTime is 0 while pending, and may be pushed forward by anti-snipe
	// extensions
	EndTime       int64      `meddler:"end_time" json:"endTime"`
	PrizePool     *big.Int   `meddler:"prize_pool,bigint" json:"prizePool"`
	SecondaryPool *big.Int   `meddler:"secondary_pool,bigint" json:"secondaryPool"`
	NumBids       int64      `meddler:"num_bids" json:"numBids"`
	Resolved      bool       `meddler:"resolved" json:"resolved"`
	Resolution    Resolution `meddler:"resolution" json:"resolution"`
	ResolvedAt    int64      `meddler:"resolved_at" json:"resolvedAt"`
	// Fee is the amount of the prize pool kept as platform fee.  Nil until
	// the round is resolved.
	Fee *big.Int `meddler:"fee,bigintnull" json:"fee"`
}

// NewRound returns a pending round with the given pools
func NewRound(id RoundID, createdAt int64, prizePool, secondaryPool *big.Int) *Round {
	return &Round{
		ID:            id,
		CreatedAt:     createdAt,
		PrizePool:     CopyBigInt(prizePool),
		SecondaryPool: CopyBigInt(secondaryPool),
	}
}

// Started returns true once the round has received its first bid
func (r *Round) Started() bool {
	return r.StartedAt != 0
}

// Phase computes the phase of the round at time now.  The ended phase is
// never stored: it is derived from the end time every time it's queried.
func (r *Round) Phase(now int64) RoundPhase {
	switch {
	case r.Resolved:
		return RoundPhaseResolved
	case !r.Started():
		return RoundPhasePending
	case now < r.EndTime:
		return RoundPhaseActive
	default:
		return RoundPhaseEnded
	}
}

// Open returns true if the round accepts bids and funding at time now
func (r *Round) Open(now int64) bool {
	phase := r.Phase(now)
	return phase == RoundPhasePending || phase == RoundPhaseActive
}

// TimeLeft returns the seconds left until the end of the round, 0 when the
// round is not active
func (r *Round) TimeLeft(now int64) int64 {
	if r.Phase(now) != RoundPhaseActive {
		return 0
	}
	return r.EndTime - now
}

// Copy returns a deep copy of the round
func (r *Round) Copy() *Round {
	rCpy := *r
	rCpy.PrizePool = CopyBigInt(r.PrizePool)
	rCpy.SecondaryPool = CopyBigInt(r.SecondaryPool)
	if r.Fee != nil {
		rCpy.Fee = CopyBigInt(r.Fee)
	}
	return &rCpy
}
