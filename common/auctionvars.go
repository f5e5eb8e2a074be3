package common

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
)

const (
	// RatioDenominator is the denominator of the ratios expressed in basis
	// points (SplitRatio, FeeRatio)
	RatioDenominator = 10000
)

// AuctionVariables are the owner adjustable parameters of the auction.  They
// are read every time an operation needs them, so a change applies to the
// next bid or resolution, also in the middle of a round.
type AuctionVariables struct {
	// Owner is the address allowed to change the variables, run emergency
	// resolutions and withdraw the fees
	Owner ethCommon.Address `json:"owner" validate:"required"`
	// Arbiter is the address allowed to submit allocations
	Arbiter ethCommon.Address `json:"arbiter" validate:"required"`
	// MinBid is the minimum amount of a single bid
	MinBid *big.Int `json:"minBid" validate:"required"`
	// MaxSlotsPerPlayer is the maximum number of slots a player can hold at
	// the same time in a round
	MaxSlotsPerPlayer uint8 `json:"maxSlotsPerPlayer" validate:"required,gte=1,lte=12"`
	// SplitRatio is the portion of every bid (basis points) added to the
	// current round.  The rest is reserved for the next round.
	SplitRatio uint16 `json:"splitRatio" validate:"lte=10000"`
	// FeeRatio is the portion of the prize pool (basis points) kept as
	// platform fee when a round is distributed
	FeeRatio uint16 `json:"feeRatio" validate:"lte=10000"`
	// RoundDuration in seconds, counted from the first bid
	RoundDuration int64 `json:"roundDuration" validate:"required,gt=0"`
	// AntiSnipeWindow in seconds: a bid this close to the end extends the
	// round
	AntiSnipeWindow int64 `json:"antiSnipeWindow" validate:"gte=0"`
	// AntiSnipeExtension in seconds added to the end time by a late bid
	AntiSnipeExtension int64 `json:"antiSnipeExtension" validate:"gte=0"`
	// EmergencyGrace in seconds after the end time before the owner can
	// resolve the round
	EmergencyGrace int64 `json:"emergencyGrace" validate:"gte=0"`
	// AutoAdvanceThreshold is the minimum pending next round pool required
	// to create the next round automatically after a resolution
	AutoAdvanceThreshold *big.Int `json:"autoAdvanceThreshold" validate:"required"`
}

// Copy returns a deep copy of the Variables
func (v *AuctionVariables) Copy() *AuctionVariables {
	vCpy := *v
	vCpy.MinBid = CopyBigInt(v.MinBid)
	vCpy.AutoAdvanceThreshold = CopyBigInt(v.AutoAdvanceThreshold)
	return &vCpy
}

// Validate checks the consistency of the variables
func (v *AuctionVariables) Validate() error {
	switch {
	case v.Owner == EmptyAddr:
		return tracerr.Wrap(fmt.Errorf("owner not set"))
	case v.Arbiter == EmptyAddr:
		return tracerr.Wrap(fmt.Errorf("arbiter not set"))
	case v.MinBid == nil || v.MinBid.Sign() <= 0:
		return tracerr.Wrap(fmt.Errorf("minBid must be positive"))
	case v.MaxSlotsPerPlayer == 0 || v.MaxSlotsPerPlayer > NumSlots:
		return tracerr.Wrap(fmt.Errorf("maxSlotsPerPlayer must be in [1, %d]", NumSlots))
	case v.SplitRatio > RatioDenominator:
		return tracerr.Wrap(fmt.Errorf("splitRatio must be <= %d", RatioDenominator))
	case v.FeeRatio > RatioDenominator:
		return tracerr.Wrap(fmt.Errorf("feeRatio must be <= %d", RatioDenominator))
	case v.RoundDuration <= 0:
		return tracerr.Wrap(fmt.Errorf("roundDuration must be positive"))
	case v.AntiSnipeWindow < 0 || v.AntiSnipeExtension < 0 || v.EmergencyGrace < 0:
		return tracerr.Wrap(fmt.Errorf("negative time window"))
	case v.AutoAdvanceThreshold == nil || v.AutoAdvanceThreshold.Sign() < 0:
		return tracerr.Wrap(fmt.Errorf("autoAdvanceThreshold must not be negative"))
	}
	return nil
}

// Split divides a bid amount between the current and the next round.  The
// part for the current round is floored, so the remainder always goes to
// the next round.
func (v *AuctionVariables) Split(amount *big.Int) (toCurrent, toNext *big.Int) {
	toCurrent = MulRatio(amount, v.SplitRatio)
	toNext = new(big.Int).Sub(amount, toCurrent)
	return toCurrent, toNext
}

// Fee returns the platform fee of a prize pool
func (v *AuctionVariables) Fee(prizePool *big.Int) *big.Int {
	return MulRatio(prizePool, v.FeeRatio)
}

// MulRatio returns floor(amount * ratio / RatioDenominator)
func MulRatio(amount *big.Int, ratio uint16) *big.Int {
	res := new(big.Int).Mul(amount, big.NewInt(int64(ratio)))
	return res.Div(res, big.NewInt(RatioDenominator))
}
