package auction

import (
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
)

// updateVars applies update to a copy of the variables and stores it if the
// caller is the owner and the result is valid
func (a *Auction) updateVars(caller ethCommon.Address, name string,
	update func(vars *common.AuctionVariables)) error {
	a.rw.Lock()
	defer a.rw.Unlock()

	if caller != a.vars.Owner {
		return tracerr.Wrap(ErrNotOwner)
	}
	vars := a.vars.Copy()
	update(vars)
	if err := vars.Validate(); err != nil {
		return tracerr.Wrap(fmt.Errorf("%w: %s: %v", ErrInvalidVariable, name, err))
	}
	a.vars = vars
	log.Infow("auction variable updated", "variable", name)
	a.commit()
	return nil
}

// SetMinBid sets the minimum amount of a single bid
func (a *Auction) SetMinBid(caller ethCommon.Address, minBid *big.Int) error {
	return a.updateVars(caller, "minBid", func(vars *common.AuctionVariables) {
		vars.MinBid = common.CopyBigInt(minBid)
		if minBid == nil {
			vars.MinBid = nil
		}
	})
}

// SetRoundDuration sets the duration of the rounds created from now on and
// of the current round if it has not started yet
func (a *Auction) SetRoundDuration(caller ethCommon.Address, duration int64) error {
	return a.updateVars(caller, "roundDuration", func(vars *common.AuctionVariables) {
		vars.RoundDuration = duration
	})
}

// SetFeeRatio sets the platform fee in basis points
func (a *Auction) SetFeeRatio(caller ethCommon.Address, ratio uint16) error {
	return a.updateVars(caller, "feeRatio", func(vars *common.AuctionVariables) {
		vars.FeeRatio = ratio
	})
}

// SetSplitRatio sets the portion of every bid, in basis points, that goes to
// the current round
func (a *Auction) SetSplitRatio(caller ethCommon.Address, ratio uint16) error {
	return a.updateVars(caller, "splitRatio", func(vars *common.AuctionVariables) {
		vars.SplitRatio = ratio
	})
}

// SetMaxSlotsPerPlayer sets the maximum number of slots a player can hold.
// Players already above the new cap keep their slots.
func (a *Auction) SetMaxSlotsPerPlayer(caller ethCommon.Address, maxSlots uint8) error {
	return a.updateVars(caller, "maxSlotsPerPlayer", func(vars *common.AuctionVariables) {
		vars.MaxSlotsPerPlayer = maxSlots
	})
}

// SetAntiSnipe sets the anti-snipe window and extension, in seconds
func (a *Auction) SetAntiSnipe(caller ethCommon.Address, window, extension int64) error {
	return a.updateVars(caller, "antiSnipe", func(vars *common.AuctionVariables) {
		vars.AntiSnipeWindow = window
		vars.AntiSnipeExtension = extension
	})
}

// SetAutoAdvanceThreshold sets the minimum pending next round pool required
// to create the next round after a resolution
func (a *Auction) SetAutoAdvanceThreshold(caller ethCommon.Address, threshold *big.Int) error {
	return a.updateVars(caller, "autoAdvanceThreshold", func(vars *common.AuctionVariables) {
		vars.AutoAdvanceThreshold = common.CopyBigInt(threshold)
		if threshold == nil {
			vars.AutoAdvanceThreshold = nil
		}
	})
}

// SetArbiter replaces the arbiter
func (a *Auction) SetArbiter(caller, arbiter ethCommon.Address) error {
	return a.updateVars(caller, "arbiter", func(vars *common.AuctionVariables) {
		vars.Arbiter = arbiter
	})
}

// TransferOwnership replaces the owner
func (a *Auction) TransferOwnership(caller, owner ethCommon.Address) error {
	return a.updateVars(caller, "owner", func(vars *common.AuctionVariables) {
		vars.Owner = owner
	})
}

// VariablesUpdate holds the new values of the variables changed together by
// UpdateVariables.  Nil fields are left unchanged.
type VariablesUpdate struct {
	MinBid               *big.Int
	MaxSlotsPerPlayer    *uint8
	SplitRatio           *uint16
	FeeRatio             *uint16
	RoundDuration        *int64
	AntiSnipeWindow      *int64
	AntiSnipeExtension   *int64
	AutoAdvanceThreshold *big.Int
	Arbiter              *ethCommon.Address
	Owner                *ethCommon.Address
}

// Empty returns true if the update doesn't change any variable
func (u *VariablesUpdate) Empty() bool {
	return *u == VariablesUpdate{}
}

// UpdateVariables applies every change of u at once: either all of them are
// stored or, if the caller is not the owner or the resulting variables are
// invalid, none is
func (a *Auction) UpdateVariables(caller ethCommon.Address, u *VariablesUpdate) error {
	if u.Empty() {
		return tracerr.Wrap(fmt.Errorf("%w: no variable to update", ErrInvalidVariable))
	}
	return a.updateVars(caller, "variables", func(vars *common.AuctionVariables) {
		if u.MinBid != nil {
			vars.MinBid = common.CopyBigInt(u.MinBid)
		}
		if u.MaxSlotsPerPlayer != nil {
			vars.MaxSlotsPerPlayer = *u.MaxSlotsPerPlayer
		}
		if u.SplitRatio != nil {
			vars.SplitRatio = *u.SplitRatio
		}
		if u.FeeRatio != nil {
			vars.FeeRatio = *u.FeeRatio
		}
		if u.RoundDuration != nil {
			vars.RoundDuration = *u.RoundDuration
		}
		if u.AntiSnipeWindow != nil {
			vars.AntiSnipeWindow = *u.AntiSnipeWindow
		}
		if u.AntiSnipeExtension != nil {
			vars.AntiSnipeExtension = *u.AntiSnipeExtension
		}
		if u.AutoAdvanceThreshold != nil {
			vars.AutoAdvanceThreshold = common.CopyBigInt(u.AutoAdvanceThreshold)
		}
		if u.Arbiter != nil {
			vars.Arbiter = *u.Arbiter
		}
		if u.Owner != nil {
			vars.Owner = *u.Owner
		}
	})
}
