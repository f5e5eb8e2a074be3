package auction

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/ledger"
	"github.com/hermeznetwork/tracerr"
)

// RoundCheckpoint is the complete state of the current round
type RoundCheckpoint struct {
	Round   common.Round                 `json:"round"`
	Slots   [common.NumSlots]common.Slot `json:"slots"`
	Players []common.Player              `json:"players"`
	Totals  []common.BidTotal            `json:"totals"`
}

// Checkpoint is a snapshot of the whole auction state that can be used to
// restore it after a restart.  Resolved rounds other than the current one
// are not included: they are kept by the history database.
type Checkpoint struct {
	LastRoundID common.RoundID            `json:"lastRoundId"`
	Current     *RoundCheckpoint          `json:"current"`
	Pools       common.Pools              `json:"pools"`
	Claimable   []common.ClaimableBalance `json:"claimable"`
	Variables   common.AuctionVariables   `json:"variables"`
	Timestamp   int64                     `json:"timestamp"`
}

// Checkpoint returns a snapshot of the auction state
func (a *Auction) Checkpoint() *Checkpoint {
	a.rw.RLock()
	defer a.rw.RUnlock()
	return a.checkpoint()
}

// checkpoint must be called with the lock held
func (a *Auction) checkpoint() *Checkpoint {
	cp := &Checkpoint{
		LastRoundID: a.lastRoundID,
		Pools:       a.poolsLocked(),
		Claimable:   a.claimablesLocked(),
		Variables:   *a.vars.Copy(),
		Timestamp:   a.timer.Time(),
	}
	if rs := a.current; rs != nil {
		rcp := &RoundCheckpoint{
			Round:   *rs.round.Copy(),
			Players: make([]common.Player, len(rs.players)),
			Totals:  make([]common.BidTotal, 0, len(rs.totals)),
		}
		for i := range rs.slots {
			rcp.Slots[i] = rs.slots[i].Copy()
		}
		for i, p := range rs.players {
			rcp.Players[i] = p.Copy()
		}
		for key, total := range rs.totals {
			rcp.Totals = append(rcp.Totals, common.BidTotal{
				SlotIdx: key.slot,
				Bidder:  key.bidder,
				Total:   common.CopyBigInt(total),
			})
		}
		sort.Slice(rcp.Totals, func(i, j int) bool {
			if rcp.Totals[i].SlotIdx != rcp.Totals[j].SlotIdx {
				return rcp.Totals[i].SlotIdx < rcp.Totals[j].SlotIdx
			}
			return rcp.Totals[i].Bidder.Hex() < rcp.Totals[j].Bidder.Hex()
		})
		cp.Current = rcp
	}
	return cp
}

// NewAuctionFromCheckpoint restores an Auction from a checkpoint.  The
// variables stored in the checkpoint are used, since they may have been
// changed by the owner after the start.
func NewAuctionFromCheckpoint(ledgerClient ledger.ClientInterface, timer Timer,
	cp *Checkpoint) (*Auction, error) {
	a, err := NewAuction(ledgerClient, timer, &cp.Variables)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	a.lastRoundID = cp.LastRoundID
	a.pendingNext = common.CopyBigInt(cp.Pools.PendingNext)
	a.pendingSecondary = common.CopyBigInt(cp.Pools.PendingSecondary)
	a.accumulatedFee = common.CopyBigInt(cp.Pools.AccumulatedFee)
	for _, balance := range cp.Claimable {
		key := claimKey{addr: balance.Addr, currency: balance.Currency}
		a.claimable[key] = new(big.Int).Add(a.claimableLocked(key), balance.Amount)
	}
	if cp.Current == nil {
		return a, nil
	}

	rcp := cp.Current
	if rcp.Round.ID != cp.LastRoundID {
		return nil, tracerr.Wrap(fmt.Errorf("checkpoint current round %v is not the last round %v",
			rcp.Round.ID, cp.LastRoundID))
	}
	rs := newRoundState(&rcp.Round)
	rs.round = *rcp.Round.Copy()
	for i := range rcp.Slots {
		rs.slots[i] = rcp.Slots[i].Copy()
	}
	for i := range rcp.Players {
		p := rcp.Players[i].Copy()
		rs.players = append(rs.players, &p)
		rs.byAddr[p.Addr] = &p
	}
	for _, total := range rcp.Totals {
		if int(total.SlotIdx) >= common.NumSlots {
			return nil, tracerr.Wrap(ErrInvalidSlot)
		}
		rs.totals[bidKey{slot: total.SlotIdx, bidder: total.Bidder}] = common.CopyBigInt(total.Total)
	}
	for i := range rs.slots {
		if owner := rs.slots[i].Owner; owner != common.EmptyAddr {
			if _, ok := rs.byAddr[owner]; !ok {
				return nil, tracerr.Wrap(fmt.Errorf("slot %d owner %v is not a player", i, owner.Hex()))
			}
		}
	}
	a.rounds[rs.round.ID] = rs
	a.current = rs
	return a, nil
}
