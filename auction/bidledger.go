package auction

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
)

// ValidateWord checks that a word can be written into a slot: not empty, at
// most common.MaxWordLen bytes and without the separator.  Any other byte is
// accepted.
func ValidateWord(word string) error {
	switch {
	case len(word) == 0:
		return tracerr.Wrap(fmt.Errorf("%w: empty", ErrWordInvalid))
	case len(word) > common.MaxWordLen:
		return tracerr.Wrap(fmt.Errorf("%w: longer than %d bytes", ErrWordInvalid, common.MaxWordLen))
	case strings.Contains(word, common.WordSeparator):
		return tracerr.Wrap(fmt.Errorf("%w: contains the separator", ErrWordInvalid))
	}
	return nil
}

// PlaceBid adds amount to the cumulative total of bidder on the slot of the
// current round.  If the new total is strictly greater than the highest
// cumulative total of the slot, the bidder takes the slot and writes word
// into it.  The deposit is requested to the ledger after the bookkeeping; if
// it fails every change is reverted.
func (a *Auction) PlaceBid(ctx context.Context, bidder ethCommon.Address, slotIdx common.SlotIdx,
	word string, amount *big.Int) (*common.Bid, error) {
	a.rw.Lock()
	defer a.rw.Unlock()
	now := a.timer.Time()

	rs := a.current
	if rs == nil || !rs.round.Open(now) {
		metricBidsRejected.WithLabelValues("roundNotOpen").Inc()
		return nil, tracerr.Wrap(ErrRoundNotOpen)
	}
	if int(slotIdx) >= common.NumSlots {
		metricBidsRejected.WithLabelValues("invalidSlot").Inc()
		return nil, tracerr.Wrap(ErrInvalidSlot)
	}
	if amount == nil || amount.Cmp(a.vars.MinBid) < 0 {
		metricBidsRejected.WithLabelValues("bidTooLow").Inc()
		return nil, tracerr.Wrap(ErrBidTooLow)
	}
	if err := ValidateWord(word); err != nil {
		metricBidsRejected.WithLabelValues("wordInvalid").Inc()
		return nil, tracerr.Wrap(err)
	}
	if bidder == common.EmptyAddr {
		metricBidsRejected.WithLabelValues("invalidAddress").Inc()
		return nil, tracerr.Wrap(ErrInvalidAddress)
	}

	key := bidKey{slot: slotIdx, bidder: bidder}
	slot := &rs.slots[slotIdx]
	cumulative := new(big.Int).Add(rs.total(key), amount)
	takesSlot := cumulative.Cmp(slot.HighestCumulative) > 0
	ownerChanges := takesSlot && slot.Owner != bidder
	player, isPlayer := rs.byAddr[bidder]
	if ownerChanges && isPlayer && player.OwnedSlots >= int(a.vars.MaxSlotsPerPlayer) {
		metricBidsRejected.WithLabelValues("slotCapReached").Inc()
		return nil, tracerr.Wrap(ErrSlotCapReached)
	}

	// From here on every mutation registers its undo function
	var undo journal
	prevRound := rs.round
	undo.add(func() { rs.round = prevRound })

	// Timer
	if !rs.round.Started() {
		rs.round.StartedAt = now
		rs.round.EndTime = now + a.vars.RoundDuration
	}
	if rs.round.EndTime-now <= a.vars.AntiSnipeWindow {
		rs.round.EndTime += a.vars.AntiSnipeExtension
	}

	// Cumulative total
	prevTotal, hadTotal := rs.totals[key]
	rs.totals[key] = cumulative
	undo.add(func() {
		if hadTotal {
			rs.totals[key] = prevTotal
		} else {
			delete(rs.totals, key)
		}
	})

	// Proceeds split between this round and the next one
	toCurrent, toNext := a.vars.Split(amount)
	rs.round.PrizePool = new(big.Int).Add(rs.round.PrizePool, toCurrent)
	prevPendingNext := a.pendingNext
	a.pendingNext = new(big.Int).Add(a.pendingNext, toNext)
	undo.add(func() { a.pendingNext = prevPendingNext })

	// Player registration, in order of first appearance
	if !isPlayer {
		player = common.NewPlayer(bidder)
		rs.players = append(rs.players, player)
		rs.byAddr[bidder] = player
		undo.add(func() {
			rs.players = rs.players[:len(rs.players)-1]
			delete(rs.byAddr, bidder)
		})
	}
	prevSpend := player.Spend
	player.Spend = new(big.Int).Add(player.Spend, amount)
	undo.add(func() { player.Spend = prevSpend })

	// Ownership
	if takesSlot {
		prevSlot := *slot
		undo.add(func() { *slot = prevSlot })
		if ownerChanges {
			if slot.HasOwner() {
				prevOwner := rs.byAddr[slot.Owner]
				prevOwner.OwnedSlots--
				undo.add(func() { prevOwner.OwnedSlots++ })
			}
			player.OwnedSlots++
			undo.add(func() { player.OwnedSlots-- })
		}
		slot.Owner = bidder
		slot.Content = word
		slot.HighestCumulative = cumulative
	}

	rs.round.NumBids++
	bid := common.Bid{
		RoundID:    rs.round.ID,
		Seq:        rs.round.NumBids,
		SlotIdx:    slotIdx,
		Bidder:     bidder,
		Word:       word,
		Amount:     common.CopyBigInt(amount),
		Cumulative: common.CopyBigInt(cumulative),
		ToCurrent:  toCurrent,
		ToNext:     toNext,
		Owner:      slot.Owner == bidder,
		EndTime:    rs.round.EndTime,
		Timestamp:  now,
	}

	if err := a.ledger.RequestDeposit(ctx, bidder, common.CurrencyPrize, amount); err != nil {
		undo.revert()
		metricBidsRejected.WithLabelValues("depositFailed").Inc()
		log.Warnw("bid deposit failed, bid reverted", "round", rs.round.ID, "bidder", bidder.Hex(),
			"amount", amount, "err", err)
		return nil, tracerr.Wrap(err)
	}

	metricBids.Inc()
	log.Debugw("bid placed", "round", bid.RoundID, "slot", slotIdx, "bidder", bidder.Hex(),
		"amount", amount, "cumulative", cumulative, "owner", bid.Owner, "endTime", bid.EndTime)
	round := *rs.round.Copy()
	a.notify(func(l Listener) { l.BidPlaced(round, bid) })
	a.commit()
	return &bid, nil
}
