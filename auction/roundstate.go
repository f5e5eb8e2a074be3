package auction

import (
	"context"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
)

// CreateRound creates a new pending round.  It can only be called when there
// is no round or the current one is resolved.  The prize pool of the new
// round is the pending next round pool plus topUp, which is deposited from
// caller.  The pending secondary pool becomes the secondary pool of the
// round.
func (a *Auction) CreateRound(ctx context.Context, caller ethCommon.Address,
	topUp *big.Int) (*common.Round, error) {
	a.rw.Lock()
	defer a.rw.Unlock()

	if a.current != nil && !a.current.round.Resolved {
		return nil, tracerr.Wrap(ErrRoundInProgress)
	}
	if topUp == nil {
		topUp = big.NewInt(0)
	}
	if topUp.Sign() < 0 {
		return nil, tracerr.Wrap(ErrInvalidAmount)
	}
	if a.pendingNext.Sign() == 0 && topUp.Sign() == 0 {
		return nil, tracerr.Wrap(ErrEmptyPrizePool)
	}
	if topUp.Sign() > 0 && caller == common.EmptyAddr {
		return nil, tracerr.Wrap(ErrInvalidAddress)
	}

	var undo journal
	prevCurrent, prevLastRoundID := a.current, a.lastRoundID
	prevPendingNext, prevPendingSecondary := a.pendingNext, a.pendingSecondary
	undo.add(func() {
		delete(a.rounds, a.lastRoundID)
		a.current, a.lastRoundID = prevCurrent, prevLastRoundID
		a.pendingNext, a.pendingSecondary = prevPendingNext, prevPendingSecondary
	})
	rs := a.newRoundLocked(topUp)

	if topUp.Sign() > 0 {
		if err := a.ledger.RequestDeposit(ctx, caller, common.CurrencyPrize, topUp); err != nil {
			undo.revert()
			log.Warnw("round top up deposit failed", "caller", caller.Hex(), "topUp", topUp, "err", err)
			return nil, tracerr.Wrap(err)
		}
	}
	a.roundCreated(rs)
	a.commit()
	return rs.round.Copy(), nil
}

// newRoundLocked creates the next round consuming the pending pools.  Must
// be called with the write lock held.
func (a *Auction) newRoundLocked(topUp *big.Int) *roundState {
	prizePool := new(big.Int).Add(a.pendingNext, topUp)
	a.lastRoundID++
	round := common.NewRound(a.lastRoundID, a.timer.Time(), prizePool, a.pendingSecondary)
	rs := newRoundState(round)
	a.rounds[round.ID] = rs
	a.current = rs
	a.pendingNext = big.NewInt(0)
	a.pendingSecondary = big.NewInt(0)
	return rs
}

func (a *Auction) roundCreated(rs *roundState) {
	metricRounds.Inc()
	log.Infow("round created", "round", rs.round.ID, "prizePool", rs.round.PrizePool,
		"secondaryPool", rs.round.SecondaryPool)
	round := *rs.round.Copy()
	a.notify(func(l Listener) { l.RoundCreated(round) })
}

// autoAdvanceLocked creates the next round right after a resolution when
// the pending next round pool reached the threshold.  Must be called with
// the write lock held.
func (a *Auction) autoAdvanceLocked() *common.Round {
	if a.pendingNext.Sign() == 0 || a.pendingNext.Cmp(a.vars.AutoAdvanceThreshold) < 0 {
		log.Infow("no auto advance", "pendingNext", a.pendingNext,
			"threshold", a.vars.AutoAdvanceThreshold)
		return nil
	}
	rs := a.newRoundLocked(big.NewInt(0))
	a.roundCreated(rs)
	return rs.round.Copy()
}

// FundCurrentRound adds amount of currency to the pools of the current
// round.  Only pending and active rounds can be funded.
func (a *Auction) FundCurrentRound(ctx context.Context, from ethCommon.Address,
	currency common.Currency, amount *big.Int) (*common.Funding, error) {
	a.rw.Lock()
	defer a.rw.Unlock()
	now := a.timer.Time()

	rs := a.current
	if rs == nil || !rs.round.Open(now) {
		return nil, tracerr.Wrap(ErrRoundNotOpen)
	}
	if !currency.Valid() {
		return nil, tracerr.Wrap(common.ErrInvalidCurrency)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, tracerr.Wrap(ErrInvalidAmount)
	}
	if from == common.EmptyAddr {
		return nil, tracerr.Wrap(ErrInvalidAddress)
	}

	prevRound := rs.round
	switch currency {
	case common.CurrencyPrize:
		rs.round.PrizePool = new(big.Int).Add(rs.round.PrizePool, amount)
	case common.CurrencySecondary:
		rs.round.SecondaryPool = new(big.Int).Add(rs.round.SecondaryPool, amount)
	}
	if err := a.ledger.RequestDeposit(ctx, from, currency, amount); err != nil {
		rs.round = prevRound
		log.Warnw("round funding deposit failed", "from", from.Hex(), "amount", amount, "err", err)
		return nil, tracerr.Wrap(err)
	}

	funding := common.Funding{
		FundingID: uuid.New().String(),
		RoundID:   rs.round.ID,
		From:      from,
		Currency:  currency,
		Amount:    common.CopyBigInt(amount),
		Timestamp: now,
	}
	log.Infow("round funded", "round", rs.round.ID, "from", from.Hex(), "currency", currency,
		"amount", amount)
	round := *rs.round.Copy()
	a.notify(func(l Listener) { l.RoundFunded(round, funding) })
	a.commit()
	return &funding, nil
}

// resolvableLocked returns the current round if it can be resolved at time
// now.  Must be called with the lock held.
func (a *Auction) resolvableLocked(now int64) (*roundState, error) {
	rs := a.current
	switch {
	case rs == nil:
		return nil, tracerr.Wrap(ErrNoRound)
	case rs.round.Resolved:
		return nil, tracerr.Wrap(ErrRoundAlreadyResolved)
	case !rs.round.Started():
		return nil, tracerr.Wrap(ErrRoundNotStarted)
	case now < rs.round.EndTime:
		return nil, tracerr.Wrap(ErrRoundStillActive)
	}
	return rs, nil
}
