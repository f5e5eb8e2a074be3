package auction

import (
	"context"
	"fmt"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
)

// Resolution is the outcome of a resolution path
type Resolution struct {
	Round   common.Round    `json:"round"`
	Payouts []common.Payout `json:"payouts"`
	// Next is the round created by the auto advance, if any
	Next *common.Round `json:"next"`
}

// ResolveByArbiter distributes the current round following the allocation
// of the arbiter.  The prize allocations must add up exactly to the prize
// pool minus the fee, and the secondary allocations to the secondary pool.
// The recipients don't need to be players of the round.
func (a *Auction) ResolveByArbiter(ctx context.Context, caller ethCommon.Address,
	allocation *common.Allocation) (*Resolution, error) {
	a.rw.Lock()
	defer a.rw.Unlock()
	now := a.timer.Time()

	if caller != a.vars.Arbiter {
		return nil, tracerr.Wrap(ErrNotArbiter)
	}
	rs, err := a.resolvableLocked(now)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if allocation == nil || allocation.RoundID != rs.round.ID {
		return nil, tracerr.Wrap(ErrWrongRound)
	}
	if len(rs.players) < 2 { //nolint:gomnd
		return nil, tracerr.Wrap(ErrNeedMorePlayers)
	}

	fee := a.vars.Fee(rs.round.PrizePool)
	distributable := map[common.Currency]*big.Int{
		common.CurrencyPrize:     new(big.Int).Sub(rs.round.PrizePool, fee),
		common.CurrencySecondary: common.CopyBigInt(rs.round.SecondaryPool),
	}
	for i, entry := range allocation.Entries {
		if !entry.Currency.Valid() {
			return nil, tracerr.Wrap(fmt.Errorf("%w: entry %d: %v", ErrAllocationMismatch, i,
				common.ErrInvalidCurrency))
		}
		if entry.Amount == nil || entry.Amount.Sign() < 0 {
			return nil, tracerr.Wrap(fmt.Errorf("%w: entry %d: negative amount", ErrAllocationMismatch, i))
		}
		if entry.To == common.EmptyAddr && entry.Amount.Sign() > 0 {
			return nil, tracerr.Wrap(fmt.Errorf("entry %d: %w", i, ErrInvalidAddress))
		}
	}
	for _, currency := range common.Currencies {
		if sum := allocation.Sum(currency); sum.Cmp(distributable[currency]) != 0 {
			log.Errorw("arbiter allocation mismatch", "round", rs.round.ID, "currency", currency,
				"allocated", sum, "distributable", distributable[currency])
			return nil, tracerr.Wrap(fmt.Errorf("%w: %v allocated %v, distributable %v",
				ErrAllocationMismatch, currency, sum, distributable[currency]))
		}
	}

	payouts := make([]common.Payout, 0, len(allocation.Entries))
	for _, entry := range allocation.Entries {
		if entry.Amount.Sign() == 0 {
			continue
		}
		payouts = append(payouts, a.newPayout(rs.round.ID, entry.To, entry.Currency, entry.Amount,
			common.PayoutKindArbiter, now))
	}
	a.accumulatedFee = new(big.Int).Add(a.accumulatedFee, fee)
	return a.finishResolution(ctx, rs, common.ResolutionArbiter, fee, payouts, now), nil
}

// SoloRefund resolves a round that had no competition.  Anyone can call it.
// With one player, the player gets back the full amount spent in the round
// and the rest of the prize pool (the seed and fundings) is carried to the
// next round.  With no players both pools are carried to the next round.
func (a *Auction) SoloRefund(ctx context.Context) (*Resolution, error) {
	a.rw.Lock()
	defer a.rw.Unlock()
	now := a.timer.Time()

	rs, err := a.resolvableLocked(now)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if len(rs.players) >= 2 { //nolint:gomnd
		return nil, tracerr.Wrap(ErrHasMultiplePlayers)
	}
	payouts, err := a.soloRefundLocked(rs, now)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return a.finishResolution(ctx, rs, common.ResolutionSoloRefund, big.NewInt(0), payouts, now), nil
}

// soloRefundLocked carries the pools forward and returns the refund
// payouts.  Must be called with the write lock held.
func (a *Auction) soloRefundLocked(rs *roundState, now int64) ([]common.Payout, error) {
	var payouts []common.Payout
	carried := common.CopyBigInt(rs.round.PrizePool)
	if len(rs.players) == 1 {
		player := rs.players[0]
		carried.Sub(carried, player.Spend)
		// The part of the spend that went to the next round is already in
		// pendingNext, so the sum can't be negative
		if new(big.Int).Add(a.pendingNext, carried).Sign() < 0 {
			return nil, tracerr.Wrap(fmt.Errorf("refund of %v exceeds the funds of round %v",
				player.Spend, rs.round.ID))
		}
		payouts = append(payouts, a.newPayout(rs.round.ID, player.Addr, common.CurrencyPrize,
			player.Spend, common.PayoutKindRefund, now))
	}
	a.pendingNext = new(big.Int).Add(a.pendingNext, carried)
	a.pendingSecondary = new(big.Int).Add(a.pendingSecondary, rs.round.SecondaryPool)
	return payouts, nil
}

// EmergencyResolve lets the owner distribute a round the arbiter didn't
// resolve, once the emergency grace period after its end has elapsed.  With
// less than two players it behaves as SoloRefund.  Otherwise the prize pool
// minus the fee and the secondary pool are split proportionally to the spend
// of every player, and the rounding remainder goes to the last player in
// order of first appearance.
func (a *Auction) EmergencyResolve(ctx context.Context, caller ethCommon.Address) (*Resolution, error) {
	a.rw.Lock()
	defer a.rw.Unlock()
	now := a.timer.Time()

	if caller != a.vars.Owner {
		return nil, tracerr.Wrap(ErrNotOwner)
	}
	rs, err := a.resolvableLocked(now)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if now < rs.round.EndTime+a.vars.EmergencyGrace {
		return nil, tracerr.Wrap(ErrEmergencyNotReady)
	}

	if len(rs.players) < 2 { //nolint:gomnd
		payouts, err := a.soloRefundLocked(rs, now)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		return a.finishResolution(ctx, rs, common.ResolutionSoloRefund, big.NewInt(0), payouts, now), nil
	}

	fee := a.vars.Fee(rs.round.PrizePool)
	totalSpend := rs.totalSpend()
	payouts := make([]common.Payout, 0, 2*len(rs.players)) //nolint:gomnd
	pools := []struct {
		currency common.Currency
		amount   *big.Int
	}{
		{common.CurrencyPrize, new(big.Int).Sub(rs.round.PrizePool, fee)},
		{common.CurrencySecondary, rs.round.SecondaryPool},
	}
	for _, pool := range pools {
		shares := ProportionalShares(pool.amount, rs.players, totalSpend)
		for i, share := range shares {
			if share.Sign() == 0 {
				continue
			}
			payouts = append(payouts, a.newPayout(rs.round.ID, rs.players[i].Addr, pool.currency,
				share, common.PayoutKindEmergency, now))
		}
	}
	a.accumulatedFee = new(big.Int).Add(a.accumulatedFee, fee)
	log.Warnw("emergency resolution", "round", rs.round.ID, "players", len(rs.players))
	return a.finishResolution(ctx, rs, common.ResolutionEmergency, fee, payouts, now), nil
}

// ProportionalShares splits total proportionally to the spend of every
// player: share = floor(total * spend / totalSpend).  The rounding remainder
// is added to the share of the last player.
func ProportionalShares(total *big.Int, players []*common.Player, totalSpend *big.Int) []*big.Int {
	shares := make([]*big.Int, len(players))
	if len(players) == 0 {
		return shares
	}
	assigned := big.NewInt(0)
	for i, p := range players {
		if totalSpend.Sign() == 0 {
			shares[i] = big.NewInt(0)
			continue
		}
		share := new(big.Int).Mul(total, p.Spend)
		share.Div(share, totalSpend)
		shares[i] = share
		assigned.Add(assigned, share)
	}
	last := shares[len(shares)-1]
	last.Add(last, new(big.Int).Sub(total, assigned))
	return shares
}

// finishResolution marks the round as resolved, sends the payouts and runs
// the auto advance.  Payouts rejected by the ledger are parked as claimable
// balances, so one bad recipient never blocks the rest.  Must be called with
// the write lock held, once all the pool bookkeeping is done.
func (a *Auction) finishResolution(ctx context.Context, rs *roundState, resolution common.Resolution,
	fee *big.Int, payouts []common.Payout, now int64) *Resolution {
	rs.round.Resolved = true
	rs.round.Resolution = resolution
	rs.round.ResolvedAt = now
	rs.round.Fee = common.CopyBigInt(fee)

	for i := range payouts {
		payouts[i].Delivered = a.deliverLocked(ctx, &payouts[i])
	}
	metricResolutions.WithLabelValues(string(resolution)).Inc()
	log.Infow("round resolved", "round", rs.round.ID, "resolution", resolution, "fee", fee,
		"payouts", len(payouts))

	round := *rs.round.Copy()
	a.notify(func(l Listener) { l.RoundResolved(round, payouts) })
	next := a.autoAdvanceLocked()
	a.commit()
	return &Resolution{
		Round:   round,
		Payouts: payouts,
		Next:    next,
	}
}

func (a *Auction) newPayout(roundID common.RoundID, to ethCommon.Address, currency common.Currency,
	amount *big.Int, kind common.PayoutKind, now int64) common.Payout {
	return common.Payout{
		TransferID: uuid.New().String(),
		RoundID:    roundID,
		To:         to,
		Currency:   currency,
		Amount:     common.CopyBigInt(amount),
		Kind:       kind,
		Timestamp:  now,
	}
}

// deliverLocked requests a payout to the ledger.  If the ledger rejects it
// the amount is added to the claimable balance of the recipient.
func (a *Auction) deliverLocked(ctx context.Context, payout *common.Payout) bool {
	err := a.ledger.RequestPayout(ctx, payout.To, payout.Currency, payout.Amount)
	if err == nil {
		metricPayouts.WithLabelValues(string(payout.Kind)).Inc()
		return true
	}
	key := claimKey{addr: payout.To, currency: payout.Currency}
	a.claimable[key] = new(big.Int).Add(a.claimableLocked(key), payout.Amount)
	metricPayoutsParked.Inc()
	log.Warnw("payout failed, parked as claimable", "to", payout.To.Hex(),
		"currency", payout.Currency, "amount", payout.Amount, "err", err)
	return false
}

func (a *Auction) claimableLocked(key claimKey) *big.Int {
	if amount, ok := a.claimable[key]; ok {
		return amount
	}
	return big.NewInt(0)
}

// Claim delivers the claimable balance of caller in currency.  If the ledger
// rejects the payout again the balance is kept.
func (a *Auction) Claim(ctx context.Context, caller ethCommon.Address,
	currency common.Currency) (*common.Payout, error) {
	a.rw.Lock()
	defer a.rw.Unlock()

	key := claimKey{addr: caller, currency: currency}
	amount := a.claimableLocked(key)
	if amount.Sign() == 0 {
		return nil, tracerr.Wrap(ErrNothingToClaim)
	}
	delete(a.claimable, key)
	payout := a.newPayout(0, caller, currency, amount, common.PayoutKindClaim, a.timer.Time())
	if err := a.ledger.RequestPayout(ctx, caller, currency, amount); err != nil {
		a.claimable[key] = amount
		return nil, tracerr.Wrap(err)
	}
	payout.Delivered = true
	metricPayouts.WithLabelValues(string(payout.Kind)).Inc()
	log.Infow("claimable balance delivered", "to", caller.Hex(), "currency", currency, "amount", amount)
	a.notify(func(l Listener) { l.PayoutProcessed(payout) })
	a.commit()
	return &payout, nil
}

// WithdrawFees sends the accumulated platform fee to the address chosen by
// the owner.  A rejected transfer is parked as claimable for that address.
func (a *Auction) WithdrawFees(ctx context.Context, caller, to ethCommon.Address) (*common.Payout, error) {
	a.rw.Lock()
	defer a.rw.Unlock()

	if caller != a.vars.Owner {
		return nil, tracerr.Wrap(ErrNotOwner)
	}
	if to == common.EmptyAddr {
		return nil, tracerr.Wrap(ErrInvalidAddress)
	}
	if a.accumulatedFee.Sign() == 0 {
		return nil, tracerr.Wrap(ErrNothingToClaim)
	}
	payout := a.newPayout(0, to, common.CurrencyPrize, a.accumulatedFee, common.PayoutKindFee,
		a.timer.Time())
	a.accumulatedFee = big.NewInt(0)
	payout.Delivered = a.deliverLocked(ctx, &payout)
	a.notify(func(l Listener) { l.PayoutProcessed(payout) })
	a.commit()
	return &payout, nil
}
