package auction

import (
	"math/big"
	"sort"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/mitchellh/copystructure"
)

// Now returns the current time of the auction timer
func (a *Auction) Now() int64 {
	return a.timer.Time()
}

// Status returns a summary of the auction
func (a *Auction) Status() *common.AuctionStatus {
	a.rw.RLock()
	defer a.rw.RUnlock()
	now := a.timer.Time()

	status := &common.AuctionStatus{
		Now:   now,
		Phase: common.RoundPhaseNone,
		Pools: a.poolsLocked(),
	}
	if rs := a.current; rs != nil {
		status.Phase = rs.round.Phase(now)
		status.Round = rs.round.Copy()
		status.TimeLeft = rs.round.TimeLeft(now)
		status.Players = len(rs.players)
		status.Text = common.JoinSlots(rs.slots[:])
	}
	return status
}

// CurrentRound returns the current round, or ErrNoRound if no round was
// ever created
func (a *Auction) CurrentRound() (*common.Round, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	if a.current == nil {
		return nil, tracerr.Wrap(ErrNoRound)
	}
	return a.current.round.Copy(), nil
}

// Round returns a round by id
func (a *Auction) Round(id common.RoundID) (*common.Round, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	rs, err := a.roundLocked(id)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return rs.round.Copy(), nil
}

func (a *Auction) roundLocked(id common.RoundID) (*roundState, error) {
	rs, ok := a.rounds[id]
	if !ok {
		return nil, tracerr.Wrap(ErrRoundNotFound)
	}
	return rs, nil
}

// Slots returns the slots of a round
func (a *Auction) Slots(id common.RoundID) ([common.NumSlots]common.Slot, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	var slots [common.NumSlots]common.Slot
	rs, err := a.roundLocked(id)
	if err != nil {
		return slots, tracerr.Wrap(err)
	}
	for i := range rs.slots {
		slots[i] = rs.slots[i].Copy()
	}
	return slots, nil
}

// Text returns the contents of the non-empty slots of a round joined by the
// separator
func (a *Auction) Text(id common.RoundID) (string, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	rs, err := a.roundLocked(id)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	return common.JoinSlots(rs.slots[:]), nil
}

// Players returns the players of a round in order of first appearance
func (a *Auction) Players(id common.RoundID) ([]common.Player, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	rs, err := a.roundLocked(id)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	players := make([]common.Player, len(rs.players))
	for i, p := range rs.players {
		players[i] = p.Copy()
	}
	return players, nil
}

// PlayerSpend returns the total contributed by addr in a round, 0 if addr
// didn't play
func (a *Auction) PlayerSpend(id common.RoundID, addr ethCommon.Address) (*big.Int, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	rs, err := a.roundLocked(id)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if p, ok := rs.byAddr[addr]; ok {
		return common.CopyBigInt(p.Spend), nil
	}
	return big.NewInt(0), nil
}

// BidTotal returns the cumulative total of bidder on a slot of a round
func (a *Auction) BidTotal(id common.RoundID, slotIdx common.SlotIdx,
	bidder ethCommon.Address) (*big.Int, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	if int(slotIdx) >= common.NumSlots {
		return nil, tracerr.Wrap(ErrInvalidSlot)
	}
	rs, err := a.roundLocked(id)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return common.CopyBigInt(rs.total(bidKey{slot: slotIdx, bidder: bidder})), nil
}

// Distributable returns the amounts of a round that would be distributed by
// a resolution: the prize pool minus the fee and the whole secondary pool.
// For resolved rounds the fee actually kept is used.
func (a *Auction) Distributable(id common.RoundID) (map[common.Currency]*big.Int, *big.Int, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	rs, err := a.roundLocked(id)
	if err != nil {
		return nil, nil, tracerr.Wrap(err)
	}
	distributable, fee := a.distributableLocked(rs)
	return distributable, fee, nil
}

func (a *Auction) distributableLocked(rs *roundState) (map[common.Currency]*big.Int, *big.Int) {
	fee := rs.round.Fee
	if fee == nil {
		fee = a.vars.Fee(rs.round.PrizePool)
	}
	return map[common.Currency]*big.Int{
		common.CurrencyPrize:     new(big.Int).Sub(rs.round.PrizePool, fee),
		common.CurrencySecondary: common.CopyBigInt(rs.round.SecondaryPool),
	}, common.CopyBigInt(fee)
}

// Report returns everything the arbiter needs to decide the allocation of a
// round.  The returned value shares no memory with the auction.
func (a *Auction) Report(id common.RoundID) (*common.RoundReport, error) {
	a.rw.RLock()
	defer a.rw.RUnlock()
	rs, err := a.roundLocked(id)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	players := make([]common.Player, len(rs.players))
	for i, p := range rs.players {
		players[i] = *p
	}
	distributable, fee := a.distributableLocked(rs)
	report := common.RoundReport{
		Round:         rs.round,
		Slots:         rs.slots,
		Players:       players,
		Text:          common.JoinSlots(rs.slots[:]),
		Fee:           fee,
		Distributable: distributable,
	}
	reportCpy, err := copystructure.Copy(report)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	res := reportCpy.(common.RoundReport)
	return &res, nil
}

// Pools returns the global counters of the auction
func (a *Auction) Pools() common.Pools {
	a.rw.RLock()
	defer a.rw.RUnlock()
	return a.poolsLocked()
}

func (a *Auction) poolsLocked() common.Pools {
	return common.Pools{
		PendingNext:      common.CopyBigInt(a.pendingNext),
		PendingSecondary: common.CopyBigInt(a.pendingSecondary),
		AccumulatedFee:   common.CopyBigInt(a.accumulatedFee),
	}
}

// Claimable returns the claimable balance of addr in currency
func (a *Auction) Claimable(addr ethCommon.Address, currency common.Currency) *big.Int {
	a.rw.RLock()
	defer a.rw.RUnlock()
	return common.CopyBigInt(a.claimableLocked(claimKey{addr: addr, currency: currency}))
}

// Claimables returns all the non-zero claimable balances, sorted by address
// and currency
func (a *Auction) Claimables() []common.ClaimableBalance {
	a.rw.RLock()
	defer a.rw.RUnlock()
	return a.claimablesLocked()
}

func (a *Auction) claimablesLocked() []common.ClaimableBalance {
	balances := make([]common.ClaimableBalance, 0, len(a.claimable))
	for key, amount := range a.claimable {
		if amount.Sign() == 0 {
			continue
		}
		balances = append(balances, common.ClaimableBalance{
			Addr:     key.addr,
			Currency: key.currency,
			Amount:   common.CopyBigInt(amount),
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Addr != balances[j].Addr {
			return balances[i].Addr.Hex() < balances[j].Addr.Hex()
		}
		return balances[i].Currency < balances[j].Currency
	})
	return balances
}

// Variables returns a copy of the auction variables
func (a *Auction) Variables() *common.AuctionVariables {
	a.rw.RLock()
	defer a.rw.RUnlock()
	return a.vars.Copy()
}
