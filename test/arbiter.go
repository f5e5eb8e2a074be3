package test

import (
	"context"
	"math/big"
	"sync"

	"github.com/hermeznetwork/slotauction/common"
)

// Arbiter is an arbiter.Client stub.  By default it allocates every
// distributable pool to the player that spent the most in the round, the
// first one on ties.
type Arbiter struct {
	rw      sync.Mutex
	decide  func(report *common.RoundReport) (*common.Allocation, error)
	reports []common.RoundReport
}

// NewArbiter creates an Arbiter with the default decision
func NewArbiter() *Arbiter {
	return &Arbiter{decide: TopSpenderAllocation}
}

// CtlDecide replaces the decision function
func (a *Arbiter) CtlDecide(decide func(report *common.RoundReport) (*common.Allocation, error)) {
	a.rw.Lock()
	defer a.rw.Unlock()
	a.decide = decide
}

// Reports returns the reports received so far
func (a *Arbiter) Reports() []common.RoundReport {
	a.rw.Lock()
	defer a.rw.Unlock()
	return append([]common.RoundReport{}, a.reports...)
}

// Decide implements arbiter.Client
func (a *Arbiter) Decide(ctx context.Context, report *common.RoundReport) (*common.Allocation, error) {
	a.rw.Lock()
	defer a.rw.Unlock()
	a.reports = append(a.reports, *report)
	return a.decide(report)
}

// TopSpenderAllocation allocates every distributable pool of the report to
// the player with the highest spend
func TopSpenderAllocation(report *common.RoundReport) (*common.Allocation, error) {
	allocation := &common.Allocation{RoundID: report.Round.ID}
	if len(report.Players) == 0 {
		return allocation, nil
	}
	top := report.Players[0]
	for _, p := range report.Players[1:] {
		if p.Spend.Cmp(top.Spend) > 0 {
			top = p
		}
	}
	for _, currency := range common.Currencies {
		amount, ok := report.Distributable[currency]
		if !ok || amount.Sign() == 0 {
			continue
		}
		allocation.Entries = append(allocation.Entries, common.AllocationEntry{
			To:       top.Addr,
			Currency: currency,
			Amount:   new(big.Int).Set(amount),
		})
	}
	return allocation, nil
}
