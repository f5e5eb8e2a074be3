package common

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// PayoutKind identifies why an amount was sent out of the auction
type PayoutKind string

const (
	// PayoutKindArbiter is a transfer decided by the arbiter
	PayoutKindArbiter PayoutKind = "arbiter"
	// PayoutKindRefund is the refund of a round without competition
	PayoutKindRefund PayoutKind = "refund"
	// PayoutKindEmergency is a proportional share of an emergency resolution
	PayoutKindEmergency PayoutKind = "emergency"
	// PayoutKindFee is a withdrawal of the accumulated platform fee
	PayoutKindFee PayoutKind = "fee"
	// PayoutKindClaim is the delivery of a claimable balance
	PayoutKindClaim PayoutKind = "claim"
)

// Payout is a transfer requested to the value ledger
type Payout struct {
	TransferID string            `meddler:"transfer_id" json:"transferId"`
	RoundID    RoundID           `meddler:"round_id" json:"roundId"`
	To         ethCommon.Address `meddler:"to_addr" json:"to"`
	Currency   Currency          `meddler:"currency" json:"currency"`
	Amount     *big.Int          `meddler:"amount,bigint" json:"amount"`
	Kind       PayoutKind        `meddler:"kind" json:"kind"`
	// Delivered is false when the ledger rejected the transfer and the
	// amount was parked as claimable
	Delivered bool  `meddler:"delivered" json:"delivered"`
	Timestamp int64 `meddler:"timestamp" json:"timestamp"`
}

// AllocationEntry is one transfer of an arbiter allocation
type AllocationEntry struct {
	To       ethCommon.Address `json:"to"`
	Currency Currency          `json:"currency"`
	Amount   *big.Int          `json:"amount"`
}

// Allocation is the decision of the arbiter for a round
type Allocation struct {
	RoundID RoundID           `json:"roundId"`
	Entries []AllocationEntry `json:"entries"`
}

// Sum returns the total amount allocated in a currency
func (a *Allocation) Sum(currency Currency) *big.Int {
	sum := big.NewInt(0)
	for i := range a.Entries {
		if a.Entries[i].Currency == currency && a.Entries[i].Amount != nil {
			sum.Add(sum, a.Entries[i].Amount)
		}
	}
	return sum
}

// ClaimableBalance is an amount that could not be delivered and is waiting
// to be claimed by its owner
type ClaimableBalance struct {
	Addr     ethCommon.Address `json:"addr"`
	Currency Currency          `json:"currency"`
	Amount   *big.Int          `json:"amount"`
}

// Pools are the global counters of the auction
type Pools struct {
	// PendingNext is the amount reserved for the next round
	PendingNext *big.Int `json:"pendingNext"`
	// PendingSecondary is the secondary currency reserved for the next round
	PendingSecondary *big.Int `json:"pendingSecondary"`
	// AccumulatedFee is the platform fee not yet withdrawn
	AccumulatedFee *big.Int `json:"accumulatedFee"`
}

// Copy returns a deep copy of the pools
func (p *Pools) Copy() Pools {
	return Pools{
		PendingNext:      CopyBigInt(p.PendingNext),
		PendingSecondary: CopyBigInt(p.PendingSecondary),
		AccumulatedFee:   CopyBigInt(p.AccumulatedFee),
	}
}
