/*
Package ledger defines the boundary with the value ledger: the external system
that holds the balances and actually moves the currencies.  The auction only
requests deposits (when a bid or a funding is accepted) and payouts (when a
round is resolved or a claimable balance is claimed).
*/
package ledger

import (
	"context"
	"errors"
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
)

var (
	// ErrTransferRejected is returned when the ledger refuses a transfer
	ErrTransferRejected = errors.New("transfer rejected by the ledger")
	// ErrInsufficientBalance is returned when the payer can't cover a deposit
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ClientInterface is the value ledger interface used by the auction.  Both
// calls must be all-or-nothing: an error means no value was moved.
type ClientInterface interface {
	// RequestDeposit moves amount of currency from the payer into the
	// auction
	RequestDeposit(ctx context.Context, from ethCommon.Address, currency common.Currency,
		amount *big.Int) error
	// RequestPayout moves amount of currency from the auction to the
	// recipient
	RequestPayout(ctx context.Context, to ethCommon.Address, currency common.Currency,
		amount *big.Int) error
}
