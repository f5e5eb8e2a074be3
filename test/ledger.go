package test

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"sync"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/ledger"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/tracerr"
	"github.com/mitchellh/copystructure"
)

func init() {
	copystructure.Copiers[reflect.TypeOf(big.Int{})] =
		func(raw interface{}) (interface{}, error) {
			in := raw.(big.Int)
			out := new(big.Int).Set(&in)
			return *out, nil
		}
}

// Balances are the funds of every account in every currency
type Balances map[ethCommon.Address]map[common.Currency]*big.Int

// Transfer is a transfer accepted by the Ledger
type Transfer struct {
	Deposit  bool
	Addr     ethCommon.Address
	Currency common.Currency
	Amount   *big.Int
}

// Ledger implements the ledger.ClientInterface in memory.  Deposits move
// funds from the account of the payer to the custody of the auction and
// payouts move them back.  Accounts can be set to reject transfers.
type Ledger struct {
	rw        *sync.RWMutex
	log       bool
	balances  Balances
	custody   map[common.Currency]*big.Int
	rejecting map[ethCommon.Address]bool
	transfers []Transfer
}

// NewLedger returns an empty Ledger
func NewLedger(l bool) *Ledger {
	return &Ledger{
		rw:        &sync.RWMutex{},
		log:       l,
		balances:  make(Balances),
		custody:   make(map[common.Currency]*big.Int),
		rejecting: make(map[ethCommon.Address]bool),
	}
}

var _ ledger.ClientInterface = (*Ledger)(nil)

func (l *Ledger) balance(addr ethCommon.Address, currency common.Currency) *big.Int {
	accounts, ok := l.balances[addr]
	if !ok {
		accounts = make(map[common.Currency]*big.Int)
		l.balances[addr] = accounts
	}
	if _, ok := accounts[currency]; !ok {
		accounts[currency] = big.NewInt(0)
	}
	return accounts[currency]
}

func (l *Ledger) custodyOf(currency common.Currency) *big.Int {
	if _, ok := l.custody[currency]; !ok {
		l.custody[currency] = big.NewInt(0)
	}
	return l.custody[currency]
}

// CtlMint adds funds to an account
func (l *Ledger) CtlMint(addr ethCommon.Address, currency common.Currency, amount *big.Int) {
	l.rw.Lock()
	defer l.rw.Unlock()
	balance := l.balance(addr, currency)
	balance.Add(balance, amount)
}

// CtlReject makes every transfer from or to addr fail while reject is true
func (l *Ledger) CtlReject(addr ethCommon.Address, reject bool) {
	l.rw.Lock()
	defer l.rw.Unlock()
	l.rejecting[addr] = reject
}

// RequestDeposit implements ledger.ClientInterface
func (l *Ledger) RequestDeposit(ctx context.Context, from ethCommon.Address,
	currency common.Currency, amount *big.Int) error {
	l.rw.Lock()
	defer l.rw.Unlock()
	if l.rejecting[from] {
		return tracerr.Wrap(fmt.Errorf("%w: deposit from %v", ledger.ErrTransferRejected, from.Hex()))
	}
	balance := l.balance(from, currency)
	if balance.Cmp(amount) < 0 {
		return tracerr.Wrap(fmt.Errorf("%w: %v has %v, needs %v", ledger.ErrInsufficientBalance,
			from.Hex(), balance, amount))
	}
	balance.Sub(balance, amount)
	custody := l.custodyOf(currency)
	custody.Add(custody, amount)
	l.transfers = append(l.transfers, Transfer{Deposit: true, Addr: from, Currency: currency,
		Amount: common.CopyBigInt(amount)})
	if l.log {
		log.Debugw("TestLedger deposit", "from", from.Hex(), "currency", currency, "amount", amount)
	}
	return nil
}

// RequestPayout implements ledger.ClientInterface
func (l *Ledger) RequestPayout(ctx context.Context, to ethCommon.Address,
	currency common.Currency, amount *big.Int) error {
	l.rw.Lock()
	defer l.rw.Unlock()
	if l.rejecting[to] {
		return tracerr.Wrap(fmt.Errorf("%w: payout to %v", ledger.ErrTransferRejected, to.Hex()))
	}
	custody := l.custodyOf(currency)
	if custody.Cmp(amount) < 0 {
		return tracerr.Wrap(fmt.Errorf("%w: custody has %v, needs %v", ledger.ErrInsufficientBalance,
			custody, amount))
	}
	custody.Sub(custody, amount)
	balance := l.balance(to, currency)
	balance.Add(balance, amount)
	l.transfers = append(l.transfers, Transfer{Addr: to, Currency: currency,
		Amount: common.CopyBigInt(amount)})
	if l.log {
		log.Debugw("TestLedger payout", "to", to.Hex(), "currency", currency, "amount", amount)
	}
	return nil
}

// Balance returns the funds of addr in currency
func (l *Ledger) Balance(addr ethCommon.Address, currency common.Currency) *big.Int {
	l.rw.RLock()
	defer l.rw.RUnlock()
	if accounts, ok := l.balances[addr]; ok {
		if balance, ok := accounts[currency]; ok {
			return common.CopyBigInt(balance)
		}
	}
	return big.NewInt(0)
}

// Custody returns the funds held by the auction in currency
func (l *Ledger) Custody(currency common.Currency) *big.Int {
	l.rw.RLock()
	defer l.rw.RUnlock()
	return common.CopyBigInt(l.custody[currency])
}

// Balances returns a deep copy of all the balances
func (l *Ledger) Balances() Balances {
	l.rw.RLock()
	defer l.rw.RUnlock()
	cpy, err := copystructure.Copy(l.balances)
	if err != nil {
		panic(err)
	}
	return cpy.(Balances)
}

// Transfers returns the accepted transfers in order
func (l *Ledger) Transfers() []Transfer {
	l.rw.RLock()
	defer l.rw.RUnlock()
	transfers := make([]Transfer, len(l.transfers))
	copy(transfers, l.transfers)
	return transfers
}
