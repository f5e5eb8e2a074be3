/*
Package auction implements the authoritative state of the slot auction: the
round state machine, the bid ledger and the payout engine.

All the state is owned by a single Auction guarded by one lock.  Every
mutating operation (PlaceBid, CreateRound, FundCurrentRound, the three
resolution paths, Claim, WithdrawFees and the variable setters) holds the
write lock for its whole duration and either commits completely or leaves
the state untouched.  Calls to the value ledger are always done after the
internal bookkeeping: a failed deposit reverts the bookkeeping, a failed
payout is parked as a claimable balance.

There are no timers: the ended phase of a round is computed from its end time
every time the round is read or a resolution is attempted.
*/
package auction

import (
	"math/big"
	"reflect"
	"sync"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/ledger"
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

// Timer is the source of time of the auction, in unix seconds
type Timer interface {
	Time() int64
}

// RealTimer is a Timer backed by the system clock
type RealTimer struct{}

// Time returns the current unix time in seconds
func (RealTimer) Time() int64 {
	return time.Now().Unix()
}

// Listener is notified after every committed mutation, while the auction
// lock is still held, so the notifications arrive in commit order.
// Implementations must not call back into the Auction.
type Listener interface {
	RoundCreated(round common.Round)
	RoundFunded(round common.Round, funding common.Funding)
	BidPlaced(round common.Round, bid common.Bid)
	RoundResolved(round common.Round, payouts []common.Payout)
	PayoutProcessed(payout common.Payout)
	Checkpoint(cp *Checkpoint)
}

type bidKey struct {
	slot   common.SlotIdx
	bidder ethCommon.Address
}

type claimKey struct {
	addr     ethCommon.Address
	currency common.Currency
}

// roundState is the complete state of one round.  Rounds are kept after
// they are resolved so they can be queried, but they are never mutated
// again.
type roundState struct {
	round   common.Round
	slots   [common.NumSlots]common.Slot
	players []*common.Player
	byAddr  map[ethCommon.Address]*common.Player
	totals  map[bidKey]*big.Int
}

func newRoundState(round *common.Round) *roundState {
	return &roundState{
		round:  *round,
		slots:  common.NewSlots(),
		byAddr: make(map[ethCommon.Address]*common.Player),
		totals: make(map[bidKey]*big.Int),
	}
}

func (rs *roundState) total(key bidKey) *big.Int {
	if total, ok := rs.totals[key]; ok {
		return total
	}
	return big.NewInt(0)
}

func (rs *roundState) totalSpend() *big.Int {
	total := big.NewInt(0)
	for _, p := range rs.players {
		total.Add(total, p.Spend)
	}
	return total
}

// Auction is the authoritative auction ledger
type Auction struct {
	rw     sync.RWMutex
	ledger ledger.ClientInterface
	timer  Timer
	vars   *common.AuctionVariables

	rounds      map[common.RoundID]*roundState
	current     *roundState
	lastRoundID common.RoundID

	pendingNext      *big.Int
	pendingSecondary *big.Int
	accumulatedFee   *big.Int
	claimable        map[claimKey]*big.Int

	listeners []Listener
}

// NewAuction creates an Auction without rounds
func NewAuction(ledgerClient ledger.ClientInterface, timer Timer,
	vars *common.AuctionVariables) (*Auction, error) {
	if err := vars.Validate(); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &Auction{
		ledger:           ledgerClient,
		timer:            timer,
		vars:             vars.Copy(),
		rounds:           make(map[common.RoundID]*roundState),
		pendingNext:      big.NewInt(0),
		pendingSecondary: big.NewInt(0),
		accumulatedFee:   big.NewInt(0),
		claimable:        make(map[claimKey]*big.Int),
	}, nil
}

// AddListener registers a Listener
func (a *Auction) AddListener(l Listener) {
	a.rw.Lock()
	defer a.rw.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *Auction) notify(fn func(l Listener)) {
	for _, l := range a.listeners {
		fn(l)
	}
}

// commit notifies the listeners of a new checkpoint and refreshes the pool
// metrics.  Must be called with the write lock held.
func (a *Auction) commit() {
	metricPendingNext.Set(bigToFloat(a.pendingNext))
	metricAccumulatedFee.Set(bigToFloat(a.accumulatedFee))
	if a.current != nil {
		metricPrizePool.Set(bigToFloat(a.current.round.PrizePool))
	}
	if len(a.listeners) == 0 {
		return
	}
	cp := a.checkpoint()
	a.notify(func(l Listener) { l.Checkpoint(cp) })
}

// journal stores the undo functions of the mutations done by an operation,
// so they can be reverted if the ledger rejects the transfer
type journal []func()

func (j *journal) add(undo func()) {
	*j = append(*j, undo)
}

func (j journal) revert() {
	for i := len(j) - 1; i >= 0; i-- {
		j[i]()
	}
}

func bigToFloat(b *big.Int) float64 {
	f, _ := new(big.Float).SetInt(b).Float64()
	return f
}
