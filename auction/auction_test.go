package auction

import (
	"context"
	"math/big"
	"os"
	"sync"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("info", []string{"stdout"})
	os.Exit(m.Run())
}

const startTime = int64(1600000000)

var (
	addrs   = test.GenAddrs(6)
	owner   = addrs[0]
	arbiter = addrs[1]
	alice   = addrs[2]
	bob     = addrs[3]
	carol   = addrs[4]
	dave    = addrs[5]
)

type testSetup struct {
	a      *Auction
	ledger *test.Ledger
	clock  *test.Clock
}

// newTestSetup returns an auction without rounds where every address has
// 1e6 of both currencies.  update can be used to tweak the variables.
func newTestSetup(t *testing.T, update func(vars *common.AuctionVariables)) *testSetup {
	vars := test.AuctionVariables(owner, arbiter)
	if update != nil {
		update(vars)
	}
	ledger := test.NewLedger(false)
	for _, addr := range addrs {
		for _, currency := range common.Currencies {
			ledger.CtlMint(addr, currency, big.NewInt(1000000))
		}
	}
	clock := test.NewClock(startTime)
	a, err := NewAuction(ledger, clock, vars)
	require.NoError(t, err)
	return &testSetup{a: a, ledger: ledger, clock: clock}
}

// newRound creates a round seeded by the owner
func (s *testSetup) newRound(t *testing.T, seed int64) *common.Round {
	round, err := s.a.CreateRound(context.Background(), owner, big.NewInt(seed))
	require.NoError(t, err)
	return round
}

func (s *testSetup) bid(t *testing.T, bidder ethCommon.Address, slot common.SlotIdx, word string,
	amount int64) *common.Bid {
	bid, err := s.a.PlaceBid(context.Background(), bidder, slot, word, big.NewInt(amount))
	require.NoError(t, err)
	return bid
}

// endRound moves the clock to the end of the current round
func (s *testSetup) endRound(t *testing.T) *common.Round {
	round, err := s.a.CurrentRound()
	require.NoError(t, err)
	s.clock.Set(round.EndTime)
	return round
}

// assertBig compares the value of a big int, ignoring its internal
// representation
func assertBig(t *testing.T, expected int64, actual *big.Int, msgAndArgs ...interface{}) {
	require.NotNil(t, actual, msgAndArgs...)
	assert.Equal(t, big.NewInt(expected).String(), actual.String(), msgAndArgs...)
}

func sumPayouts(payouts []common.Payout, currency common.Currency) *big.Int {
	sum := big.NewInt(0)
	for _, p := range payouts {
		if p.Currency == currency {
			sum.Add(sum, p.Amount)
		}
	}
	return sum
}

func TestNewAuctionInvalidVariables(t *testing.T) {
	vars := test.AuctionVariables(owner, arbiter)
	vars.MinBid = big.NewInt(0)
	_, err := NewAuction(test.NewLedger(false), test.NewClock(startTime), vars)
	assert.Error(t, err)

	vars = test.AuctionVariables(owner, arbiter)
	vars.MaxSlotsPerPlayer = 13
	_, err = NewAuction(test.NewLedger(false), test.NewClock(startTime), vars)
	assert.Error(t, err)

	vars = test.AuctionVariables(common.EmptyAddr, arbiter)
	_, err = NewAuction(test.NewLedger(false), test.NewClock(startTime), vars)
	assert.Error(t, err)
}

func TestStatusNoRound(t *testing.T) {
	s := newTestSetup(t, nil)
	status := s.a.Status()
	assert.Equal(t, common.RoundPhaseNone, status.Phase)
	assert.Nil(t, status.Round)
	assert.Equal(t, startTime, status.Now)
	assertBig(t, 0, status.Pools.PendingNext)

	_, err := s.a.CurrentRound()
	assert.ErrorIs(t, err, ErrNoRound)
	_, err = s.a.Round(1)
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

type recorder struct {
	created     []common.Round
	funded      []common.Funding
	bids        []common.Bid
	resolved    []common.Round
	payouts     [][]common.Payout
	processed   []common.Payout
	checkpoints []*Checkpoint
}

func (r *recorder) RoundCreated(round common.Round) { r.created = append(r.created, round) }
func (r *recorder) RoundFunded(round common.Round, funding common.Funding) {
	r.funded = append(r.funded, funding)
}
func (r *recorder) BidPlaced(round common.Round, bid common.Bid) { r.bids = append(r.bids, bid) }
func (r *recorder) RoundResolved(round common.Round, payouts []common.Payout) {
	r.resolved = append(r.resolved, round)
	r.payouts = append(r.payouts, payouts)
}
func (r *recorder) PayoutProcessed(payout common.Payout) { r.processed = append(r.processed, payout) }
func (r *recorder) Checkpoint(cp *Checkpoint)            { r.checkpoints = append(r.checkpoints, cp) }

func TestListener(t *testing.T) {
	s := newTestSetup(t, nil)
	rec := &recorder{}
	s.a.AddListener(rec)

	s.newRound(t, 100)
	s.bid(t, alice, 0, "hello", 10)
	// Rejected operations are not notified
	_, err := s.a.PlaceBid(context.Background(), alice, 0, "", big.NewInt(10))
	require.Error(t, err)
	s.endRound(t)
	_, err = s.a.SoloRefund(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, len(rec.created))
	assert.Equal(t, common.RoundID(1), rec.created[0].ID)
	assert.Equal(t, common.RoundID(2), rec.created[1].ID)
	require.Equal(t, 1, len(rec.bids))
	assert.Equal(t, int64(1), rec.bids[0].Seq)
	require.Equal(t, 1, len(rec.resolved))
	assert.Equal(t, common.ResolutionSoloRefund, rec.resolved[0].Resolution)
	require.Equal(t, 1, len(rec.payouts[0]))
	assert.Equal(t, alice, rec.payouts[0][0].To)
	// One checkpoint per committed operation
	require.Equal(t, 3, len(rec.checkpoints))
	last := rec.checkpoints[2]
	assert.Equal(t, common.RoundID(2), last.LastRoundID)
	require.NotNil(t, last.Current)
	assert.Equal(t, common.RoundID(2), last.Current.Round.ID)
}

func TestConcurrentBids(t *testing.T) {
	s := newTestSetup(t, nil)
	s.newRound(t, 100)

	bidders := []ethCommon.Address{alice, bob, carol, dave}
	var wg sync.WaitGroup
	for i, bidder := range bidders {
		wg.Add(1)
		go func(i int, bidder ethCommon.Address) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				slot := common.SlotIdx((i + j) % common.NumSlots)
				// Cap rejections are expected
				_, _ = s.a.PlaceBid(context.Background(), bidder, slot, "w", big.NewInt(int64(j+1)))
			}
		}(i, bidder)
	}
	wg.Wait()

	round, err := s.a.CurrentRound()
	require.NoError(t, err)
	players, err := s.a.Players(round.ID)
	require.NoError(t, err)
	slots, err := s.a.Slots(round.ID)
	require.NoError(t, err)

	owned := make(map[ethCommon.Address]int)
	for _, slot := range slots {
		if slot.HasOwner() {
			owned[slot.Owner]++
		}
	}
	totalSpend := big.NewInt(0)
	for _, p := range players {
		assert.LessOrEqual(t, p.OwnedSlots, 2)
		assert.Equal(t, owned[p.Addr], p.OwnedSlots)
		totalSpend.Add(totalSpend, p.Spend)
	}
	// Everything deposited is either in the round or reserved for the next
	pools := s.a.Pools()
	inAuction := new(big.Int).Add(round.PrizePool, pools.PendingNext)
	assert.Equal(t, new(big.Int).Add(totalSpend, big.NewInt(100)).String(), inAuction.String())
	assert.Equal(t, inAuction.String(), s.ledger.Custody(common.CurrencyPrize).String())
}
