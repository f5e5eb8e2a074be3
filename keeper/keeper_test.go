package keeper

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/arbiter"
	"github.com/hermeznetwork/slotauction/auction"
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
	addrs      = test.GenAddrs(5)
	owner      = addrs[0]
	arbiterAdr = addrs[1]
	alice      = addrs[2]
	bob        = addrs[3]
	nobody     = addrs[4]
)

type testSetup struct {
	a       *auction.Auction
	ledger  *test.Ledger
	clock   *test.Clock
	arbiter *test.Arbiter
}

func newTestSetup(t *testing.T) *testSetup {
	ledger := test.NewLedger(false)
	for _, addr := range addrs {
		for _, currency := range common.Currencies {
			ledger.CtlMint(addr, currency, big.NewInt(1000000))
		}
	}
	clock := test.NewClock(startTime)
	a, err := auction.NewAuction(ledger, clock, test.AuctionVariables(owner, arbiterAdr))
	require.NoError(t, err)
	_, err = a.CreateRound(context.Background(), owner, big.NewInt(100))
	require.NoError(t, err)
	return &testSetup{a: a, ledger: ledger, clock: clock, arbiter: test.NewArbiter()}
}

func (s *testSetup) bid(t *testing.T, bidder ethCommon.Address, slot common.SlotIdx, amount int64) {
	_, err := s.a.PlaceBid(context.Background(), bidder, slot, "w", big.NewInt(amount))
	require.NoError(t, err)
}

func (s *testSetup) endRound(t *testing.T) *common.Round {
	round, err := s.a.CurrentRound()
	require.NoError(t, err)
	s.clock.Set(round.EndTime)
	return round
}

func (s *testSetup) keeper(addr ethCommon.Address, client arbiter.Client) *Keeper {
	return NewKeeper(Config{Interval: time.Millisecond, Addr: addr}, s.a, client)
}

func TestStepIdle(t *testing.T) {
	s := newTestSetup(t)
	k := s.keeper(arbiterAdr, s.arbiter)

	// Pending round
	res, err := k.Step(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	// Active round
	s.bid(t, alice, 0, 10)
	s.bid(t, bob, 1, 10)
	res, err = k.Step(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, len(s.arbiter.Reports()))
}

func TestStepSoloRefund(t *testing.T) {
	s := newTestSetup(t)
	s.bid(t, alice, 0, 10)
	round := s.endRound(t)

	// Any node can run the solo refund
	k := s.keeper(common.EmptyAddr, nil)
	res, err := k.Step(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, round.ID, res.Round.ID)
	assert.Equal(t, common.ResolutionSoloRefund, res.Round.Resolution)
	require.Equal(t, 1, len(res.Payouts))
	assert.Equal(t, alice, res.Payouts[0].To)
	assert.Equal(t, "10", res.Payouts[0].Amount.String())
	require.NotNil(t, res.Next)
	assert.Equal(t, round.ID+1, res.Next.ID)
}

func TestStepArbiter(t *testing.T) {
	s := newTestSetup(t)
	s.bid(t, alice, 0, 10)
	s.bid(t, bob, 1, 20)
	round := s.endRound(t)

	// A node that is not the arbiter doesn't ask for a decision
	res, err := s.keeper(nobody, s.arbiter).Step(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, len(s.arbiter.Reports()))

	res, err = s.keeper(arbiterAdr, s.arbiter).Step(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, common.ResolutionArbiter, res.Round.Resolution)
	reports := s.arbiter.Reports()
	require.Equal(t, 1, len(reports))
	assert.Equal(t, round.ID, reports[0].Round.ID)
	// bob spent the most: the whole prize pool minus the fee goes to bob
	require.Equal(t, 1, len(res.Payouts))
	assert.Equal(t, bob, res.Payouts[0].To)
	assert.Equal(t, reports[0].Distributable[common.CurrencyPrize].String(),
		res.Payouts[0].Amount.String())
}

func TestStepArbiterNoDecision(t *testing.T) {
	s := newTestSetup(t)
	s.bid(t, alice, 0, 10)
	s.bid(t, bob, 1, 20)
	s.endRound(t)

	s.arbiter.CtlDecide(func(report *common.RoundReport) (*common.Allocation, error) {
		return nil, arbiter.ErrNoDecision
	})
	k := s.keeper(arbiterAdr, s.arbiter)
	res, err := k.Step(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	s.arbiter.CtlDecide(func(report *common.RoundReport) (*common.Allocation, error) {
		return nil, errors.New("arbiter down")
	})
	res, err = k.Step(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	// A wrong allocation is rejected by the auction
	s.arbiter.CtlDecide(func(report *common.RoundReport) (*common.Allocation, error) {
		return &common.Allocation{RoundID: report.Round.ID, Entries: []common.AllocationEntry{
			{To: alice, Currency: common.CurrencyPrize, Amount: big.NewInt(1)},
		}}, nil
	})
	_, err = k.Step(context.Background())
	assert.True(t, errors.Is(err, auction.ErrAllocationMismatch))
	assert.Equal(t, 3, len(s.arbiter.Reports()))
}

func TestStepEmergency(t *testing.T) {
	s := newTestSetup(t)
	s.bid(t, alice, 0, 10)
	s.bid(t, bob, 1, 30)
	round := s.endRound(t)
	k := s.keeper(owner, nil)

	// Grace period not elapsed
	res, err := k.Step(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	vars := s.a.Variables()
	s.clock.Set(round.EndTime + vars.EmergencyGrace)
	res, err = k.Step(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, common.ResolutionEmergency, res.Round.Resolution)
	assert.Equal(t, round.ID, res.Round.ID)
}

func TestRun(t *testing.T) {
	s := newTestSetup(t)
	s.bid(t, alice, 0, 10)
	s.bid(t, bob, 1, 20)
	round := s.endRound(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.keeper(arbiterAdr, s.arbiter).Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		r, err := s.a.Round(round.ID)
		require.NoError(t, err)
		return r.Resolved
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
