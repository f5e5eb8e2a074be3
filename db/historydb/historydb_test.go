package historydb

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	dbUtils "github.com/hermeznetwork/slotauction/db"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/test"
	"github.com/hermeznetwork/tracerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("info", []string{"stdout"})
	os.Exit(m.Run())
}

var (
	addrs   = test.GenAddrs(5)
	owner   = addrs[0]
	arbiter = addrs[1]
	alice   = addrs[2]
	bob     = addrs[3]
	carol   = addrs[4]
)

func newHistoryDB(t *testing.T) *HistoryDB {
	database, err := dbUtils.InitTestSQLDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			log.Error("Error closing the history DB:", err)
		}
	})
	return NewHistoryDB(database, database, dbUtils.NewAPIConnectionController(1, time.Second))
}

// newRecordedAuction returns an auction that records every event into hdb
func newRecordedAuction(t *testing.T, hdb *HistoryDB) (*auction.Auction, *test.Ledger, *test.Clock) {
	ledger := test.NewLedger(false)
	for _, addr := range addrs {
		for _, currency := range common.Currencies {
			ledger.CtlMint(addr, currency, big.NewInt(1000000))
		}
	}
	clock := test.NewClock(1600000000)
	a, err := auction.NewAuction(ledger, clock, test.AuctionVariables(owner, arbiter))
	require.NoError(t, err)
	a.AddListener(NewRecorder(hdb))
	return a, ledger, clock
}

// playRound plays and resolves a round with two players.  The resolution
// leaves 8 for the next round, which is started automatically.
func playRound(t *testing.T, a *auction.Auction, clock *test.Clock) *common.Round {
	ctx := context.Background()
	round, err := a.CreateRound(ctx, owner, big.NewInt(100))
	require.NoError(t, err)
	_, err = a.FundCurrentRound(ctx, carol, common.CurrencySecondary, big.NewInt(50))
	require.NoError(t, err)
	_, err = a.PlaceBid(ctx, alice, 0, "alice", big.NewInt(10))
	require.NoError(t, err)
	_, err = a.PlaceBid(ctx, bob, 1, "bob", big.NewInt(20))
	require.NoError(t, err)
	current, err := a.CurrentRound()
	require.NoError(t, err)
	clock.Set(current.EndTime)
	_, err = a.ResolveByArbiter(ctx, arbiter, &common.Allocation{
		RoundID: round.ID,
		Entries: []common.AllocationEntry{
			{To: alice, Currency: common.CurrencyPrize, Amount: big.NewInt(116)},
			{To: bob, Currency: common.CurrencySecondary, Amount: big.NewInt(50)},
		},
	})
	require.NoError(t, err)
	return round
}

func TestRounds(t *testing.T) {
	hdb := newHistoryDB(t)
	round := common.NewRound(1, 100, big.NewInt(10), big.NewInt(0))
	require.NoError(t, hdb.UpsertRound(round))
	dbRound, err := hdb.GetRound(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), dbRound.CreatedAt)
	assert.Equal(t, "10", dbRound.PrizePool.String())
	assert.Nil(t, dbRound.Fee)
	assert.False(t, dbRound.Resolved)

	round.StartedAt = 110
	round.EndTime = 200
	round.Resolved = true
	round.Resolution = common.ResolutionEmergency
	round.Fee = big.NewInt(3)
	require.NoError(t, hdb.UpsertRound(round))
	dbRound, err = hdb.GetRound(1)
	require.NoError(t, err)
	assert.Equal(t, int64(110), dbRound.StartedAt)
	assert.Equal(t, int64(200), dbRound.EndTime)
	assert.Equal(t, common.ResolutionEmergency, dbRound.Resolution)
	assert.Equal(t, "3", dbRound.Fee.String())

	require.NoError(t, hdb.UpsertRound(common.NewRound(2, 300, big.NewInt(1), big.NewInt(2))))
	rounds, err := hdb.GetAllRounds()
	require.NoError(t, err)
	assert.Equal(t, 2, len(rounds))
	last, err := hdb.GetLastRound()
	require.NoError(t, err)
	assert.Equal(t, common.RoundID(2), last.ID)

	_, err = hdb.GetRound(3)
	assert.Error(t, err)
}

func TestRecorderHistory(t *testing.T) {
	hdb := newHistoryDB(t)
	a, _, clock := newRecordedAuction(t, hdb)
	round := playRound(t, a, clock)

	dbRound, err := hdb.GetRound(round.ID)
	require.NoError(t, err)
	assert.True(t, dbRound.Resolved)
	assert.Equal(t, common.ResolutionArbiter, dbRound.Resolution)
	assert.Equal(t, "122", dbRound.PrizePool.String())
	assert.Equal(t, "50", dbRound.SecondaryPool.String())
	assert.Equal(t, "6", dbRound.Fee.String())
	assert.Equal(t, int64(2), dbRound.NumBids)

	bids, err := hdb.GetBids(round.ID)
	require.NoError(t, err)
	require.Equal(t, 2, len(bids))
	assert.Equal(t, alice, bids[0].Bidder)
	assert.Equal(t, bob, bids[1].Bidder)
	assert.Equal(t, common.SlotIdx(1), bids[1].SlotIdx)
	assert.Equal(t, "bob", bids[1].Word)
	assert.Equal(t, "20", bids[1].Cumulative.String())
	assert.Equal(t, "15", bids[1].ToCurrent.String())
	assert.Equal(t, "5", bids[1].ToNext.String())
	assert.True(t, bids[1].Owner)

	fundings, err := hdb.GetFundings(round.ID)
	require.NoError(t, err)
	require.Equal(t, 1, len(fundings))
	assert.Equal(t, carol, fundings[0].From)
	assert.Equal(t, common.CurrencySecondary, fundings[0].Currency)
	assert.Equal(t, "50", fundings[0].Amount.String())

	payouts, err := hdb.GetPayouts(round.ID)
	require.NoError(t, err)
	require.Equal(t, 2, len(payouts))
	for _, payout := range payouts {
		assert.True(t, payout.Delivered)
		assert.Equal(t, common.PayoutKindArbiter, payout.Kind)
		switch payout.To {
		case alice:
			assert.Equal(t, common.CurrencyPrize, payout.Currency)
			assert.Equal(t, "116", payout.Amount.String())
		case bob:
			assert.Equal(t, common.CurrencySecondary, payout.Currency)
			assert.Equal(t, "50", payout.Amount.String())
		default:
			t.Fatalf("unexpected payout to %v", payout.To.Hex())
		}
	}

	// The next round was started automatically
	last, err := hdb.GetLastRound()
	require.NoError(t, err)
	assert.Equal(t, round.ID+1, last.ID)
	assert.Equal(t, "8", last.PrizePool.String())
	assert.False(t, last.Resolved)
}

func TestRecorderCheckpoint(t *testing.T) {
	hdb := newHistoryDB(t)
	_, err := hdb.GetCheckpoint()
	assert.Equal(t, ErrNoCheckpoint, tracerr.Unwrap(err))

	a, ledger, clock := newRecordedAuction(t, hdb)
	round := playRound(t, a, clock)
	_, err = a.WithdrawFees(context.Background(), owner, carol)
	require.NoError(t, err)

	cp, err := hdb.GetCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, round.ID+1, cp.LastRoundID)
	assert.Equal(t, "0", cp.Pools.AccumulatedFee.String())

	restored, err := auction.NewAuctionFromCheckpoint(ledger, clock, cp)
	require.NoError(t, err)
	current, err := restored.CurrentRound()
	require.NoError(t, err)
	assert.Equal(t, round.ID+1, current.ID)
	assert.Equal(t, "8", current.PrizePool.String())

	// Fee withdrawals are not bound to a round
	payouts, err := hdb.GetPayouts(0)
	require.NoError(t, err)
	require.Equal(t, 1, len(payouts))
	assert.Equal(t, common.PayoutKindFee, payouts[0].Kind)
	assert.Equal(t, carol, payouts[0].To)
	assert.Equal(t, "6", payouts[0].Amount.String())
}

func TestAPIQueries(t *testing.T) {
	hdb := newHistoryDB(t)
	a, _, clock := newRecordedAuction(t, hdb)
	round := playRound(t, a, clock)
	limit := uint(10)

	apiRound, err := hdb.GetRoundAPI(round.ID)
	require.NoError(t, err)
	assert.Equal(t, "122", string(apiRound.PrizePool))
	require.NotNil(t, apiRound.Fee)
	assert.Equal(t, "6", string(*apiRound.Fee))

	rounds, pendingItems, err := hdb.GetRoundsAPI(GetRoundsAPIRequest{Limit: &limit, Order: dbUtils.OrderDesc})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pendingItems)
	require.Equal(t, 2, len(rounds))
	assert.Equal(t, round.ID+1, rounds[0].RoundID)
	assert.Nil(t, rounds[0].Fee)

	resolved := true
	rounds, _, err = hdb.GetRoundsAPI(GetRoundsAPIRequest{Resolved: &resolved, Limit: &limit,
		Order: dbUtils.OrderAsc})
	require.NoError(t, err)
	require.Equal(t, 1, len(rounds))
	assert.Equal(t, round.ID, rounds[0].RoundID)

	one := uint(1)
	from := uint(round.ID + 1)
	rounds, pendingItems, err = hdb.GetRoundsAPI(GetRoundsAPIRequest{FromItem: &from, Limit: &one,
		Order: dbUtils.OrderDesc})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pendingItems)
	require.Equal(t, 1, len(rounds))

	bids, pendingItems, err := hdb.GetBidsAPI(GetBidsAPIRequest{RoundID: round.ID, Limit: &limit,
		Order: dbUtils.OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pendingItems)
	require.Equal(t, 2, len(bids))
	assert.Equal(t, "alice", bids[0].Word)
	assert.Equal(t, "7", string(bids[0].ToCurrent))

	bidder := bob
	bids, _, err = hdb.GetBidsAPI(GetBidsAPIRequest{RoundID: round.ID, Bidder: &bidder, Limit: &limit,
		Order: dbUtils.OrderAsc})
	require.NoError(t, err)
	require.Equal(t, 1, len(bids))
	assert.Equal(t, common.SlotIdx(1), bids[0].SlotIdx)
	slot := common.SlotIdx(5)
	bids, _, err = hdb.GetBidsAPI(GetBidsAPIRequest{RoundID: round.ID, SlotIdx: &slot, Limit: &limit,
		Order: dbUtils.OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, 0, len(bids))

	to := alice
	payouts, _, err := hdb.GetPayoutsAPI(GetPayoutsAPIRequest{To: &to, Limit: &limit,
		Order: dbUtils.OrderDesc})
	require.NoError(t, err)
	require.Equal(t, 1, len(payouts))
	assert.Equal(t, "116", string(payouts[0].Amount))
	assert.Equal(t, common.CurrencyPrize, payouts[0].Currency)

	kind := common.PayoutKindFee
	payouts, _, err = hdb.GetPayoutsAPI(GetPayoutsAPIRequest{Kind: &kind, Limit: &limit,
		Order: dbUtils.OrderDesc})
	require.NoError(t, err)
	assert.Equal(t, 0, len(payouts))
	roundID := round.ID
	payouts, _, err = hdb.GetPayoutsAPI(GetPayoutsAPIRequest{RoundID: &roundID, Limit: &limit,
		Order: dbUtils.OrderAsc})
	require.NoError(t, err)
	assert.Equal(t, 2, len(payouts))
}

func TestWipeDB(t *testing.T) {
	hdb := newHistoryDB(t)
	a, _, clock := newRecordedAuction(t, hdb)
	playRound(t, a, clock)
	_, err := hdb.GetCheckpoint()
	require.NoError(t, err)

	test.WipeDB(hdb.DB())
	_, err = hdb.GetCheckpoint()
	assert.Equal(t, ErrNoCheckpoint, tracerr.Unwrap(err))
	_, err = hdb.GetRound(1)
	assert.Error(t, err)
}
