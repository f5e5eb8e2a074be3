package auction

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/hermeznetwork/slotauction/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRestore(t *testing.T) {
	s := newTestSetup(t, nil)
	ctx := context.Background()
	round := twoPlayerRound(t, s)
	s.bid(t, carol, 0, "carol", 30)
	require.NoError(t, s.a.SetFeeRatio(owner, 1000))

	cp := s.a.Checkpoint()
	assert.Equal(t, round.ID, cp.LastRoundID)
	require.NotNil(t, cp.Current)
	assert.Equal(t, 3, len(cp.Current.Players))
	assert.Equal(t, 3, len(cp.Current.Totals))
	assert.Equal(t, uint16(1000), cp.Variables.FeeRatio)

	// Checkpoints are stored as JSON
	encoded, err := json.Marshal(cp)
	require.NoError(t, err)
	var decoded Checkpoint
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	restored, err := NewAuctionFromCheckpoint(s.ledger, s.clock, &decoded)
	require.NoError(t, err)
	expected, err := s.a.Report(round.ID)
	require.NoError(t, err)
	actual, err := restored.Report(round.ID)
	require.NoError(t, err)
	assert.Equal(t, expected.Text, actual.Text)
	assert.Equal(t, expected.Round.EndTime, actual.Round.EndTime)
	assert.Equal(t, expected.Round.PrizePool.String(), actual.Round.PrizePool.String())
	assert.Equal(t, expected.Fee.String(), actual.Fee.String())
	require.Equal(t, len(expected.Players), len(actual.Players))
	for i := range expected.Players {
		assert.Equal(t, expected.Players[i].Addr, actual.Players[i].Addr)
		assert.Equal(t, expected.Players[i].Spend.String(), actual.Players[i].Spend.String())
		assert.Equal(t, expected.Players[i].OwnedSlots, actual.Players[i].OwnedSlots)
	}
	for i := range expected.Slots {
		assert.Equal(t, expected.Slots[i].Owner, actual.Slots[i].Owner)
		assert.Equal(t, expected.Slots[i].HighestCumulative.String(),
			actual.Slots[i].HighestCumulative.String())
	}
	assert.Equal(t, s.a.Pools().PendingNext.String(), restored.Pools().PendingNext.String())

	// The restored auction keeps the cumulative totals
	bid, err := restored.PlaceBid(ctx, alice, 0, "back", big.NewInt(25))
	require.NoError(t, err)
	assertBig(t, 35, bid.Cumulative)
	assert.True(t, bid.Owner)

	// And the round ids
	current, err := restored.CurrentRound()
	require.NoError(t, err)
	s.clock.Set(current.EndTime)
	_, err = restored.SoloRefund(ctx)
	assert.ErrorIs(t, err, ErrHasMultiplePlayers)
	s.clock.Advance(86400)
	res, err := restored.EmergencyResolve(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, res.Next)
	assert.Equal(t, round.ID+1, res.Next.ID)
}

func TestCheckpointRestoreEmpty(t *testing.T) {
	s := newTestSetup(t, nil)
	restored, err := NewAuctionFromCheckpoint(s.ledger, s.clock, s.a.Checkpoint())
	require.NoError(t, err)
	assert.Equal(t, common.RoundPhaseNone, restored.Status().Phase)
	round, err := restored.CreateRound(context.Background(), owner, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, common.RoundID(1), round.ID)
}

func TestCheckpointRestoreClaimable(t *testing.T) {
	s := newTestSetup(t, nil)
	round := twoPlayerRound(t, s)
	s.endRound(t)
	s.ledger.CtlReject(bob, true)
	_, err := s.a.ResolveByArbiter(context.Background(), arbiter, &common.Allocation{
		RoundID: round.ID,
		Entries: []common.AllocationEntry{
			{To: bob, Currency: common.CurrencyPrize, Amount: big.NewInt(116)},
			{To: bob, Currency: common.CurrencySecondary, Amount: big.NewInt(50)},
		},
	})
	require.NoError(t, err)

	restored, err := NewAuctionFromCheckpoint(s.ledger, s.clock, s.a.Checkpoint())
	require.NoError(t, err)
	assertBig(t, 116, restored.Claimable(bob, common.CurrencyPrize))
	assertBig(t, 50, restored.Claimable(bob, common.CurrencySecondary))
	assertBig(t, 6, restored.Pools().AccumulatedFee)
	// Resolved rounds other than the last one are not restored
	_, err = restored.Round(round.ID)
	assert.ErrorIs(t, err, ErrRoundNotFound)
	current, err := restored.CurrentRound()
	require.NoError(t, err)
	assert.Equal(t, round.ID+1, current.ID)
}

func TestCheckpointRestoreInvalid(t *testing.T) {
	s := newTestSetup(t, nil)
	twoPlayerRound(t, s)

	cp := s.a.Checkpoint()
	cp.LastRoundID = 7
	_, err := NewAuctionFromCheckpoint(s.ledger, s.clock, cp)
	assert.Error(t, err)

	cp = s.a.Checkpoint()
	cp.Current.Players = cp.Current.Players[:1]
	_, err = NewAuctionFromCheckpoint(s.ledger, s.clock, cp)
	assert.Error(t, err)

	cp = s.a.Checkpoint()
	cp.Variables.MinBid = big.NewInt(0)
	_, err = NewAuctionFromCheckpoint(s.ledger, s.clock, cp)
	assert.Error(t, err)
}
