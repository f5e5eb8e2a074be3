package auction

import (
	"testing"

	"github.com/hermeznetwork/slotauction/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	s := newTestSetup(t, nil)
	round := s.newRound(t, 100)
	s.bid(t, alice, 4, "world", 10)
	s.bid(t, bob, 1, "hello", 10)
	s.bid(t, carol, 11, "!", 10)
	s.clock.Advance(600)

	status := s.a.Status()
	assert.Equal(t, common.RoundPhaseActive, status.Phase)
	assert.Equal(t, round.ID, status.Round.ID)
	assert.Equal(t, int64(3000), status.TimeLeft)
	assert.Equal(t, 3, status.Players)
	assert.Equal(t, "hello world !", status.Text)
	assertBig(t, 3*3, status.Pools.PendingNext)

	text, err := s.a.Text(round.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Text, text)
}

func TestReport(t *testing.T) {
	s := newTestSetup(t, nil)
	round := twoPlayerRound(t, s)

	report, err := s.a.Report(round.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice bob", report.Text)
	assertBig(t, 6, report.Fee)
	assertBig(t, 116, report.Distributable[common.CurrencyPrize])
	assertBig(t, 50, report.Distributable[common.CurrencySecondary])
	require.Equal(t, 2, len(report.Players))
	assertBig(t, 10, report.Players[0].Spend)
	assertBig(t, 20, report.Players[1].Spend)
	assert.Equal(t, bob, report.Slots[1].Owner)
	assertBig(t, 20, report.Slots[1].HighestCumulative)

	// The report shares no memory with the auction
	report.Players[0].Spend.SetInt64(999)
	report.Slots[1].HighestCumulative.SetInt64(999)
	report.Round.PrizePool.SetInt64(999)
	spend, err := s.a.PlayerSpend(round.ID, alice)
	require.NoError(t, err)
	assertBig(t, 10, spend)
	slots, err := s.a.Slots(round.ID)
	require.NoError(t, err)
	assertBig(t, 20, slots[1].HighestCumulative)
	current, err := s.a.CurrentRound()
	require.NoError(t, err)
	assertBig(t, 122, current.PrizePool)

	spend, err = s.a.PlayerSpend(round.ID, dave)
	require.NoError(t, err)
	assertBig(t, 0, spend)
	_, err = s.a.Report(round.ID + 1)
	assert.ErrorIs(t, err, ErrRoundNotFound)
	_, err = s.a.BidTotal(round.ID, common.NumSlots, alice)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}
