package auction

import (
	"math/big"
	"testing"

	"github.com/hermeznetwork/slotauction/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetters(t *testing.T) {
	s := newTestSetup(t, nil)

	assert.ErrorIs(t, s.a.SetMinBid(alice, big.NewInt(5)), ErrNotOwner)
	assert.ErrorIs(t, s.a.SetArbiter(arbiter, alice), ErrNotOwner)

	require.NoError(t, s.a.SetMinBid(owner, big.NewInt(5)))
	require.NoError(t, s.a.SetRoundDuration(owner, 600))
	require.NoError(t, s.a.SetFeeRatio(owner, 250))
	require.NoError(t, s.a.SetSplitRatio(owner, 9000))
	require.NoError(t, s.a.SetMaxSlotsPerPlayer(owner, 12))
	require.NoError(t, s.a.SetAntiSnipe(owner, 30, 90))
	require.NoError(t, s.a.SetAutoAdvanceThreshold(owner, big.NewInt(0)))
	require.NoError(t, s.a.SetArbiter(owner, carol))

	vars := s.a.Variables()
	assertBig(t, 5, vars.MinBid)
	assert.Equal(t, int64(600), vars.RoundDuration)
	assert.Equal(t, uint16(250), vars.FeeRatio)
	assert.Equal(t, uint16(9000), vars.SplitRatio)
	assert.Equal(t, uint8(12), vars.MaxSlotsPerPlayer)
	assert.Equal(t, int64(30), vars.AntiSnipeWindow)
	assert.Equal(t, int64(90), vars.AntiSnipeExtension)
	assertBig(t, 0, vars.AutoAdvanceThreshold)
	assert.Equal(t, carol, vars.Arbiter)

	// The returned variables are a copy
	vars.MinBid.SetInt64(1000)
	assertBig(t, 5, s.a.Variables().MinBid)

	require.NoError(t, s.a.TransferOwnership(owner, dave))
	assert.ErrorIs(t, s.a.SetFeeRatio(owner, 100), ErrNotOwner)
	require.NoError(t, s.a.SetFeeRatio(dave, 100))
}

func TestSettersInvalid(t *testing.T) {
	s := newTestSetup(t, nil)
	before := s.a.Variables()

	assert.ErrorIs(t, s.a.SetMinBid(owner, big.NewInt(0)), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetMinBid(owner, nil), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetRoundDuration(owner, 0), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetFeeRatio(owner, 10001), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetSplitRatio(owner, 20000), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetMaxSlotsPerPlayer(owner, 0), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetMaxSlotsPerPlayer(owner, common.NumSlots+1), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetAntiSnipe(owner, -1, 60), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetAutoAdvanceThreshold(owner, big.NewInt(-1)), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.SetArbiter(owner, common.EmptyAddr), ErrInvalidVariable)
	assert.ErrorIs(t, s.a.TransferOwnership(owner, common.EmptyAddr), ErrInvalidVariable)

	assert.Equal(t, before, s.a.Variables())
}

func TestSetRoundDurationPendingRound(t *testing.T) {
	s := newTestSetup(t, nil)
	s.newRound(t, 100)
	require.NoError(t, s.a.SetRoundDuration(owner, 120))
	bid := s.bid(t, alice, 0, "a", 1)
	assert.Equal(t, startTime+120, bid.EndTime)

	// Not retroactive for a started round
	require.NoError(t, s.a.SetRoundDuration(owner, 7200))
	round, err := s.a.CurrentRound()
	require.NoError(t, err)
	assert.Equal(t, startTime+120, round.EndTime)
}

func TestUpdateVariables(t *testing.T) {
	s := newTestSetup(t, nil)
	before := s.a.Variables()

	minBid := big.NewInt(7)
	feeRatio := uint16(300)
	badSplit := uint16(10001)
	newOwner := dave
	assert.ErrorIs(t, s.a.UpdateVariables(alice, &VariablesUpdate{MinBid: minBid}), ErrNotOwner)
	assert.ErrorIs(t, s.a.UpdateVariables(owner, &VariablesUpdate{}), ErrInvalidVariable)

	// One invalid value rejects the whole update
	err := s.a.UpdateVariables(owner, &VariablesUpdate{
		MinBid:     minBid,
		FeeRatio:   &feeRatio,
		SplitRatio: &badSplit,
		Owner:      &newOwner,
	})
	assert.ErrorIs(t, err, ErrInvalidVariable)
	assert.Equal(t, before, s.a.Variables())

	require.NoError(t, s.a.UpdateVariables(owner, &VariablesUpdate{
		MinBid:   minBid,
		FeeRatio: &feeRatio,
		Owner:    &newOwner,
	}))
	vars := s.a.Variables()
	assertBig(t, 7, vars.MinBid)
	assert.Equal(t, uint16(300), vars.FeeRatio)
	assert.Equal(t, dave, vars.Owner)
	assert.Equal(t, before.SplitRatio, vars.SplitRatio)
	assert.Equal(t, before.Arbiter, vars.Arbiter)

	// The update holds its own copy of the amounts
	minBid.SetInt64(1000)
	assertBig(t, 7, s.a.Variables().MinBid)
}
