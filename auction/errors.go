package auction

import "errors"

// Input validation errors
var (
	// ErrInvalidSlot is returned when the slot index is out of range
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrBidTooLow is returned when the bid amount is below the minimum bid
	ErrBidTooLow = errors.New("bid below the minimum bid")
	// ErrWordInvalid is returned for empty or too long words, or words
	// containing the separator
	ErrWordInvalid = errors.New("invalid word")
	// ErrInvalidAmount is returned for missing, zero or negative amounts
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAddress is returned when the zero address is used as a
	// participant or a recipient
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidVariable is returned when an auction variable update is not
	// valid
	ErrInvalidVariable = errors.New("invalid auction variable")
)

// State precondition errors
var (
	// ErrNoRound is returned when there is no current round
	ErrNoRound = errors.New("no round")
	// ErrRoundNotFound is returned when querying an unknown round
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundInProgress is returned when creating a round while the
	// current one is not resolved
	ErrRoundInProgress = errors.New("current round is not resolved")
	// ErrEmptyPrizePool is returned when creating a round without funds
	ErrEmptyPrizePool = errors.New("empty prize pool")
	// ErrRoundNotOpen is returned when bidding or funding a round that is
	// ended or resolved
	ErrRoundNotOpen = errors.New("round not open")
	// ErrSlotCapReached is returned when the bid would give the bidder more
	// slots than allowed
	ErrSlotCapReached = errors.New("slot cap reached")
	// ErrRoundStillActive is returned when resolving a round whose timer has
	// not expired
	ErrRoundStillActive = errors.New("round still active")
	// ErrRoundAlreadyResolved is returned when resolving a resolved round
	ErrRoundAlreadyResolved = errors.New("round already resolved")
	// ErrRoundNotStarted is returned when resolving a pending round
	ErrRoundNotStarted = errors.New("round not started")
	// ErrNeedMorePlayers is returned by the arbiter path with less than two
	// players
	ErrNeedMorePlayers = errors.New("need at least two players")
	// ErrHasMultiplePlayers is returned by the solo refund path with two or
	// more players
	ErrHasMultiplePlayers = errors.New("round has multiple players")
	// ErrEmergencyNotReady is returned when the emergency grace period has
	// not elapsed
	ErrEmergencyNotReady = errors.New("emergency grace period not elapsed")
	// ErrWrongRound is returned when an allocation targets another round
	ErrWrongRound = errors.New("allocation for another round")
	// ErrNotOwner is returned when an owner only operation is called by
	// someone else
	ErrNotOwner = errors.New("caller is not the owner")
	// ErrNotArbiter is returned when the arbiter path is called by someone
	// else
	ErrNotArbiter = errors.New("caller is not the arbiter")
	// ErrNothingToClaim is returned when there is no balance to claim
	ErrNothingToClaim = errors.New("nothing to claim")
)

// Invariant violation errors
var (
	// ErrAllocationMismatch is returned when the allocation of the arbiter
	// doesn't distribute exactly the distributable pool
	ErrAllocationMismatch = errors.New("allocation does not match the distributable pool")
)
