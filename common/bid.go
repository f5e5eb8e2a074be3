package common

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// Bid is an accepted bid of a player on a slot
type Bid struct {
	RoundID RoundID `meddler:"round_id" json:"roundId"`
	// Seq is the position of the bid inside the round, starting at 1
	Seq     int64             `meddler:"seq" json:"seq"`
	SlotIdx SlotIdx           `meddler:"slot_idx" json:"slotIdx"`
	Bidder  ethCommon.Address `meddler:"bidder" json:"bidder"`
	Word    string            `meddler:"word" json:"word"`
	Amount  *big.Int          `meddler:"amount,bigint" json:"amount"`
	// Cumulative is the running total of the bidder on the slot after this
	// bid
	Cumulative *big.Int `meddler:"cumulative,bigint" json:"cumulative"`
	// ToCurrent is the part of the amount added to the round prize pool
	ToCurrent *big.Int `meddler:"to_current,bigint" json:"toCurrent"`
	// ToNext is the part of the amount reserved for the next round
	ToNext *big.Int `meddler:"to_next,bigint" json:"toNext"`
	// Owner is true if the bidder holds the slot after this bid
	Owner     bool  `meddler:"owner" json:"owner"`
	EndTime   int64 `meddler:"end_time" json:"endTime"`
	Timestamp int64 `meddler:"timestamp" json:"timestamp"`
}

// BidTotal is the cumulative amount a bidder has contributed to a slot in a
// round
type BidTotal struct {
	SlotIdx SlotIdx           `json:"slotIdx"`
	Bidder  ethCommon.Address `json:"bidder"`
	Total   *big.Int          `json:"total"`
}

// Funding is a direct contribution to the pools of a round
type Funding struct {
	FundingID string            `meddler:"funding_id" json:"fundingId"`
	RoundID   RoundID           `meddler:"round_id" json:"roundId"`
	From      ethCommon.Address `meddler:"from_addr" json:"from"`
	Currency  Currency          `meddler:"currency" json:"currency"`
	Amount    *big.Int          `meddler:"amount,bigint" json:"amount"`
	Timestamp int64             `meddler:"timestamp" json:"timestamp"`
}
