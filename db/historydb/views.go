package historydb

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/common/apitypes"
)

// RoundAPI is a representation of a round with additional information
// required by the API
type RoundAPI struct {
	RoundID       common.RoundID      `json:"id" meddler:"round_id"`
	CreatedAt     int64               `json:"createdAt" meddler:"created_at"`
	StartedAt     int64               `json:"startedAt" meddler:"started_at"`
	EndTime       int64               `json:"endTime" meddler:"end_time"`
	PrizePool     apitypes.BigIntStr  `json:"prizePool" meddler:"prize_pool"`
	SecondaryPool apitypes.BigIntStr  `json:"secondaryPool" meddler:"secondary_pool"`
	NumBids       int64               `json:"numBids" meddler:"num_bids"`
	Resolved      bool                `json:"resolved" meddler:"resolved"`
	Resolution    common.Resolution   `json:"resolution" meddler:"resolution"`
	ResolvedAt    int64               `json:"resolvedAt" meddler:"resolved_at"`
	Fee           *apitypes.BigIntStr `json:"fee" meddler:"fee"`
	TotalItems    uint64              `json:"-" meddler:"total_items"`
}

// BidAPI is a representation of a bid with additional information
// required by the API
type BidAPI struct {
	RoundID    common.RoundID     `json:"roundId" meddler:"round_id"`
	Seq        int64              `json:"seq" meddler:"seq"`
	SlotIdx    common.SlotIdx     `json:"slotIdx" meddler:"slot_idx"`
	Bidder     ethCommon.Address  `json:"bidder" meddler:"bidder"`
	Word       string             `json:"word" meddler:"word"`
	Amount     apitypes.BigIntStr `json:"amount" meddler:"amount"`
	Cumulative apitypes.BigIntStr `json:"cumulative" meddler:"cumulative"`
	ToCurrent  apitypes.BigIntStr `json:"toCurrent" meddler:"to_current"`
	ToNext     apitypes.BigIntStr `json:"toNext" meddler:"to_next"`
	Owner      bool               `json:"owner" meddler:"owner"`
	EndTime    int64              `json:"endTime" meddler:"end_time"`
	Timestamp  int64              `json:"timestamp" meddler:"timestamp"`
	TotalItems uint64             `json:"-" meddler:"total_items"`
}

// PayoutAPI is a representation of a payout with additional information
// required by the API
type PayoutAPI struct {
	TransferID string             `json:"transferId" meddler:"transfer_id"`
	RoundID    common.RoundID     `json:"roundId" meddler:"round_id"`
	To         ethCommon.Address  `json:"to" meddler:"to_addr"`
	Currency   common.Currency    `json:"currency" meddler:"currency"`
	Amount     apitypes.BigIntStr `json:"amount" meddler:"amount"`
	Kind       common.PayoutKind  `json:"kind" meddler:"kind"`
	Delivered  bool               `json:"delivered" meddler:"delivered"`
	Timestamp  int64              `json:"timestamp" meddler:"timestamp"`
	TotalItems uint64             `json:"-" meddler:"total_items"`
}
