package api

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/common/apitypes"
	"github.com/hermeznetwork/tracerr"
	"github.com/jinzhu/copier"
)

// copyOption converts the *big.Int fields of the domain structs into the
// decimal strings used by the API
var copyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: (*big.Int)(nil),
			DstType: apitypes.BigIntStr(""),
			Fn: func(src interface{}) (interface{}, error) {
				return *apitypes.NewBigIntStr(common.CopyBigInt(src.(*big.Int))), nil
			},
		},
		{
			SrcType: (*big.Int)(nil),
			DstType: (*apitypes.BigIntStr)(nil),
			Fn: func(src interface{}) (interface{}, error) {
				return apitypes.NewBigIntStr(src.(*big.Int)), nil
			},
		},
	},
}

func toAPI(to, from interface{}) error {
	return tracerr.Wrap(copier.CopyWithOption(to, from, copyOption))
}

// RoundAPI is the representation of a round held in memory by the auction
type RoundAPI struct {
	ID            common.RoundID      `json:"id"`
	Phase         common.RoundPhase   `json:"phase"`
	CreatedAt     int64               `json:"createdAt"`
	StartedAt     int64               `json:"startedAt"`
	EndTime       int64               `json:"endTime"`
	TimeLeft      int64               `json:"timeLeft"`
	PrizePool     apitypes.BigIntStr  `json:"prizePool"`
	SecondaryPool apitypes.BigIntStr  `json:"secondaryPool"`
	NumBids       int64               `json:"numBids"`
	Resolved      bool                `json:"resolved"`
	Resolution    common.Resolution   `json:"resolution"`
	ResolvedAt    int64               `json:"resolvedAt"`
	Fee           *apitypes.BigIntStr `json:"fee"`
}

func newRoundAPI(round *common.Round, now int64) (*RoundAPI, error) {
	var roundAPI RoundAPI
	if err := toAPI(&roundAPI, round); err != nil {
		return nil, tracerr.Wrap(err)
	}
	roundAPI.Phase = round.Phase(now)
	roundAPI.TimeLeft = round.TimeLeft(now)
	return &roundAPI, nil
}

// PoolsAPI is the representation of the global counters of the auction
type PoolsAPI struct {
	PendingNext      apitypes.BigIntStr `json:"pendingNext"`
	PendingSecondary apitypes.BigIntStr `json:"pendingSecondary"`
	AccumulatedFee   apitypes.BigIntStr `json:"accumulatedFee"`
}

// StatusAPI is the representation of the auction status
type StatusAPI struct {
	Now      int64             `json:"now"`
	Phase    common.RoundPhase `json:"phase"`
	Round    *RoundAPI         `json:"round"`
	TimeLeft int64             `json:"timeLeft"`
	Players  int               `json:"players"`
	Text     string            `json:"text"`
	Pools    PoolsAPI          `json:"pools"`
}

func newStatusAPI(status *common.AuctionStatus) (*StatusAPI, error) {
	statusAPI := StatusAPI{
		Now:      status.Now,
		Phase:    status.Phase,
		TimeLeft: status.TimeLeft,
		Players:  status.Players,
		Text:     status.Text,
	}
	if err := toAPI(&statusAPI.Pools, &status.Pools); err != nil {
		return nil, tracerr.Wrap(err)
	}
	if status.Round != nil {
		round, err := newRoundAPI(status.Round, status.Now)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		statusAPI.Round = round
	}
	return &statusAPI, nil
}

// SlotAPI is the representation of a slot of a round
type SlotAPI struct {
	SlotIdx           common.SlotIdx     `json:"slotIdx"`
	Content           string             `json:"content"`
	Owner             *ethCommon.Address `json:"owner"`
	HighestCumulative apitypes.BigIntStr `json:"highestCumulative"`
}

// SlotsAPI is the representation of the slots of a round and the text they
// compose
type SlotsAPI struct {
	RoundID common.RoundID `json:"roundId"`
	Slots   []SlotAPI      `json:"slots"`
	Text    string         `json:"text"`
}

func newSlotsAPI(roundID common.RoundID, slots []common.Slot) (*SlotsAPI, error) {
	slotsAPI := &SlotsAPI{
		RoundID: roundID,
		Slots:   make([]SlotAPI, len(slots)),
		Text:    common.JoinSlots(slots),
	}
	for i := range slots {
		if err := toAPI(&slotsAPI.Slots[i], &slots[i]); err != nil {
			return nil, tracerr.Wrap(err)
		}
		slotsAPI.Slots[i].SlotIdx = common.SlotIdx(i)
		// Empty slots have no owner
		slotsAPI.Slots[i].Owner = nil
		if slots[i].HasOwner() {
			owner := slots[i].Owner
			slotsAPI.Slots[i].Owner = &owner
		}
	}
	return slotsAPI, nil
}

// PlayerAPI is the representation of a player of a round
type PlayerAPI struct {
	Addr       ethCommon.Address  `json:"addr"`
	Spend      apitypes.BigIntStr `json:"spend"`
	OwnedSlots int                `json:"ownedSlots"`
}

func newPlayersAPI(players []common.Player) ([]PlayerAPI, error) {
	playersAPI := make([]PlayerAPI, len(players))
	for i := range players {
		if err := toAPI(&playersAPI[i], &players[i]); err != nil {
			return nil, tracerr.Wrap(err)
		}
	}
	return playersAPI, nil
}

// ReportAPI is the representation of the report sent to the arbiter
type ReportAPI struct {
	Round         RoundAPI                    `json:"round"`
	Slots         []SlotAPI                   `json:"slots"`
	Players       []PlayerAPI                 `json:"players"`
	Text          string                      `json:"text"`
	Fee           apitypes.BigIntStr          `json:"fee"`
	Distributable apitypes.CurrencyAmountsAPI `json:"distributable"`
}

func newReportAPI(report *common.RoundReport, now int64) (*ReportAPI, error) {
	round, err := newRoundAPI(&report.Round, now)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	slots, err := newSlotsAPI(report.Round.ID, report.Slots[:])
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	players, err := newPlayersAPI(report.Players)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &ReportAPI{
		Round:         *round,
		Slots:         slots.Slots,
		Players:       players,
		Text:          report.Text,
		Fee:           *apitypes.NewBigIntStr(common.CopyBigInt(report.Fee)),
		Distributable: apitypes.NewCurrencyAmountsAPI(report.Distributable),
	}, nil
}

// BidAPI is the representation of an accepted bid
type BidAPI struct {
	RoundID    common.RoundID     `json:"roundId"`
	Seq        int64              `json:"seq"`
	SlotIdx    common.SlotIdx     `json:"slotIdx"`
	Bidder     ethCommon.Address  `json:"bidder"`
	Word       string             `json:"word"`
	Amount     apitypes.BigIntStr `json:"amount"`
	Cumulative apitypes.BigIntStr `json:"cumulative"`
	ToCurrent  apitypes.BigIntStr `json:"toCurrent"`
	ToNext     apitypes.BigIntStr `json:"toNext"`
	Owner      bool               `json:"owner"`
	EndTime    int64              `json:"endTime"`
	Timestamp  int64              `json:"timestamp"`
}

// FundingAPI is the representation of a funding
type FundingAPI struct {
	FundingID string             `json:"fundingId"`
	RoundID   common.RoundID     `json:"roundId"`
	From      ethCommon.Address  `json:"from"`
	Currency  common.Currency    `json:"currency"`
	Amount    apitypes.BigIntStr `json:"amount"`
	Timestamp int64              `json:"timestamp"`
}

// PayoutAPI is the representation of a payout
type PayoutAPI struct {
	TransferID string             `json:"transferId"`
	RoundID    common.RoundID     `json:"roundId"`
	To         ethCommon.Address  `json:"to"`
	Currency   common.Currency    `json:"currency"`
	Amount     apitypes.BigIntStr `json:"amount"`
	Kind       common.PayoutKind  `json:"kind"`
	Delivered  bool               `json:"delivered"`
	Timestamp  int64              `json:"timestamp"`
}

// ResolutionAPI is the representation of the outcome of a resolution
type ResolutionAPI struct {
	Round   RoundAPI    `json:"round"`
	Payouts []PayoutAPI `json:"payouts"`
	Next    *RoundAPI   `json:"next"`
}

// ClaimableAPI is the representation of a claimable balance
type ClaimableAPI struct {
	Addr     ethCommon.Address  `json:"addr"`
	Currency common.Currency    `json:"currency"`
	Amount   apitypes.BigIntStr `json:"amount"`
}

// VariablesAPI is the representation of the auction variables
type VariablesAPI struct {
	Owner                ethCommon.Address  `json:"owner"`
	Arbiter              ethCommon.Address  `json:"arbiter"`
	MinBid               apitypes.BigIntStr `json:"minBid"`
	MaxSlotsPerPlayer    uint8              `json:"maxSlotsPerPlayer"`
	SplitRatio           uint16             `json:"splitRatio"`
	FeeRatio             uint16             `json:"feeRatio"`
	RoundDuration        int64              `json:"roundDuration"`
	AntiSnipeWindow      int64              `json:"antiSnipeWindow"`
	AntiSnipeExtension   int64              `json:"antiSnipeExtension"`
	EmergencyGrace       int64              `json:"emergencyGrace"`
	AutoAdvanceThreshold apitypes.BigIntStr `json:"autoAdvanceThreshold"`
}

// ConfigAPI is the response of /config
type ConfigAPI struct {
	NumSlots   int          `json:"numSlots"`
	MaxWordLen int          `json:"maxWordLen"`
	Variables  VariablesAPI `json:"variables"`
	Pools      PoolsAPI     `json:"pools"`
}
