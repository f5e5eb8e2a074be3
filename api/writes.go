package api

import (
	"errors"
	"math/big"
	"net/http"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/common/apitypes"
)

type receivedRound struct {
	TopUp *apitypes.StrBigInt `json:"topUp"`
}

func (a *API) postRound(c *gin.Context) {
	var received receivedRound
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	var topUp *big.Int
	if received.TopUp != nil {
		topUp = received.TopUp.BigInt()
	}
	round, err := a.auction.CreateRound(c.Request.Context(), getCaller(c), topUp)
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	roundAPI, err := newRoundAPI(round, a.auction.Now())
	if err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, roundAPI)
}

type receivedBid struct {
	SlotIdx *common.SlotIdx     `json:"slotIdx" binding:"required"`
	Word    string              `json:"word" binding:"required"`
	Amount  *apitypes.StrBigInt `json:"amount" binding:"required"`
}

func (a *API) postBid(c *gin.Context) {
	var received receivedBid
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	bid, err := a.auction.PlaceBid(c.Request.Context(), getCaller(c), *received.SlotIdx,
		received.Word, received.Amount.BigInt())
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	var bidAPI BidAPI
	if err := toAPI(&bidAPI, bid); err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, bidAPI)
}

type receivedFunding struct {
	Currency *common.Currency    `json:"currency" binding:"required"`
	Amount   *apitypes.StrBigInt `json:"amount" binding:"required"`
}

func (a *API) postFunding(c *gin.Context) {
	var received receivedFunding
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	funding, err := a.auction.FundCurrentRound(c.Request.Context(), getCaller(c),
		*received.Currency, received.Amount.BigInt())
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	var fundingAPI FundingAPI
	if err := toAPI(&fundingAPI, funding); err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, fundingAPI)
}

func (a *API) postSoloRefund(c *gin.Context) {
	res, err := a.auction.SoloRefund(c.Request.Context())
	a.retResolution(res, err, c)
}

type receivedAllocationEntry struct {
	To       *apitypes.StrEthAddr `json:"to" binding:"required"`
	Currency *common.Currency     `json:"currency" binding:"required"`
	Amount   *apitypes.StrBigInt  `json:"amount" binding:"required"`
}

type receivedAllocation struct {
	RoundID common.RoundID            `json:"roundId" binding:"required"`
	Entries []receivedAllocationEntry `json:"entries" binding:"dive"`
}

func (ra *receivedAllocation) toAllocation() *common.Allocation {
	allocation := &common.Allocation{
		RoundID: ra.RoundID,
		Entries: make([]common.AllocationEntry, len(ra.Entries)),
	}
	for i, entry := range ra.Entries {
		allocation.Entries[i] = common.AllocationEntry{
			To:       ethCommon.Address(*entry.To),
			Currency: *entry.Currency,
			Amount:   entry.Amount.BigInt(),
		}
	}
	return allocation
}

func (a *API) postResolution(c *gin.Context) {
	var received receivedAllocation
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	res, err := a.auction.ResolveByArbiter(c.Request.Context(), getCaller(c), received.toAllocation())
	a.retResolution(res, err, c)
}

func (a *API) postEmergency(c *gin.Context) {
	res, err := a.auction.EmergencyResolve(c.Request.Context(), getCaller(c))
	a.retResolution(res, err, c)
}

func (a *API) retResolution(res *auction.Resolution, err error, c *gin.Context) {
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	now := a.auction.Now()
	round, err := newRoundAPI(&res.Round, now)
	if err != nil {
		retInternalErr(err, c)
		return
	}
	resAPI := ResolutionAPI{
		Round:   *round,
		Payouts: make([]PayoutAPI, len(res.Payouts)),
	}
	for i := range res.Payouts {
		if err := toAPI(&resAPI.Payouts[i], &res.Payouts[i]); err != nil {
			retInternalErr(err, c)
			return
		}
	}
	if res.Next != nil {
		if resAPI.Next, err = newRoundAPI(res.Next, now); err != nil {
			retInternalErr(err, c)
			return
		}
	}
	c.JSON(http.StatusOK, resAPI)
}

type receivedClaim struct {
	Currency *common.Currency `json:"currency" binding:"required"`
}

func (a *API) postClaim(c *gin.Context) {
	var received receivedClaim
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	payout, err := a.auction.Claim(c.Request.Context(), getCaller(c), *received.Currency)
	a.retPayout(payout, err, c)
}

type receivedFeeWithdrawal struct {
	To *apitypes.StrEthAddr `json:"to" binding:"required"`
}

func (a *API) postFeeWithdrawal(c *gin.Context) {
	var received receivedFeeWithdrawal
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	payout, err := a.auction.WithdrawFees(c.Request.Context(), getCaller(c),
		ethCommon.Address(*received.To))
	a.retPayout(payout, err, c)
}

func (a *API) retPayout(payout *common.Payout, err error, c *gin.Context) {
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	var payoutAPI PayoutAPI
	if err := toAPI(&payoutAPI, payout); err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, payoutAPI)
}

type receivedVariables struct {
	MinBid               *apitypes.StrBigInt  `json:"minBid"`
	MaxSlotsPerPlayer    *uint8               `json:"maxSlotsPerPlayer"`
	SplitRatio           *uint16              `json:"splitRatio"`
	FeeRatio             *uint16              `json:"feeRatio"`
	RoundDuration        *int64               `json:"roundDuration"`
	AntiSnipeWindow      *int64               `json:"antiSnipeWindow"`
	AntiSnipeExtension   *int64               `json:"antiSnipeExtension"`
	AutoAdvanceThreshold *apitypes.StrBigInt  `json:"autoAdvanceThreshold"`
	Arbiter              *apitypes.StrEthAddr `json:"arbiter"`
	Owner                *apitypes.StrEthAddr `json:"owner"`
}

// update returns the changes requested.  The anti-snipe window and extension
// are only changed together.
func (rv *receivedVariables) update() (*auction.VariablesUpdate, error) {
	if (rv.AntiSnipeWindow == nil) != (rv.AntiSnipeExtension == nil) {
		return nil, errors.New("antiSnipeWindow and antiSnipeExtension must be set together")
	}
	u := &auction.VariablesUpdate{
		MaxSlotsPerPlayer:  rv.MaxSlotsPerPlayer,
		SplitRatio:         rv.SplitRatio,
		FeeRatio:           rv.FeeRatio,
		RoundDuration:      rv.RoundDuration,
		AntiSnipeWindow:    rv.AntiSnipeWindow,
		AntiSnipeExtension: rv.AntiSnipeExtension,
	}
	if rv.MinBid != nil {
		u.MinBid = rv.MinBid.BigInt()
	}
	if rv.AutoAdvanceThreshold != nil {
		u.AutoAdvanceThreshold = rv.AutoAdvanceThreshold.BigInt()
	}
	if rv.Arbiter != nil {
		arbiter := ethCommon.Address(*rv.Arbiter)
		u.Arbiter = &arbiter
	}
	if rv.Owner != nil {
		owner := ethCommon.Address(*rv.Owner)
		u.Owner = &owner
	}
	if u.Empty() {
		return nil, errors.New("no variable to update")
	}
	return u, nil
}

// putVariables applies all the updates of the request at once
func (a *API) putVariables(c *gin.Context) {
	var received receivedVariables
	if err := c.ShouldBindJSON(&received); err != nil {
		retBadReq(err, c)
		return
	}
	update, err := received.update()
	if err != nil {
		retBadReq(err, c)
		return
	}
	if err := a.auction.UpdateVariables(getCaller(c), update); err != nil {
		retAuctionErr(err, c)
		return
	}
	var vars VariablesAPI
	if err := toAPI(&vars, a.auction.Variables()); err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, vars)
}
