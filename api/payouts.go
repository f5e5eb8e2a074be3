package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/api/parsers"
	"github.com/hermeznetwork/slotauction/db/historydb"
)

func (a *API) getPayouts(c *gin.Context) {
	request, err := parsers.ParsePayoutsFilters(c, a.validate)
	if err != nil {
		retBadReq(err, c)
		return
	}
	payouts, pendingItems, err := a.h.GetPayoutsAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type payoutsResponse struct {
		Payouts      []historydb.PayoutAPI `json:"payouts"`
		PendingItems uint64                `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &payoutsResponse{
		Payouts:      payouts,
		PendingItems: pendingItems,
	})
}

func (a *API) getClaimable(c *gin.Context) {
	addr, err := parsers.ParseClaimableFilters(c, a.validate)
	if err != nil {
		retBadReq(err, c)
		return
	}
	balances := a.auction.Claimables()
	claimable := make([]ClaimableAPI, 0, len(balances))
	for i := range balances {
		if addr != nil && balances[i].Addr != *addr {
			continue
		}
		var balance ClaimableAPI
		if err := toAPI(&balance, &balances[i]); err != nil {
			retInternalErr(err, c)
			return
		}
		claimable = append(claimable, balance)
	}
	type claimableResponse struct {
		Claimable []ClaimableAPI `json:"claimable"`
	}
	c.JSON(http.StatusOK, &claimableResponse{Claimable: claimable})
}
