package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/api/parsers"
	"github.com/hermeznetwork/slotauction/db/historydb"
)

func (a *API) getBids(c *gin.Context) {
	request, err := parsers.ParseBidsFilters(c, a.validate)
	if err != nil {
		retBadReq(err, c)
		return
	}
	bids, pendingItems, err := a.h.GetBidsAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type bidsResponse struct {
		Bids         []historydb.BidAPI `json:"bids"`
		PendingItems uint64             `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &bidsResponse{
		Bids:         bids,
		PendingItems: pendingItems,
	})
}
