package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/api/parsers"
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/db/historydb"
)

func (a *API) getRounds(c *gin.Context) {
	request, err := parsers.ParseRoundsFilters(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	rounds, pendingItems, err := a.h.GetRoundsAPI(request)
	if err != nil {
		retSQLErr(err, c)
		return
	}

	// Build successful response
	type roundsResponse struct {
		Rounds       []historydb.RoundAPI `json:"rounds"`
		PendingItems uint64               `json:"pendingItems"`
	}
	c.JSON(http.StatusOK, &roundsResponse{
		Rounds:       rounds,
		PendingItems: pendingItems,
	})
}

// getRound serves the round from memory, or from the HistoryDB for rounds
// of a previous run of the node
func (a *API) getRound(c *gin.Context) {
	roundID, err := parsers.ParseRoundFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	round, err := a.auction.Round(roundID)
	if errors.Is(err, auction.ErrRoundNotFound) {
		round, err = a.h.GetRound(roundID)
		if err != nil {
			retSQLErr(err, c)
			return
		}
	} else if err != nil {
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

func (a *API) getSlots(c *gin.Context) {
	roundID, err := parsers.ParseRoundFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	slots, err := a.auction.Slots(roundID)
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	slotsAPI, err := newSlotsAPI(roundID, slots[:])
	if err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, slotsAPI)
}

func (a *API) getPlayers(c *gin.Context) {
	roundID, err := parsers.ParseRoundFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	players, err := a.auction.Players(roundID)
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	playersAPI, err := newPlayersAPI(players)
	if err != nil {
		retInternalErr(err, c)
		return
	}
	type playersResponse struct {
		RoundID common.RoundID `json:"roundId"`
		Players []PlayerAPI    `json:"players"`
	}
	c.JSON(http.StatusOK, &playersResponse{
		RoundID: roundID,
		Players: playersAPI,
	})
}

func (a *API) getReport(c *gin.Context) {
	roundID, err := parsers.ParseRoundFilter(c)
	if err != nil {
		retBadReq(err, c)
		return
	}
	report, err := a.auction.Report(roundID)
	if err != nil {
		retAuctionErr(err, c)
		return
	}
	reportAPI, err := newReportAPI(report, a.auction.Now())
	if err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, reportAPI)
}
