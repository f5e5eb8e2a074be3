/*
Package api implements the HTTP API of the slot auction node.

The read endpoints serve the live state from the in memory auction (status,
current round, slots, players, report, claimable balances, variables) and
the history from the HistoryDB (rounds, bids, payouts).

The write endpoints are optional.  Every write request must be signed by an
Ethereum key: the signature covers the method, the path, a timestamp and the
raw body (see HashToSign), and is sent in the X-Auction-Signer,
X-Auction-Timestamp and X-Auction-Signature headers.  The recovered signer is
the caller of the auction operation, so owner and arbiter operations are
authorized by the auction itself.
*/
package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/db/historydb"
	"github.com/hermeznetwork/tracerr"
	"gopkg.in/go-playground/validator.v9"
)

// Config of the API
type Config struct {
	// Writes enables the signed write endpoints
	Writes bool
	// SignatureMaxAge is the maximum distance between the timestamp of a
	// signed request and the time of the node
	SignatureMaxAge time.Duration
	// Version reported by /health
	Version string
}

// API serves HTTP requests to allow external interaction with the auction
type API struct {
	h        *historydb.HistoryDB
	auction  *auction.Auction
	validate *validator.Validate
	replay   *replayGuard
	version  string
}

// NewAPI sets the endpoints and the appropriate handlers, but doesn't start the server
func NewAPI(
	cfg Config,
	server *gin.Engine,
	a *auction.Auction,
	hdb *historydb.HistoryDB,
) (*API, error) {
	// Check input
	if a == nil {
		return nil, tracerr.Wrap(errors.New("cannot serve the API without the auction"))
	}
	if hdb == nil {
		return nil, tracerr.Wrap(errors.New("cannot serve the API without HistoryDB"))
	}
	if cfg.Writes && cfg.SignatureMaxAge <= 0 {
		return nil, tracerr.Wrap(errors.New("write endpoints need a positive SignatureMaxAge"))
	}
	api := &API{
		h:        hdb,
		auction:  a,
		validate: validator.New(),
		replay:   newReplayGuard(cfg.SignatureMaxAge),
		version:  cfg.Version,
	}

	server.NoRoute(api.noRoute)
	server.GET("/health", gin.WrapH(api.healthRoute()))

	v1 := server.Group("/v1")

	// Status
	v1.GET("/status", api.getStatus)
	v1.GET("/config", api.getConfig)
	// Rounds
	v1.GET("/rounds", api.getRounds)
	v1.GET("/rounds/:roundId", api.getRound)
	v1.GET("/rounds/:roundId/slots", api.getSlots)
	v1.GET("/rounds/:roundId/players", api.getPlayers)
	v1.GET("/rounds/:roundId/report", api.getReport)
	v1.GET("/rounds/:roundId/bids", api.getBids)
	// Payouts
	v1.GET("/payouts", api.getPayouts)
	v1.GET("/claimable", api.getClaimable)

	if cfg.Writes {
		v1.POST("/rounds", api.signed("createRound"), api.postRound)
		v1.POST("/rounds/current/bids", api.signed("bid"), api.postBid)
		v1.POST("/rounds/current/fundings", api.signed("fund"), api.postFunding)
		v1.POST("/rounds/current/refund", api.signed("soloRefund"), api.postSoloRefund)
		v1.POST("/rounds/current/resolution", api.signed("resolve"), api.postResolution)
		v1.POST("/rounds/current/emergency", api.signed("emergency"), api.postEmergency)
		v1.POST("/claims", api.signed("claim"), api.postClaim)
		v1.POST("/fees/withdrawals", api.signed("withdrawFees"), api.postFeeWithdrawal)
		v1.PUT("/config/variables", api.signed("setVariables"), api.putVariables)
	}

	return api, nil
}
