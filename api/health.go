package api

import (
	"net/http"
	"time"

	"github.com/dimiro1/health"
	"github.com/hermeznetwork/slotauction/health/checkers"
)

func (a *API) healthRoute() http.Handler {
	healthHandler := health.NewHandler()
	historyDBChecker := checkers.NewCheckerWithDB(a.h.DB().DB, a.h.DB().DriverName())
	healthHandler.AddChecker("historyDB", historyDBChecker)
	healthHandler.AddChecker("auction", checkers.NewAuctionChecker(a.auction))
	healthHandler.AddInfo("version", a.version)
	healthHandler.AddInfo("timestamp", time.Now().UTC())
	return healthHandler
}
