package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/common"
)

func (a *API) getStatus(c *gin.Context) {
	status, err := newStatusAPI(a.auction.Status())
	if err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (a *API) getConfig(c *gin.Context) {
	cfg := ConfigAPI{
		NumSlots:   common.NumSlots,
		MaxWordLen: common.MaxWordLen,
	}
	if err := toAPI(&cfg.Variables, a.auction.Variables()); err != nil {
		retInternalErr(err, c)
		return
	}
	pools := a.auction.Pools()
	if err := toAPI(&cfg.Pools, &pools); err != nil {
		retInternalErr(err, c)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
