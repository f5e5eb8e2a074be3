package parsers

import (
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/db/historydb"
	"github.com/hermeznetwork/tracerr"
	"gopkg.in/go-playground/validator.v9"
)

// BidsFilters struct to hold bids filters
type BidsFilters struct {
	SlotIdx *uint  `form:"slotIdx" validate:"omitempty,max=11"`
	Bidder  string `form:"bidder" validate:"omitempty,eth_addr"`

	Pagination
}

// ParseBidsFilters function for parsing bids filters from the request
// /rounds/:roundId/bids to the GetBidsAPIRequest
func ParseBidsFilters(c *gin.Context, v *validator.Validate) (historydb.GetBidsAPIRequest, error) {
	roundID, err := ParseRoundFilter(c)
	if err != nil {
		return historydb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}
	var bidsFilters BidsFilters
	if err := c.ShouldBindQuery(&bidsFilters); err != nil {
		return historydb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}
	if err := v.Struct(bidsFilters); err != nil {
		return historydb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}

	var slotIdx *common.SlotIdx
	if bidsFilters.SlotIdx != nil {
		idx := common.SlotIdx(*bidsFilters.SlotIdx)
		slotIdx = &idx
	}
	bidder, err := StringToEthAddr(bidsFilters.Bidder)
	if err != nil {
		return historydb.GetBidsAPIRequest{}, tracerr.Wrap(err)
	}

	return historydb.GetBidsAPIRequest{
		RoundID:  roundID,
		SlotIdx:  slotIdx,
		Bidder:   bidder,
		FromItem: bidsFilters.FromItem,
		Order:    *bidsFilters.Order,
		Limit:    bidsFilters.Limit,
	}, nil
}
