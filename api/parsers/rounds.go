package parsers

import (
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/db/historydb"
	"github.com/hermeznetwork/tracerr"
)

// RoundFilter struct to get the round id uri param from /rounds/:roundId
// requests
type RoundFilter struct {
	RoundID *int64 `uri:"roundId" binding:"required,min=1"`
}

// ParseRoundFilter func to parse the round id from the uri
func ParseRoundFilter(c *gin.Context) (common.RoundID, error) {
	var roundFilter RoundFilter
	if err := c.ShouldBindUri(&roundFilter); err != nil {
		return 0, tracerr.Wrap(err)
	}
	return common.RoundID(*roundFilter.RoundID), nil
}

// RoundsFilters struct to get rounds filters from query params from /rounds
// request
type RoundsFilters struct {
	Resolved *bool `form:"resolved"`

	Pagination
}

// ParseRoundsFilters func for parsing rounds filters to the GetRoundsAPIRequest
func ParseRoundsFilters(c *gin.Context) (historydb.GetRoundsAPIRequest, error) {
	var roundsFilters RoundsFilters
	if err := c.ShouldBindQuery(&roundsFilters); err != nil {
		return historydb.GetRoundsAPIRequest{}, tracerr.Wrap(err)
	}
	return historydb.GetRoundsAPIRequest{
		Resolved: roundsFilters.Resolved,
		FromItem: roundsFilters.FromItem,
		Limit:    roundsFilters.Limit,
		Order:    *roundsFilters.Order,
	}, nil
}
