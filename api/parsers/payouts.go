package parsers

import (
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/db/historydb"
	"github.com/hermeznetwork/tracerr"
	"gopkg.in/go-playground/validator.v9"
)

// PayoutsFilters struct to hold payouts filters
type PayoutsFilters struct {
	RoundID *int64 `form:"roundId" validate:"omitempty,min=0"`
	To      string `form:"to" validate:"omitempty,eth_addr"`
	Kind    string `form:"kind" validate:"omitempty,oneof=arbiter refund emergency fee claim"`

	Page
}

// ParsePayoutsFilters function for parsing payouts filters from the request
// /payouts to the GetPayoutsAPIRequest
func ParsePayoutsFilters(c *gin.Context, v *validator.Validate) (historydb.GetPayoutsAPIRequest, error) {
	var payoutsFilters PayoutsFilters
	if err := c.ShouldBindQuery(&payoutsFilters); err != nil {
		return historydb.GetPayoutsAPIRequest{}, tracerr.Wrap(err)
	}
	if err := v.Struct(payoutsFilters); err != nil {
		return historydb.GetPayoutsAPIRequest{}, tracerr.Wrap(err)
	}

	var roundID *common.RoundID
	if payoutsFilters.RoundID != nil {
		id := common.RoundID(*payoutsFilters.RoundID)
		roundID = &id
	}
	to, err := StringToEthAddr(payoutsFilters.To)
	if err != nil {
		return historydb.GetPayoutsAPIRequest{}, tracerr.Wrap(err)
	}
	var kind *common.PayoutKind
	if payoutsFilters.Kind != "" {
		k := common.PayoutKind(payoutsFilters.Kind)
		kind = &k
	}

	return historydb.GetPayoutsAPIRequest{
		RoundID: roundID,
		To:      to,
		Kind:    kind,
		Order:   *payoutsFilters.Order,
		Limit:   payoutsFilters.Limit,
	}, nil
}
