package parsers

import (
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/tracerr"
	"gopkg.in/go-playground/validator.v9"
)

// ClaimableFilters struct to hold the filters of /claimable
type ClaimableFilters struct {
	Addr string `form:"addr" validate:"omitempty,eth_addr"`
}

// ParseClaimableFilters parses the optional address filter of /claimable
func ParseClaimableFilters(c *gin.Context, v *validator.Validate) (*ethCommon.Address, error) {
	var claimableFilters ClaimableFilters
	if err := c.ShouldBindQuery(&claimableFilters); err != nil {
		return nil, tracerr.Wrap(err)
	}
	if err := v.Struct(claimableFilters); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return StringToEthAddr(claimableFilters.Addr)
}
