package parsers

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
)

// StringToEthAddr converts a hex string into an address.  The empty string
// returns nil.
func StringToEthAddr(addrStr string) (*ethCommon.Address, error) {
	if addrStr == "" {
		return nil, nil
	}
	if !ethCommon.IsHexAddress(addrStr) {
		return nil, tracerr.Wrap(fmt.Errorf("invalid Ethereum address %q", addrStr))
	}
	addr := ethCommon.HexToAddress(addrStr)
	return &addr, nil
}
