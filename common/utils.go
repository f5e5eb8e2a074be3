package common

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// EmptyAddr is used to check if an ethereum address is 0
var EmptyAddr = ethCommon.HexToAddress("0x0000000000000000000000000000000000000000")

// CopyBigInt returns a copy of the big int.  A nil input returns 0.
func CopyBigInt(a *big.Int) *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a)
}
