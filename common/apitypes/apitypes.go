/*
Package apitypes is used to map the common types used across the node with the format expected by the API.

This is done using different strategies:
- Marshallers: they get triggered when the API marshals the response structs into JSONs
- Scanners/Valuers: they get triggered when a struct is sent/received to/from the SQL database
- Adhoc functions: when the already mentioned strategies are not suitable, functions are added to the structs to facilitate the conversions
*/
package apitypes

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/tracerr"
)

// BigIntStr is used to scan/value *big.Int directly into strings from/to sql DBs.
// It assumes that *big.Int are inserted/fetched to/from the DB using the BigIntMeddler meddler
// defined at github.com/hermeznetwork/slotauction/db.  Since *big.Int is
// stored as TEXT in SQL, there's no need to implement Scan()/Value()
// because TEXT values are encoded/decoded as strings by the sql driver, and
// BigIntStr is already a string.
type BigIntStr string

// NewBigIntStr creates a *BigIntStr from a *big.Int.
// If the provided bigInt is nil the returned *BigIntStr will also be nil
func NewBigIntStr(bigInt *big.Int) *BigIntStr {
	if bigInt == nil {
		return nil
	}
	bigIntStr := BigIntStr(bigInt.String())
	return &bigIntStr
}

// StrBigInt is used to unmarshal BigIntStr directly into an alias of big.Int
type StrBigInt big.Int

// UnmarshalText unmarshals a StrBigInt
func (s *StrBigInt) UnmarshalText(text []byte) error {
	bi, ok := (*big.Int)(s).SetString(string(text), 10)
	if !ok {
		return tracerr.Wrap(fmt.Errorf("could not unmarshal %s into a StrBigInt", text))
	}
	*s = StrBigInt(*bi)
	return nil
}

// BigInt returns a copy of s as a *big.Int
func (s *StrBigInt) BigInt() *big.Int {
	return new(big.Int).Set((*big.Int)(s))
}

// CurrencyAmountsAPI is used to send an amount per currency through the API
type CurrencyAmountsAPI map[common.Currency]BigIntStr

// NewCurrencyAmountsAPI creates a new CurrencyAmountsAPI from a *big.Int map
func NewCurrencyAmountsAPI(m map[common.Currency]*big.Int) CurrencyAmountsAPI {
	c := CurrencyAmountsAPI(make(map[common.Currency]BigIntStr))
	for k, v := range m {
		if v == nil {
			continue
		}
		c[k] = *NewBigIntStr(v)
	}
	return c
}

// StrEthAddr is used to unmarshal a hex Ethereum address directly into an
// alias of ethCommon.Address, rejecting the empty string
type StrEthAddr ethCommon.Address

// UnmarshalText unmarshals a StrEthAddr
func (s *StrEthAddr) UnmarshalText(text []byte) error {
	if !ethCommon.IsHexAddress(string(text)) {
		return tracerr.Wrap(fmt.Errorf("invalid Ethereum address %q", text))
	}
	*s = StrEthAddr(ethCommon.HexToAddress(string(text)))
	return nil
}

// EthSignature is used to scan/value []byte representing an Ethereum signature directly into strings from/to sql DBs.
type EthSignature string

// NewEthSignature creates a *EthSignature from []byte
// If the provided signature is nil the returned *EthSignature will also be nil
func NewEthSignature(signature []byte) *EthSignature {
	if signature == nil {
		return nil
	}
	ethSignature := EthSignature("0x" + hex.EncodeToString(signature))
	return &ethSignature
}

// Bytes returns the raw signature
func (e EthSignature) Bytes() ([]byte, error) {
	signature, err := hex.DecodeString(strings.TrimPrefix(string(e), "0x"))
	return signature, tracerr.Wrap(err)
}

// Scan implements Scanner for database/sql
func (e *EthSignature) Scan(src interface{}) error {
	if srcStr, ok := src.(string); ok {
		// src is a string
		*e = *(NewEthSignature([]byte(srcStr)))
		return nil
	} else if srcBytes, ok := src.([]byte); ok {
		// src is []byte
		*e = *(NewEthSignature(srcBytes))
		return nil
	} else {
		// unexpected src
		return tracerr.Wrap(fmt.Errorf("can't scan %T into apitypes.EthSignature", src))
	}
}

// Value implements valuer for database/sql
func (e EthSignature) Value() (driver.Value, error) {
	return e.Bytes()
}

// UnmarshalText unmarshals a StrEthSignature
func (e *EthSignature) UnmarshalText(text []byte) error {
	signature, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return tracerr.Wrap(err)
	}
	*e = *(NewEthSignature(signature))
	return nil
}
