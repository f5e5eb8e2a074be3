package common

import (
	"fmt"

	"github.com/hermeznetwork/tracerr"
)

// Currency identifies one of the assets tracked by the auction
type Currency uint8

const (
	// CurrencyPrize is the currency used to bid
	CurrencyPrize Currency = 0
	// CurrencySecondary is a second asset that can only be added by
	// funding rounds
	CurrencySecondary Currency = 1
)

// Currencies lists all the tracked currencies
var Currencies = []Currency{CurrencyPrize, CurrencySecondary}

var currencyNames = map[Currency]string{
	CurrencyPrize:     "prize",
	CurrencySecondary: "secondary",
}

func (c Currency) String() string {
	if name, ok := currencyNames[c]; ok {
		return name
	}
	return fmt.Sprintf("currency(%d)", uint8(c))
}

// Valid returns true for the tracked currencies
func (c Currency) Valid() bool {
	_, ok := currencyNames[c]
	return ok
}

// MarshalText marshals a Currency
func (c Currency) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, tracerr.Wrap(fmt.Errorf("invalid currency %d", uint8(c)))
	}
	return []byte(c.String()), nil
}

// UnmarshalText unmarshals a Currency
func (c *Currency) UnmarshalText(text []byte) error {
	for currency, name := range currencyNames {
		if name == string(text) {
			*c = currency
			return nil
		}
	}
	return tracerr.Wrap(fmt.Errorf("invalid currency %q", text))
}
