package common

import "errors"

// ErrNumOverflow is used when a given value overflows the maximum capacity of the parameter
var ErrNumOverflow = errors.New("Value overflows the type")

// ErrInvalidCurrency is used when an amount refers to an unknown currency
var ErrInvalidCurrency = errors.New("invalid currency")
