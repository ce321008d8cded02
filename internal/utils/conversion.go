/*
This file contains common utility functions for converting between base-unit
integer amounts and decimal token amounts across assets with differing
precisions.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrConversionFailed = errors.New("conversion failed")
)

// pow10 returns 10^precision as a LegacyDec.
func pow10(precision int) sdkmath.LegacyDec {
	factor := sdkmath.LegacyNewDec(1)
	ten := sdkmath.LegacyNewDec(10)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(ten)
	}
	return factor
}

// BaseToDec converts a base-unit integer amount to token units with the
// given decimal precision.
func BaseToDec(amount sdkmath.Int, precision int) (sdkmath.LegacyDec, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	return sdkmath.LegacyNewDecFromInt(amount).Quo(pow10(precision)), nil
}

// DecToBase converts a token-unit decimal amount to base units, truncating
// any fraction below one base unit.
func DecToBase(amount sdkmath.LegacyDec, precision int) (sdkmath.Int, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.Int{}, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return sdkmath.Int{}, ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.Int{}, ErrAmountNegative
	}
	return amount.Mul(pow10(precision)).TruncateInt(), nil
}

// DecFromString parses a decimal string, wrapping parse failures so callers
// can classify them.
func DecFromString(s string) (sdkmath.LegacyDec, error) {
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q: %w", ErrConversionFailed, s, err)
	}
	return d, nil
}

// IntFromString parses a base-unit integer string.
func IntFromString(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %q is not an integer", ErrConversionFailed, s)
	}
	return v, nil
}
