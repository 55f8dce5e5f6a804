package token

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/shopspring/decimal"
)

const (
	// maxIntegerDigits keeps amount*10^18 inside a uint256.
	maxIntegerDigits  = 59
	maxFractionDigits = 36
)

// ParseAmount parses a user-entered amount in plain decimal notation.
// Empty, non-numeric, exponent-form, oversized, zero and negative inputs are
// all common.ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", common.ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q uses exponent notation", common.ErrInvalidAmount, s)
	}
	intPart, frac, _ := strings.Cut(strings.TrimLeft(s, "+-"), ".")
	if len(strings.TrimLeft(intPart, "0")) > maxIntegerDigits || len(frac) > maxFractionDigits {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", common.ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", common.ErrInvalidAmount, s)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", common.ErrInvalidAmount)
	}
	return d, nil
}

// ToBaseUnits converts a human amount to the token's integer precision:
// round(amount * 10^decimals).
func ToBaseUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Round(0).BigInt()
}

// FromBaseUnits is the inverse of ToBaseUnits. A nil value is zero.
func FromBaseUnits(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}
