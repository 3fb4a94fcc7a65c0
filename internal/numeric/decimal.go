// Package numeric holds the fixed-point kernel shared by pricing and event folding.
package numeric

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// DivisionScale is the number of decimal places kept by every division.
	DivisionScale = 20
	// Scale is the quantization applied inside exponentiation chains.
	Scale = 18
)

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	Two  = decimal.NewFromInt(2)
)

// Div divides a by b at DivisionScale places, rounding half away from zero.
// b must not be zero; use SafeDiv when it can be.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivisionScale)
}

// SafeDiv returns zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return Div(a, b)
}

// ExponentToDecimal returns 10^decimals.
func ExponentToDecimal(decimals uint8) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// FromBig converts a raw integer into a decimal. Nil is zero.
func FromBig(v *big.Int) decimal.Decimal {
	if v == nil {
		return Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

// ConvertTokenToDecimal scales a raw token amount by its decimals.
func ConvertTokenToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	raw := FromBig(amount)
	if decimals == 0 {
		return raw
	}
	return Div(raw, ExponentToDecimal(decimals))
}

// FastExponentiation computes value^power by repeated squaring, rounding to
// Scale places after every multiply. Negative powers invert the positive result.
func FastExponentiation(value decimal.Decimal, power int64) decimal.Decimal {
	if power < 0 {
		return SafeDiv(One, FastExponentiation(value, -power))
	}
	if power == 0 {
		return One
	}
	if power == 1 {
		return value
	}

	half := FastExponentiation(value, power/2).Round(Scale)
	result := half.Mul(half).Round(Scale)
	if power%2 == 1 {
		result = result.Round(Scale).Mul(value.Round(Scale))
	}
	return result.Round(Scale)
}

// ParseBig parses a base-10 integer string as emitted by the decoder.
func ParseBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
