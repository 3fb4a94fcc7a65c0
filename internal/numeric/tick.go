package numeric

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFeeTier is returned for fee tiers without a known tick spacing.
var ErrUnsupportedFeeTier = errors.New("unsupported fee tier")

var (
	tickBase = decimal.RequireFromString("1.0001")
	q192     = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)
)

// TickIndexToPrices returns the token1-per-token0 price at a tick and its inverse.
func TickIndexToPrices(tickIdx int32) (price0, price1 decimal.Decimal) {
	price0 = FastExponentiation(tickBase, int64(tickIdx))
	price1 = SafeDiv(One, price0).Round(Scale)
	return price0, price1
}

// SqrtPriceX96ToTokenPrices decodes a Q64.96 square-root price into
// per-token prices adjusted for token decimals.
func SqrtPriceX96ToTokenPrices(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (price0, price1 decimal.Decimal) {
	sqrt := FromBig(sqrtPriceX96)
	num := sqrt.Mul(sqrt)
	price1 = Div(Div(num, q192).Mul(ExponentToDecimal(decimals0)), ExponentToDecimal(decimals1))
	price0 = SafeDiv(One, price1)
	return price0, price1
}

// FeeTierToTickSpacing maps the standard fee tiers to their tick spacing.
func FeeTierToTickSpacing(feeTier uint32) (int32, error) {
	switch feeTier {
	case 10000:
		return 200, nil
	case 3000:
		return 60, nil
	case 500:
		return 10, nil
	case 100:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedFeeTier, feeTier)
	}
}
