// Package pricing derives native and USD prices from pool state.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
)

// Snapshots reads the current state of pools and tokens.
type Snapshots interface {
	Pool(ctx context.Context, id string) (*model.Pool, error)
	Token(ctx context.Context, id string) (*model.Token, error)
}

// FindNativePerToken estimates the token's price in the native asset from the
// deepest whitelisted pool that clears the liquidity floor. Only pools listed
// on the token are considered and only one hop is taken. It returns zero when
// nothing qualifies and never writes.
func FindNativePerToken(ctx context.Context, token *model.Token, net network.Config, bundle *model.Bundle, snaps Snapshots) (decimal.Decimal, error) {
	if token.ID == net.WrappedNativeAddress {
		return numeric.One, nil
	}
	if net.IsStablecoin(token.ID) {
		return numeric.SafeDiv(numeric.One, bundlePrice(bundle)), nil
	}

	largestLiquidityETH := numeric.Zero
	priceSoFar := numeric.Zero

	for _, poolID := range token.WhitelistPools {
		pool, err := snaps.Pool(ctx, poolID)
		if err != nil {
			return numeric.Zero, err
		}
		if pool == nil || pool.Liquidity == nil || pool.Liquidity.Sign() <= 0 {
			continue
		}

		if pool.Token0 == token.ID && pool.Token1 != "" {
			other, err := snaps.Token(ctx, pool.Token1)
			if err != nil {
				return numeric.Zero, err
			}
			if other != nil {
				ethLocked := pool.TotalValueLockedToken1.Mul(other.DerivedETH)
				if ethLocked.GreaterThan(largestLiquidityETH) && ethLocked.GreaterThan(net.MinimumNativeLocked) {
					largestLiquidityETH = ethLocked
					priceSoFar = pool.Token1Price.Mul(other.DerivedETH)
				}
			}
		}
		if pool.Token1 == token.ID && pool.Token0 != "" {
			other, err := snaps.Token(ctx, pool.Token0)
			if err != nil {
				return numeric.Zero, err
			}
			if other != nil {
				ethLocked := pool.TotalValueLockedToken0.Mul(other.DerivedETH)
				if ethLocked.GreaterThan(largestLiquidityETH) && ethLocked.GreaterThan(net.MinimumNativeLocked) {
					largestLiquidityETH = ethLocked
					priceSoFar = pool.Token0Price.Mul(other.DerivedETH)
				}
			}
		}
	}

	return priceSoFar, nil
}

// GetTrackedAmountUSD values a two-legged amount using only whitelisted legs.
// One whitelisted leg is doubled; none yields zero.
func GetTrackedAmountUSD(amount0 decimal.Decimal, token0 *model.Token, amount1 decimal.Decimal, token1 *model.Token, net network.Config, bundle *model.Bundle) decimal.Decimal {
	ethUSD := bundlePrice(bundle)
	price0USD := token0.DerivedETH.Mul(ethUSD)
	price1USD := token1.DerivedETH.Mul(ethUSD)

	white0 := net.IsWhitelisted(token0.ID)
	white1 := net.IsWhitelisted(token1.ID)

	switch {
	case white0 && white1:
		return amount0.Mul(price0USD).Add(amount1.Mul(price1USD))
	case white0:
		return amount0.Mul(price0USD).Mul(numeric.Two)
	case white1:
		return amount1.Mul(price1USD).Mul(numeric.Two)
	default:
		return numeric.Zero
	}
}

// NativePriceInUSD reads the native/USD rate off the stablecoin reference pool.
// A missing pool yields zero.
func NativePriceInUSD(stablecoinIsToken0 bool, referencePool *model.Pool) decimal.Decimal {
	if referencePool == nil {
		return numeric.Zero
	}
	if stablecoinIsToken0 {
		return referencePool.Token0Price
	}
	return referencePool.Token1Price
}

func bundlePrice(bundle *model.Bundle) decimal.Decimal {
	if bundle == nil {
		return numeric.Zero
	}
	return bundle.EthPriceUSD
}
