package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/pricing"
	"poolScope/internal/store"
)

// excludedPool reports a corrupt price feed and is never folded.
const excludedPool = "0x9663f2ca0454accad3e094448ea6f77443880454"

var feeDenominator = decimal.New(1, 6)

// HandleSwap folds a trade: volumes and fees accrue, live pool state is
// overwritten from the event, prices are rediscovered and TVL is revalued.
func (e *Engine) HandleSwap(ctx context.Context, ev Event, data model.SwapEventData) error {
	return e.fold(ctx, model.EventSwap, ev, func(ctx context.Context, tx *store.Tx, net network.Config) error {
		if ev.Address == excludedPool {
			return errExcludedPool
		}

		raw0, err := numeric.ParseBig(data.Amount0)
		if err != nil {
			return fmt.Errorf("swap amount0: %w", err)
		}
		raw1, err := numeric.ParseBig(data.Amount1)
		if err != nil {
			return fmt.Errorf("swap amount1: %w", err)
		}
		sqrtPrice, err := numeric.ParseBig(data.SqrtPriceX96)
		if err != nil {
			return fmt.Errorf("swap sqrt price: %w", err)
		}
		liquidity, err := numeric.ParseBig(data.Liquidity)
		if err != nil {
			return fmt.Errorf("swap liquidity: %w", err)
		}

		st, err := e.loadPoolState(ctx, tx, net.FactoryAddress, ev.Address)
		if err != nil {
			return err
		}
		factory, pool, token0, token1 := st.factory, st.pool, st.token0, st.token1

		amount0 := numeric.ConvertTokenToDecimal(raw0, token0.Decimals)
		amount1 := numeric.ConvertTokenToDecimal(raw1, token1.Decimals)
		abs0 := amount0.Abs()
		abs1 := amount1.Abs()

		ethUSD := st.ethUSD()
		amount0USD := abs0.Mul(token0.DerivedETH).Mul(ethUSD)
		amount1USD := abs1.Mul(token1.DerivedETH).Mul(ethUSD)

		// Both legs describe the same trade, so the two-legged value is halved.
		trackedUSD := numeric.Div(pricing.GetTrackedAmountUSD(abs0, token0, abs1, token1, net, st.bundle), numeric.Two)
		trackedETH := numeric.SafeDiv(trackedUSD, ethUSD)
		untrackedUSD := numeric.Div(amount0USD.Add(amount1USD), numeric.Two)

		feeTier := decimal.NewFromInt(int64(pool.FeeTier))
		feesETH := numeric.Div(trackedETH.Mul(feeTier), feeDenominator)
		feesUSD := numeric.Div(trackedUSD.Mul(feeTier), feeDenominator)

		factory.TxCount = inc(factory.TxCount)
		factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedETH)
		factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedUSD)
		factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(untrackedUSD)
		factory.TotalFeesETH = factory.TotalFeesETH.Add(feesETH)
		factory.TotalFeesUSD = factory.TotalFeesUSD.Add(feesUSD)
		factory.TotalValueLockedETH = factory.TotalValueLockedETH.Sub(pool.TotalValueLockedETH)

		pool.TxCount = inc(pool.TxCount)
		pool.VolumeToken0 = pool.VolumeToken0.Add(abs0)
		pool.VolumeToken1 = pool.VolumeToken1.Add(abs1)
		pool.VolumeUSD = pool.VolumeUSD.Add(trackedUSD)
		pool.UntrackedVolumeUSD = pool.UntrackedVolumeUSD.Add(untrackedUSD)
		pool.FeesUSD = pool.FeesUSD.Add(feesUSD)
		pool.Liquidity = liquidity
		tick := data.Tick
		pool.Tick = &tick
		pool.SqrtPrice = sqrtPrice
		pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
		pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)

		for _, leg := range []struct {
			token  *model.Token
			volume decimal.Decimal
			locked decimal.Decimal
		}{
			{token0, abs0, amount0},
			{token1, abs1, amount1},
		} {
			leg.token.Volume = leg.token.Volume.Add(leg.volume)
			leg.token.TotalValueLocked = leg.token.TotalValueLocked.Add(leg.locked)
			leg.token.VolumeUSD = leg.token.VolumeUSD.Add(trackedUSD)
			leg.token.UntrackedVolumeUSD = leg.token.UntrackedVolumeUSD.Add(untrackedUSD)
			leg.token.FeesUSD = leg.token.FeesUSD.Add(feesUSD)
			leg.token.TxCount = inc(leg.token.TxCount)
		}

		pool.Token0Price, pool.Token1Price = numeric.SqrtPriceX96ToTokenPrices(sqrtPrice, token0.Decimals, token1.Decimals)
		// The reference pool may be this pool, so its new prices must be
		// visible before the bundle is refreshed.
		if err := tx.Pools.Set(pool.ID, pool); err != nil {
			return err
		}

		if net.StablecoinWrappedNativePoolAddress != "" {
			refPool, err := tx.Pools.Get(ctx, net.StablecoinWrappedNativePoolAddress)
			if err != nil {
				return err
			}
			st.bundle.EthPriceUSD = pricing.NativePriceInUSD(net.StablecoinIsToken0, refPool)
		}
		if err := tx.Bundles.Set(st.bundle.ID, st.bundle); err != nil {
			return err
		}

		// Token rows are still unsaved here, so each discovery values the
		// counter token at its previously stored price.
		derived0, err := pricing.FindNativePerToken(ctx, token0, net, st.bundle, tx)
		if err != nil {
			return err
		}
		derived1, err := pricing.FindNativePerToken(ctx, token1, net, st.bundle, tx)
		if err != nil {
			return err
		}
		token0.DerivedETH = derived0
		token1.DerivedETH = derived1

		st.revaluePool()
		ethUSD = st.ethUSD()
		token0.TotalValueLockedUSD = token0.TotalValueLocked.Mul(token0.DerivedETH).Mul(ethUSD)
		token1.TotalValueLockedUSD = token1.TotalValueLocked.Mul(token1.DerivedETH).Mul(ethUSD)

		if err := upsertTransaction(ctx, tx, ev); err != nil {
			return err
		}
		swap := &model.Swap{
			ID:           ev.eventID(),
			Transaction:  ev.TxHash,
			Timestamp:    ev.Timestamp,
			Pool:         pool.ID,
			Token0:       token0.ID,
			Token1:       token1.ID,
			Sender:       network.NormalizeAddress(data.Sender),
			Recipient:    network.NormalizeAddress(data.Recipient),
			Origin:       ev.TxOrigin,
			Amount0:      amount0,
			Amount1:      amount1,
			AmountUSD:    trackedUSD,
			SqrtPriceX96: new(big.Int).Set(sqrtPrice),
			Tick:         data.Tick,
			LogIndex:     ev.LogIndex,
		}

		if err := st.save(tx); err != nil {
			return err
		}
		if err := tx.Swaps.Set(swap.ID, swap); err != nil {
			return err
		}

		return e.updateBuckets(ctx, tx, st, ev.Timestamp, bucketDelta{
			volumeETH:    trackedETH,
			volumeUSD:    trackedUSD,
			untrackedUSD: untrackedUSD,
			feesUSD:      feesUSD,
			volumeToken0: abs0,
			volumeToken1: abs1,
		})
	})
}
