package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/store"
)

// HandleBurn removes liquidity from a position. Burned tokens stay in the pool
// as owed balances until collected, so raw TVL is unchanged here.
func (e *Engine) HandleBurn(ctx context.Context, ev Event, data model.BurnEventData) error {
	return e.fold(ctx, model.EventBurn, ev, func(ctx context.Context, tx *store.Tx, net network.Config) error {
		amount, err := numeric.ParseBig(data.Amount)
		if err != nil {
			return fmt.Errorf("burn amount: %w", err)
		}
		raw0, err := numeric.ParseBig(data.Amount0)
		if err != nil {
			return fmt.Errorf("burn amount0: %w", err)
		}
		raw1, err := numeric.ParseBig(data.Amount1)
		if err != nil {
			return fmt.Errorf("burn amount1: %w", err)
		}

		st, err := e.loadPoolState(ctx, tx, net.FactoryAddress, ev.Address)
		if err != nil {
			return err
		}

		amount0 := numeric.ConvertTokenToDecimal(raw0, st.token0.Decimals)
		amount1 := numeric.ConvertTokenToDecimal(raw1, st.token1.Decimals)
		amountUSD := st.amountUSD(amount0, amount1)

		st.countTx()
		if st.inRange(data.TickLower, data.TickUpper) {
			st.pool.Liquidity = sub(st.pool.Liquidity, amount)
		}
		st.shiftLocked(numeric.Zero, numeric.Zero)

		lower, upper, err := e.loadTicks(ctx, tx, st.pool.ID, data.TickLower, data.TickUpper)
		if err != nil {
			return err
		}
		if lower != nil && upper != nil {
			lower.LiquidityGross = sub(lower.LiquidityGross, amount)
			lower.LiquidityNet = sub(lower.LiquidityNet, amount)
			upper.LiquidityGross = sub(upper.LiquidityGross, amount)
			upper.LiquidityNet = add(upper.LiquidityNet, amount)
			if err := tx.Ticks.Set(lower.ID, lower); err != nil {
				return err
			}
			if err := tx.Ticks.Set(upper.ID, upper); err != nil {
				return err
			}
		} else {
			e.logger.Debug("burn on unknown tick range",
				zap.String("pool", st.pool.ID),
				zap.Int32("tick_lower", data.TickLower),
				zap.Int32("tick_upper", data.TickUpper),
			)
		}

		if err := upsertTransaction(ctx, tx, ev); err != nil {
			return err
		}
		burn := &model.Burn{
			ID:          ev.eventID(),
			Transaction: ev.TxHash,
			Timestamp:   ev.Timestamp,
			Pool:        st.pool.ID,
			Token0:      st.token0.ID,
			Token1:      st.token1.ID,
			Owner:       network.NormalizeAddress(data.Owner),
			Origin:      ev.TxOrigin,
			Amount:      amount,
			Amount0:     amount0,
			Amount1:     amount1,
			AmountUSD:   amountUSD,
			TickLower:   data.TickLower,
			TickUpper:   data.TickUpper,
			LogIndex:    ev.LogIndex,
		}

		if err := st.save(tx); err != nil {
			return err
		}
		if err := tx.Burns.Set(burn.ID, burn); err != nil {
			return err
		}

		return e.updateBuckets(ctx, tx, st, ev.Timestamp, bucketDelta{})
	})
}
