package engine

import (
	"context"
	"fmt"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/store"
)

// HandleMint adds liquidity to a position of the pool at ev.Address.
func (e *Engine) HandleMint(ctx context.Context, ev Event, data model.MintEventData) error {
	return e.fold(ctx, model.EventMint, ev, func(ctx context.Context, tx *store.Tx, net network.Config) error {
		amount, err := numeric.ParseBig(data.Amount)
		if err != nil {
			return fmt.Errorf("mint amount: %w", err)
		}
		raw0, err := numeric.ParseBig(data.Amount0)
		if err != nil {
			return fmt.Errorf("mint amount0: %w", err)
		}
		raw1, err := numeric.ParseBig(data.Amount1)
		if err != nil {
			return fmt.Errorf("mint amount1: %w", err)
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
			st.pool.Liquidity = add(st.pool.Liquidity, amount)
		}
		st.shiftLocked(amount0, amount1)

		lower, upper, err := e.loadTicks(ctx, tx, st.pool.ID, data.TickLower, data.TickUpper)
		if err != nil {
			return err
		}
		if lower == nil {
			lower = newTick(st.pool.ID, data.TickLower, ev)
		}
		if upper == nil {
			upper = newTick(st.pool.ID, data.TickUpper, ev)
		}
		lower.LiquidityGross = add(lower.LiquidityGross, amount)
		lower.LiquidityNet = add(lower.LiquidityNet, amount)
		upper.LiquidityGross = add(upper.LiquidityGross, amount)
		upper.LiquidityNet = sub(upper.LiquidityNet, amount)

		if err := upsertTransaction(ctx, tx, ev); err != nil {
			return err
		}
		mint := &model.Mint{
			ID:          ev.eventID(),
			Transaction: ev.TxHash,
			Timestamp:   ev.Timestamp,
			Pool:        st.pool.ID,
			Token0:      st.token0.ID,
			Token1:      st.token1.ID,
			Owner:       network.NormalizeAddress(data.Owner),
			Sender:      network.NormalizeAddress(data.Sender),
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
		if err := tx.Ticks.Set(lower.ID, lower); err != nil {
			return err
		}
		if err := tx.Ticks.Set(upper.ID, upper); err != nil {
			return err
		}
		if err := tx.Mints.Set(mint.ID, mint); err != nil {
			return err
		}

		return e.updateBuckets(ctx, tx, st, ev.Timestamp, bucketDelta{})
	})
}
