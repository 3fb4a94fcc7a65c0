package engine

import (
	"context"
	"fmt"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/pricing"
	"poolScope/internal/store"
)

// HandleCollect withdraws owed tokens from the pool. Collected amounts leave
// TVL and are counted as collected fees, not volume.
func (e *Engine) HandleCollect(ctx context.Context, ev Event, data model.CollectEventData) error {
	return e.fold(ctx, model.EventCollect, ev, func(ctx context.Context, tx *store.Tx, net network.Config) error {
		raw0, err := numeric.ParseBig(data.Amount0)
		if err != nil {
			return fmt.Errorf("collect amount0: %w", err)
		}
		raw1, err := numeric.ParseBig(data.Amount1)
		if err != nil {
			return fmt.Errorf("collect amount1: %w", err)
		}

		st, err := e.loadPoolState(ctx, tx, net.FactoryAddress, ev.Address)
		if err != nil {
			return err
		}

		amount0 := numeric.ConvertTokenToDecimal(raw0, st.token0.Decimals)
		amount1 := numeric.ConvertTokenToDecimal(raw1, st.token1.Decimals)
		trackedUSD := pricing.GetTrackedAmountUSD(amount0, st.token0, amount1, st.token1, net, st.bundle)

		st.countTx()
		st.shiftLocked(amount0.Neg(), amount1.Neg())

		st.pool.CollectedFeesToken0 = st.pool.CollectedFeesToken0.Add(amount0)
		st.pool.CollectedFeesToken1 = st.pool.CollectedFeesToken1.Add(amount1)
		st.pool.CollectedFeesUSD = st.pool.CollectedFeesUSD.Add(trackedUSD)

		if err := upsertTransaction(ctx, tx, ev); err != nil {
			return err
		}
		collect := &model.Collect{
			ID:          ev.eventID(),
			Transaction: ev.TxHash,
			Timestamp:   ev.Timestamp,
			Pool:        st.pool.ID,
			Owner:       network.NormalizeAddress(data.Owner),
			Amount0:     amount0,
			Amount1:     amount1,
			AmountUSD:   trackedUSD,
			TickLower:   data.TickLower,
			TickUpper:   data.TickUpper,
			LogIndex:    ev.LogIndex,
		}

		if err := st.save(tx); err != nil {
			return err
		}
		if err := tx.Collects.Set(collect.ID, collect); err != nil {
			return err
		}

		return e.updateBuckets(ctx, tx, st, ev.Timestamp, bucketDelta{})
	})
}
