package engine

import (
	"context"
	"errors"
	"math/big"
	"strconv"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"

	"poolScope/internal/model"
	"poolScope/internal/numeric"
	"poolScope/internal/store"
)

// parallel runs independent reads on the shared pool and waits for all of them.
func (e *Engine) parallel(ctx context.Context, fns ...func(context.Context) error) error {
	group := e.workers.NewGroupContext(ctx)
	groupCtx := group.Context()

	errs := make([]error, len(fns))
	for i, fn := range fns {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = fn(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	return errors.Join(errs...)
}

// poolState is the snapshot set every pool-level handler starts from.
type poolState struct {
	factory *model.Factory
	bundle  *model.Bundle
	pool    *model.Pool
	token0  *model.Token
	token1  *model.Token
}

func (e *Engine) loadPoolState(ctx context.Context, tx *store.Tx, factoryID, poolID string) (*poolState, error) {
	var st poolState

	err := e.parallel(ctx,
		func(ctx context.Context) (err error) {
			st.bundle, err = tx.Bundles.Get(ctx, bundleID)
			return err
		},
		func(ctx context.Context) (err error) {
			st.pool, err = tx.Pools.Get(ctx, poolID)
			return err
		},
		func(ctx context.Context) (err error) {
			st.factory, err = tx.Factories.Get(ctx, factoryID)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	switch {
	case st.bundle == nil:
		return nil, missing("bundle", bundleID)
	case st.pool == nil:
		return nil, missing("pool", poolID)
	case st.pool.Token0 == "" || st.pool.Token1 == "":
		return nil, missing("pool tokens", poolID)
	case st.factory == nil:
		return nil, missing("factory", factoryID)
	}

	err = e.parallel(ctx,
		func(ctx context.Context) (err error) {
			st.token0, err = tx.Tokens.Get(ctx, st.pool.Token0)
			return err
		},
		func(ctx context.Context) (err error) {
			st.token1, err = tx.Tokens.Get(ctx, st.pool.Token1)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	if st.token0 == nil {
		return nil, missing("token", st.pool.Token0)
	}
	if st.token1 == nil {
		return nil, missing("token", st.pool.Token1)
	}

	return &st, nil
}

func (st *poolState) ethUSD() decimal.Decimal {
	return st.bundle.EthPriceUSD
}

// save stages every snapshot of the state.
func (st *poolState) save(tx *store.Tx) error {
	if err := tx.Factories.Set(st.factory.ID, st.factory); err != nil {
		return err
	}
	if err := tx.Bundles.Set(st.bundle.ID, st.bundle); err != nil {
		return err
	}
	if err := tx.Pools.Set(st.pool.ID, st.pool); err != nil {
		return err
	}
	if err := tx.Tokens.Set(st.token0.ID, st.token0); err != nil {
		return err
	}
	return tx.Tokens.Set(st.token1.ID, st.token1)
}

// countTx increments the factory, pool and token transaction counters.
func (st *poolState) countTx() {
	st.factory.TxCount = inc(st.factory.TxCount)
	st.pool.TxCount = inc(st.pool.TxCount)
	st.token0.TxCount = inc(st.token0.TxCount)
	st.token1.TxCount = inc(st.token1.TxCount)
}

// shiftLocked adds raw token deltas to the pool and its tokens and revalues
// TVL bottom-up. The pool's old native TVL leaves the factory total before the
// recompute and the new value is added back afterwards.
func (st *poolState) shiftLocked(amount0, amount1 decimal.Decimal) {
	ethUSD := st.ethUSD()

	st.factory.TotalValueLockedETH = st.factory.TotalValueLockedETH.Sub(st.pool.TotalValueLockedETH)

	st.token0.TotalValueLocked = st.token0.TotalValueLocked.Add(amount0)
	st.token0.TotalValueLockedUSD = st.token0.TotalValueLocked.Mul(st.token0.DerivedETH.Mul(ethUSD))
	st.token1.TotalValueLocked = st.token1.TotalValueLocked.Add(amount1)
	st.token1.TotalValueLockedUSD = st.token1.TotalValueLocked.Mul(st.token1.DerivedETH.Mul(ethUSD))

	st.pool.TotalValueLockedToken0 = st.pool.TotalValueLockedToken0.Add(amount0)
	st.pool.TotalValueLockedToken1 = st.pool.TotalValueLockedToken1.Add(amount1)

	st.revaluePool()
}

// revaluePool recomputes pool native/USD TVL from current token prices and
// adds it to the factory total, which must already exclude the old value.
func (st *poolState) revaluePool() {
	ethUSD := st.ethUSD()

	st.pool.TotalValueLockedETH = st.pool.TotalValueLockedToken0.Mul(st.token0.DerivedETH).
		Add(st.pool.TotalValueLockedToken1.Mul(st.token1.DerivedETH))
	st.pool.TotalValueLockedUSD = st.pool.TotalValueLockedETH.Mul(ethUSD)

	st.factory.TotalValueLockedETH = st.factory.TotalValueLockedETH.Add(st.pool.TotalValueLockedETH)
	st.factory.TotalValueLockedUSD = st.factory.TotalValueLockedETH.Mul(ethUSD)
}

// amountUSD values both legs at the tokens' current derived prices.
func (st *poolState) amountUSD(amount0, amount1 decimal.Decimal) decimal.Decimal {
	ethUSD := st.ethUSD()
	return amount0.Mul(st.token0.DerivedETH.Mul(ethUSD)).
		Add(amount1.Mul(st.token1.DerivedETH.Mul(ethUSD)))
}

// inRange reports whether the pool's current tick lies in [lower, upper).
func (st *poolState) inRange(lower, upper int32) bool {
	tick := st.pool.Tick
	return tick != nil && lower <= *tick && *tick < upper
}

func tickID(poolID string, idx int32) string {
	return poolID + "#" + strconv.FormatInt(int64(idx), 10)
}

func newTick(poolID string, idx int32, ev Event) *model.Tick {
	price0, price1 := numeric.TickIndexToPrices(idx)
	return &model.Tick{
		ID:                   tickID(poolID, idx),
		TickIdx:              idx,
		Pool:                 poolID,
		CreatedAtTimestamp:   ev.Timestamp,
		CreatedAtBlockNumber: ev.BlockNumber,
		LiquidityGross:       new(big.Int),
		LiquidityNet:         new(big.Int),
		Price0:               price0,
		Price1:               price1,
	}
}

func (e *Engine) loadTicks(ctx context.Context, tx *store.Tx, poolID string, lower, upper int32) (*model.Tick, *model.Tick, error) {
	var lowerTick, upperTick *model.Tick
	err := e.parallel(ctx,
		func(ctx context.Context) (err error) {
			lowerTick, err = tx.Ticks.Get(ctx, tickID(poolID, lower))
			return err
		},
		func(ctx context.Context) (err error) {
			upperTick, err = tx.Ticks.Get(ctx, tickID(poolID, upper))
			return err
		},
	)
	return lowerTick, upperTick, err
}

// upsertTransaction stages the transaction row if it does not exist yet.
func upsertTransaction(ctx context.Context, tx *store.Tx, ev Event) error {
	existing, err := tx.Transactions.Get(ctx, ev.TxHash)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return tx.Transactions.Set(ev.TxHash, &model.Transaction{
		ID:          ev.TxHash,
		BlockNumber: ev.BlockNumber,
		Timestamp:   ev.Timestamp,
		GasUsed:     new(big.Int),
		GasPrice:    new(big.Int),
	})
}

func inc(v *big.Int) *big.Int {
	return add(v, big.NewInt(1))
}

func add(v, delta *big.Int) *big.Int {
	out := new(big.Int)
	if v != nil {
		out.Set(v)
	}
	return out.Add(out, delta)
}

func sub(v, delta *big.Int) *big.Int {
	return add(v, new(big.Int).Neg(delta))
}
