// Package reconcile compares folded pool state with the chain.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/store"
)

const (
	methodBlock  = "block"
	methodLatest = "latest"
)

// ErrPoolNotFolded is returned for pools absent from the store.
var ErrPoolNotFolded = errors.New("pool not folded")

// ChainState reads live balances and pool state. *dex.ChainReader satisfies it.
type ChainState interface {
	Balance(ctx context.Context, chainID uint64, token, holder string, blockNumber uint64) (*big.Int, error)
	PoolState(ctx context.Context, chainID uint64, pool string, blockNumber uint64) (model.PoolState, error)
}

// Report is the drift of one pool between store and chain.
type Report struct {
	Pool            string
	Method          string
	Stored0         decimal.Decimal
	Stored1         decimal.Decimal
	OnChain0        decimal.Decimal
	OnChain1        decimal.Decimal
	Drift0          decimal.Decimal
	Drift1          decimal.Decimal
	StoredLiquidity string
	ChainLiquidity  string
	StoredTick      *int32
	ChainTick       int32
	Within          bool
}

type Reconciler struct {
	kv        store.KV
	chain     ChainState
	tolerance decimal.Decimal
	logger    *zap.Logger
}

// New builds a Reconciler. Relative drift at or below tolerance counts as a match.
func New(kv store.KV, chain ChainState, tolerance decimal.Decimal, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{kv: kv, chain: chain, tolerance: tolerance, logger: logger}
}

// Pool compares the stored raw TVL of pool with balanceOf(pool) of both
// tokens at blockNumber, falling back to latest when the block read fails.
func (r *Reconciler) Pool(ctx context.Context, chainID uint64, poolID string, blockNumber uint64) (Report, error) {
	poolID = network.NormalizeAddress(poolID)
	tx := store.Begin(r.kv, chainID)
	defer tx.Discard()

	pool, err := tx.Pools.Get(ctx, poolID)
	if err != nil {
		return Report{}, err
	}
	if pool == nil {
		return Report{}, fmt.Errorf("%w: %s", ErrPoolNotFolded, poolID)
	}
	token0, err := tx.Tokens.Get(ctx, pool.Token0)
	if err != nil {
		return Report{}, err
	}
	token1, err := tx.Tokens.Get(ctx, pool.Token1)
	if err != nil {
		return Report{}, err
	}
	if token0 == nil || token1 == nil {
		return Report{}, fmt.Errorf("%w: tokens of %s", ErrPoolNotFolded, poolID)
	}

	bal0, bal1, method, err := r.balances(ctx, chainID, pool, blockNumber)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Pool:       poolID,
		Method:     method,
		Stored0:    pool.TotalValueLockedToken0,
		Stored1:    pool.TotalValueLockedToken1,
		OnChain0:   numeric.ConvertTokenToDecimal(bal0, token0.Decimals),
		OnChain1:   numeric.ConvertTokenToDecimal(bal1, token1.Decimals),
		StoredTick: pool.Tick,
	}
	if pool.Liquidity != nil {
		report.StoredLiquidity = pool.Liquidity.String()
	}
	report.Drift0 = report.OnChain0.Sub(report.Stored0)
	report.Drift1 = report.OnChain1.Sub(report.Stored1)
	report.Within = r.within(report.Drift0, report.OnChain0) && r.within(report.Drift1, report.OnChain1)

	stateBlock := blockNumber
	if method == methodLatest {
		stateBlock = 0
	}
	if state, err := r.chain.PoolState(ctx, chainID, poolID, stateBlock); err == nil {
		report.ChainLiquidity = state.Liquidity
		report.ChainTick = state.Tick
	} else {
		r.logger.Warn("pool state read failed", zap.String("pool", poolID), zap.Error(err))
	}

	fields := []zap.Field{
		zap.Uint64("chain_id", chainID),
		zap.String("pool", poolID),
		zap.String("method", method),
		zap.String("stored0", report.Stored0.String()),
		zap.String("onchain0", report.OnChain0.String()),
		zap.String("drift0", report.Drift0.String()),
		zap.String("stored1", report.Stored1.String()),
		zap.String("onchain1", report.OnChain1.String()),
		zap.String("drift1", report.Drift1.String()),
		zap.String("stored_liquidity", report.StoredLiquidity),
		zap.String("chain_liquidity", report.ChainLiquidity),
	}
	if report.Within {
		r.logger.Info("pool reconciled", fields...)
	} else {
		r.logger.Warn("pool tvl drift", fields...)
	}
	return report, nil
}

func (r *Reconciler) balances(ctx context.Context, chainID uint64, pool *model.Pool, blockNumber uint64) (*big.Int, *big.Int, string, error) {
	if blockNumber > 0 {
		bal0, err0 := r.chain.Balance(ctx, chainID, pool.Token0, pool.ID, blockNumber)
		bal1, err1 := r.chain.Balance(ctx, chainID, pool.Token1, pool.ID, blockNumber)
		if err0 == nil && err1 == nil {
			return bal0, bal1, methodBlock, nil
		}
		r.logger.Warn("balance at block failed, using latest",
			zap.String("pool", pool.ID), zap.Uint64("block_number", blockNumber), zap.Error(errors.Join(err0, err1)))
	}

	bal0, err0 := r.chain.Balance(ctx, chainID, pool.Token0, pool.ID, 0)
	bal1, err1 := r.chain.Balance(ctx, chainID, pool.Token1, pool.ID, 0)
	if err0 != nil || err1 != nil {
		return nil, nil, "", fmt.Errorf("balanceOf %s: %w", pool.ID, errors.Join(err0, err1))
	}
	return bal0, bal1, methodLatest, nil
}

func (r *Reconciler) within(drift, reference decimal.Decimal) bool {
	if drift.IsZero() {
		return true
	}
	return numeric.SafeDiv(drift.Abs(), reference.Abs()).LessThanOrEqual(r.tolerance) && !reference.IsZero()
}
