package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/pricing"
	"poolScope/internal/store"
)

// HandlePoolCreated registers a new pool and its tokens. Nothing is persisted
// when either token's decimals cannot be resolved.
func (e *Engine) HandlePoolCreated(ctx context.Context, ev Event, data model.PoolCreatedEventData) error {
	return e.fold(ctx, model.EventPoolCreated, ev, func(ctx context.Context, tx *store.Tx, net network.Config) error {
		if ev.Address != net.FactoryAddress {
			return fmt.Errorf("%w: %s", ErrUnknownFactory, ev.Address)
		}

		poolID := network.NormalizeAddress(data.Pool)
		token0ID := network.NormalizeAddress(data.Token0)
		token1ID := network.NormalizeAddress(data.Token1)

		factory, err := tx.Factories.Get(ctx, net.FactoryAddress)
		if err != nil {
			return err
		}
		if factory == nil {
			factory = model.NewFactory(net.FactoryAddress)
		}
		bundle, err := tx.Bundles.Get(ctx, bundleID)
		if err != nil {
			return err
		}
		if bundle == nil {
			bundle = &model.Bundle{ID: bundleID, EthPriceUSD: numeric.Zero}
		}
		factory.PoolCount = inc(factory.PoolCount)

		feeTier, tickSpacing, err := e.poolParams(ctx, ev.ChainID, poolID, data)
		if err != nil {
			return err
		}

		token0, err := e.loadOrCreateToken(ctx, tx, net, ev.ChainID, token0ID)
		if err != nil {
			return err
		}
		token1, err := e.loadOrCreateToken(ctx, tx, net, ev.ChainID, token1ID)
		if err != nil {
			return err
		}

		pool := model.NewPool(poolID, token0ID, token1ID, feeTier, tickSpacing, ev.Timestamp, ev.BlockNumber)

		if net.IsWhitelisted(token0ID) {
			token1.WhitelistPools = append(token1.WhitelistPools, poolID)
		}
		if net.IsWhitelisted(token1ID) {
			token0.WhitelistPools = append(token0.WhitelistPools, poolID)
		}
		token0.PoolCount = inc(token0.PoolCount)
		token1.PoolCount = inc(token1.PoolCount)

		st := &poolState{factory: factory, bundle: bundle, pool: pool, token0: token0, token1: token1}
		if err := st.save(tx); err != nil {
			return err
		}

		if token0.DerivedETH, err = pricing.FindNativePerToken(ctx, token0, net, bundle, tx); err != nil {
			return err
		}
		if token1.DerivedETH, err = pricing.FindNativePerToken(ctx, token1, net, bundle, tx); err != nil {
			return err
		}

		if err := tx.Tokens.Set(token0.ID, token0); err != nil {
			return err
		}
		return tx.Tokens.Set(token1.ID, token1)
	})
}

// poolParams reads fee tier and tick spacing from the pool contract, falling
// back to the event payload and then to the fee tier table.
func (e *Engine) poolParams(ctx context.Context, chainID uint64, poolID string, data model.PoolCreatedEventData) (uint32, int32, error) {
	feeTier := data.Fee
	tickSpacing := data.TickSpacing

	if e.reader != nil {
		fee, err := e.reader.PoolFeeTier(ctx, chainID, poolID)
		if err == nil {
			feeTier = fee
		} else {
			e.logger.Warn("pool fee tier call failed", zap.String("pool", poolID), zap.Error(err))
		}
		spacing, err := e.reader.PoolTickSpacing(ctx, chainID, poolID)
		if err == nil {
			tickSpacing = spacing
		} else {
			e.logger.Warn("pool tick spacing call failed", zap.String("pool", poolID), zap.Error(err))
		}
	}

	if tickSpacing == 0 {
		spacing, err := numeric.FeeTierToTickSpacing(feeTier)
		if err != nil {
			return 0, 0, fmt.Errorf("pool %s: %w", poolID, err)
		}
		tickSpacing = spacing
	}
	return feeTier, tickSpacing, nil
}

// loadOrCreateToken returns the stored token or builds one from contract
// metadata with configured overrides applied.
func (e *Engine) loadOrCreateToken(ctx context.Context, tx *store.Tx, net network.Config, chainID uint64, tokenID string) (*model.Token, error) {
	token, err := tx.Tokens.Get(ctx, tokenID)
	if err != nil || token != nil {
		return token, err
	}

	var meta model.TokenMeta
	if e.reader != nil {
		meta, err = e.reader.TokenMetadata(ctx, chainID, tokenID)
		if err != nil {
			return nil, fmt.Errorf("token metadata %s: %w", tokenID, err)
		}
	}

	symbol, name, decimals := meta.Symbol, meta.Name, meta.Decimals
	totalSupply, err := numeric.ParseBig(meta.TotalSupply)
	if err != nil {
		totalSupply = nil
	}

	if o, ok := net.Override(tokenID); ok {
		if o.Symbol != "" {
			symbol = o.Symbol
		}
		if o.Name != "" {
			name = o.Name
		}
		if o.Decimals != nil {
			decimals = o.Decimals
		}
		if o.TotalSupply != nil {
			totalSupply = o.TotalSupply
		}
	}

	if decimals == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvableTokenMetadata, tokenID)
	}
	return model.NewToken(tokenID, symbol, name, *decimals, totalSupply), nil
}
