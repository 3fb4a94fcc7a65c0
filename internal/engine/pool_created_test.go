package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/numeric"
	"poolScope/internal/store"
)

func TestPoolCreatedWithNewToken(t *testing.T) {
	f := newFixture(t)
	f.createPool(newPool, newToken, weth, 3000)

	fac := f.factory()
	assert.Equal(t, int64(1), fac.PoolCount.Int64())
	assert.Equal(t, int64(0), fac.TxCount.Int64())
	assert.True(t, fac.TotalValueLockedUSD.IsZero())

	assert.True(t, f.bundle().EthPriceUSD.IsZero())

	pool := f.pool(newPool)
	assert.Equal(t, newToken, pool.Token0)
	assert.Equal(t, weth, pool.Token1)
	assert.Equal(t, uint32(3000), pool.FeeTier)
	assert.Equal(t, int32(60), pool.TickSpacing)
	assert.Nil(t, pool.Tick)
	assert.Equal(t, int64(0), pool.Liquidity.Int64())
	assert.True(t, pool.TotalValueLockedETH.IsZero())
	assert.True(t, pool.VolumeUSD.IsZero())
	assert.Equal(t, f.block, pool.CreatedAtBlockNumber)

	tok := f.token(newToken)
	assert.Equal(t, "NEW", tok.Symbol)
	assert.Equal(t, uint8(18), tok.Decimals)
	assert.True(t, tok.DerivedETH.IsZero())
	assert.Equal(t, []string{newPool}, tok.WhitelistPools)

	native := f.token(weth)
	assertDecimal(t, "1", native.DerivedETH)
	assert.Empty(t, native.WhitelistPools)
	assert.Equal(t, "1000", native.TotalSupply.String())
}

func TestPoolCreatedBetweenWhitelistedTokensListsBothSides(t *testing.T) {
	f := newFixture(t)
	f.createPool(refPool, usdc, weth, 500)
	f.createPool(newPool, newToken, weth, 3000)

	assert.Equal(t, []string{refPool}, f.token(usdc).WhitelistPools)
	assert.Equal(t, []string{refPool}, f.token(weth).WhitelistPools)
	assert.Equal(t, int64(2), f.token(weth).PoolCount.Int64())
	assert.Equal(t, int64(2), f.factory().PoolCount.Int64())
}

func TestPoolCreatedFallsBackToEventParams(t *testing.T) {
	f := newFixture(t)
	delete(f.reader.fees, newPool)
	delete(f.reader.spacings, newPool)

	err := f.engine.HandlePoolCreated(f.ctx, f.next(factoryHex), model.PoolCreatedEventData{
		Token0: newToken, Token1: weth, Fee: 10000, Pool: newPool,
	})
	require.NoError(t, err)

	pool := f.pool(newPool)
	assert.Equal(t, uint32(10000), pool.FeeTier)
	assert.Equal(t, int32(200), pool.TickSpacing)
}

func TestPoolCreatedUnsupportedFeeTierIsFatal(t *testing.T) {
	f := newFixture(t)
	delete(f.reader.fees, newPool)
	delete(f.reader.spacings, newPool)

	err := f.engine.HandlePoolCreated(f.ctx, f.next(factoryHex), model.PoolCreatedEventData{
		Token0: newToken, Token1: weth, Fee: 1234, Pool: newPool,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, numeric.ErrUnsupportedFeeTier))
	assert.False(t, IsDroppable(err))
	assert.Zero(t, f.kv.Count(testChain, store.KindPool))
	assert.Zero(t, f.kv.Count(testChain, store.KindFactory))
}

func TestPoolCreatedUnresolvableDecimalsPersistsNothing(t *testing.T) {
	f := newFixture(t)
	meta := f.reader.tokens[newToken]
	meta.Decimals = nil
	f.reader.tokens[newToken] = meta

	err := f.engine.HandlePoolCreated(f.ctx, f.next(factoryHex), model.PoolCreatedEventData{
		Token0: newToken, Token1: weth, Fee: 3000, Pool: newPool,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvableTokenMetadata))

	for _, kind := range []store.Kind{store.KindFactory, store.KindBundle, store.KindPool, store.KindToken, store.KindCursor} {
		assert.Zero(t, f.kv.Count(testChain, kind), kind)
	}
}

func TestPoolCreatedOverrideSuppliesDecimals(t *testing.T) {
	kv := store.NewMemory()
	reader := newStubReader()
	meta := reader.tokens[newToken]
	meta.Decimals = nil
	reader.tokens[newToken] = meta

	cfg := network.Mainnet()
	cfg.TokenOverrides = map[string]network.TokenOverride{
		newToken: {Symbol: "FIXED", Decimals: decimalsPtr(9)},
	}
	e := New(kv, network.Registry{testChain: cfg}, reader, nil)
	defer e.Close()

	f := &fixture{t: t, ctx: t.Context(), kv: kv, reader: reader, engine: e, block: 1}
	f.createPool(newPool, newToken, weth, 3000)

	tok := f.token(newToken)
	assert.Equal(t, uint8(9), tok.Decimals)
	assert.Equal(t, "FIXED", tok.Symbol)
	assert.Equal(t, "New Token", tok.Name)
}

func TestPoolCreatedFromUnknownFactoryIsDropped(t *testing.T) {
	f := newFixture(t)
	err := f.engine.HandlePoolCreated(f.ctx, f.next(unknownEOA), model.PoolCreatedEventData{
		Token0: newToken, Token1: weth, Fee: 3000, Pool: newPool,
	})
	assert.True(t, errors.Is(err, ErrUnknownFactory))
	assert.Zero(t, f.kv.Count(testChain, store.KindPool))
}

func TestUnknownChainIsDropped(t *testing.T) {
	f := newFixture(t)
	ev := f.next(factoryHex)
	ev.ChainID = 999
	err := f.engine.HandlePoolCreated(f.ctx, ev, model.PoolCreatedEventData{Token0: newToken, Token1: weth, Fee: 3000, Pool: newPool})
	assert.True(t, errors.Is(err, ErrMissingPrerequisite))
}
