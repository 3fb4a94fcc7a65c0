package reconcile

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"poolScope/internal/model"
	"poolScope/internal/store"
)

const (
	pool   = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"
	usdc   = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	weth   = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	testID = uint64(1)
)

type fakeChain struct {
	balances    map[string]*big.Int
	failAtBlock bool
	blocks      []uint64
}

func (f *fakeChain) Balance(_ context.Context, _ uint64, token, _ string, block uint64) (*big.Int, error) {
	f.blocks = append(f.blocks, block)
	if block > 0 && f.failAtBlock {
		return nil, errors.New("missing trie node")
	}
	bal, ok := f.balances[token]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return bal, nil
}

func (f *fakeChain) PoolState(context.Context, uint64, string, uint64) (model.PoolState, error) {
	return model.PoolState{Liquidity: "42", Tick: 200000}, nil
}

func seed(t *testing.T, tvl0, tvl1 string) store.KV {
	t.Helper()
	kv := store.NewMemory()
	tx := store.Begin(kv, testID)
	require.NoError(t, tx.Pools.Set(pool, &model.Pool{
		ID:                     pool,
		Token0:                 usdc,
		Token1:                 weth,
		Liquidity:              big.NewInt(42),
		TotalValueLockedToken0: decimal.RequireFromString(tvl0),
		TotalValueLockedToken1: decimal.RequireFromString(tvl1),
	}))
	require.NoError(t, tx.Tokens.Set(usdc, model.NewToken(usdc, "USDC", "USD Coin", 6, nil)))
	require.NoError(t, tx.Tokens.Set(weth, model.NewToken(weth, "WETH", "Wrapped Ether", 18, nil)))
	require.NoError(t, tx.Commit(t.Context()))
	return kv
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestPoolWithinTolerance(t *testing.T) {
	kv := seed(t, "1500", "2")
	chain := &fakeChain{balances: map[string]*big.Int{usdc: big.NewInt(1_500_000_000), weth: ether(2)}}

	report, err := New(kv, chain, decimal.RequireFromString("0.000001"), zaptest.NewLogger(t)).
		Pool(t.Context(), testID, "0x88E6A0c2dDD26FEEb64F039a2c41296FcB3f5640", 100)
	require.NoError(t, err)

	assert.True(t, report.Within)
	assert.Equal(t, methodBlock, report.Method)
	assert.True(t, report.Drift0.IsZero())
	assert.Equal(t, "42", report.ChainLiquidity)
	assert.Equal(t, report.StoredLiquidity, report.ChainLiquidity)
	assert.Equal(t, []uint64{100, 100}, chain.blocks)
}

func TestPoolDriftFallsBackToLatest(t *testing.T) {
	kv := seed(t, "1500", "2")
	chain := &fakeChain{
		balances:    map[string]*big.Int{usdc: big.NewInt(1_600_000_000), weth: ether(2)},
		failAtBlock: true,
	}

	report, err := New(kv, chain, decimal.RequireFromString("0.01"), nil).Pool(t.Context(), testID, pool, 100)
	require.NoError(t, err)

	assert.Equal(t, methodLatest, report.Method)
	assert.False(t, report.Within)
	assert.Equal(t, "100", report.Drift0.String())
	assert.True(t, report.Drift1.IsZero())
}

func TestPoolNotFolded(t *testing.T) {
	_, err := New(store.NewMemory(), &fakeChain{}, decimal.Zero, nil).Pool(t.Context(), testID, pool, 0)
	assert.ErrorIs(t, err, ErrPoolNotFolded)
}

func TestPoolBalanceFailure(t *testing.T) {
	kv := seed(t, "1", "1")
	_, err := New(kv, &fakeChain{balances: map[string]*big.Int{}}, decimal.Zero, nil).Pool(t.Context(), testID, pool, 0)
	assert.Error(t, err)
}
