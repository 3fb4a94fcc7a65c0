package pricing

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
	"poolScope/internal/network"
)

const (
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	tokX = "0x1111111111111111111111111111111111111111"
	tokY = "0x2222222222222222222222222222222222222222"
)

type fakeSnapshots struct {
	pools  map[string]*model.Pool
	tokens map[string]*model.Token
	err    error
}

func (f *fakeSnapshots) Pool(_ context.Context, id string) (*model.Pool, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pools[id], nil
}

func (f *fakeSnapshots) Token(_ context.Context, id string) (*model.Token, error) {
	return f.tokens[id], nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func params() network.Config {
	return network.Config{
		WrappedNativeAddress: weth,
		StablecoinAddresses:  []string{usdc},
		MinimumNativeLocked:  d("60"),
	}
}

func whitelist(tokens ...string) network.Config {
	return network.Config{WhitelistTokens: tokens}
}

func token(id string, derived string, pools ...string) *model.Token {
	t := model.NewToken(id, "", "", 18, nil)
	t.DerivedETH = d(derived)
	t.WhitelistPools = append(t.WhitelistPools, pools...)
	return t
}

func pool(id, token0, token1 string, liquidity int64) *model.Pool {
	p := model.NewPool(id, token0, token1, 3000, 60, 0, 0)
	p.Liquidity = big.NewInt(liquidity)
	return p
}

func TestFindNativePerTokenWrappedNativeIsOne(t *testing.T) {
	p := pool("0xp1", weth, tokX, 1000)
	p.TotalValueLockedToken1 = d("1000000")
	snaps := &fakeSnapshots{
		pools:  map[string]*model.Pool{"0xp1": p},
		tokens: map[string]*model.Token{tokX: token(tokX, "5")},
	}

	got, err := FindNativePerToken(context.Background(), token(weth, "0", "0xp1"), params(), &model.Bundle{EthPriceUSD: d("2000")}, snaps)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("1")))
}

func TestFindNativePerTokenStablecoinUsesBundle(t *testing.T) {
	snaps := &fakeSnapshots{}
	got, err := FindNativePerToken(context.Background(), token(usdc, "0"), params(), &model.Bundle{EthPriceUSD: d("2000")}, snaps)
	require.NoError(t, err)
	assert.Equal(t, "0.0005", got.String())

	got, err = FindNativePerToken(context.Background(), token(usdc, "0"), params(), &model.Bundle{}, snaps)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestFindNativePerTokenIgnoresPoolsBelowFloor(t *testing.T) {
	p := pool("0xp1", tokX, weth, 1000)
	p.TotalValueLockedToken1 = d("60")
	p.Token1Price = d("0.5")
	snaps := &fakeSnapshots{
		pools:  map[string]*model.Pool{"0xp1": p},
		tokens: map[string]*model.Token{weth: token(weth, "1")},
	}

	got, err := FindNativePerToken(context.Background(), token(tokX, "0", "0xp1"), params(), &model.Bundle{}, snaps)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestFindNativePerTokenPicksDeepestPool(t *testing.T) {
	shallow := pool("0xp1", tokX, weth, 1000)
	shallow.TotalValueLockedToken1 = d("100")
	shallow.Token1Price = d("0.5")

	deep := pool("0xp2", tokX, weth, 1000)
	deep.TotalValueLockedToken1 = d("200")
	deep.Token1Price = d("0.6")

	snaps := &fakeSnapshots{
		pools:  map[string]*model.Pool{"0xp1": shallow, "0xp2": deep},
		tokens: map[string]*model.Token{weth: token(weth, "1")},
	}

	got, err := FindNativePerToken(context.Background(), token(tokX, "0", "0xp1", "0xp2"), params(), &model.Bundle{}, snaps)
	require.NoError(t, err)
	assert.Equal(t, "0.6", got.String())

	got, err = FindNativePerToken(context.Background(), token(tokX, "0", "0xp2", "0xp1"), params(), &model.Bundle{}, snaps)
	require.NoError(t, err)
	assert.Equal(t, "0.6", got.String())
}

func TestFindNativePerTokenTokenOnEitherSide(t *testing.T) {
	p := pool("0xp1", tokY, tokX, 1000)
	p.TotalValueLockedToken0 = d("50")
	p.Token0Price = d("3")

	snaps := &fakeSnapshots{
		pools:  map[string]*model.Pool{"0xp1": p},
		tokens: map[string]*model.Token{tokY: token(tokY, "2")},
	}

	got, err := FindNativePerToken(context.Background(), token(tokX, "0", "0xp1"), params(), &model.Bundle{}, snaps)
	require.NoError(t, err)
	assert.Equal(t, "6", got.String())
}

func TestFindNativePerTokenSkipsEmptyAndIncompleteCandidates(t *testing.T) {
	noLiquidity := pool("0xp1", tokX, weth, 0)
	noLiquidity.TotalValueLockedToken1 = d("1000")
	noLiquidity.Token1Price = d("9")

	orphan := pool("0xp2", tokX, tokY, 1000)
	orphan.TotalValueLockedToken1 = d("1000")
	orphan.Token1Price = d("9")

	snaps := &fakeSnapshots{
		pools:  map[string]*model.Pool{"0xp1": noLiquidity, "0xp2": orphan},
		tokens: map[string]*model.Token{weth: token(weth, "1")},
	}

	got, err := FindNativePerToken(context.Background(), token(tokX, "0", "0xp1", "0xp2", "0xmissing"), params(), &model.Bundle{}, snaps)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestFindNativePerTokenPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("store down")
	_, err := FindNativePerToken(context.Background(), token(tokX, "0", "0xp1"), params(), &model.Bundle{}, &fakeSnapshots{err: boom})
	require.ErrorIs(t, err, boom)
}

func TestGetTrackedAmountUSD(t *testing.T) {
	bundle := &model.Bundle{EthPriceUSD: d("2000")}
	t0 := token(weth, "1")
	t1 := token(usdc, "0.0005")
	amount0 := d("1")
	amount1 := d("1000")

	both := GetTrackedAmountUSD(amount0, t0, amount1, t1, whitelist(weth, usdc), bundle)
	assert.Equal(t, "3000", both.String())

	only0 := GetTrackedAmountUSD(amount0, t0, amount1, t1, whitelist(weth), bundle)
	assert.Equal(t, "4000", only0.String())

	only1 := GetTrackedAmountUSD(amount0, t0, amount1, t1, whitelist(usdc), bundle)
	assert.Equal(t, "2000", only1.String())

	none := GetTrackedAmountUSD(amount0, t0, amount1, t1, whitelist(tokX), bundle)
	assert.True(t, none.IsZero())
}

func TestNativePriceInUSD(t *testing.T) {
	p := model.NewPool("0xref", usdc, weth, 500, 10, 0, 0)
	p.Token0Price = d("2000")
	p.Token1Price = d("0.0005")

	assert.Equal(t, "2000", NativePriceInUSD(true, p).String())
	assert.Equal(t, "0.0005", NativePriceInUSD(false, p).String())
	assert.True(t, NativePriceInUSD(true, nil).IsZero())
}
