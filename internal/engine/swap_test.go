package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
	"poolScope/internal/numeric"
	"poolScope/internal/store"
)

const hundredEther = "100000000000000000000"

// seedMarket creates a USDC/WETH reference pool priced at 2500 and a NEW/WETH
// pool with liquidity but no trades yet.
func seedMarket(t *testing.T) *fixture {
	f := newFixture(t)
	f.createPool(refPool, usdc, weth, 500)
	f.createPool(newPool, newToken, weth, 3000)

	f.mint(refPool, -100, 100, "1000000", "1000000000000", "400000000000000000000")
	f.mint(newPool, -600, 600, "1000000", "1000000000000000000000", "250000000000000000000")
	assertDecimal(t, "650", f.factory().TotalValueLockedETH)

	f.swap(refPool, model.SwapEventData{
		Amount0:      "-2500000000",
		Amount1:      oneEther,
		SqrtPriceX96: sqrtX96(20000, 0),
		Liquidity:    oneEther,
		Tick:         100,
	})
	return f
}

func firstNewPoolSwap() model.SwapEventData {
	return model.SwapEventData{
		Amount0:      "4000000000000000000",
		Amount1:      "-" + oneEther,
		SqrtPriceX96: sqrtX96(1, 1),
		Liquidity:    hundredEther,
		Tick:         -13863,
	}
}

func assertPoolInvariant(t *testing.T, f *fixture, poolID string) {
	t.Helper()
	pool := f.pool(poolID)
	token0 := f.token(pool.Token0)
	token1 := f.token(pool.Token1)

	want := pool.TotalValueLockedToken0.Mul(token0.DerivedETH).Add(pool.TotalValueLockedToken1.Mul(token1.DerivedETH))
	assert.True(t, want.Equal(pool.TotalValueLockedETH), "pool %s tvl eth %s want %s", poolID, pool.TotalValueLockedETH, want)
}

func TestSwapOnReferencePoolRefreshesBundle(t *testing.T) {
	f := seedMarket(t)

	assertDecimal(t, "2500", f.bundle().EthPriceUSD)

	ref := f.pool(refPool)
	assertDecimal(t, "2500", ref.Token0Price)
	assertDecimal(t, "0.0004", ref.Token1Price)
	require.NotNil(t, ref.Tick)
	assert.Equal(t, int32(100), *ref.Tick)
	assert.Equal(t, oneEther, ref.Liquidity.String())
	assertDecimal(t, "997500", ref.TotalValueLockedToken0)
	assertDecimal(t, "401", ref.TotalValueLockedToken1)
	assertDecimal(t, "800", ref.TotalValueLockedETH)

	assertDecimal(t, "0.0004", f.token(usdc).DerivedETH)
	assertDecimal(t, "1", f.token(weth).DerivedETH)
	assertDecimal(t, "1050", f.factory().TotalValueLockedETH)
	assertPoolInvariant(t, f, refPool)
}

func TestSwapAccruesVolumeAndFees(t *testing.T) {
	f := seedMarket(t)
	f.swap(newPool, firstNewPoolSwap())

	pool := f.pool(newPool)
	assertDecimal(t, "4", pool.Token0Price)
	assertDecimal(t, "0.25", pool.Token1Price)
	assertDecimal(t, "4", pool.VolumeToken0)
	assertDecimal(t, "1", pool.VolumeToken1)
	assertDecimal(t, "2500", pool.VolumeUSD)
	assertDecimal(t, "1250", pool.UntrackedVolumeUSD)
	assertDecimal(t, "7.5", pool.FeesUSD)
	assertDecimal(t, "1004", pool.TotalValueLockedToken0)
	assertDecimal(t, "249", pool.TotalValueLockedToken1)
	assertDecimal(t, "500", pool.TotalValueLockedETH)
	assertDecimal(t, "1250000", pool.TotalValueLockedUSD)
	assert.Equal(t, hundredEther, pool.Liquidity.String())

	tok := f.token(newToken)
	assertDecimal(t, "0.25", tok.DerivedETH)
	assertDecimal(t, "4", tok.Volume)
	assertDecimal(t, "2500", tok.VolumeUSD)
	assertDecimal(t, "627500", tok.TotalValueLockedUSD)

	fac := f.factory()
	assertDecimal(t, "1300", fac.TotalValueLockedETH)
	assertDecimal(t, "3250000", fac.TotalValueLockedUSD)
	assertDecimal(t, "2500", fac.TotalVolumeUSD)
	assertDecimal(t, "1", fac.TotalVolumeETH)
	assertDecimal(t, "7.5", fac.TotalFeesUSD)
	assertDecimal(t, "0.003", fac.TotalFeesETH)
	assertDecimal(t, "1250", fac.UntrackedVolumeUSD)
	assert.Equal(t, int64(4), fac.TxCount.Int64())

	swap, err := f.tx().Swaps.Get(f.ctx, f.lastEventID())
	require.NoError(t, err)
	require.NotNil(t, swap)
	assertDecimal(t, "2500", swap.AmountUSD)
	assertDecimal(t, "-1", swap.Amount1)
	assert.Equal(t, txOrigin, swap.Origin)
}

func TestSwapUpdatesBuckets(t *testing.T) {
	f := seedMarket(t)
	f.swap(newPool, firstNewPoolSwap())

	ts := baseTime + f.block*12
	dayID := ts / daySeconds

	day, err := f.tx().UniswapDayData.Get(f.ctx, strconv.FormatUint(dayID, 10))
	require.NoError(t, err)
	require.NotNil(t, day)
	assertDecimal(t, "2500", day.VolumeUSD)
	assertDecimal(t, "1", day.VolumeETH)
	assertDecimal(t, "7.5", day.FeesUSD)
	assertDecimal(t, "3250000", day.TvlUSD)
	assert.Equal(t, int64(4), day.TxCount.Int64())

	poolHour, err := f.tx().PoolHourData.Get(f.ctx, bucketID(newPool, ts/hourSeconds))
	require.NoError(t, err)
	require.NotNil(t, poolHour)
	assertDecimal(t, "2500", poolHour.VolumeUSD)
	assertDecimal(t, "4", poolHour.VolumeToken0)
	assertDecimal(t, "7.5", poolHour.FeesUSD)
	assertDecimal(t, "4", poolHour.Close)
	assert.Equal(t, int64(2), poolHour.TxCount.Int64())

	tokenDay, err := f.tx().TokenDayData.Get(f.ctx, bucketID(newToken, dayID))
	require.NoError(t, err)
	require.NotNil(t, tokenDay)
	assertDecimal(t, "4", tokenDay.Volume)
	assertDecimal(t, "2500", tokenDay.VolumeUSD)
	assertDecimal(t, "1250", tokenDay.UntrackedVolumeUSD)
	assertDecimal(t, "625", tokenDay.PriceUSD)
	assertDecimal(t, "0", tokenDay.Open)
	assertDecimal(t, "625", tokenDay.High)
	assertDecimal(t, "0", tokenDay.Low)
	assertDecimal(t, "625", tokenDay.Close)

	wethHour, err := f.tx().TokenHourData.Get(f.ctx, bucketID(weth, ts/hourSeconds))
	require.NoError(t, err)
	require.NotNil(t, wethHour)
	assertDecimal(t, "2", wethHour.Volume)
}

func TestSequentialSwapsKeepPoolValueConsistent(t *testing.T) {
	f := seedMarket(t)

	swaps := []model.SwapEventData{
		firstNewPoolSwap(),
		{Amount0: "-1000000000000000000", Amount1: "560000000000000000", SqrtPriceX96: sqrtX96(3, 2), Liquidity: hundredEther, Tick: -5754},
		{Amount0: "7000000000000000000", Amount1: "-2000000000000000000", SqrtPriceX96: sqrtX96(1, 2), Liquidity: hundredEther, Tick: -27726},
		{Amount0: "-9000000000000000000", Amount1: "5000000000000000000", SqrtPriceX96: sqrtX96(5, 2), Liquidity: hundredEther, Tick: 4463},
		{Amount0: "123456789", Amount1: "-987654321", SqrtPriceX96: sqrtX96(5, 2), Liquidity: "0", Tick: 4463},
	}

	for i, data := range swaps {
		f.swap(newPool, data)
		assertPoolInvariant(t, f, newPool)

		total := f.pool(refPool).TotalValueLockedETH.Add(f.pool(newPool).TotalValueLockedETH)
		assert.True(t, total.Equal(f.factory().TotalValueLockedETH), "swap %d: factory %s pools %s", i, f.factory().TotalValueLockedETH, total)
	}

	assert.Equal(t, int64(len(swaps)+1), f.pool(newPool).TxCount.Int64())
}

func TestSwapAppliedTwiceDoublesCounters(t *testing.T) {
	f := seedMarket(t)
	ev := f.next(newPool)
	data := firstNewPoolSwap()

	require.NoError(t, f.engine.HandleSwap(f.ctx, ev, data))
	once := f.pool(newPool)

	require.NoError(t, f.engine.HandleSwap(f.ctx, ev, data))
	twice := f.pool(newPool)

	assert.False(t, once.VolumeUSD.Equal(twice.VolumeUSD))
	assert.True(t, twice.VolumeUSD.Equal(once.VolumeUSD.Mul(numeric.Two)))
	assert.True(t, twice.FeesUSD.Equal(once.FeesUSD.Mul(numeric.Two)))
	assert.True(t, twice.VolumeToken0.Equal(once.VolumeToken0.Mul(numeric.Two)))
	assert.Equal(t, once.TxCount.Int64()+1, twice.TxCount.Int64())
	assertDecimal(t, "1008", twice.TotalValueLockedToken0)
}

func TestSwapOnExcludedPoolIsSkipped(t *testing.T) {
	f := seedMarket(t)
	before := f.kv.Count(testChain, store.KindSwap)

	err := f.engine.HandleSwap(f.ctx, f.next(excludedPool), firstNewPoolSwap())
	require.NoError(t, err)
	assert.Equal(t, before, f.kv.Count(testChain, store.KindSwap))
}

func TestSwapWithMissingTokenIsDropped(t *testing.T) {
	f := seedMarket(t)
	pool := f.pool(newPool)
	pool.Token0 = "0x5555555555555555555555555555555555555555"
	tx := f.tx()
	require.NoError(t, tx.Pools.Set(newPool, pool))
	require.NoError(t, tx.Commit(f.ctx))

	err := f.engine.HandleSwap(f.ctx, f.next(newPool), firstNewPoolSwap())
	require.ErrorIs(t, err, ErrMissingPrerequisite)
	assert.True(t, f.pool(newPool).VolumeUSD.IsZero())
}

func TestSwapInNextHourOpensFreshBuckets(t *testing.T) {
	f := seedMarket(t)
	f.swap(newPool, firstNewPoolSwap())

	firstHour := (baseTime + f.block*12) / hourSeconds
	ev := f.next(newPool)
	ev.Timestamp = (firstHour+1)*hourSeconds + 60
	dayID := ev.Timestamp / daySeconds
	require.Equal(t, firstHour*hourSeconds/daySeconds, dayID)

	data := firstNewPoolSwap()
	data.Sender, data.Recipient = unknownEOA, unknownEOA
	require.NoError(t, f.engine.HandleSwap(f.ctx, ev, data))

	prev, err := f.tx().PoolHourData.Get(f.ctx, bucketID(newPool, firstHour))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assertDecimal(t, "4", prev.VolumeToken0)
	assertDecimal(t, "2500", prev.VolumeUSD)
	assert.Equal(t, int64(2), prev.TxCount.Int64())

	cur, err := f.tx().PoolHourData.Get(f.ctx, bucketID(newPool, firstHour+1))
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, (firstHour+1)*hourSeconds, cur.PeriodStartUnix)
	assertDecimal(t, "4", cur.VolumeToken0)
	assertDecimal(t, "2500", cur.VolumeUSD)
	assert.Equal(t, int64(1), cur.TxCount.Int64())
	assert.True(t, cur.Open.Equal(prev.Close), "open %s prev close %s", cur.Open, prev.Close)

	prevToken, err := f.tx().TokenHourData.Get(f.ctx, bucketID(newToken, firstHour))
	require.NoError(t, err)
	require.NotNil(t, prevToken)
	curToken, err := f.tx().TokenHourData.Get(f.ctx, bucketID(newToken, firstHour+1))
	require.NoError(t, err)
	require.NotNil(t, curToken)
	assertDecimal(t, "4", curToken.Volume)
	assertDecimal(t, "2500", curToken.VolumeUSD)
	assert.True(t, curToken.Open.Equal(prevToken.Close), "open %s prev close %s", curToken.Open, prevToken.Close)

	poolDay, err := f.tx().PoolDayData.Get(f.ctx, bucketID(newPool, dayID))
	require.NoError(t, err)
	require.NotNil(t, poolDay)
	assertDecimal(t, "8", poolDay.VolumeToken0)
	assertDecimal(t, "5000", poolDay.VolumeUSD)
	assert.Equal(t, int64(3), poolDay.TxCount.Int64())
}
