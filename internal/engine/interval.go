package engine

import (
	"context"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"poolScope/internal/model"
	"poolScope/internal/store"
)

const (
	daySeconds  = 86400
	hourSeconds = 3600
)

// bucketDelta is what one event adds on top of the buckets' snapshots.
type bucketDelta struct {
	volumeETH    decimal.Decimal
	volumeUSD    decimal.Decimal
	untrackedUSD decimal.Decimal
	feesUSD      decimal.Decimal
	volumeToken0 decimal.Decimal
	volumeToken1 decimal.Decimal
}

type bucketRows struct {
	uniswapDay *model.UniswapDayData
	poolDay    *model.PoolDayData
	poolHour   *model.PoolHourData
	tokenDay   [2]*model.TokenDayData
	tokenHour  [2]*model.TokenHourData
}

// updateBuckets refreshes the protocol day, pool day/hour and token day/hour
// rows from the saved snapshots in st and adds delta.
func (e *Engine) updateBuckets(ctx context.Context, tx *store.Tx, st *poolState, ts uint64, delta bucketDelta) error {
	dayID := ts / daySeconds
	hourIndex := ts / hourSeconds
	tokens := [2]*model.Token{st.token0, st.token1}

	var rows bucketRows
	err := e.parallel(ctx,
		func(ctx context.Context) (err error) {
			rows.uniswapDay, err = tx.UniswapDayData.Get(ctx, strconv.FormatUint(dayID, 10))
			return err
		},
		func(ctx context.Context) (err error) {
			rows.poolDay, err = tx.PoolDayData.Get(ctx, bucketID(st.pool.ID, dayID))
			return err
		},
		func(ctx context.Context) (err error) {
			rows.poolHour, err = tx.PoolHourData.Get(ctx, bucketID(st.pool.ID, hourIndex))
			return err
		},
		func(ctx context.Context) (err error) {
			rows.tokenDay[0], err = tx.TokenDayData.Get(ctx, bucketID(tokens[0].ID, dayID))
			return err
		},
		func(ctx context.Context) (err error) {
			rows.tokenDay[1], err = tx.TokenDayData.Get(ctx, bucketID(tokens[1].ID, dayID))
			return err
		},
		func(ctx context.Context) (err error) {
			rows.tokenHour[0], err = tx.TokenHourData.Get(ctx, bucketID(tokens[0].ID, hourIndex))
			return err
		},
		func(ctx context.Context) (err error) {
			rows.tokenHour[1], err = tx.TokenHourData.Get(ctx, bucketID(tokens[1].ID, hourIndex))
			return err
		},
	)
	if err != nil {
		return err
	}

	day := rows.uniswapDay
	if day == nil {
		day = &model.UniswapDayData{ID: strconv.FormatUint(dayID, 10), Date: dayID * daySeconds}
	}
	day.TvlUSD = st.factory.TotalValueLockedUSD
	day.TxCount = new(big.Int).Set(st.factory.TxCount)
	day.VolumeETH = day.VolumeETH.Add(delta.volumeETH)
	day.VolumeUSD = day.VolumeUSD.Add(delta.volumeUSD)
	day.VolumeUSDUntracked = day.VolumeUSDUntracked.Add(delta.untrackedUSD)
	day.FeesUSD = day.FeesUSD.Add(delta.feesUSD)
	if err := tx.UniswapDayData.Set(day.ID, day); err != nil {
		return err
	}

	poolDay := rows.poolDay
	if poolDay == nil {
		poolDay = &model.PoolDayData{PoolBucket: openPoolBucket(st.pool, dayID, daySeconds)}
	}
	refreshPoolBucket(&poolDay.PoolBucket, st.pool, delta)
	if err := tx.PoolDayData.Set(poolDay.ID, poolDay); err != nil {
		return err
	}

	poolHour := rows.poolHour
	if poolHour == nil {
		poolHour = &model.PoolHourData{PoolBucket: openPoolBucket(st.pool, hourIndex, hourSeconds)}
	}
	refreshPoolBucket(&poolHour.PoolBucket, st.pool, delta)
	if err := tx.PoolHourData.Set(poolHour.ID, poolHour); err != nil {
		return err
	}

	volumes := [2]decimal.Decimal{delta.volumeToken0, delta.volumeToken1}
	for i, token := range tokens {
		priceUSD := token.DerivedETH.Mul(st.ethUSD())

		tokenDay := rows.tokenDay[i]
		if tokenDay == nil {
			tokenDay = &model.TokenDayData{TokenBucket: openTokenBucket(token.ID, priceUSD, dayID, daySeconds)}
		}
		refreshTokenBucket(&tokenDay.TokenBucket, token, priceUSD, volumes[i], delta)
		if err := tx.TokenDayData.Set(tokenDay.ID, tokenDay); err != nil {
			return err
		}

		tokenHour := rows.tokenHour[i]
		if tokenHour == nil {
			tokenHour = &model.TokenHourData{TokenBucket: openTokenBucket(token.ID, priceUSD, hourIndex, hourSeconds)}
		}
		refreshTokenBucket(&tokenHour.TokenBucket, token, priceUSD, volumes[i], delta)
		if err := tx.TokenHourData.Set(tokenHour.ID, tokenHour); err != nil {
			return err
		}
	}

	return nil
}

func bucketID(entityID string, index uint64) string {
	return entityID + "-" + strconv.FormatUint(index, 10)
}

func openPoolBucket(pool *model.Pool, index, width uint64) model.PoolBucket {
	return model.PoolBucket{
		ID:              bucketID(pool.ID, index),
		PeriodStartUnix: index * width,
		Pool:            pool.ID,
		TxCount:         new(big.Int),
		Open:            pool.Token0Price,
		High:            pool.Token0Price,
		Low:             pool.Token0Price,
		Close:           pool.Token0Price,
	}
}

func refreshPoolBucket(b *model.PoolBucket, pool *model.Pool, delta bucketDelta) {
	price := pool.Token0Price
	if price.GreaterThan(b.High) {
		b.High = price
	}
	if price.LessThan(b.Low) {
		b.Low = price
	}
	b.Close = price

	b.Liquidity = new(big.Int).Set(pool.Liquidity)
	b.SqrtPrice = new(big.Int).Set(pool.SqrtPrice)
	b.Token0Price = pool.Token0Price
	b.Token1Price = pool.Token1Price
	b.Tick = pool.Tick
	b.TvlUSD = pool.TotalValueLockedUSD
	b.TxCount = inc(b.TxCount)

	b.VolumeUSD = b.VolumeUSD.Add(delta.volumeUSD)
	b.VolumeToken0 = b.VolumeToken0.Add(delta.volumeToken0)
	b.VolumeToken1 = b.VolumeToken1.Add(delta.volumeToken1)
	b.FeesUSD = b.FeesUSD.Add(delta.feesUSD)
}

func openTokenBucket(tokenID string, priceUSD decimal.Decimal, index, width uint64) model.TokenBucket {
	return model.TokenBucket{
		ID:              bucketID(tokenID, index),
		PeriodStartUnix: index * width,
		Token:           tokenID,
		PriceUSD:        priceUSD,
		Open:            priceUSD,
		High:            priceUSD,
		Low:             priceUSD,
		Close:           priceUSD,
	}
}

// refreshTokenBucket adds the event's untracked USD, not the token's own leg.
func refreshTokenBucket(b *model.TokenBucket, token *model.Token, priceUSD, volume decimal.Decimal, delta bucketDelta) {
	if priceUSD.GreaterThan(b.High) {
		b.High = priceUSD
	}
	if priceUSD.LessThan(b.Low) {
		b.Low = priceUSD
	}
	b.Close = priceUSD
	b.PriceUSD = priceUSD
	b.TotalValueLocked = token.TotalValueLocked
	b.TotalValueLockedUSD = token.TotalValueLockedUSD

	b.Volume = b.Volume.Add(volume)
	b.VolumeUSD = b.VolumeUSD.Add(delta.volumeUSD)
	b.UntrackedVolumeUSD = b.UntrackedVolumeUSD.Add(delta.untrackedUSD)
	b.FeesUSD = b.FeesUSD.Add(delta.feesUSD)
}
