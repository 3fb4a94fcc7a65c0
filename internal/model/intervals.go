package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// UniswapDayData is the protocol-wide daily bucket.
type UniswapDayData struct {
	ID                 string          `json:"id"`
	Date               uint64          `json:"date"`
	VolumeETH          decimal.Decimal `json:"volume_eth"`
	VolumeUSD          decimal.Decimal `json:"volume_usd"`
	VolumeUSDUntracked decimal.Decimal `json:"volume_usd_untracked"`
	FeesUSD            decimal.Decimal `json:"fees_usd"`
	TxCount            *big.Int        `json:"tx_count"`
	TvlUSD             decimal.Decimal `json:"tvl_usd"`
}

// PoolBucket is the shared shape of pool day and hour rows.
type PoolBucket struct {
	ID              string          `json:"id"`
	PeriodStartUnix uint64          `json:"period_start_unix"`
	Pool            string          `json:"pool"`
	Liquidity       *big.Int        `json:"liquidity"`
	SqrtPrice       *big.Int        `json:"sqrt_price"`
	Token0Price     decimal.Decimal `json:"token0_price"`
	Token1Price     decimal.Decimal `json:"token1_price"`
	Tick            *int32          `json:"tick,omitempty"`
	TvlUSD          decimal.Decimal `json:"tvl_usd"`
	VolumeToken0    decimal.Decimal `json:"volume_token0"`
	VolumeToken1    decimal.Decimal `json:"volume_token1"`
	VolumeUSD       decimal.Decimal `json:"volume_usd"`
	FeesUSD         decimal.Decimal `json:"fees_usd"`
	TxCount         *big.Int        `json:"tx_count"`
	Open            decimal.Decimal `json:"open"`
	High            decimal.Decimal `json:"high"`
	Low             decimal.Decimal `json:"low"`
	Close           decimal.Decimal `json:"close"`
}

// PoolDayData and PoolHourData differ only in bucket width.
type (
	PoolDayData  struct{ PoolBucket }
	PoolHourData struct{ PoolBucket }
)

// TokenBucket is the shared shape of token day and hour rows.
type TokenBucket struct {
	ID                  string          `json:"id"`
	PeriodStartUnix     uint64          `json:"period_start_unix"`
	Token               string          `json:"token"`
	Volume              decimal.Decimal `json:"volume"`
	VolumeUSD           decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untracked_volume_usd"`
	TotalValueLocked    decimal.Decimal `json:"total_value_locked"`
	TotalValueLockedUSD decimal.Decimal `json:"total_value_locked_usd"`
	PriceUSD            decimal.Decimal `json:"price_usd"`
	FeesUSD             decimal.Decimal `json:"fees_usd"`
	Open                decimal.Decimal `json:"open"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	Close               decimal.Decimal `json:"close"`
}

type (
	TokenDayData  struct{ TokenBucket }
	TokenHourData struct{ TokenBucket }
)
