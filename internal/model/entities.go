package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Factory holds protocol-wide aggregates for one chain.
type Factory struct {
	ID                           string          `json:"id"`
	PoolCount                    *big.Int        `json:"pool_count"`
	TxCount                      *big.Int        `json:"tx_count"`
	TotalVolumeETH               decimal.Decimal `json:"total_volume_eth"`
	TotalVolumeUSD               decimal.Decimal `json:"total_volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	TotalFeesETH                 decimal.Decimal `json:"total_fees_eth"`
	TotalFeesUSD                 decimal.Decimal `json:"total_fees_usd"`
	TotalValueLockedETH          decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedETHUntracked decimal.Decimal `json:"total_value_locked_eth_untracked"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	Owner                        string          `json:"owner"`
}

// NewFactory returns a factory with zeroed counters.
func NewFactory(id string) *Factory {
	return &Factory{
		ID:        id,
		PoolCount: new(big.Int),
		TxCount:   new(big.Int),
		Owner:     "0x0000000000000000000000000000000000000000",
	}
}

// Bundle holds the native asset's USD price for one chain.
type Bundle struct {
	ID          string          `json:"id"`
	EthPriceUSD decimal.Decimal `json:"eth_price_usd"`
}

// Pool is a concentrated-liquidity pool and its running state.
type Pool struct {
	ID                           string          `json:"id"`
	Token0                       string          `json:"token0"`
	Token1                       string          `json:"token1"`
	FeeTier                      uint32          `json:"fee_tier"`
	TickSpacing                  int32           `json:"tick_spacing"`
	CreatedAtTimestamp           uint64          `json:"created_at_timestamp"`
	CreatedAtBlockNumber         uint64          `json:"created_at_block_number"`
	LiquidityProviderCount       *big.Int        `json:"liquidity_provider_count"`
	TxCount                      *big.Int        `json:"tx_count"`
	Liquidity                    *big.Int        `json:"liquidity"`
	SqrtPrice                    *big.Int        `json:"sqrt_price"`
	ObservationIndex             *big.Int        `json:"observation_index"`
	Tick                         *int32          `json:"tick,omitempty"`
	Token0Price                  decimal.Decimal `json:"token0_price"`
	Token1Price                  decimal.Decimal `json:"token1_price"`
	TotalValueLockedToken0       decimal.Decimal `json:"total_value_locked_token0"`
	TotalValueLockedToken1       decimal.Decimal `json:"total_value_locked_token1"`
	TotalValueLockedETH          decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	VolumeToken0                 decimal.Decimal `json:"volume_token0"`
	VolumeToken1                 decimal.Decimal `json:"volume_token1"`
	VolumeUSD                    decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                      decimal.Decimal `json:"fees_usd"`
	CollectedFeesToken0          decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1          decimal.Decimal `json:"collected_fees_token1"`
	CollectedFeesUSD             decimal.Decimal `json:"collected_fees_usd"`
}

// NewPool returns a pool with zeroed metrics and an unset tick.
func NewPool(id, token0, token1 string, feeTier uint32, tickSpacing int32, timestamp, blockNumber uint64) *Pool {
	return &Pool{
		ID:                     id,
		Token0:                 token0,
		Token1:                 token1,
		FeeTier:                feeTier,
		TickSpacing:            tickSpacing,
		CreatedAtTimestamp:     timestamp,
		CreatedAtBlockNumber:   blockNumber,
		LiquidityProviderCount: new(big.Int),
		TxCount:                new(big.Int),
		Liquidity:              new(big.Int),
		SqrtPrice:              new(big.Int),
		ObservationIndex:       new(big.Int),
	}
}

// Token is an ERC20 referenced by at least one pool.
type Token struct {
	ID                           string          `json:"id"`
	Symbol                       string          `json:"symbol"`
	Name                         string          `json:"name"`
	Decimals                     uint8           `json:"decimals"`
	TotalSupply                  *big.Int        `json:"total_supply"`
	DerivedETH                   decimal.Decimal `json:"derived_eth"`
	Volume                       decimal.Decimal `json:"volume"`
	VolumeUSD                    decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                      decimal.Decimal `json:"fees_usd"`
	TotalValueLocked             decimal.Decimal `json:"total_value_locked"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	TxCount                      *big.Int        `json:"tx_count"`
	PoolCount                    *big.Int        `json:"pool_count"`
	// WhitelistPools is append-only and keeps insertion order.
	WhitelistPools []string `json:"whitelist_pools"`
}

// NewToken returns a token with zeroed metrics.
func NewToken(id, symbol, name string, decimals uint8, totalSupply *big.Int) *Token {
	if totalSupply == nil {
		totalSupply = new(big.Int)
	}
	return &Token{
		ID:             id,
		Symbol:         symbol,
		Name:           name,
		Decimals:       decimals,
		TotalSupply:    totalSupply,
		TxCount:        new(big.Int),
		PoolCount:      new(big.Int),
		WhitelistPools: []string{},
	}
}

// Tick is a liquidity boundary of a pool, keyed pool#tickIdx.
type Tick struct {
	ID                   string          `json:"id"`
	TickIdx              int32           `json:"tick_idx"`
	Pool                 string          `json:"pool"`
	CreatedAtTimestamp   uint64          `json:"created_at_timestamp"`
	CreatedAtBlockNumber uint64          `json:"created_at_block_number"`
	LiquidityGross       *big.Int        `json:"liquidity_gross"`
	LiquidityNet         *big.Int        `json:"liquidity_net"`
	Price0               decimal.Decimal `json:"price0"`
	Price1               decimal.Decimal `json:"price1"`
}

// Transaction is upserted by every handler that references a tx hash.
type Transaction struct {
	ID          string   `json:"id"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	GasUsed     *big.Int `json:"gas_used"`
	GasPrice    *big.Int `json:"gas_price"`
}

// Mint is the immutable log row of a Mint event.
type Mint struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pool        string          `json:"pool"`
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Owner       string          `json:"owner"`
	Sender      string          `json:"sender"`
	Origin      string          `json:"origin"`
	Amount      *big.Int        `json:"amount"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	TickLower   int32           `json:"tick_lower"`
	TickUpper   int32           `json:"tick_upper"`
	LogIndex    uint64          `json:"log_index"`
}

// Burn is the immutable log row of a Burn event.
type Burn struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pool        string          `json:"pool"`
	Token0      string          `json:"token0"`
	Token1      string          `json:"token1"`
	Owner       string          `json:"owner"`
	Origin      string          `json:"origin"`
	Amount      *big.Int        `json:"amount"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	TickLower   int32           `json:"tick_lower"`
	TickUpper   int32           `json:"tick_upper"`
	LogIndex    uint64          `json:"log_index"`
}

// Collect is the immutable log row of a Collect event.
type Collect struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pool        string          `json:"pool"`
	Owner       string          `json:"owner"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	TickLower   int32           `json:"tick_lower"`
	TickUpper   int32           `json:"tick_upper"`
	LogIndex    uint64          `json:"log_index"`
}

// Swap is the immutable log row of a Swap event.
type Swap struct {
	ID           string          `json:"id"`
	Transaction  string          `json:"transaction"`
	Timestamp    uint64          `json:"timestamp"`
	Pool         string          `json:"pool"`
	Token0       string          `json:"token0"`
	Token1       string          `json:"token1"`
	Sender       string          `json:"sender"`
	Recipient    string          `json:"recipient"`
	Origin       string          `json:"origin"`
	Amount0      decimal.Decimal `json:"amount0"`
	Amount1      decimal.Decimal `json:"amount1"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	SqrtPriceX96 *big.Int        `json:"sqrt_price_x96"`
	Tick         int32           `json:"tick"`
	LogIndex     uint64          `json:"log_index"`
}

// FoldCursor is the last event applied for a chain.
type FoldCursor struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

// Covers reports whether the event at (block, logIndex) was already applied.
func (c *FoldCursor) Covers(block, logIndex uint64) bool {
	if c == nil {
		return false
	}
	if block != c.BlockNumber {
		return block < c.BlockNumber
	}
	return logIndex <= c.LogIndex
}
