// Package store is the entity repository used by the fold engine. Entities are
// JSON documents addressed by (chain, kind, id) in a pluggable KV backend.
package store

import "context"

// Kind names an entity table.
type Kind string

const (
	KindFactory        Kind = "factory"
	KindBundle         Kind = "bundle"
	KindPool           Kind = "pool"
	KindToken          Kind = "token"
	KindTick           Kind = "tick"
	KindTransaction    Kind = "transaction"
	KindMint           Kind = "mint"
	KindBurn           Kind = "burn"
	KindCollect        Kind = "collect"
	KindSwap           Kind = "swap"
	KindUniswapDayData Kind = "uniswap_day_data"
	KindPoolDayData    Kind = "pool_day_data"
	KindPoolHourData   Kind = "pool_hour_data"
	KindTokenDayData   Kind = "token_day_data"
	KindTokenHourData  Kind = "token_hour_data"
	KindCursor         Kind = "fold_cursor"
)

// Write is a single upsert.
type Write struct {
	Kind Kind
	ID   string
	Data []byte
}

// KV is a point-read, point-write backend. Apply must be all-or-nothing.
type KV interface {
	Get(ctx context.Context, chainID uint64, kind Kind, id string) ([]byte, bool, error)
	Apply(ctx context.Context, chainID uint64, writes []Write) error
}
