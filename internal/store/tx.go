package store

import (
	"context"

	"poolScope/internal/model"
)

// Tx groups the typed tables of one event's batch.
type Tx struct {
	*Batch

	Factories      Table[model.Factory]
	Bundles        Table[model.Bundle]
	Pools          Table[model.Pool]
	Tokens         Table[model.Token]
	Ticks          Table[model.Tick]
	Transactions   Table[model.Transaction]
	Mints          Table[model.Mint]
	Burns          Table[model.Burn]
	Collects       Table[model.Collect]
	Swaps          Table[model.Swap]
	UniswapDayData Table[model.UniswapDayData]
	PoolDayData    Table[model.PoolDayData]
	PoolHourData   Table[model.PoolHourData]
	TokenDayData   Table[model.TokenDayData]
	TokenHourData  Table[model.TokenHourData]
	Cursors        Table[model.FoldCursor]
}

// Begin opens a batch against kv for one chain.
func Begin(kv KV, chainID uint64) *Tx {
	b := NewBatch(kv, chainID)
	return &Tx{
		Batch:          b,
		Factories:      Table[model.Factory]{b, KindFactory},
		Bundles:        Table[model.Bundle]{b, KindBundle},
		Pools:          Table[model.Pool]{b, KindPool},
		Tokens:         Table[model.Token]{b, KindToken},
		Ticks:          Table[model.Tick]{b, KindTick},
		Transactions:   Table[model.Transaction]{b, KindTransaction},
		Mints:          Table[model.Mint]{b, KindMint},
		Burns:          Table[model.Burn]{b, KindBurn},
		Collects:       Table[model.Collect]{b, KindCollect},
		Swaps:          Table[model.Swap]{b, KindSwap},
		UniswapDayData: Table[model.UniswapDayData]{b, KindUniswapDayData},
		PoolDayData:    Table[model.PoolDayData]{b, KindPoolDayData},
		PoolHourData:   Table[model.PoolHourData]{b, KindPoolHourData},
		TokenDayData:   Table[model.TokenDayData]{b, KindTokenDayData},
		TokenHourData:  Table[model.TokenHourData]{b, KindTokenHourData},
		Cursors:        Table[model.FoldCursor]{b, KindCursor},
	}
}

// Pool satisfies pricing.Snapshots.
func (t *Tx) Pool(ctx context.Context, id string) (*model.Pool, error) {
	return t.Pools.Get(ctx, id)
}

// Token satisfies pricing.Snapshots.
func (t *Tx) Token(ctx context.Context, id string) (*model.Token, error) {
	return t.Tokens.Get(ctx, id)
}
