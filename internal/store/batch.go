package store

import (
	"context"
	"sync"
)

type entryKey struct {
	kind Kind
	id   string
}

// Batch buffers the writes of one event. Reads see pending writes first.
type Batch struct {
	kv      KV
	chainID uint64

	mu      sync.Mutex
	pending map[entryKey][]byte
	order   []entryKey
}

func NewBatch(kv KV, chainID uint64) *Batch {
	return &Batch{
		kv:      kv,
		chainID: chainID,
		pending: make(map[entryKey][]byte),
	}
}

func (b *Batch) get(ctx context.Context, kind Kind, id string) ([]byte, bool, error) {
	b.mu.Lock()
	data, ok := b.pending[entryKey{kind, id}]
	b.mu.Unlock()
	if ok {
		return data, true, nil
	}
	return b.kv.Get(ctx, b.chainID, kind, id)
}

func (b *Batch) put(kind Kind, id string, data []byte) {
	key := entryKey{kind, id}
	b.mu.Lock()
	if _, ok := b.pending[key]; !ok {
		b.order = append(b.order, key)
	}
	b.pending[key] = data
	b.mu.Unlock()
}

// Len returns the number of distinct pending writes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Commit applies every pending write in one call and resets the batch.
func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	writes := make([]Write, 0, len(b.order))
	for _, key := range b.order {
		writes = append(writes, Write{Kind: key.kind, ID: key.id, Data: b.pending[key]})
	}
	b.pending = make(map[entryKey][]byte)
	b.order = nil
	b.mu.Unlock()

	if len(writes) == 0 {
		return nil
	}
	return b.kv.Apply(ctx, b.chainID, writes)
}

// Discard drops every pending write.
func (b *Batch) Discard() {
	b.mu.Lock()
	b.pending = make(map[entryKey][]byte)
	b.order = nil
	b.mu.Unlock()
}
