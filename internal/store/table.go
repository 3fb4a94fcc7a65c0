package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Table is a typed view over one entity kind of a Batch.
type Table[T any] struct {
	batch *Batch
	kind  Kind
}

// Get returns nil when the entity does not exist.
func (t Table[T]) Get(ctx context.Context, id string) (*T, error) {
	data, ok, err := t.batch.get(ctx, t.kind, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t.kind, id, err)
	}
	if !ok {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", t.kind, id, err)
	}
	return &v, nil
}

// Set stages an upsert. Later reads through the same batch observe it.
func (t Table[T]) Set(id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", t.kind, id, err)
	}
	t.batch.put(t.kind, id, data)
	return nil
}
