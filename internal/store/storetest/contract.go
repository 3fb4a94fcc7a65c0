// Package storetest holds the behavior every store.KV backend must satisfy.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/store"
)

// RunKV exercises point reads, batch upserts and chain isolation against kv.
// chainID should be unique to the run when kv is shared.
func RunKV(t *testing.T, kv store.KV, chainID uint64) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, chainID, store.KindPool, "0xabsent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Apply(ctx, chainID, []store.Write{
		{Kind: store.KindPool, ID: "0xpool", Data: []byte(`{"id":"0xpool"}`)},
		{Kind: store.KindToken, ID: "0xpool", Data: []byte(`{"id":"0xtoken"}`)},
	}))

	data, ok, err := kv.Get(ctx, chainID, store.KindPool, "0xpool")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"0xpool"}`, string(data))

	data, ok, err = kv.Get(ctx, chainID, store.KindToken, "0xpool")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"0xtoken"}`, string(data))

	require.NoError(t, kv.Apply(ctx, chainID, []store.Write{
		{Kind: store.KindPool, ID: "0xpool", Data: []byte(`{"id":"0xpool","tx_count":"2"}`)},
	}))
	data, _, err = kv.Get(ctx, chainID, store.KindPool, "0xpool")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"0xpool","tx_count":"2"}`, string(data))

	_, ok, err = kv.Get(ctx, chainID+1, store.KindPool, "0xpool")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Apply(ctx, chainID, nil))
}
