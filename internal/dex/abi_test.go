package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTopic0(t *testing.T) {
	poolABI, err := V3PoolABI()
	require.NoError(t, err)
	factoryABI, err := V3FactoryABI()
	require.NoError(t, err)

	swap, err := EventTopic0(" swap ")
	require.NoError(t, err)
	assert.Equal(t, poolABI.Events["Swap"].ID, swap)

	created, err := EventTopic0("PoolCreated")
	require.NoError(t, err)
	assert.Equal(t, factoryABI.Events["PoolCreated"].ID, created)

	defaults, err := DefaultTopic0()
	require.NoError(t, err)
	assert.Contains(t, defaults, swap)
	assert.Contains(t, defaults, created)

	_, err = EventTopic0("Sync")
	assert.Error(t, err)
}
