package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("INDEXER_RPC", "http://env:8545")
	t.Setenv("INDEXER_TOPIC0", "Swap, PoolCreated,")
	t.Setenv("INDEXER_BATCH_SIZE", "500")

	cfg, err := Load(writeConfig(t, "from: 100\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env:8545", cfg.RPCURL)
	assert.Equal(t, []string{"Swap", "PoolCreated"}, cfg.Topic0)
	assert.Equal(t, uint64(500), cfg.BatchSize)
	assert.Equal(t, uint64(100), cfg.FromBlock)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.True(t, cfg.CheckpointEnabled)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("INDEXER_MAX_CHAINS", "3")

	cfg, err := LoadFold(writeConfig(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxChains)

	flags := pflag.NewFlagSet("fold", pflag.ContinueOnError)
	flags.Int("max-chains", 0, "")
	require.NoError(t, flags.Parse([]string{"--max-chains=6"}))

	cfg, err = LoadFold(writeConfig(t, ""), flags)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MaxChains)
}
