package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// ReconcileConfig holds configuration for the reconcile command.
type ReconcileConfig struct {
	Store     StoreConfig
	RPCURL    string
	ChainID   uint64
	Pools     []string
	Block     uint64
	Tolerance decimal.Decimal
	LogLevel  string
}

// LoadReconcile merges config file, environment variables, and flags into ReconcileConfig.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v := newViper()

	v.SetDefault("store", StorePostgres)
	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("tolerance", "0.000001")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return ReconcileConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := readConfig(v, cfgFile); err != nil {
		return ReconcileConfig{}, err
	}

	storeCfg, err := loadStore(v)
	if err != nil {
		return ReconcileConfig{}, err
	}
	tolerance, err := decimal.NewFromString(v.GetString("tolerance"))
	if err != nil {
		return ReconcileConfig{}, fmt.Errorf("tolerance: %w", err)
	}

	cfg := ReconcileConfig{
		Store:     storeCfg,
		RPCURL:    v.GetString("rpc"),
		ChainID:   v.GetUint64("chain-id"),
		Pools:     getStringSlice(v, "pool"),
		Block:     v.GetUint64("block"),
		Tolerance: tolerance,
		LogLevel:  v.GetString("log-level"),
	}
	if cfg.Store.Backend == StoreMemory {
		return ReconcileConfig{}, fmt.Errorf("reconcile needs a persistent store (postgres or redis)")
	}

	return cfg, nil
}
