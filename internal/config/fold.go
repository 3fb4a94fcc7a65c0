package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poolScope/internal/network"
)

// Store backends accepted by the store setting.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// StoreConfig selects and configures the entity store backend.
type StoreConfig struct {
	Backend       string
	PGDSN         string
	RedisAddr     string
	RedisDB       int
	RedisPassword string
}

// FoldConfig holds configuration for the fold command.
type FoldConfig struct {
	In          string
	Store       StoreConfig
	RPCURL      string
	ChainRPC    map[uint64]string
	Networks    network.Registry
	MaxChains   int
	MetricsAddr string
	LogLevel    string
}

// RPCFor returns the RPC endpoint of chainID, falling back to the shared rpc setting.
func (c FoldConfig) RPCFor(chainID uint64) string {
	if url := c.ChainRPC[chainID]; url != "" {
		return url
	}
	return c.RPCURL
}

// LoadFold merges config file, environment variables, and flags into FoldConfig.
func LoadFold(cfgFile string, flags *pflag.FlagSet) (FoldConfig, error) {
	v := newViper()

	v.SetDefault("in", "./data/typed_events.jsonl")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("redis-db", 0)
	v.SetDefault("max-chains", 8)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return FoldConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := readConfig(v, cfgFile); err != nil {
		return FoldConfig{}, err
	}

	storeCfg, err := loadStore(v)
	if err != nil {
		return FoldConfig{}, err
	}
	networks, chainRPC, err := loadNetworks(v)
	if err != nil {
		return FoldConfig{}, err
	}

	cfg := FoldConfig{
		In:          v.GetString("in"),
		Store:       storeCfg,
		RPCURL:      v.GetString("rpc"),
		ChainRPC:    chainRPC,
		Networks:    networks,
		MaxChains:   v.GetInt("max-chains"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}
	if cfg.MaxChains <= 0 {
		return FoldConfig{}, fmt.Errorf("max-chains must be greater than zero")
	}

	return cfg, nil
}

func loadStore(v *viper.Viper) (StoreConfig, error) {
	cfg := StoreConfig{
		Backend:       strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:         v.GetString("pg-dsn"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisDB:       v.GetInt("redis-db"),
		RedisPassword: v.GetString("redis-password"),
	}
	switch cfg.Backend {
	case "", StoreMemory:
		cfg.Backend = StoreMemory
	case StorePostgres:
		if cfg.PGDSN == "" {
			return StoreConfig{}, fmt.Errorf("pg-dsn is required for the postgres store")
		}
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return StoreConfig{}, fmt.Errorf("redis-addr is required for the redis store")
		}
	default:
		return StoreConfig{}, fmt.Errorf("unsupported store %q", cfg.Backend)
	}
	return cfg, nil
}

type networkSettings struct {
	RPC                  string                   `mapstructure:"rpc"`
	Factory              string                   `mapstructure:"factory"`
	WrappedNative        string                   `mapstructure:"wrapped-native"`
	Stablecoins          []string                 `mapstructure:"stablecoins"`
	Whitelist            []string                 `mapstructure:"whitelist"`
	MinimumNativeLocked  string                   `mapstructure:"minimum-native-locked"`
	StablecoinNativePool string                   `mapstructure:"stablecoin-native-pool"`
	StablecoinIsToken0   *bool                    `mapstructure:"stablecoin-is-token0"`
	TokenOverrides       map[string]tokenSettings `mapstructure:"token-overrides"`
}

type tokenSettings struct {
	Symbol      string `mapstructure:"symbol"`
	Name        string `mapstructure:"name"`
	Decimals    *uint8 `mapstructure:"decimals"`
	TotalSupply string `mapstructure:"total-supply"`
}

// loadNetworks builds the chain registry from the networks table. Chains
// with built-in defaults only need the fields they change; without a table
// the built-in registry is used.
func loadNetworks(v *viper.Viper) (network.Registry, map[uint64]string, error) {
	registry := network.Defaults()
	chainRPC := map[uint64]string{}
	if !v.IsSet("networks") {
		return registry, chainRPC, nil
	}

	var raw map[string]networkSettings
	if err := v.UnmarshalKey("networks", &raw); err != nil {
		return nil, nil, fmt.Errorf("parse networks: %w", err)
	}

	for key, settings := range raw {
		chainID, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("networks: invalid chain id %q", key)
		}
		base, ok := registry.Lookup(chainID)
		if !ok {
			base = network.Config{ChainID: chainID}
		}
		cfg, err := settings.apply(base)
		if err != nil {
			return nil, nil, fmt.Errorf("networks %d: %w", chainID, err)
		}
		registry[chainID] = cfg
		if settings.RPC != "" {
			chainRPC[chainID] = settings.RPC
		}
	}
	return registry, chainRPC, nil
}

func (s networkSettings) apply(cfg network.Config) (network.Config, error) {
	if s.Factory != "" {
		cfg.FactoryAddress = s.Factory
	}
	if s.WrappedNative != "" {
		cfg.WrappedNativeAddress = s.WrappedNative
	}
	if s.Stablecoins != nil {
		cfg.StablecoinAddresses = cleanStrings(s.Stablecoins)
	}
	if s.Whitelist != nil {
		cfg.WhitelistTokens = cleanStrings(s.Whitelist)
	}
	if s.MinimumNativeLocked != "" {
		min, err := decimal.NewFromString(s.MinimumNativeLocked)
		if err != nil {
			return network.Config{}, fmt.Errorf("minimum-native-locked: %w", err)
		}
		cfg.MinimumNativeLocked = min
	}
	if s.StablecoinNativePool != "" {
		cfg.StablecoinWrappedNativePoolAddress = s.StablecoinNativePool
	}
	if s.StablecoinIsToken0 != nil {
		cfg.StablecoinIsToken0 = *s.StablecoinIsToken0
	}
	if len(s.TokenOverrides) > 0 {
		overrides := make(map[string]network.TokenOverride, len(cfg.TokenOverrides)+len(s.TokenOverrides))
		for addr, o := range cfg.TokenOverrides {
			overrides[addr] = o
		}
		for addr, t := range s.TokenOverrides {
			o := network.TokenOverride{Symbol: t.Symbol, Name: t.Name, Decimals: t.Decimals}
			if t.TotalSupply != "" {
				supply, ok := new(big.Int).SetString(t.TotalSupply, 10)
				if !ok {
					return network.Config{}, fmt.Errorf("token-overrides %s: invalid total-supply %q", addr, t.TotalSupply)
				}
				o.TotalSupply = supply
			}
			overrides[addr] = o
		}
		cfg.TokenOverrides = overrides
	}

	return cfg.Normalize()
}
