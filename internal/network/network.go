// Package network describes the per-chain pricing parameters.
package network

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenOverride replaces on-chain metadata for tokens with broken or missing getters.
type TokenOverride struct {
	Symbol      string
	Name        string
	Decimals    *uint8
	TotalSupply *big.Int
}

// Config is the pricing configuration of one chain. Addresses are lowercase.
type Config struct {
	ChainID                            uint64
	FactoryAddress                     string
	WrappedNativeAddress               string
	StablecoinAddresses                []string
	WhitelistTokens                    []string
	MinimumNativeLocked                decimal.Decimal
	StablecoinWrappedNativePoolAddress string
	StablecoinIsToken0                 bool
	TokenOverrides                     map[string]TokenOverride
}

// IsWhitelisted reports whether token is a pricing reference asset.
func (c Config) IsWhitelisted(token string) bool {
	return contains(c.WhitelistTokens, token)
}

// IsStablecoin reports whether token is assumed pegged to one USD.
func (c Config) IsStablecoin(token string) bool {
	return contains(c.StablecoinAddresses, token)
}

// Override returns the metadata override for token, if any.
func (c Config) Override(token string) (TokenOverride, bool) {
	o, ok := c.TokenOverrides[token]
	return o, ok
}

// Normalize lowercases and validates every address.
func (c Config) Normalize() (Config, error) {
	var err error
	if c.FactoryAddress, err = normalizeAddress("factory", c.FactoryAddress); err != nil {
		return Config{}, err
	}
	if c.WrappedNativeAddress, err = normalizeAddress("wrapped-native", c.WrappedNativeAddress); err != nil {
		return Config{}, err
	}
	if c.StablecoinWrappedNativePoolAddress != "" {
		if c.StablecoinWrappedNativePoolAddress, err = normalizeAddress("stablecoin-native-pool", c.StablecoinWrappedNativePoolAddress); err != nil {
			return Config{}, err
		}
	}
	if c.StablecoinAddresses, err = normalizeAll("stablecoins", c.StablecoinAddresses); err != nil {
		return Config{}, err
	}
	if c.WhitelistTokens, err = normalizeAll("whitelist", c.WhitelistTokens); err != nil {
		return Config{}, err
	}
	if len(c.TokenOverrides) > 0 {
		overrides := make(map[string]TokenOverride, len(c.TokenOverrides))
		for addr, o := range c.TokenOverrides {
			key, err := normalizeAddress("token-overrides", addr)
			if err != nil {
				return Config{}, err
			}
			overrides[key] = o
		}
		c.TokenOverrides = overrides
	}
	return c, nil
}

// Registry maps chain ids to their configuration.
type Registry map[uint64]Config

// Lookup returns the configuration of chainID.
func (r Registry) Lookup(chainID uint64) (Config, bool) {
	cfg, ok := r[chainID]
	return cfg, ok
}

// NormalizeAddress lowercases a hex address. Invalid input is returned lowercased as-is.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func normalizeAddress(field, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%s: invalid address %q", field, addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

func normalizeAll(field string, addrs []string) ([]string, error) {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		norm, err := normalizeAddress(field, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, norm)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
