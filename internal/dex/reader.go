package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"poolScope/internal/model"
)

// ChainReader serves static pool and token metadata per chain, backed by
// contract calls and the decoder metadata caches.
type ChainReader struct {
	chains *xsync.Map[uint64, *chainEntry]
	logger *zap.Logger
}

type chainEntry struct {
	caller ContractCaller
	pools  *PoolMetaCache
	tokens *TokenMetaCache
}

func NewChainReader(logger *zap.Logger) *ChainReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainReader{
		chains: xsync.NewMap[uint64, *chainEntry](),
		logger: logger,
	}
}

// Register binds a contract caller to chainID. Caches may be shared with the
// decoder; nil caches get fresh ones.
func (r *ChainReader) Register(chainID uint64, caller ContractCaller, pools *PoolMetaCache, tokens *TokenMetaCache) {
	if pools == nil {
		pools = NewPoolMetaCache()
	}
	if tokens == nil {
		tokens = NewTokenMetaCache()
	}
	r.chains.Store(chainID, &chainEntry{caller: caller, pools: pools, tokens: tokens})
}

func (r *ChainReader) entry(chainID uint64) (*chainEntry, error) {
	entry, ok := r.chains.Load(chainID)
	if !ok || entry.caller == nil {
		return nil, fmt.Errorf("no rpc registered for chain %d", chainID)
	}
	return entry, nil
}

func (r *ChainReader) PoolFeeTier(ctx context.Context, chainID uint64, pool string) (uint32, error) {
	entry, err := r.entry(chainID)
	if err != nil {
		return 0, err
	}
	addr, err := parseAddress(pool)
	if err != nil {
		return 0, err
	}
	if meta, ok := entry.pools.Get(addr); ok && meta.Fee != 0 {
		return meta.Fee, nil
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	return fetchFee(ctx, entry.caller, addr, poolABI)
}

func (r *ChainReader) PoolTickSpacing(ctx context.Context, chainID uint64, pool string) (int32, error) {
	entry, err := r.entry(chainID)
	if err != nil {
		return 0, err
	}
	addr, err := parseAddress(pool)
	if err != nil {
		return 0, err
	}
	if meta, ok := entry.pools.Get(addr); ok && meta.TickSpacing != 0 {
		return meta.TickSpacing, nil
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	return fetchTickSpacing(ctx, entry.caller, addr, poolABI)
}

// TokenMetadata returns cached metadata when its decimals are known and
// otherwise calls the token contract.
func (r *ChainReader) TokenMetadata(ctx context.Context, chainID uint64, token string) (model.TokenMeta, error) {
	entry, err := r.entry(chainID)
	if err != nil {
		return model.TokenMeta{}, err
	}
	addr, err := parseAddress(token)
	if err != nil {
		return model.TokenMeta{}, err
	}
	if meta, ok := entry.tokens.Get(addr); ok && meta.Decimals != nil {
		return meta, nil
	}

	meta, err := FetchTokenMeta(ctx, entry.caller, addr, r.logger)
	if err != nil {
		return model.TokenMeta{}, err
	}
	if meta.Decimals != nil {
		entry.tokens.Set(addr, meta)
	}
	return meta, nil
}

// Balance reads an ERC20 balance through the caller registered for chainID.
func (r *ChainReader) Balance(ctx context.Context, chainID uint64, token, holder string, blockNumber uint64) (*big.Int, error) {
	entry, err := r.entry(chainID)
	if err != nil {
		return nil, err
	}
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	holderAddr, err := parseAddress(holder)
	if err != nil {
		return nil, err
	}
	return FetchBalance(ctx, entry.caller, tokenAddr, holderAddr, blockNumber)
}

// PoolState reads live slot0 and liquidity through the caller registered for chainID.
func (r *ChainReader) PoolState(ctx context.Context, chainID uint64, pool string, blockNumber uint64) (model.PoolState, error) {
	entry, err := r.entry(chainID)
	if err != nil {
		return model.PoolState{}, err
	}
	addr, err := parseAddress(pool)
	if err != nil {
		return model.PoolState{}, err
	}
	return FetchPoolState(ctx, entry.caller, addr, blockNumber)
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return common.HexToAddress(s), nil
}
