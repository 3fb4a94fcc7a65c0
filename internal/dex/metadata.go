package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"poolScope/internal/model"
)

// ErrCallRejected means the node answered but the contract call produced no
// usable value: a revert, an empty return or undecodable output.
var ErrCallRejected = errors.New("contract call rejected")

// PoolMetaCache caches pool metadata by address.
type PoolMetaCache struct {
	data *xsync.Map[common.Address, model.PoolMeta]
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: xsync.NewMap[common.Address, model.PoolMeta]()}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	return c.data.Load(address)
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.data.Store(address, meta)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	data *xsync.Map[common.Address, model.TokenMeta]
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: xsync.NewMap[common.Address, model.TokenMeta]()}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	return c.data.Load(address)
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.data.Store(address, meta)
}

// FetchPoolMeta loads immutable pool metadata and warms the token cache.
func FetchPoolMeta(ctx context.Context, caller ContractCaller, pool common.Address, tokenCache *TokenMetaCache, logger *zap.Logger) (model.PoolMeta, error) {
	if caller == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pool, poolABI, "token0", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "token1", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	fee, err := fetchFee(ctx, caller, pool, poolABI)
	if err != nil {
		return model.PoolMeta{}, err
	}
	tickSpacing, err := fetchTickSpacing(ctx, caller, pool, poolABI)
	if err != nil {
		return model.PoolMeta{}, err
	}

	meta := model.PoolMeta{
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Fee:         fee,
		TickSpacing: tickSpacing,
	}

	if tokenCache != nil {
		for _, token := range []common.Address{token0, token1} {
			if _, ok := tokenCache.Get(token); ok {
				continue
			}
			tokenMeta, err := FetchTokenMeta(ctx, caller, token, logger)
			if err != nil {
				logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
				continue
			}
			tokenCache.Set(token, tokenMeta)
		}
	}

	return meta, nil
}

func fetchFee(ctx context.Context, caller ContractCaller, pool common.Address, poolABI abi.ABI) (uint32, error) {
	values, err := callMethod(ctx, caller, pool, poolABI, "fee", nil)
	if err != nil {
		return 0, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("fee: %w", err)
	}
	return uint32(feeInt.Uint64()), nil
}

func fetchTickSpacing(ctx context.Context, caller ContractCaller, pool common.Address, poolABI abi.ABI) (int32, error) {
	values, err := callMethod(ctx, caller, pool, poolABI, "tickSpacing", nil)
	if err != nil {
		return 0, err
	}
	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}
	return tickSpacing, nil
}

// FetchPoolState loads slot0 and liquidity at a block height, or latest when blockNumber is 0.
func FetchPoolState(ctx context.Context, caller ContractCaller, pool common.Address, blockNumber uint64) (model.PoolState, error) {
	if caller == nil {
		return model.PoolState{}, fmt.Errorf("chain client is nil")
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	values, err := callMethod(ctx, caller, pool, poolABI, "liquidity", blockPtr)
	if err != nil {
		return model.PoolState{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("liquidity: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "slot0", blockPtr)
	if err != nil {
		return model.PoolState{}, err
	}
	if len(values) < 2 {
		return model.PoolState{}, fmt.Errorf("slot0 return size %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.PoolState{}, err
	}

	return model.PoolState{
		Liquidity:    liquidity.String(),
		SqrtPriceX96: sqrtPrice.String(),
		Tick:         tick,
	}, nil
}

// FetchBalance reads holder's ERC20 balance at a block height, or latest when blockNumber is 0.
func FetchBalance(ctx context.Context, caller ContractCaller, token, holder common.Address, blockNumber uint64) (*big.Int, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	var blockPtr *big.Int
	if blockNumber > 0 {
		blockPtr = new(big.Int).SetUint64(blockNumber)
	}

	values, err := callMethod(ctx, caller, token, erc20ABI, "balanceOf", blockPtr, holder)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("call %s: %w: %v", method, ErrCallRejected, err)
		}
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("call %s: %w: empty return", method, ErrCallRejected)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w: %v", method, ErrCallRejected, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: %w: no values", method, ErrCallRejected)
	}
	return values, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. A rejected decimals
// call leaves Decimals nil; transport failures are returned.
func FetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: strings.ToLower(token.Hex())}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals", nil)
	switch {
	case err == nil:
		decimals, err := asUint8(values[0])
		if err != nil {
			return meta, err
		}
		meta.Decimals = &decimals
	case errors.Is(err, ErrCallRejected):
		logger.Debug("decimals unavailable", zap.String("token", token.Hex()), zap.Error(err))
	default:
		return meta, err
	}

	if values, err := callMethod(ctx, caller, token, stringABI, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "symbol", nil); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := callMethod(ctx, caller, token, stringABI, "name", nil); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "name", nil); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := callMethod(ctx, caller, token, stringABI, "totalSupply", nil); err == nil {
		if supply, err := asBigInt(values[0]); err == nil {
			meta.TotalSupply = supply.String()
		}
	} else {
		logger.Debug("totalSupply call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
