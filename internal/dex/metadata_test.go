package dex

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revertError struct{}

func (revertError) Error() string  { return "execution reverted" }
func (revertError) ErrorCode() int { return 3 }

type callKey struct {
	to       common.Address
	selector string
}

type callResult struct {
	data []byte
	err  error
}

// fakeCaller answers contract calls from canned ABI-encoded results.
type fakeCaller struct {
	results map[callKey]callResult
	calls   int
	blocks  []*big.Int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{results: map[callKey]callResult{}}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.calls++
	f.blocks = append(f.blocks, block)
	res, ok := f.results[callKey{to: *msg.To, selector: common.Bytes2Hex(msg.Data[:4])}]
	if !ok {
		return nil, revertError{}
	}
	return res.data, res.err
}

func (f *fakeCaller) respond(t *testing.T, parsed abi.ABI, to common.Address, method string, values ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	require.True(t, ok, method)
	data, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	f.results[callKey{to: to, selector: common.Bytes2Hex(m.ID)}] = callResult{data: data}
}

func (f *fakeCaller) fail(parsed abi.ABI, to common.Address, method string, err error) {
	f.results[callKey{to: to, selector: common.Bytes2Hex(parsed.Methods[method].ID)}] = callResult{err: err}
}

var (
	testPool   = common.HexToAddress("0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8")
	testToken0 = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	testToken1 = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
)

func seedPool(t *testing.T, f *fakeCaller) {
	t.Helper()
	poolABI, err := V3PoolABI()
	require.NoError(t, err)
	f.respond(t, poolABI, testPool, "token0", testToken0)
	f.respond(t, poolABI, testPool, "token1", testToken1)
	f.respond(t, poolABI, testPool, "fee", big.NewInt(3000))
	f.respond(t, poolABI, testPool, "tickSpacing", big.NewInt(60))
	f.respond(t, poolABI, testPool, "liquidity", big.NewInt(123456))
	f.respond(t, poolABI, testPool, "slot0",
		new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(-887), uint16(1), uint16(2), uint16(3), uint8(0), true)
}

func seedToken(t *testing.T, f *fakeCaller, token common.Address, symbol, name string, decimals uint8) {
	t.Helper()
	erc20, err := erc20ABIStringInstance()
	require.NoError(t, err)
	f.respond(t, erc20, token, "decimals", decimals)
	f.respond(t, erc20, token, "symbol", symbol)
	f.respond(t, erc20, token, "name", name)
	f.respond(t, erc20, token, "totalSupply", big.NewInt(1_000_000))
}

func TestFetchPoolMetaWarmsTokenCache(t *testing.T) {
	f := newFakeCaller()
	seedPool(t, f)
	seedToken(t, f, testToken0, "USDC", "USD Coin", 6)
	seedToken(t, f, testToken1, "WETH", "Wrapped Ether", 18)

	tokens := NewTokenMetaCache()
	meta, err := FetchPoolMeta(t.Context(), f, testPool, tokens, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), meta.Fee)
	assert.Equal(t, int32(60), meta.TickSpacing)
	assert.Equal(t, testToken0.Hex(), meta.Token0)

	usdc, ok := tokens.Get(testToken0)
	require.True(t, ok)
	require.NotNil(t, usdc.Decimals)
	assert.Equal(t, uint8(6), *usdc.Decimals)
	assert.Equal(t, "USD Coin", usdc.Name)
	assert.Equal(t, "1000000", usdc.TotalSupply)
	assert.Equal(t, strings.ToLower(testToken0.Hex()), usdc.Address)
}

func TestFetchTokenMetaRejectedDecimals(t *testing.T) {
	f := newFakeCaller()
	erc20, err := erc20ABIStringInstance()
	require.NoError(t, err)
	f.respond(t, erc20, testToken0, "symbol", "ODD")

	meta, err := FetchTokenMeta(t.Context(), f, testToken0, nil)
	require.NoError(t, err)
	assert.Nil(t, meta.Decimals)
	assert.Equal(t, "ODD", meta.Symbol)
	assert.Empty(t, meta.TotalSupply)
}

func TestFetchTokenMetaTransportError(t *testing.T) {
	f := newFakeCaller()
	erc20, err := erc20ABIStringInstance()
	require.NoError(t, err)
	boom := errors.New("connection refused")
	f.fail(erc20, testToken0, "decimals", boom)

	_, err = FetchTokenMeta(t.Context(), f, testToken0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCallRejected)
}

func TestCallMethodEmptyReturnIsRejected(t *testing.T) {
	f := newFakeCaller()
	poolABI, err := V3PoolABI()
	require.NoError(t, err)
	f.results[callKey{to: testPool, selector: common.Bytes2Hex(poolABI.Methods["fee"].ID)}] = callResult{data: []byte{}}

	_, err = callMethod(t.Context(), f, testPool, poolABI, "fee", nil)
	assert.ErrorIs(t, err, ErrCallRejected)
}

func TestFetchPoolStateAtBlock(t *testing.T) {
	f := newFakeCaller()
	seedPool(t, f)

	state, err := FetchPoolState(t.Context(), f, testPool, 42)
	require.NoError(t, err)
	assert.Equal(t, "123456", state.Liquidity)
	assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 96).String(), state.SqrtPriceX96)
	assert.Equal(t, int32(-887), state.Tick)
	for _, b := range f.blocks {
		require.NotNil(t, b)
		assert.Equal(t, uint64(42), b.Uint64())
	}
}

func TestFetchBalance(t *testing.T) {
	f := newFakeCaller()
	erc20, err := erc20ABIStringInstance()
	require.NoError(t, err)
	f.respond(t, erc20, testToken1, "balanceOf", big.NewInt(777))

	balance, err := FetchBalance(t.Context(), f, testToken1, testPool, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(777), balance.Int64())
	assert.Nil(t, f.blocks[0])
}
