package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// V3FactoryDecoder decodes Uniswap V3 factory PoolCreated events.
type V3FactoryDecoder struct {
	factoryABI  abi.ABI
	topicToName map[string]string
}

// NewV3FactoryDecoder builds a factory decoder. PoolCreated aliases in
// cfg.Topic0Map are honored; pool event aliases are ignored.
func NewV3FactoryDecoder(cfg DecoderConfig) (*V3FactoryDecoder, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[string]string{
		strings.ToLower(factoryABI.Events[model.EventPoolCreated].ID.Hex()): model.EventPoolCreated,
	}
	overrides, err := topicOverrides(cfg.Topic0Map)
	if err != nil {
		return nil, err
	}
	for topic0, name := range overrides {
		if name == model.EventPoolCreated {
			topicToName[topic0] = name
		}
	}

	return &V3FactoryDecoder{factoryABI: factoryABI, topicToName: topicToName}, nil
}

func (d *V3FactoryDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a PoolCreated log and seeds the pool metadata cache so
// later pool events decode without an RPC round trip.
func (d *V3FactoryDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	if _, ok := d.topicToName[strings.ToLower(log.Topics[0])]; !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid factory address: %s", log.Address)
	}

	event := d.factoryABI.Events[model.EventPoolCreated]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		Fee    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected pool created values: %d", len(values))
	}

	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return nil, err
	}
	pool, err := asAddress(values[1])
	if err != nil {
		return nil, err
	}
	if indexed.Fee == nil || !indexed.Fee.IsUint64() || indexed.Fee.Uint64() >= 1<<24 {
		return nil, fmt.Errorf("fee out of uint24 range")
	}

	data := model.PoolCreatedEventData{
		Token0:      indexed.Token0.Hex(),
		Token1:      indexed.Token1.Hex(),
		Fee:         uint32(indexed.Fee.Uint64()),
		TickSpacing: tickSpacing,
		Pool:        pool.Hex(),
	}
	meta := &model.PoolMeta{
		Token0:      data.Token0,
		Token1:      data.Token1,
		Fee:         data.Fee,
		TickSpacing: data.TickSpacing,
	}
	if ctx.PoolMetaCache != nil {
		ctx.PoolMetaCache.Set(pool, *meta)
	}

	return buildTypedEvent(log, model.EventPoolCreated, data, meta), nil
}
