package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"poolScope/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// ContractCaller performs read-only contract calls. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DecodeContext provides shared dependencies for decoders.
type DecodeContext struct {
	Context        context.Context
	Chain          ContractCaller
	PoolMetaCache  *PoolMetaCache
	TokenMetaCache *TokenMetaCache
	Logger         *zap.Logger
}

// MultiDecoder dispatches each log to the first decoder that accepts its topic0.
type MultiDecoder []Decoder

func (m MultiDecoder) CanDecode(topic0 string) bool {
	for _, d := range m {
		if d.CanDecode(topic0) {
			return true
		}
	}
	return false
}

func (m MultiDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	for _, d := range m {
		if d.CanDecode(log.Topics[0]) {
			return d.Decode(log, ctx)
		}
	}
	return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
}

// NewDecoders builds the factory and pool decoders sharing one topic0 map.
func NewDecoders(cfg DecoderConfig) (MultiDecoder, error) {
	factory, err := NewV3FactoryDecoder(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := NewV3PoolDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return MultiDecoder{factory, pool}, nil
}
