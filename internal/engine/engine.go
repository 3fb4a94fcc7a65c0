// Package engine folds decoded pool events into aggregate state.
package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/network"
	"poolScope/internal/store"
)

const (
	bundleID = "1"
	cursorID = "fold"

	defaultReadWorkers = 16
)

// ContractReader fetches static on-chain metadata.
type ContractReader interface {
	PoolFeeTier(ctx context.Context, chainID uint64, pool string) (uint32, error)
	PoolTickSpacing(ctx context.Context, chainID uint64, pool string) (int32, error)
	// TokenMetadata leaves Decimals nil when it cannot be determined.
	TokenMetadata(ctx context.Context, chainID uint64, token string) (model.TokenMeta, error)
}

// Event carries the envelope fields every handler needs.
type Event struct {
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	TxOrigin    string
	LogIndex    uint64
	Address     string
}

// EventFromRecord builds the envelope of a typed event record.
func EventFromRecord(record model.TypedEventRecord) Event {
	return Event{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		Timestamp:   record.Timestamp,
		TxHash:      network.NormalizeAddress(record.TxHash),
		TxOrigin:    network.NormalizeAddress(record.TxFrom),
		LogIndex:    record.LogIndex,
		Address:     network.NormalizeAddress(record.Address),
	}
}

func (ev Event) eventID() string {
	return ev.TxHash + "-" + strconv.FormatUint(ev.LogIndex, 10)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records fold counters on m.
func WithMetrics(m *metrics.Fold) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReadPool issues concurrent snapshot reads on p. The caller owns p.
func WithReadPool(p pond.Pool) Option {
	return func(e *Engine) {
		e.workers = p
		e.ownsWorkers = false
	}
}

// Engine applies one event at a time per chain. Callers must not fold two
// events of the same chain concurrently.
type Engine struct {
	kv       store.KV
	networks network.Registry
	reader   ContractReader
	logger   *zap.Logger
	metrics  *metrics.Fold

	workers     pond.Pool
	ownsWorkers bool
}

func New(kv store.KV, networks network.Registry, reader ContractReader, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		kv:       kv,
		networks: networks,
		reader:   reader,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers == nil {
		e.workers = pond.NewPool(defaultReadWorkers)
		e.ownsWorkers = true
	}
	return e
}

// Close stops the read pool if the engine created it.
func (e *Engine) Close() {
	if e.ownsWorkers {
		e.workers.StopAndWait()
	}
}

// handlerFunc mutates entities through tx. It must not commit.
type handlerFunc func(ctx context.Context, tx *store.Tx, net network.Config) error

// fold runs fn in a fresh batch and commits it together with the chain cursor.
// Dropped events are logged and returned without touching the store.
func (e *Engine) fold(ctx context.Context, name string, ev Event, fn handlerFunc) error {
	start := time.Now()

	net, ok := e.networks.Lookup(ev.ChainID)
	if !ok {
		err := missing("network", strconv.FormatUint(ev.ChainID, 10))
		e.drop(name, ev, err)
		return err
	}

	tx := store.Begin(e.kv, ev.ChainID)
	if err := fn(ctx, tx, net); err != nil {
		tx.Discard()
		if errors.Is(err, errExcludedPool) {
			e.drop(name, ev, err)
			return nil
		}
		if IsDroppable(err) {
			e.drop(name, ev, err)
		}
		return err
	}

	cursor := &model.FoldCursor{ChainID: ev.ChainID, BlockNumber: ev.BlockNumber, LogIndex: ev.LogIndex}
	if err := tx.Cursors.Set(cursorID, cursor); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	e.metrics.Applied(name, time.Since(start))
	e.metrics.Cursor(strconv.FormatUint(ev.ChainID, 10), ev.BlockNumber)
	return nil
}

func (e *Engine) drop(name string, ev Event, err error) {
	e.metrics.Dropped(name, dropReason(err))

	fields := []zap.Field{
		zap.String("event", name),
		zap.Uint64("chain_id", ev.ChainID),
		zap.Uint64("block_number", ev.BlockNumber),
		zap.Uint64("log_index", ev.LogIndex),
		zap.String("address", ev.Address),
		zap.Error(err),
	}
	if isSilent(err) {
		e.logger.Debug("event dropped", fields...)
		return
	}
	e.logger.Warn("event dropped", fields...)
}
