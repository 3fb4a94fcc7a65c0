// Package fold feeds typed-event JSONL into the engine with one sequential
// worker per chain.
package fold

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"poolScope/internal/model"
)

const (
	defaultMaxChains = 8
	defaultQueueSize = 1024
	maxLineSize      = 10 * 1024 * 1024
)

// ErrTooManyChains is returned when the input names more chains than workers allow.
var ErrTooManyChains = errors.New("too many chains")

// Applier folds one typed event record. *engine.Engine satisfies it.
type Applier interface {
	Apply(ctx context.Context, record model.TypedEventRecord) error
}

// Config tunes the runner.
type Config struct {
	MaxChains int
	QueueSize int
}

// Stats summarizes one run. Processed counts records the applier accepted,
// including ones it skipped or dropped.
type Stats struct {
	Lines     int
	Malformed int
	Chains    int
	Processed int64
	Elapsed   time.Duration
}

// Runner dispatches records to per-chain workers. Records of one chain are
// applied strictly in input order; chains progress independently.
type Runner struct {
	applier Applier
	cfg     Config
	logger  *zap.Logger
}

func NewRunner(applier Applier, cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxChains <= 0 {
		cfg.MaxChains = defaultMaxChains
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Runner{applier: applier, cfg: cfg, logger: logger}
}

type chainWorker struct {
	chainID   uint64
	queue     chan model.TypedEventRecord
	processed atomic.Int64
}

// Run reads in to EOF. The first non-droppable apply error stops every
// worker and is returned.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Stats, error) {
	start := time.Now()
	var stats Stats

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	pool := pond.NewPool(r.cfg.MaxChains)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(runCtx)
	groupCtx := group.Context()

	workers := xsync.NewMap[uint64, *chainWorker]()
	workerFor := func(chainID uint64) (*chainWorker, error) {
		if w, ok := workers.Load(chainID); ok {
			return w, nil
		}
		if workers.Size() >= r.cfg.MaxChains {
			return nil, fmt.Errorf("%w: chain %d exceeds max-chains %d", ErrTooManyChains, chainID, r.cfg.MaxChains)
		}
		w := &chainWorker{chainID: chainID, queue: make(chan model.TypedEventRecord, r.cfg.QueueSize)}
		workers.Store(chainID, w)
		group.Submit(func() {
			r.work(groupCtx, cancel, w)
		})
		r.logger.Info("chain worker started", zap.Uint64("chain_id", chainID))
		return w, nil
	}

	scanErr := r.scan(groupCtx, in, &stats, workerFor)

	workers.Range(func(_ uint64, w *chainWorker) bool {
		close(w.queue)
		return true
	})
	if scanErr != nil {
		cancel(scanErr)
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return stats, err
	}

	stats.Chains = workers.Size()
	workers.Range(func(_ uint64, w *chainWorker) bool {
		stats.Processed += w.processed.Load()
		return true
	})
	stats.Elapsed = time.Since(start)

	if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return stats, cause
	}
	if scanErr != nil {
		return stats, scanErr
	}
	return stats, ctx.Err()
}

func (r *Runner) scan(ctx context.Context, in io.Reader, stats *Stats, workerFor func(uint64) (*chainWorker, error)) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Malformed++
			r.logger.Warn("malformed typed event line", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}

		w, err := workerFor(record.ChainID)
		if err != nil {
			return err
		}
		select {
		case w.queue <- record:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

func (r *Runner) work(ctx context.Context, fail context.CancelCauseFunc, w *chainWorker) {
	for record := range w.queue {
		if ctx.Err() != nil {
			return
		}
		if err := r.applier.Apply(ctx, record); err != nil {
			r.logger.Error("apply event",
				zap.Uint64("chain_id", w.chainID),
				zap.Uint64("block_number", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
				zap.String("event", record.EventName),
				zap.Error(err),
			)
			fail(fmt.Errorf("chain %d block %d log %d: %w", w.chainID, record.BlockNumber, record.LogIndex, err))
			return
		}
		w.processed.Add(1)
	}
}
