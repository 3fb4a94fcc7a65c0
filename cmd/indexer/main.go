package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/indexer"
	"poolScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Uniswap V3 log indexer and pool analytics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the indexer",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated), empty means any")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 hashes or event names such as Swap (comma-separated), empty means factory and pool events")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	foldCmd := &cobra.Command{
		Use:   "fold",
		Short: "Fold typed events into pools, tokens, prices and time buckets",
		RunE:  runFold,
	}

	foldCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	foldCmd.Flags().String("store", "memory", "entity store (memory, postgres, redis)")
	foldCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	foldCmd.Flags().String("redis-addr", "", "Redis address")
	foldCmd.Flags().Int("redis-db", 0, "Redis database")
	foldCmd.Flags().String("redis-password", "", "Redis password")
	foldCmd.Flags().String("rpc", "", "Ethereum RPC URL for chains without a per-network rpc")
	foldCmd.Flags().Int("max-chains", 8, "maximum chains folded concurrently")
	foldCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	foldCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(foldCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare folded pool TVL with on-chain balances",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	reconcileCmd.Flags().Uint64("chain-id", 1, "chain id of the folded pools")
	reconcileCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	reconcileCmd.Flags().Uint64("block", 0, "block height to read balances at, 0 means latest")
	reconcileCmd.Flags().String("tolerance", "0.000001", "accepted relative drift")
	reconcileCmd.Flags().String("store", "postgres", "entity store (postgres, redis)")
	reconcileCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	reconcileCmd.Flags().String("redis-addr", "", "Redis address")
	reconcileCmd.Flags().Int("redis-db", 0, "Redis database")
	reconcileCmd.Flags().String("redis-password", "", "Redis password")
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconcileCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	filter, err := indexer.ResolveFilter(cfg.Addresses, cfg.Topic0)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Filter:            filter,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storageSink, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(filter.Addresses)),
		zap.Int("topic0", len(filter.Topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
