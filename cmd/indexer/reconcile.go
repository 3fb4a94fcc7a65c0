package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/dex"
	"poolScope/internal/reconcile"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
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
	if len(cfg.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := connectChain(ctx, cfg.RPCURL, cfg.ChainID)
	if err != nil {
		return err
	}
	defer client.Close()

	reader := dex.NewChainReader(logger)
	reader.Register(cfg.ChainID, client, nil, nil)
	reconciler := reconcile.New(kv, reader, cfg.Tolerance, logger)

	logger.Info("reconcile start",
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Int("pools", len(cfg.Pools)),
		zap.Uint64("block", cfg.Block),
		zap.String("tolerance", cfg.Tolerance.String()),
	)

	var drifted int
	for _, pool := range cfg.Pools {
		report, err := reconciler.Pool(ctx, cfg.ChainID, pool, cfg.Block)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", pool, err)
		}
		if !report.Within {
			drifted++
		}
	}

	logger.Info("reconcile complete", zap.Int("pools", len(cfg.Pools)), zap.Int("drifted", drifted))
	if drifted > 0 {
		return fmt.Errorf("%d of %d pools drifted beyond tolerance", drifted, len(cfg.Pools))
	}
	return nil
}
