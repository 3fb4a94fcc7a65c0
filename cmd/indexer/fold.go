package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/dex"
	"poolScope/internal/engine"
	"poolScope/internal/fold"
	"poolScope/internal/metrics"
)

// readsPerChain bounds the concurrent snapshot reads one chain worker issues.
const readsPerChain = 8

func runFold(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFold(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reader := dex.NewChainReader(logger)
	for chainID := range cfg.Networks {
		rpcURL := cfg.RPCFor(chainID)
		if rpcURL == "" {
			logger.Warn("no rpc for chain, token metadata must come from overrides", zap.Uint64("chain_id", chainID))
			continue
		}
		client, err := connectChain(ctx, rpcURL, chainID)
		if err != nil {
			return err
		}
		defer client.Close()
		reader.Register(chainID, client, nil, nil)
	}

	reg := prometheus.NewRegistry()
	foldMetrics := metrics.NewFold(reg)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, foldMetrics.Handler(), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	readPool := pond.NewPool(cfg.MaxChains * readsPerChain)
	defer readPool.StopAndWait()

	eng := engine.New(kv, cfg.Networks, reader, logger,
		engine.WithMetrics(foldMetrics),
		engine.WithReadPool(readPool),
	)
	defer eng.Close()

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	logger.Info("fold start",
		zap.String("in", cfg.In),
		zap.String("store", cfg.Store.Backend),
		zap.Int("networks", len(cfg.Networks)),
		zap.Int("max_chains", cfg.MaxChains),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	runner := fold.NewRunner(eng, fold.Config{MaxChains: cfg.MaxChains}, logger)
	stats, err := runner.Run(ctx, inputFile)
	logger.Info("fold complete",
		zap.Int("lines", stats.Lines),
		zap.Int("malformed", stats.Malformed),
		zap.Int("chains", stats.Chains),
		zap.Int64("processed", stats.Processed),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return err
}

// connectChain dials rpcURL and checks it serves chainID.
func connectChain(ctx context.Context, rpcURL string, chainID uint64) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc for chain %d: %w", chainID, err)
	}
	got, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !got.IsUint64() || got.Uint64() != chainID {
		client.Close()
		return nil, fmt.Errorf("rpc %s serves chain %s, expected %d", rpcURL, got, chainID)
	}
	return client, nil
}

func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return srv
}
