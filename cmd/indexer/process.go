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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerScope/internal/chain"
	"balancerScope/internal/config"
	"balancerScope/internal/dex"
	"balancerScope/internal/entity"
	"balancerScope/internal/pricing"
	"balancerScope/internal/process"
	"balancerScope/internal/snapshot"
	"balancerScope/internal/storage/postgres"
	"balancerScope/internal/vault"
)

func newProcessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Apply typed events to pools, prices and liquidity",
		RunE:  runProcess,
	}

	cmd.Flags().String("rpc", "", "Ethereum RPC URL for token metadata, swap fees and weights (optional)")
	cmd.Flags().String("in", "", "input typed events JSONL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, empty keeps entities in memory")
	cmd.Flags().String("cursor", "process", "cursor name for resumable processing")
	cmd.Flags().String("vault-id", "2", "id of the protocol totals row")
	cmd.Flags().StringSlice("pricing-assets", nil, "pricing assets in preference order (comma-separated)")
	cmd.Flags().StringSlice("usd-stables", nil, "USD stables, primary first (comma-separated)")
	cmd.Flags().StringSlice("factories", nil, "factory=PoolType pairs (comma-separated)")
	cmd.Flags().StringSlice("variable-weight-types", nil, "pool types whose weights are refreshed on swaps")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	addLogLevelFlag(cmd)

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcess(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db process.Database
	if cfg.PGDSN == "" {
		logger.Warn("no pg-dsn configured, entities are kept in memory")
		db = entity.NewMemoryStore()
	} else {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		db = store
	}

	var (
		tokens vault.TokenMetadata
		pools  vault.PoolReader
	)
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		reader := dex.NewChainReader(chainClient, dex.NewTokenMetaCache(), logger)
		tokens = reader
		pools = reader
	} else {
		logger.Warn("no rpc configured, token metadata, swap fees and weights are not read")
	}

	recorder := snapshot.NewRecorder(cfg.VaultID, logger)
	engine, err := pricing.NewEngine(pricing.Config{
		PricingAssets: cfg.PricingAssets,
		USDStables:    cfg.USDStables,
		VaultID:       cfg.VaultID,
	}, recorder, logger)
	if err != nil {
		return err
	}

	handler := vault.NewHandler(engine, vault.Config{
		Factories:           cfg.Factories,
		VariableWeightTypes: cfg.VariableWeightTypes,
	}, tokens, pools, recorder, logger)

	var metrics *process.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err = process.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		stopMetrics := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stopMetrics()
	}

	processor := process.NewProcessor(process.Config{
		CursorName: cfg.Cursor,
		VaultID:    cfg.VaultID,
		Metrics:    metrics,
	}, db, handler, logger)

	logger.Info("process start",
		zap.String("in", cfg.Input),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("rpc", cfg.RPCURL != ""),
		zap.Int("pricing_assets", len(cfg.PricingAssets)),
		zap.Int("usd_stables", len(cfg.USDStables)),
		zap.Int("factories", len(cfg.Factories)),
		zap.String("cursor", cfg.Cursor),
	)

	_, err = processor.Run(ctx, cfg.Input)
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
