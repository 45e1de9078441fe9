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

	"balancerScope/internal/chain"
	"balancerScope/internal/config"
	"balancerScope/internal/dex"
	"balancerScope/internal/indexer"
	"balancerScope/internal/storage"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch vault logs into a raw JSONL file",
		RunE:  runIndexer,
	}

	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().Uint64("from", config.VaultDeployBlock, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().StringSlice("address", nil, "vault, factory and pool addresses (comma-separated), defaults to the mainnet vault")
	cmd.Flags().StringArray("topic0", nil, "topic0 hash or event signature, repeatable, defaults to every decodable event")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	cmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Bool("resolve-senders", true, "record the transaction sender of every log")
	addLogLevelFlag(cmd)

	return cmd
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

	topic0 := cfg.Topic0
	if len(topic0) == 0 {
		decoder, err := dex.NewVaultDecoder(dex.DecoderConfig{})
		if err != nil {
			return err
		}
		topic0 = decoder.Topics()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         cfg.Addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		ResolveSenders:    cfg.ResolveSenders,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), logger)

	logger.Info("indexer start",
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(cfg.Addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.Bool("resolve_senders", cfg.ResolveSenders),
	)

	return runner.Run(ctx)
}
