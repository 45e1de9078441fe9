package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Balancer vault indexer",
		Long:         "Fetches vault logs (run), decodes them into typed events (decode) and replays them into pool, price and liquidity entities (process).",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newRunCommand(), newDecodeCommand(), newProcessCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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

func addLogLevelFlag(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}
