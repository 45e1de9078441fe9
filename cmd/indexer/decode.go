package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerScope/internal/config"
	"balancerScope/internal/dex"
	"balancerScope/internal/model"
	"balancerScope/internal/storage"
)

func newDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	cmd.Flags().String("in", "", "input raw logs JSONL")
	cmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	cmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	addLogLevelFlag(cmd)

	return cmd
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	vaultDecoder, err := dex.NewVaultDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	outWriter, err := storage.NewJsonlWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJsonlWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("topic0_aliases", len(cfg.Topic0Map)),
	)

	stats, err := decodeLogs(cfg.In, vaultDecoder, outWriter, errWriter, logger)
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", stats.total),
		zap.Int("decoded", stats.decoded),
		zap.Int("skipped", stats.skipped),
		zap.Int("removed", stats.removed),
		zap.Int("duplicates", stats.duplicates),
		zap.Int("failed", stats.failed),
	)

	return nil
}

type decodeStats struct {
	total      int
	decoded    int
	skipped    int
	removed    int
	duplicates int
	failed     int
}

// decodeLogs streams raw log records from in through decoder. Removed logs
// and topics the decoder does not know are counted, not reported. A restarted
// run re-appends the batch it was writing when it stopped, so repeated log
// positions are dropped.
func decodeLogs(in string, decoder dex.Decoder, out, errs storage.RecordWriter, logger *zap.Logger) (decodeStats, error) {
	var stats decodeStats
	seen := make(map[string]struct{})
	err := storage.ScanJsonl(in, func(line []byte) error {
		stats.total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.failed++
			writeDecodeError(errs, model.DecodeError{Error: err.Error()})
			return nil
		}
		if record.Removed {
			stats.removed++
			return nil
		}
		topic0 := record.Topic0()
		if topic0 == "" {
			stats.failed++
			writeDecodeError(errs, model.NewDecodeError(record, "", fmt.Errorf("missing topic0")))
			return nil
		}
		if !decoder.CanDecode(topic0) {
			stats.skipped++
			return nil
		}
		key := record.Key()
		if _, ok := seen[key]; ok {
			stats.duplicates++
			return nil
		}
		seen[key] = struct{}{}

		event, err := decoder.Decode(record)
		if err != nil {
			stats.failed++
			logger.Debug("decode failed", zap.String("tx", record.TxHash), zap.Uint64("log_index", record.LogIndex), zap.Error(err))
			writeDecodeError(errs, model.NewDecodeError(record, decoder.EventName(topic0), err))
			return nil
		}

		if err := out.Write(event); err != nil {
			return err
		}
		stats.decoded++
		return nil
	})
	return stats, err
}

func writeDecodeError(writer storage.RecordWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
