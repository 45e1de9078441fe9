// Package process replays typed vault events from a JSONL file into the
// entity store, one store transaction per event.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/storage"
	"balancerScope/internal/vault"
)

// DefaultCursor names the cursor row when none is configured.
const DefaultCursor = "process"

// Database is a store that can also run transactions.
type Database interface {
	entity.Store
	entity.Transactor
}

// Applier applies one typed event to a store.
type Applier interface {
	Apply(ctx context.Context, s entity.Store, rec model.TypedEventRecord) error
}

// Config controls processing behavior.
type Config struct {
	// CursorName addresses the cursor row, so separate inputs can share a
	// database.
	CursorName string
	// VaultID addresses the protocol totals reported in the summary.
	VaultID string
	// Metrics is optional.
	Metrics *Metrics
}

// Summary counts what a run did with each input line.
type Summary struct {
	Total       int
	Applied     int
	Skipped     int
	Unsupported int
	Failed      int
	Cursor      model.Cursor
}

// Processor applies events strictly in (block, log index) order.
type Processor struct {
	cfg     Config
	db      Database
	applier Applier
	logger  *zap.Logger
}

func NewProcessor(cfg Config, db Database, applier Applier, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CursorName == "" {
		cfg.CursorName = DefaultCursor
	}
	if cfg.VaultID == "" {
		cfg.VaultID = entity.DefaultVaultID
	}
	return &Processor{cfg: cfg, db: db, applier: applier, logger: logger}
}

// Run processes a typed events JSONL file. Events at or before the stored
// cursor are skipped, so rerunning over the same file is safe. A fatal
// handler error stops the run with the failing event rolled back.
func (p *Processor) Run(ctx context.Context, inputPath string) (Summary, error) {
	var summary Summary
	if p.db == nil {
		return summary, fmt.Errorf("store is nil")
	}
	if p.applier == nil {
		return summary, fmt.Errorf("applier is nil")
	}

	cursor, started, err := p.loadCursor(ctx)
	if err != nil {
		return summary, err
	}

	scanErr := storage.ScanJsonl(inputPath, func(line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			summary.Failed++
			p.cfg.Metrics.event("", labelMalformed)
			p.logger.Warn("decode typed event", zap.Error(err))
			return nil
		}

		if started && !cursor.After(record.BlockNumber, record.LogIndex) {
			summary.Skipped++
			p.cfg.Metrics.event(record.EventName, labelSkipped)
			return nil
		}

		next := model.Cursor{ID: p.cfg.CursorName, Block: record.BlockNumber, LogIndex: record.LogIndex}
		applyStart := time.Now()
		outcome, err := p.applyOne(ctx, record, next)
		if err != nil {
			p.cfg.Metrics.event(record.EventName, labelError)
			return fmt.Errorf("apply %s at block %d log %d: %w", record.EventName, record.BlockNumber, record.LogIndex, err)
		}
		switch outcome {
		case outcomeApplied:
			summary.Applied++
			p.cfg.Metrics.event(record.EventName, labelApplied)
		case outcomeUnsupported:
			summary.Unsupported++
			p.cfg.Metrics.event(record.EventName, labelUnsupported)
		case outcomeInvalid:
			summary.Failed++
			p.cfg.Metrics.event(record.EventName, labelInvalid)
		}
		p.cfg.Metrics.applied(applyStart, next.Block)
		cursor = next
		started = true
		return nil
	})
	if scanErr != nil {
		summary.Cursor = cursor
		return summary, scanErr
	}
	summary.Cursor = cursor

	fields := []zap.Field{
		zap.Int("total", summary.Total),
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("unsupported", summary.Unsupported),
		zap.Int("failed", summary.Failed),
		zap.Uint64("cursor_block", cursor.Block),
		zap.Uint64("cursor_log_index", cursor.LogIndex),
	}
	totals, err := entity.Load[model.Balancer](ctx, p.db, p.cfg.VaultID)
	if err != nil {
		return summary, err
	}
	if totals != nil {
		p.cfg.Metrics.liquidity(totals.TotalLiquidity)
		fields = append(fields,
			zap.Int64("pool_count", totals.PoolCount),
			zap.Int64("total_swap_count", totals.TotalSwapCount),
			zap.String("total_liquidity", totals.TotalLiquidity.String()),
			zap.String("total_swap_volume", totals.TotalSwapVolume.String()),
		)
	}
	p.logger.Info("process complete", fields...)

	return summary, nil
}

type outcome int

const (
	outcomeApplied outcome = iota
	outcomeUnsupported
	outcomeInvalid
)

// applyOne runs the event and the cursor move in one transaction. Events the
// handler does not know or cannot decode only move the cursor.
func (p *Processor) applyOne(ctx context.Context, record model.TypedEventRecord, next model.Cursor) (outcome, error) {
	result := outcomeApplied
	err := p.db.WithinTx(ctx, func(tx entity.Store) error {
		if err := p.applier.Apply(ctx, tx, record); err != nil {
			return err
		}
		return entity.Save(ctx, tx, &next)
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, vault.ErrUnsupportedEvent):
		p.logger.Debug("unsupported event", zap.String("event", record.EventName), zap.String("tx", record.TxHash))
		result = outcomeUnsupported
	case errors.Is(err, vault.ErrInvalidEvent):
		p.logger.Warn("invalid event", zap.String("event", record.EventName), zap.String("tx", record.TxHash), zap.Error(err))
		result = outcomeInvalid
	default:
		return result, err
	}

	if err := p.db.WithinTx(ctx, func(tx entity.Store) error {
		return entity.Save(ctx, tx, &next)
	}); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Processor) loadCursor(ctx context.Context) (model.Cursor, bool, error) {
	cursor, err := entity.Load[model.Cursor](ctx, p.db, p.cfg.CursorName)
	if err != nil {
		return model.Cursor{}, false, err
	}
	if cursor == nil {
		return model.Cursor{ID: p.cfg.CursorName}, false, nil
	}
	return *cursor, true, nil
}
