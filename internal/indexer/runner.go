package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"balancerScope/internal/model"
	"balancerScope/internal/storage"
)

// Source is the chain access the runner needs. *chain.Client implements it.
type Source interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	TransactionFrom(ctx context.Context, txHash common.Hash) (common.Address, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	// ResolveSenders fills LogRecord.From with the transaction sender.
	ResolveSenders bool
}

// Runner streams logs from the chain and writes them to storage.
type Runner struct {
	cfg        RunConfig
	chain      Source
	storage    storage.Storage
	logger     *zap.Logger
	retry      retryPolicy
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient Source, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		storage:    storageSink,
		logger:     logger,
		retry:      newRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff, logger),
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		r.checkpoint.Scope(chainIDValue, r.cfg.Addresses)
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.fetchLogs(ctx, blockRange)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		records, err := r.buildRecords(ctx, chainIDValue, logs)
		if err != nil {
			return err
		}

		if err := r.storage.PutLogBatch(records); err != nil {
			return fmt.Errorf("store logs: %w", err)
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

// fetchLogs returns the logs in br, halving the span while the node rejects
// it as too large.
func (r *Runner) fetchLogs(ctx context.Context, br BlockRange) ([]types.Log, error) {
	var logs []types.Log
	err := r.retry.do(ctx, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, br.From, br.To, r.cfg.Addresses, r.cfg.Topic0)
		if isRangeTooLarge(err) {
			return permanent(err)
		}
		return err
	}, zap.Uint64("from", br.From), zap.Uint64("to", br.To))
	if err == nil {
		return logs, nil
	}
	if !isRangeTooLarge(err) {
		return nil, err
	}
	left, right, ok := br.Halve()
	if !ok {
		return nil, err
	}
	r.logger.Info("range too large, splitting",
		zap.Uint64("from", br.From),
		zap.Uint64("to", br.To),
		zap.Uint64("mid", left.To),
	)
	head, err := r.fetchLogs(ctx, left)
	if err != nil {
		return nil, err
	}
	tail, err := r.fetchLogs(ctx, right)
	if err != nil {
		return nil, err
	}
	return append(head, tail...), nil
}

// buildRecords drops logs already seen in this run and attaches block
// timestamps and, when enabled, transaction senders.
func (r *Runner) buildRecords(ctx context.Context, chainID uint64, logs []types.Log) ([]model.LogRecord, error) {
	ingestedAt := time.Now().UTC()
	timestamps := make(map[uint64]uint64)
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		record := model.NewLogRecord(chainID, log, 0, ingestedAt)
		key := record.Key()
		if _, ok := r.seen[key]; ok {
			continue
		}
		r.seen[key] = struct{}{}

		ts, ok := timestamps[log.BlockNumber]
		if !ok {
			var err error
			ts, err = r.blockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			timestamps[log.BlockNumber] = ts
		}
		record.Timestamp = ts

		if r.cfg.ResolveSenders {
			from, err := r.transactionFrom(ctx, log.TxHash)
			if err != nil {
				return nil, fmt.Errorf("transaction sender %s: %w", log.TxHash.Hex(), err)
			}
			record.From = from.Hex()
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Runner) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.retry.do(ctx, "block timestamp fetch", func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		return err
	}, zap.Uint64("block_number", blockNumber))
	return ts, err
}

func (r *Runner) transactionFrom(ctx context.Context, txHash common.Hash) (common.Address, error) {
	var from common.Address
	err := r.retry.do(ctx, "transaction sender fetch", func(ctx context.Context) error {
		var err error
		from, err = r.chain.TransactionFrom(ctx, txHash)
		return err
	}, zap.String("tx_hash", txHash.Hex()))
	return from, err
}
