// Package snapshot keeps day-bucketed rollups of pools, protocol totals,
// trade pairs, tokens and users. Every rollup is keyed by (entity, day), so
// writing the same day twice overwrites rather than duplicates.
package snapshot

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/scale"
)

// Recorder writes the rollups into the store it is handed on each call.
type Recorder struct {
	vaultID string
	logger  *zap.Logger
}

func NewRecorder(vaultID string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vaultID == "" {
		vaultID = entity.DefaultVaultID
	}
	return &Recorder{vaultID: vaultID, logger: logger}
}

// LiquidityChanged mirrors the protocol totals after a liquidity update.
func (r *Recorder) LiquidityChanged(ctx context.Context, s entity.Store, delta decimal.Decimal, timestamp int64) error {
	r.logger.Debug("protocol liquidity changed", zap.String("delta", delta.String()), zap.Int64("timestamp", timestamp))
	return r.BalancerSnapshot(ctx, s, r.vaultID, timestamp)
}

// PoolSnapshot copies the pool's balances, liquidity and swap totals into
// the day bucket of timestamp.
func (r *Recorder) PoolSnapshot(ctx context.Context, s entity.Store, poolID string, timestamp int64) error {
	pool, err := entity.Load[model.Pool](ctx, s, poolID)
	if err != nil || pool == nil {
		return err
	}

	snap, err := r.poolSnapshot(ctx, s, poolID, timestamp)
	if err != nil {
		return err
	}

	balances := make([]decimal.Decimal, len(pool.TokensList))
	for i, token := range pool.TokensList {
		pt, err := entity.Load[model.PoolToken](ctx, s, entity.PoolTokenID(poolID, token))
		if err != nil {
			return err
		}
		if pt == nil {
			balances[i] = decimal.Zero
			continue
		}
		balances[i] = pt.Balance
	}
	snap.Balances = balances
	snap.Liquidity = pool.Liquidity.Decimal
	if !pool.Liquidity.Valid {
		snap.Liquidity = decimal.Zero
	}
	snap.SwapsCount = pool.SwapsCount
	snap.TotalSwapVolume = pool.TotalSwapVolume
	snap.TotalSwapFee = pool.TotalSwapFee
	return entity.Save(ctx, s, snap)
}

// SwapSnapshot counts a swap in its pool's daily figures.
func (r *Recorder) SwapSnapshot(ctx context.Context, s entity.Store, swap *model.Swap, fee decimal.Decimal) error {
	snap, err := r.poolSnapshot(ctx, s, swap.PoolID, swap.Timestamp)
	if err != nil {
		return err
	}
	snap.DailySwapsCount++
	snap.DailySwapVolume = snap.DailySwapVolume.Add(swap.ValueUSD)
	snap.DailySwapFee = snap.DailySwapFee.Add(fee)
	return entity.Save(ctx, s, snap)
}

func (r *Recorder) poolSnapshot(ctx context.Context, s entity.Store, poolID string, timestamp int64) (*model.PoolSnapshot, error) {
	day := scale.DayID(timestamp)
	id := entity.SnapshotID(poolID, day)
	snap, err := entity.Load[model.PoolSnapshot](ctx, s, id)
	if err != nil || snap != nil {
		return snap, err
	}
	return &model.PoolSnapshot{
		ID:              id,
		PoolID:          poolID,
		DayID:           day,
		Timestamp:       scale.DayStart(day),
		Liquidity:       decimal.Zero,
		TotalSwapVolume: decimal.Zero,
		TotalSwapFee:    decimal.Zero,
		DailySwapVolume: decimal.Zero,
		DailySwapFee:    decimal.Zero,
	}, nil
}

// BalancerSnapshot copies the protocol totals into the day bucket.
func (r *Recorder) BalancerSnapshot(ctx context.Context, s entity.Store, vaultID string, timestamp int64) error {
	vault, err := entity.Load[model.Balancer](ctx, s, vaultID)
	if err != nil || vault == nil {
		return err
	}
	day := scale.DayID(timestamp)
	return entity.Save(ctx, s, &model.BalancerSnapshot{
		ID:              entity.SnapshotID(vaultID, day),
		VaultID:         vaultID,
		DayID:           day,
		Timestamp:       scale.DayStart(day),
		PoolCount:       vault.PoolCount,
		TotalLiquidity:  vault.TotalLiquidity,
		TotalSwapVolume: vault.TotalSwapVolume,
		TotalSwapFee:    vault.TotalSwapFee,
		TotalSwapCount:  vault.TotalSwapCount,
	})
}

func (r *Recorder) TradePairSnapshot(ctx context.Context, s entity.Store, pair *model.TradePair, timestamp int64) error {
	day := scale.DayID(timestamp)
	return entity.Save(ctx, s, &model.TradePairSnapshot{
		ID:              entity.SnapshotID(pair.ID, day),
		PairID:          pair.ID,
		DayID:           day,
		Timestamp:       scale.DayStart(day),
		TotalSwapVolume: pair.TotalSwapVolume,
		TotalSwapFee:    pair.TotalSwapFee,
	})
}

// UserSnapshot counts one event for user in the day bucket.
func (r *Recorder) UserSnapshot(ctx context.Context, s entity.Store, user common.Address, timestamp int64) error {
	if user == (common.Address{}) {
		return nil
	}
	userID := entity.AddressID(user)
	day := scale.DayID(timestamp)
	id := entity.SnapshotID(userID, day)
	snap, err := entity.Load[model.UserSnapshot](ctx, s, id)
	if err != nil {
		return err
	}
	if snap == nil {
		snap = &model.UserSnapshot{
			ID:        id,
			User:      userID,
			DayID:     day,
			Timestamp: scale.DayStart(day),
		}
	}
	snap.EventCount++
	return entity.Save(ctx, s, snap)
}

// UptickSwapsForToken counts a swap leg for token.
func (r *Recorder) UptickSwapsForToken(ctx context.Context, s entity.Store, token common.Address, timestamp int64) error {
	row, err := r.token(ctx, s, token)
	if err != nil {
		return err
	}
	row.TotalSwapCount++
	if err := entity.Save(ctx, s, row); err != nil {
		return err
	}
	return r.tokenSnapshot(ctx, s, row, timestamp)
}

// UpdateTokenBalances adds a swap leg to the token's volume. notional is
// positive for tokens entering the vault and negative for tokens leaving it.
func (r *Recorder) UpdateTokenBalances(ctx context.Context, s entity.Store, token common.Address, valueUSD, notional decimal.Decimal, timestamp int64) error {
	row, err := r.token(ctx, s, token)
	if err != nil {
		return err
	}
	row.TotalVolumeUSD = row.TotalVolumeUSD.Add(valueUSD)
	row.TotalVolumeNotional = row.TotalVolumeNotional.Add(notional.Abs())
	row.TotalBalanceNotional = row.TotalBalanceNotional.Add(notional)
	if err := entity.Save(ctx, s, row); err != nil {
		return err
	}
	return r.tokenSnapshot(ctx, s, row, timestamp)
}

func (r *Recorder) token(ctx context.Context, s entity.Store, token common.Address) (*model.Token, error) {
	id := entity.AddressID(token)
	row, err := entity.Load[model.Token](ctx, s, id)
	if err != nil || row != nil {
		return row, err
	}
	return &model.Token{
		ID:                   id,
		Address:              token,
		TotalVolumeUSD:       decimal.Zero,
		TotalVolumeNotional:  decimal.Zero,
		TotalBalanceNotional: decimal.Zero,
	}, nil
}

func (r *Recorder) tokenSnapshot(ctx context.Context, s entity.Store, token *model.Token, timestamp int64) error {
	day := scale.DayID(timestamp)
	return entity.Save(ctx, s, &model.TokenSnapshot{
		ID:                   entity.SnapshotID(token.ID, day),
		Token:                token.ID,
		DayID:                day,
		Timestamp:            scale.DayStart(day),
		TotalSwapCount:       token.TotalSwapCount,
		TotalVolumeUSD:       token.TotalVolumeUSD,
		TotalVolumeNotional:  token.TotalVolumeNotional,
		TotalBalanceNotional: token.TotalBalanceNotional,
	})
}
