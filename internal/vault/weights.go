package vault

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/scale"
)

// refreshWeights stores the current normalized weights of pool on its pool
// tokens, in TokensList order. Read failures leave the previous weights.
func (h *Handler) refreshWeights(ctx context.Context, s entity.Store, pool *model.Pool) error {
	if h.pools == nil {
		return nil
	}
	weights, err := h.pools.NormalizedWeights(ctx, pool.Address)
	if err != nil {
		h.logger.Warn("weights read failed", zap.String("pool_id", pool.ID), zap.Error(err))
		return nil
	}
	if len(weights) != len(pool.TokensList) {
		h.logger.Warn("weights do not match pool tokens",
			zap.String("pool_id", pool.ID),
			zap.Int("weights", len(weights)),
			zap.Int("tokens", len(pool.TokensList)),
		)
		return nil
	}

	for i, token := range pool.TokensList {
		pt, err := entity.Load[model.PoolToken](ctx, s, entity.PoolTokenID(pool.ID, token))
		if err != nil {
			return err
		}
		if pt == nil {
			h.logger.Warn("weight for missing pool token", zap.String("pool_id", pool.ID), zap.String("token", token.Hex()))
			continue
		}
		pt.Weight = decimal.NewNullDecimal(scale.ToDecimal(weights[i], scale.WeightDecimals))
		if err := entity.Save(ctx, s, pt); err != nil {
			return err
		}
	}
	return nil
}
