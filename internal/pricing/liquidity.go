package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

// UpdatePoolLiquidity values every balance of the pool in pricingAsset,
// records the pool value at block, and when pricingAsset has a USD route
// moves the pool liquidity and the protocol total to the new USD figure.
// It reports whether the USD update happened.
func (e *Engine) UpdatePoolLiquidity(ctx context.Context, s entity.Store, poolID string, block uint64, pricingAsset common.Address, timestamp int64) (bool, error) {
	pool, err := entity.Load[model.Pool](ctx, s, poolID)
	if err != nil {
		return false, err
	}
	if pool == nil {
		e.logger.Warn("liquidity update for unknown pool", zap.String("pool_id", poolID))
		return false, nil
	}
	if len(pool.TokensList) < 2 {
		return false, nil
	}

	poolValue := decimal.Zero
	for _, token := range pool.TokensList {
		poolToken, err := entity.Load[model.PoolToken](ctx, s, entity.PoolTokenID(poolID, token))
		if err != nil {
			return false, err
		}
		if poolToken == nil {
			e.logger.Warn("pool token missing during liquidity update",
				zap.String("pool_id", poolID),
				zap.String("token", token.Hex()),
			)
			continue
		}

		if token == pricingAsset {
			poolValue = poolValue.Add(poolToken.Balance)
			continue
		}

		price, err := e.tokenPrice(ctx, s, poolID, token, pricingAsset, block)
		if err != nil {
			return false, err
		}
		if !price.Resolved() {
			e.logger.Debug("no price route",
				zap.String("pool_id", poolID),
				zap.String("token", token.Hex()),
				zap.String("pricing_asset", pricingAsset.Hex()),
			)
			continue
		}
		poolValue = poolValue.Add(poolToken.Balance.Mul(price.Amount))
	}

	phl := &model.PoolHistoricalLiquidity{
		ID:            entity.PoolHistoricalLiquidityID(poolID, pricingAsset, block),
		PoolID:        poolID,
		PricingAsset:  pricingAsset,
		Block:         block,
		PoolLiquidity: poolValue,
	}
	if err := entity.Save(ctx, s, phl); err != nil {
		return false, err
	}

	usd, err := e.ValueInUSD(ctx, s, poolValue, pricingAsset)
	if err != nil {
		return false, err
	}
	if !usd.Resolved() {
		return false, nil
	}

	oldLiquidity := decimal.Zero
	if pool.Liquidity.Valid {
		oldLiquidity = pool.Liquidity.Decimal
	}
	delta := usd.Amount.Sub(oldLiquidity)

	vault, err := entity.Balancer(ctx, s, e.vaultID)
	if err != nil {
		return false, err
	}
	vault.TotalLiquidity = vault.TotalLiquidity.Add(delta)
	if err := entity.Save(ctx, s, vault); err != nil {
		return false, err
	}

	pool.Liquidity = decimal.NewNullDecimal(usd.Amount)
	if err := entity.Save(ctx, s, pool); err != nil {
		return false, err
	}

	if e.observer != nil {
		if err := e.observer.LiquidityChanged(ctx, s, delta, timestamp); err != nil {
			return false, err
		}
	}

	e.logger.Debug("pool liquidity updated",
		zap.String("pool_id", poolID),
		zap.String("pricing_asset", pricingAsset.Hex()),
		zap.Uint64("block", block),
		zap.String("liquidity", usd.Amount.String()),
		zap.String("delta", delta.String()),
	)
	return true, nil
}

// tokenPrice resolves the price of token in pricingAsset for this pool and
// block. A same-block observation also refreshes the LatestPrice cache.
func (e *Engine) tokenPrice(ctx context.Context, s entity.Store, poolID string, token, pricingAsset common.Address, block uint64) (Valuation, error) {
	observed, err := entity.Load[model.TokenPrice](ctx, s, entity.TokenPriceID(poolID, token, pricingAsset, block))
	if err != nil {
		return Valuation{}, err
	}

	latestID := entity.LatestPriceID(token, pricingAsset)
	if observed != nil {
		latest := &model.LatestPrice{
			ID:           latestID,
			Asset:        token,
			PricingAsset: pricingAsset,
			PoolID:       poolID,
			Price:        observed.Price,
			Block:        block,
		}
		if err := entity.Save(ctx, s, latest); err != nil {
			return Valuation{}, err
		}
		return resolved(observed.Price), nil
	}

	latest, err := entity.Load[model.LatestPrice](ctx, s, latestID)
	if err != nil {
		return Valuation{}, err
	}
	if latest == nil {
		return noRoute(), nil
	}
	return resolved(latest.Price), nil
}
