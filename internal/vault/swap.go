package vault

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/pricing"
	"balancerScope/internal/scale"
)

// HandleSwap applies a vault Swap event.
func (h *Handler) HandleSwap(ctx context.Context, s entity.Store, meta EventMeta, ev model.SwapEventData) error {
	poolID := entity.PoolID(ev.PoolID)
	pool, err := h.loadPool(ctx, s, poolID, meta)
	if err != nil || pool == nil {
		return err
	}

	if h.hasVariableWeights(pool) {
		if err := h.refreshWeights(ctx, s, pool); err != nil {
			return err
		}
	}

	ptIn, err := h.mustPoolToken(ctx, s, poolID, ev.TokenIn)
	if err != nil {
		return err
	}
	ptOut, err := h.mustPoolToken(ctx, s, poolID, ev.TokenOut)
	if err != nil {
		return err
	}
	amountIn := scale.ToDecimal(ev.AmountIn, ptIn.Decimals)
	amountOut := scale.ToDecimal(ev.AmountOut, ptOut.Decimals)

	swap := &model.Swap{
		ID:             entity.EventID(meta.TxHash, meta.LogIndex),
		PoolID:         poolID,
		User:           meta.From,
		TokenIn:        ev.TokenIn,
		TokenInSym:     ptIn.Symbol,
		TokenAmountIn:  amountIn,
		TokenOut:       ev.TokenOut,
		TokenOutSym:    ptOut.Symbol,
		TokenAmountOut: amountOut,
		ValueUSD:       decimal.Zero,
		Batch:          entity.TxID(meta.TxHash),
		Tx:             meta.TxHash,
		LogIndex:       meta.LogIndex,
		Block:          meta.Block,
		Timestamp:      meta.Timestamp,
	}
	if err := h.ensureUser(ctx, s, meta.From); err != nil {
		return err
	}

	batch, err := h.aggregateBatch(ctx, s, swap, meta)
	if err != nil {
		return err
	}

	value, err := h.engine.SwapValueInUSD(ctx, s, ev.TokenIn, amountIn, ev.TokenOut, amountOut)
	if err != nil {
		return err
	}
	if !value.Resolved() {
		h.logger.Debug("swap has no usd route",
			zap.String("pool_id", poolID),
			zap.String("tx", meta.TxHash.Hex()),
		)
	}
	swapValue := value.OrZero()
	swapFee := swapValue.Mul(pool.SwapFee)
	swap.ValueUSD = swapValue
	if err := entity.Save(ctx, s, swap); err != nil {
		return err
	}

	pool.SwapsCount++
	pool.TotalSwapVolume = pool.TotalSwapVolume.Add(swapValue)
	pool.TotalSwapFee = pool.TotalSwapFee.Add(swapFee)
	if err := entity.Save(ctx, s, pool); err != nil {
		return err
	}

	vault, err := entity.Balancer(ctx, s, h.engine.VaultID())
	if err != nil {
		return err
	}
	vault.TotalSwapCount++
	vault.TotalSwapVolume = vault.TotalSwapVolume.Add(swapValue)
	vault.TotalSwapFee = vault.TotalSwapFee.Add(swapFee)
	if err := entity.Save(ctx, s, vault); err != nil {
		return err
	}
	if err := h.snapshots.BalancerSnapshot(ctx, s, vault.ID, meta.Timestamp); err != nil {
		return err
	}
	if err := h.snapshots.SwapSnapshot(ctx, s, swap, swapFee); err != nil {
		return err
	}

	ptIn.Balance = ptIn.Balance.Add(amountIn)
	if err := entity.Save(ctx, s, ptIn); err != nil {
		return err
	}
	ptOut.Balance = ptOut.Balance.Sub(amountOut)
	if err := entity.Save(ctx, s, ptOut); err != nil {
		return err
	}

	for _, token := range []common.Address{ev.TokenIn, ev.TokenOut} {
		if err := h.snapshots.UptickSwapsForToken(ctx, s, token, meta.Timestamp); err != nil {
			return err
		}
	}
	if err := h.snapshots.UpdateTokenBalances(ctx, s, ev.TokenIn, swapValue, amountIn, meta.Timestamp); err != nil {
		return err
	}
	if err := h.snapshots.UpdateTokenBalances(ctx, s, ev.TokenOut, swapValue, amountOut.Neg(), meta.Timestamp); err != nil {
		return err
	}

	if batch.TokenIn != batch.TokenOut {
		if err := h.updateTradePair(ctx, s, batch, swapValue, swapFee, meta); err != nil {
			return err
		}
	}

	if err := h.capturePrices(ctx, s, swap, meta); err != nil {
		return err
	}

	if err := h.snapshots.PoolSnapshot(ctx, s, poolID, meta.Timestamp); err != nil {
		return err
	}
	return h.snapshots.UserSnapshot(ctx, s, meta.From, meta.Timestamp)
}

// aggregateBatch folds swap into the batch of its transaction. The swap id
// is appended only after the sums so the current swap is counted once.
func (h *Handler) aggregateBatch(ctx context.Context, s entity.Store, swap *model.Swap, meta EventMeta) (*model.BatchSwap, error) {
	batch, err := entity.Load[model.BatchSwap](ctx, s, swap.Batch)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		batch = &model.BatchSwap{
			ID:             swap.Batch,
			User:           meta.From,
			TokenIn:        swap.TokenIn,
			TokenAmountIn:  decimal.Zero,
			TokenAmountOut: decimal.Zero,
			Timestamp:      meta.Timestamp,
		}
	}

	if batch.TokenIn == swap.TokenIn {
		batch.TokenAmountIn = batch.TokenAmountIn.Add(swap.TokenAmountIn)
	}

	batch.TokenOut = swap.TokenOut
	amountOut := swap.TokenAmountOut
	for _, id := range batch.Swaps {
		prior, err := entity.Must[model.Swap](ctx, s, id)
		if err != nil {
			return nil, err
		}
		if prior.TokenOut == swap.TokenOut {
			amountOut = amountOut.Add(prior.TokenAmountOut)
		}
	}
	batch.TokenAmountOut = amountOut
	batch.MatchingTokens = batch.TokenIn == batch.TokenOut
	batch.Swaps = append(batch.Swaps, swap.ID)

	if err := entity.Save(ctx, s, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (h *Handler) updateTradePair(ctx context.Context, s entity.Store, batch *model.BatchSwap, volume, fee decimal.Decimal, meta EventMeta) error {
	pairID := entity.TradePairID(batch.TokenIn, batch.TokenOut)
	pair, err := entity.Load[model.TradePair](ctx, s, pairID)
	if err != nil {
		return err
	}
	if pair == nil {
		token0, token1 := entity.SortedPair(batch.TokenIn, batch.TokenOut)
		pair = &model.TradePair{
			ID:              pairID,
			Token0:          token0,
			Token1:          token1,
			TotalSwapVolume: decimal.Zero,
			TotalSwapFee:    decimal.Zero,
		}
	}
	pair.TotalSwapVolume = pair.TotalSwapVolume.Add(volume)
	pair.TotalSwapFee = pair.TotalSwapFee.Add(fee)
	if err := entity.Save(ctx, s, pair); err != nil {
		return err
	}
	if err := h.snapshots.TradePairSnapshot(ctx, s, pair, meta.Timestamp); err != nil {
		return err
	}

	if batch.TokenAmountIn.IsZero() || batch.TokenAmountOut.IsZero() {
		return nil
	}
	var price decimal.Decimal
	if pair.Token0 == batch.TokenIn {
		price, _ = scale.Ratio(batch.TokenAmountOut, batch.TokenAmountIn)
	} else {
		price, _ = scale.Ratio(batch.TokenAmountIn, batch.TokenAmountOut)
	}
	return entity.Save(ctx, s, &model.TradePairPrice{
		ID:        pairID,
		Token0:    pair.Token0,
		Token1:    pair.Token1,
		Price:     price,
		Block:     meta.Block,
		Timestamp: meta.Timestamp,
	})
}

// capturePrices records a TokenPrice for every leg that is a pricing asset
// and revalues the pool through it. Both legs are checked independently.
func (h *Handler) capturePrices(ctx context.Context, s entity.Store, swap *model.Swap, meta EventMeta) error {
	legs := []struct {
		pricing, asset             common.Address
		pricingAmount, assetAmount decimal.Decimal
	}{
		{swap.TokenOut, swap.TokenIn, swap.TokenAmountOut, swap.TokenAmountIn},
		{swap.TokenIn, swap.TokenOut, swap.TokenAmountIn, swap.TokenAmountOut},
	}
	for _, leg := range legs {
		if !h.engine.IsPricingAsset(leg.pricing) {
			continue
		}
		if !leg.pricingAmount.IsZero() && !leg.assetAmount.IsZero() {
			price, _ := scale.Ratio(leg.pricingAmount, leg.assetAmount)
			_, err := h.engine.RecordTokenPrice(ctx, s, pricing.PriceObservation{
				PoolID:       swap.PoolID,
				Asset:        leg.asset,
				PricingAsset: leg.pricing,
				Amount:       leg.pricingAmount,
				Price:        price,
				Block:        meta.Block,
				Timestamp:    meta.Timestamp,
			})
			if err != nil {
				return err
			}
		}
		if _, err := h.engine.UpdatePoolLiquidity(ctx, s, swap.PoolID, meta.Block, leg.pricing, meta.Timestamp); err != nil {
			return err
		}
	}
	return nil
}
