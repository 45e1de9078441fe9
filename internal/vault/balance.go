package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/scale"
)

// HandleBalanceChange applies a PoolBalanceChanged event as a join when the
// deltas sum to a positive amount and as an exit otherwise.
func (h *Handler) HandleBalanceChange(ctx context.Context, s entity.Store, meta EventMeta, ev model.PoolBalanceChangedData) error {
	if len(ev.Tokens) != len(ev.Deltas) {
		return fmt.Errorf("%w: %d tokens, %d deltas", ErrInvalidEvent, len(ev.Tokens), len(ev.Deltas))
	}
	if len(ev.ProtocolFeeAmounts) != 0 && len(ev.ProtocolFeeAmounts) != len(ev.Tokens) {
		return fmt.Errorf("%w: %d tokens, %d protocol fees", ErrInvalidEvent, len(ev.Tokens), len(ev.ProtocolFeeAmounts))
	}

	poolID := entity.PoolID(ev.PoolID)
	pool, err := h.loadPool(ctx, s, poolID, meta)
	if err != nil || pool == nil {
		return err
	}

	kind := model.Exit
	if deltaSum(ev.Deltas).Sign() > 0 {
		kind = model.Join
	}

	// Every token row is checked before anything is written.
	poolTokens := make([]*model.PoolToken, len(ev.Tokens))
	for i, token := range ev.Tokens {
		pt, err := h.mustPoolToken(ctx, s, poolID, token)
		if err != nil {
			return err
		}
		if pool.TokenIndex(token) < 0 {
			return fmt.Errorf("%w: token %s not listed in pool %s", ErrInvalidEvent, token.Hex(), poolID)
		}
		poolTokens[i] = pt
	}

	amounts := make([]decimal.Decimal, len(pool.TokensList))
	for i := range amounts {
		amounts[i] = decimal.Zero
	}
	for i, token := range ev.Tokens {
		pt := poolTokens[i]
		delta := scale.ToDecimal(ev.Deltas[i], pt.Decimals)
		fee := decimal.Zero
		if len(ev.ProtocolFeeAmounts) > 0 {
			fee = scale.ToDecimal(ev.ProtocolFeeAmounts[i], pt.Decimals)
		}

		if kind == model.Join {
			amounts[pool.TokenIndex(token)] = delta
		} else {
			amounts[pool.TokenIndex(token)] = delta.Neg()
		}
		pt.Balance = pt.Balance.Add(delta).Sub(fee)
		if err := entity.Save(ctx, s, pt); err != nil {
			return err
		}
	}

	joinExit := &model.JoinExit{
		ID:        entity.EventID(meta.TxHash, meta.LogIndex),
		Type:      kind,
		PoolID:    poolID,
		User:      ev.LiquidityProvider,
		Sender:    meta.From,
		Amounts:   amounts,
		Tx:        meta.TxHash,
		Timestamp: meta.Timestamp,
	}
	if err := entity.Save(ctx, s, joinExit); err != nil {
		return err
	}
	if err := h.ensureUser(ctx, s, ev.LiquidityProvider); err != nil {
		return err
	}

	if err := h.updateLiquidity(ctx, s, poolID, pool.TokensList, meta); err != nil {
		return err
	}

	h.logger.Debug("pool balance changed",
		zap.String("pool_id", poolID),
		zap.String("type", string(kind)),
		zap.String("tx", meta.TxHash.Hex()),
	)

	if err := h.snapshots.PoolSnapshot(ctx, s, poolID, meta.Timestamp); err != nil {
		return err
	}
	return h.snapshots.UserSnapshot(ctx, s, ev.LiquidityProvider, meta.Timestamp)
}

func deltaSum(deltas []*big.Int) *big.Int {
	sum := new(big.Int)
	for _, delta := range deltas {
		if delta != nil {
			sum.Add(sum, delta)
		}
	}
	return sum
}

// HandleBalanceManaged applies an asset manager movement. Cash and managed
// deltas both move the pool balance; only the managed part counts as
// invested.
func (h *Handler) HandleBalanceManaged(ctx context.Context, s entity.Store, meta EventMeta, ev model.PoolBalanceManagedData) error {
	poolID := entity.PoolID(ev.PoolID)
	pool, err := h.loadPool(ctx, s, poolID, meta)
	if err != nil || pool == nil {
		return err
	}

	pt, err := h.mustPoolToken(ctx, s, poolID, ev.Token)
	if err != nil {
		return err
	}
	cash := scale.ToDecimal(ev.CashDelta, pt.Decimals)
	managed := scale.ToDecimal(ev.ManagedDelta, pt.Decimals)

	pt.Balance = pt.Balance.Add(cash).Add(managed)
	pt.Invested = pt.Invested.Add(managed)
	if err := entity.Save(ctx, s, pt); err != nil {
		return err
	}

	investment := &model.Investment{
		ID:           entity.EventID(meta.TxHash, meta.LogIndex),
		PoolTokenID:  pt.ID,
		AssetManager: ev.AssetManager,
		Amount:       managed.Abs(),
		Timestamp:    meta.Timestamp,
	}
	if err := entity.Save(ctx, s, investment); err != nil {
		return err
	}
	return h.snapshots.PoolSnapshot(ctx, s, poolID, meta.Timestamp)
}

// HandleInternalBalanceChange applies a change to a user's vault internal
// balance.
func (h *Handler) HandleInternalBalanceChange(ctx context.Context, s entity.Store, meta EventMeta, ev model.InternalBalanceChangedData) error {
	token, err := h.ensureToken(ctx, s, ev.Token)
	if err != nil {
		return err
	}
	if err := h.ensureUser(ctx, s, ev.User); err != nil {
		return err
	}

	id := entity.UserInternalBalanceID(ev.User, ev.Token)
	balance, err := entity.Load[model.UserInternalBalance](ctx, s, id)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = &model.UserInternalBalance{
			ID:      id,
			User:    ev.User,
			Token:   ev.Token,
			Balance: decimal.Zero,
		}
	}
	balance.Balance = balance.Balance.Add(scale.ToDecimal(ev.Delta, token.Decimals))
	if err := entity.Save(ctx, s, balance); err != nil {
		return err
	}
	return h.snapshots.UserSnapshot(ctx, s, ev.User, meta.Timestamp)
}
