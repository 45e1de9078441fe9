package vault

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/scale"
)

// HandlePoolCreated records a pool contract deployed by a factory. meta.Address
// is the factory.
func (h *Handler) HandlePoolCreated(ctx context.Context, s entity.Store, meta EventMeta, ev model.PoolCreatedData) error {
	poolType, ok := h.factories[meta.Address]
	if !ok {
		h.logger.Warn("pool created by unknown factory",
			zap.String("factory", meta.Address.Hex()),
			zap.String("pool", ev.Pool.Hex()),
		)
		poolType = UnknownPoolType
	}

	id := entity.AddressID(ev.Pool)
	contract, err := entity.Load[model.PoolContract](ctx, s, id)
	if err != nil {
		return err
	}
	if contract == nil {
		contract = &model.PoolContract{ID: id, Address: ev.Pool}
	}
	contract.Factory = meta.Address
	contract.PoolType = poolType
	return entity.Save(ctx, s, contract)
}

// HandlePoolRegistered creates the Pool row for a vault registration and
// counts it in the protocol totals.
func (h *Handler) HandlePoolRegistered(ctx context.Context, s entity.Store, meta EventMeta, ev model.PoolRegisteredData) error {
	poolID := entity.PoolID(ev.PoolID)
	existing, err := entity.Load[model.Pool](ctx, s, poolID)
	if err != nil {
		return err
	}
	if existing != nil {
		h.logger.Warn("pool already registered", zap.String("pool_id", poolID), zap.String("tx", meta.TxHash.Hex()))
		return nil
	}

	contractID := entity.AddressID(ev.PoolAddress)
	contract, err := entity.Load[model.PoolContract](ctx, s, contractID)
	if err != nil {
		return err
	}
	if contract == nil {
		contract = &model.PoolContract{ID: contractID, Address: ev.PoolAddress, PoolType: UnknownPoolType}
	}
	contract.PoolID = poolID
	if err := entity.Save(ctx, s, contract); err != nil {
		return err
	}

	pool := &model.Pool{
		ID:              poolID,
		Address:         ev.PoolAddress,
		Factory:         contract.Factory,
		PoolType:        contract.PoolType,
		Specialization:  ev.Specialization,
		SwapFee:         h.readSwapFee(ctx, ev),
		TotalSwapVolume: decimal.Zero,
		TotalSwapFee:    decimal.Zero,
		CreateTime:      meta.Timestamp,
		CreatedBlock:    meta.Block,
	}
	if err := entity.Save(ctx, s, pool); err != nil {
		return err
	}

	vault, err := entity.Balancer(ctx, s, h.engine.VaultID())
	if err != nil {
		return err
	}
	vault.PoolCount++
	if err := entity.Save(ctx, s, vault); err != nil {
		return err
	}

	h.logger.Info("pool registered",
		zap.String("pool_id", poolID),
		zap.String("pool_type", pool.PoolType),
		zap.Uint64("block", meta.Block),
	)
	return h.snapshots.BalancerSnapshot(ctx, s, vault.ID, meta.Timestamp)
}

func (h *Handler) readSwapFee(ctx context.Context, ev model.PoolRegisteredData) decimal.Decimal {
	if h.pools == nil {
		return decimal.Zero
	}
	fee, err := h.pools.SwapFeePercentage(ctx, ev.PoolAddress)
	if err != nil {
		h.logger.Warn("swap fee read failed", zap.String("pool", ev.PoolAddress.Hex()), zap.Error(err))
		return decimal.Zero
	}
	return scale.ToDecimal(fee, scale.WeightDecimals)
}

// HandleTokensRegistered appends tokens to a pool and creates their pool
// token rows.
func (h *Handler) HandleTokensRegistered(ctx context.Context, s entity.Store, meta EventMeta, ev model.TokensRegisteredData) error {
	if len(ev.AssetManagers) != 0 && len(ev.AssetManagers) != len(ev.Tokens) {
		return fmt.Errorf("%w: %d tokens, %d asset managers", ErrInvalidEvent, len(ev.Tokens), len(ev.AssetManagers))
	}

	poolID := entity.PoolID(ev.PoolID)
	pool, err := h.loadPool(ctx, s, poolID, meta)
	if err != nil || pool == nil {
		return err
	}

	for i, addr := range ev.Tokens {
		if pool.TokenIndex(addr) >= 0 {
			continue
		}
		token, err := h.ensureToken(ctx, s, addr)
		if err != nil {
			return err
		}

		pt := &model.PoolToken{
			ID:       entity.PoolTokenID(poolID, addr),
			PoolID:   poolID,
			Address:  addr,
			Symbol:   token.Symbol,
			Decimals: token.Decimals,
			Balance:  decimal.Zero,
			Invested: decimal.Zero,
		}
		if len(ev.AssetManagers) > 0 {
			pt.AssetManager = ev.AssetManagers[i]
		}
		if err := entity.Save(ctx, s, pt); err != nil {
			return err
		}
		pool.TokensList = append(pool.TokensList, addr)
	}
	pool.TokensCount = len(pool.TokensList)
	if err := entity.Save(ctx, s, pool); err != nil {
		return err
	}

	if h.hasVariableWeights(pool) {
		return h.refreshWeights(ctx, s, pool)
	}
	return nil
}

// HandleSwapFeeChanged updates the fee of the pool whose contract emitted
// the event.
func (h *Handler) HandleSwapFeeChanged(ctx context.Context, s entity.Store, meta EventMeta, ev model.SwapFeePercentageChangedData) error {
	contract, err := entity.Load[model.PoolContract](ctx, s, entity.AddressID(meta.Address))
	if err != nil {
		return err
	}
	if contract == nil || contract.PoolID == "" {
		h.logger.Debug("swap fee change for unregistered pool", zap.String("pool", meta.Address.Hex()))
		return nil
	}

	pool, err := h.loadPool(ctx, s, contract.PoolID, meta)
	if err != nil || pool == nil {
		return err
	}
	pool.SwapFee = scale.ToDecimal(ev.SwapFeePercentage, scale.WeightDecimals)
	return entity.Save(ctx, s, pool)
}
