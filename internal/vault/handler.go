// Package vault applies decoded vault, factory and pool events to the entity
// store: pool registration, swaps and batch swaps, joins and exits, asset
// manager movements and user internal balances.
package vault

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/pricing"
)

var (
	// ErrMissingPoolToken means a pool is known but one of its token rows is
	// not. Earlier events were lost or applied out of order.
	ErrMissingPoolToken = errors.New("missing pool token")
	// ErrInvalidEvent marks a payload that cannot be applied as decoded.
	ErrInvalidEvent = errors.New("invalid event")
)

// UnknownPoolType is recorded for pools created by a factory that is not
// configured.
const UnknownPoolType = "Unknown"

// TokenMetadata reads ERC20 metadata.
type TokenMetadata interface {
	TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error)
}

// PoolReader reads pool contract state.
type PoolReader interface {
	SwapFeePercentage(ctx context.Context, pool common.Address) (*big.Int, error)
	NormalizedWeights(ctx context.Context, pool common.Address) ([]*big.Int, error)
}

// Snapshotter maintains the day-bucketed rollups.
type Snapshotter interface {
	PoolSnapshot(ctx context.Context, s entity.Store, poolID string, timestamp int64) error
	BalancerSnapshot(ctx context.Context, s entity.Store, vaultID string, timestamp int64) error
	SwapSnapshot(ctx context.Context, s entity.Store, swap *model.Swap, fee decimal.Decimal) error
	TradePairSnapshot(ctx context.Context, s entity.Store, pair *model.TradePair, timestamp int64) error
	UserSnapshot(ctx context.Context, s entity.Store, user common.Address, timestamp int64) error
	UptickSwapsForToken(ctx context.Context, s entity.Store, token common.Address, timestamp int64) error
	UpdateTokenBalances(ctx context.Context, s entity.Store, token common.Address, valueUSD, notional decimal.Decimal, timestamp int64) error
}

// Config carries the pool classification inputs.
type Config struct {
	// Factories maps a factory address to the type of the pools it creates.
	Factories map[common.Address]string
	// VariableWeightTypes lists pool types whose weights move over time.
	VariableWeightTypes []string
}

// EventMeta is the chain position and origin shared by every event.
type EventMeta struct {
	Block     uint64
	Timestamp int64
	TxHash    common.Hash
	LogIndex  uint64
	From      common.Address
	Address   common.Address
}

// Handler applies events. It holds no state of its own; every call reads
// what it needs from the store it is given.
type Handler struct {
	engine         *pricing.Engine
	tokens         TokenMetadata
	pools          PoolReader
	snapshots      Snapshotter
	factories      map[common.Address]string
	variableWeight map[string]struct{}
	logger         *zap.Logger
}

// NewHandler builds a handler. tokens and pools may be nil, in which case
// metadata, swap fees and weights are left at their defaults.
func NewHandler(engine *pricing.Engine, cfg Config, tokens TokenMetadata, pools PoolReader, snapshots Snapshotter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if snapshots == nil {
		snapshots = nopSnapshots{}
	}
	h := &Handler{
		engine:         engine,
		tokens:         tokens,
		pools:          pools,
		snapshots:      snapshots,
		factories:      make(map[common.Address]string, len(cfg.Factories)),
		variableWeight: make(map[string]struct{}, len(cfg.VariableWeightTypes)),
		logger:         logger,
	}
	for factory, poolType := range cfg.Factories {
		h.factories[factory] = poolType
	}
	for _, poolType := range cfg.VariableWeightTypes {
		h.variableWeight[poolType] = struct{}{}
	}
	return h
}

func (h *Handler) hasVariableWeights(pool *model.Pool) bool {
	_, ok := h.variableWeight[pool.PoolType]
	return ok
}

func (h *Handler) loadPool(ctx context.Context, s entity.Store, poolID string, meta EventMeta) (*model.Pool, error) {
	pool, err := entity.Load[model.Pool](ctx, s, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		h.logger.Warn("pool not found",
			zap.String("pool_id", poolID),
			zap.String("tx", meta.TxHash.Hex()),
			zap.Uint64("log_index", meta.LogIndex),
		)
	}
	return pool, nil
}

func (h *Handler) mustPoolToken(ctx context.Context, s entity.Store, poolID string, token common.Address) (*model.PoolToken, error) {
	pt, err := entity.Load[model.PoolToken](ctx, s, entity.PoolTokenID(poolID, token))
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, &PoolTokenError{PoolID: poolID, Token: token}
	}
	return pt, nil
}

// PoolTokenError names the pool token that should exist but does not.
type PoolTokenError struct {
	PoolID string
	Token  common.Address
}

func (e *PoolTokenError) Error() string {
	return "missing pool token " + entity.PoolTokenID(e.PoolID, e.Token)
}

func (e *PoolTokenError) Unwrap() error {
	return ErrMissingPoolToken
}

func (h *Handler) ensureUser(ctx context.Context, s entity.Store, addr common.Address) error {
	id := entity.AddressID(addr)
	user, err := entity.Load[model.User](ctx, s, id)
	if err != nil || user != nil {
		return err
	}
	return entity.Save(ctx, s, &model.User{ID: id, Address: addr})
}

// ensureToken returns the Token row for addr, creating it from chain
// metadata when it does not exist yet.
func (h *Handler) ensureToken(ctx context.Context, s entity.Store, addr common.Address) (*model.Token, error) {
	id := entity.AddressID(addr)
	token, err := entity.Load[model.Token](ctx, s, id)
	if err != nil || token != nil {
		return token, err
	}

	meta := h.tokenMeta(ctx, addr)
	token = &model.Token{
		ID:                   id,
		Address:              addr,
		Symbol:               meta.Symbol,
		Name:                 meta.Name,
		Decimals:             meta.Decimals,
		TotalVolumeUSD:       decimal.Zero,
		TotalVolumeNotional:  decimal.Zero,
		TotalBalanceNotional: decimal.Zero,
	}
	if err := entity.Save(ctx, s, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (h *Handler) tokenMeta(ctx context.Context, addr common.Address) model.TokenMeta {
	if h.tokens == nil {
		return model.TokenMeta{Address: addr.Hex()}
	}
	meta, err := h.tokens.TokenMeta(ctx, addr)
	if err != nil {
		h.logger.Warn("token metadata unavailable", zap.String("token", addr.Hex()), zap.Error(err))
	}
	meta.Address = addr.Hex()
	return meta
}

// updateLiquidity tries the candidate pricing assets in order and stops at
// the first one with a full USD route.
func (h *Handler) updateLiquidity(ctx context.Context, s entity.Store, poolID string, candidates []common.Address, meta EventMeta) error {
	for _, asset := range candidates {
		if !h.engine.IsPricingAsset(asset) {
			continue
		}
		ok, err := h.engine.UpdatePoolLiquidity(ctx, s, poolID, meta.Block, asset, meta.Timestamp)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return nil
}

type nopSnapshots struct{}

func (nopSnapshots) PoolSnapshot(context.Context, entity.Store, string, int64) error     { return nil }
func (nopSnapshots) BalancerSnapshot(context.Context, entity.Store, string, int64) error { return nil }
func (nopSnapshots) SwapSnapshot(context.Context, entity.Store, *model.Swap, decimal.Decimal) error {
	return nil
}
func (nopSnapshots) TradePairSnapshot(context.Context, entity.Store, *model.TradePair, int64) error {
	return nil
}
func (nopSnapshots) UserSnapshot(context.Context, entity.Store, common.Address, int64) error {
	return nil
}
func (nopSnapshots) UptickSwapsForToken(context.Context, entity.Store, common.Address, int64) error {
	return nil
}
func (nopSnapshots) UpdateTokenBalances(context.Context, entity.Store, common.Address, decimal.Decimal, decimal.Decimal, int64) error {
	return nil
}
