// Package pricing values pool balances and swaps in USD through a set of
// pricing assets.
//
// A token is valued in a pricing asset through the TokenPrice observed in the
// same pool and block, or failing that through the LatestPrice cache. A
// pricing asset is valued in USD through the LatestPrice row against the
// configured USD stables, tried in order. USD stables are worth their face
// value.
package pricing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

// Config lists the valuation anchors.
type Config struct {
	// PricingAssets are the assets prices are recorded against.
	PricingAssets []common.Address
	// USDStables are USD-pegged assets; the first is the primary USD anchor,
	// the rest are fallbacks in order.
	USDStables []common.Address
	// VaultID addresses the protocol totals row.
	VaultID string
}

// LiquidityObserver is told about every change applied to the protocol
// liquidity total.
type LiquidityObserver interface {
	LiquidityChanged(ctx context.Context, s entity.Store, delta decimal.Decimal, timestamp int64) error
}

// Engine holds the pricing configuration. It keeps no state between calls;
// everything it knows comes from the store.
type Engine struct {
	pricingAssets map[common.Address]struct{}
	usdStables    []common.Address
	usdStableSet  map[common.Address]struct{}
	vaultID       string
	observer      LiquidityObserver
	logger        *zap.Logger
}

func NewEngine(cfg Config, observer LiquidityObserver, logger *zap.Logger) (*Engine, error) {
	if len(cfg.USDStables) == 0 {
		return nil, fmt.Errorf("at least one usd stable asset is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	vaultID := cfg.VaultID
	if vaultID == "" {
		vaultID = entity.DefaultVaultID
	}

	e := &Engine{
		pricingAssets: make(map[common.Address]struct{}, len(cfg.PricingAssets)),
		usdStables:    append([]common.Address(nil), cfg.USDStables...),
		usdStableSet:  make(map[common.Address]struct{}, len(cfg.USDStables)),
		vaultID:       vaultID,
		observer:      observer,
		logger:        logger,
	}
	for _, asset := range cfg.PricingAssets {
		e.pricingAssets[asset] = struct{}{}
	}
	for _, asset := range cfg.USDStables {
		e.usdStableSet[asset] = struct{}{}
	}
	return e, nil
}

// VaultID returns the id of the protocol totals row the engine updates.
func (e *Engine) VaultID() string {
	return e.vaultID
}

// IsPricingAsset reports whether asset is a valuation anchor.
func (e *Engine) IsPricingAsset(asset common.Address) bool {
	_, ok := e.pricingAssets[asset]
	return ok
}

// IsUSDStable reports whether asset is USD-pegged.
func (e *Engine) IsUSDStable(asset common.Address) bool {
	_, ok := e.usdStableSet[asset]
	return ok
}

// Status is the outcome of a valuation.
type Status uint8

const (
	// NotAttempted is the zero value: nobody tried to value the amount yet.
	NotAttempted Status = iota
	// Resolved means a route to the target unit was found.
	Resolved
	// NoRoute means the lookup ran but no price connects the asset to the target.
	NoRoute
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NoRoute:
		return "no_route"
	default:
		return "not_attempted"
	}
}

// Valuation is an amount together with whether it could be computed.
type Valuation struct {
	Amount decimal.Decimal
	Status Status
}

func resolved(amount decimal.Decimal) Valuation {
	return Valuation{Amount: amount, Status: Resolved}
}

func noRoute() Valuation {
	return Valuation{Amount: decimal.Zero, Status: NoRoute}
}

// Resolved reports whether the amount is known.
func (v Valuation) Resolved() bool {
	return v.Status == Resolved
}

// OrZero returns the amount, or zero when it is unknown.
func (v Valuation) OrZero() decimal.Decimal {
	if v.Status != Resolved {
		return decimal.Zero
	}
	return v.Amount
}

// ValueInUSD converts amount of asset into USD.
func (e *Engine) ValueInUSD(ctx context.Context, s entity.Store, amount decimal.Decimal, asset common.Address) (Valuation, error) {
	if e.IsUSDStable(asset) {
		return resolved(amount), nil
	}

	for _, stable := range e.usdStables {
		latest, err := entity.Load[model.LatestPrice](ctx, s, entity.LatestPriceID(asset, stable))
		if err != nil {
			return Valuation{}, err
		}
		if latest != nil {
			return resolved(amount.Mul(latest.Price)), nil
		}
	}
	return noRoute(), nil
}

// SwapValueInUSD values a swap by its outbound leg, falling back to the
// inbound leg.
func (e *Engine) SwapValueInUSD(ctx context.Context, s entity.Store, tokenIn common.Address, amountIn decimal.Decimal, tokenOut common.Address, amountOut decimal.Decimal) (Valuation, error) {
	out, err := e.ValueInUSD(ctx, s, amountOut, tokenOut)
	if err != nil {
		return Valuation{}, err
	}
	if out.Resolved() {
		return out, nil
	}
	return e.ValueInUSD(ctx, s, amountIn, tokenIn)
}

// PriceObservation is a price seen in a pool at a block.
type PriceObservation struct {
	PoolID       string
	Asset        common.Address
	PricingAsset common.Address
	Amount       decimal.Decimal
	Price        decimal.Decimal
	Block        uint64
	Timestamp    int64
}

// RecordTokenPrice stores an observation. Observations are immutable, so a
// second observation for the same pool, pair and block is dropped and the
// first one keeps representing that block.
func (e *Engine) RecordTokenPrice(ctx context.Context, s entity.Store, obs PriceObservation) (bool, error) {
	id := entity.TokenPriceID(obs.PoolID, obs.Asset, obs.PricingAsset, obs.Block)
	existing, err := entity.Load[model.TokenPrice](ctx, s, id)
	if err != nil {
		return false, err
	}
	if existing != nil {
		e.logger.Debug("token price already observed",
			zap.String("id", id),
			zap.String("kept_price", existing.Price.String()),
			zap.String("dropped_price", obs.Price.String()),
		)
		return false, nil
	}

	price := &model.TokenPrice{
		ID:           id,
		PoolID:       obs.PoolID,
		Asset:        obs.Asset,
		PricingAsset: obs.PricingAsset,
		Amount:       obs.Amount,
		Price:        obs.Price,
		Block:        obs.Block,
		Timestamp:    obs.Timestamp,
	}
	if err := entity.Save(ctx, s, price); err != nil {
		return false, err
	}
	return true, nil
}
