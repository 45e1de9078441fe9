package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Kind names an entity table in the store.
type Kind string

const (
	KindBalancer                Kind = "balancer"
	KindPool                    Kind = "pool"
	KindPoolContract            Kind = "pool_contract"
	KindPoolToken               Kind = "pool_token"
	KindToken                   Kind = "token"
	KindTokenPrice              Kind = "token_price"
	KindLatestPrice             Kind = "latest_price"
	KindPoolHistoricalLiquidity Kind = "pool_historical_liquidity"
	KindSwap                    Kind = "swap"
	KindBatchSwap               Kind = "batch_swap"
	KindJoinExit                Kind = "join_exit"
	KindInvestment              Kind = "investment"
	KindUser                    Kind = "user"
	KindUserInternalBalance     Kind = "user_internal_balance"
	KindTradePair               Kind = "trade_pair"
	KindTradePairPrice          Kind = "trade_pair_price"
	KindCursor                  Kind = "cursor"
)

// Balancer holds protocol-wide totals. One row per vault.
type Balancer struct {
	ID              string          `json:"id"`
	PoolCount       int64           `json:"pool_count"`
	TotalLiquidity  decimal.Decimal `json:"total_liquidity"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
	TotalSwapCount  int64           `json:"total_swap_count"`
}

func (Balancer) EntityKind() Kind    { return KindBalancer }
func (b Balancer) EntityID() string { return b.ID }

// Pool is a vault-registered pool. Liquidity stays invalid until the first
// successful USD valuation.
type Pool struct {
	ID              string              `json:"id"`
	Address         common.Address      `json:"address"`
	Factory         common.Address      `json:"factory"`
	PoolType        string              `json:"pool_type"`
	Specialization  uint8               `json:"specialization"`
	SwapFee         decimal.Decimal     `json:"swap_fee"`
	TokensList      []common.Address    `json:"tokens_list"`
	TokensCount     int                 `json:"tokens_count"`
	Liquidity       decimal.NullDecimal `json:"liquidity"`
	SwapsCount      int64               `json:"swaps_count"`
	TotalSwapVolume decimal.Decimal     `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal     `json:"total_swap_fee"`
	CreateTime      int64               `json:"create_time"`
	CreatedBlock    uint64              `json:"created_block"`
}

func (Pool) EntityKind() Kind    { return KindPool }
func (p Pool) EntityID() string { return p.ID }

// TokenIndex returns the position of token in TokensList, or -1.
func (p Pool) TokenIndex(token common.Address) int {
	for i, candidate := range p.TokensList {
		if candidate == token {
			return i
		}
	}
	return -1
}

// PoolContract links a factory-created pool contract to its type and, once
// registered with the vault, its pool id.
type PoolContract struct {
	ID       string         `json:"id"`
	Address  common.Address `json:"address"`
	Factory  common.Address `json:"factory"`
	PoolType string         `json:"pool_type"`
	PoolID   string         `json:"pool_id,omitempty"`
}

func (PoolContract) EntityKind() Kind    { return KindPoolContract }
func (c PoolContract) EntityID() string { return c.ID }

// PoolToken is the vault's holding of one token for one pool.
type PoolToken struct {
	ID           string              `json:"id"`
	PoolID       string              `json:"pool_id"`
	Address      common.Address      `json:"address"`
	Symbol       string              `json:"symbol"`
	Decimals     uint8               `json:"decimals"`
	AssetManager common.Address      `json:"asset_manager"`
	Balance      decimal.Decimal     `json:"balance"`
	Invested     decimal.Decimal     `json:"invested"`
	Weight       decimal.NullDecimal `json:"weight"`
}

func (PoolToken) EntityKind() Kind     { return KindPoolToken }
func (pt PoolToken) EntityID() string { return pt.ID }

// Token aggregates activity for one asset across all pools.
type Token struct {
	ID                   string          `json:"id"`
	Address              common.Address  `json:"address"`
	Symbol               string          `json:"symbol"`
	Name                 string          `json:"name"`
	Decimals             uint8           `json:"decimals"`
	TotalSwapCount       int64           `json:"total_swap_count"`
	TotalVolumeUSD       decimal.Decimal `json:"total_volume_usd"`
	TotalVolumeNotional  decimal.Decimal `json:"total_volume_notional"`
	TotalBalanceNotional decimal.Decimal `json:"total_balance_notional"`
}

func (Token) EntityKind() Kind    { return KindToken }
func (t Token) EntityID() string { return t.ID }

// TokenMeta is what the token contract reports about itself. A zero
// Decimals with an empty Symbol means the contract could not be read, and
// amounts of that token stay unscaled.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// TokenPrice is an immutable price observation: Price units of PricingAsset
// per unit of Asset, seen in PoolID at Block.
type TokenPrice struct {
	ID           string          `json:"id"`
	PoolID       string          `json:"pool_id"`
	Asset        common.Address  `json:"asset"`
	PricingAsset common.Address  `json:"pricing_asset"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	Block        uint64          `json:"block"`
	Timestamp    int64           `json:"timestamp"`
}

func (TokenPrice) EntityKind() Kind     { return KindTokenPrice }
func (tp TokenPrice) EntityID() string { return tp.ID }

// LatestPrice caches the most recent TokenPrice per (asset, pricing asset).
type LatestPrice struct {
	ID           string          `json:"id"`
	Asset        common.Address  `json:"asset"`
	PricingAsset common.Address  `json:"pricing_asset"`
	PoolID       string          `json:"pool_id"`
	Price        decimal.Decimal `json:"price"`
	Block        uint64          `json:"block"`
}

func (LatestPrice) EntityKind() Kind     { return KindLatestPrice }
func (lp LatestPrice) EntityID() string { return lp.ID }

// PoolHistoricalLiquidity is the pool value in PricingAsset at Block.
type PoolHistoricalLiquidity struct {
	ID            string          `json:"id"`
	PoolID        string          `json:"pool_id"`
	PricingAsset  common.Address  `json:"pricing_asset"`
	Block         uint64          `json:"block"`
	PoolLiquidity decimal.Decimal `json:"pool_liquidity"`
}

func (PoolHistoricalLiquidity) EntityKind() Kind      { return KindPoolHistoricalLiquidity }
func (phl PoolHistoricalLiquidity) EntityID() string { return phl.ID }

// Swap is one vault Swap event.
type Swap struct {
	ID             string          `json:"id"`
	PoolID         string          `json:"pool_id"`
	User           common.Address  `json:"user"`
	TokenIn        common.Address  `json:"token_in"`
	TokenInSym     string          `json:"token_in_sym"`
	TokenAmountIn  decimal.Decimal `json:"token_amount_in"`
	TokenOut       common.Address  `json:"token_out"`
	TokenOutSym    string          `json:"token_out_sym"`
	TokenAmountOut decimal.Decimal `json:"token_amount_out"`
	ValueUSD       decimal.Decimal `json:"value_usd"`
	Batch          string          `json:"batch"`
	Tx             common.Hash     `json:"tx"`
	LogIndex       uint64          `json:"log_index"`
	Block          uint64          `json:"block"`
	Timestamp      int64           `json:"timestamp"`
}

func (Swap) EntityKind() Kind    { return KindSwap }
func (s Swap) EntityID() string { return s.ID }

// BatchSwap aggregates the swaps of one transaction.
type BatchSwap struct {
	ID             string          `json:"id"`
	User           common.Address  `json:"user"`
	TokenIn        common.Address  `json:"token_in"`
	TokenAmountIn  decimal.Decimal `json:"token_amount_in"`
	TokenOut       common.Address  `json:"token_out"`
	TokenAmountOut decimal.Decimal `json:"token_amount_out"`
	MatchingTokens bool            `json:"matching_tokens"`
	Swaps          []string        `json:"swaps"`
	Timestamp      int64           `json:"timestamp"`
}

func (BatchSwap) EntityKind() Kind     { return KindBatchSwap }
func (bs BatchSwap) EntityID() string { return bs.ID }

// JoinExitType distinguishes deposits from withdrawals.
type JoinExitType string

const (
	Join JoinExitType = "Join"
	Exit JoinExitType = "Exit"
)

// JoinExit is one PoolBalanceChanged event. Amounts follow Pool.TokensList
// order and are always expressed as positive quantities.
type JoinExit struct {
	ID        string            `json:"id"`
	Type      JoinExitType      `json:"type"`
	PoolID    string            `json:"pool_id"`
	User      common.Address    `json:"user"`
	Sender    common.Address    `json:"sender"`
	Amounts   []decimal.Decimal `json:"amounts"`
	Tx        common.Hash       `json:"tx"`
	Timestamp int64             `json:"timestamp"`
}

func (JoinExit) EntityKind() Kind     { return KindJoinExit }
func (je JoinExit) EntityID() string { return je.ID }

// Investment is one asset-manager balance movement.
type Investment struct {
	ID           string          `json:"id"`
	PoolTokenID  string          `json:"pool_token_id"`
	AssetManager common.Address  `json:"asset_manager"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    int64           `json:"timestamp"`
}

func (Investment) EntityKind() Kind    { return KindInvestment }
func (i Investment) EntityID() string { return i.ID }

// User is any address seen trading, providing liquidity or moving internal balance.
type User struct {
	ID      string         `json:"id"`
	Address common.Address `json:"address"`
}

func (User) EntityKind() Kind    { return KindUser }
func (u User) EntityID() string { return u.ID }

// UserInternalBalance is a user's vault internal balance for a token.
type UserInternalBalance struct {
	ID      string          `json:"id"`
	User    common.Address  `json:"user"`
	Token   common.Address  `json:"token"`
	Balance decimal.Decimal `json:"balance"`
}

func (UserInternalBalance) EntityKind() Kind     { return KindUserInternalBalance }
func (ub UserInternalBalance) EntityID() string { return ub.ID }

// TradePair accumulates volume between two tokens, Token0 < Token1.
type TradePair struct {
	ID              string          `json:"id"`
	Token0          common.Address  `json:"token0"`
	Token1          common.Address  `json:"token1"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
}

func (TradePair) EntityKind() Kind     { return KindTradePair }
func (tp TradePair) EntityID() string { return tp.ID }

// TradePairPrice is the latest exchange rate of a pair: Price units of
// Token1 per unit of Token0.
type TradePairPrice struct {
	ID        string          `json:"id"`
	Token0    common.Address  `json:"token0"`
	Token1    common.Address  `json:"token1"`
	Price     decimal.Decimal `json:"price"`
	Block     uint64          `json:"block"`
	Timestamp int64           `json:"timestamp"`
}

func (TradePairPrice) EntityKind() Kind      { return KindTradePairPrice }
func (tpp TradePairPrice) EntityID() string { return tpp.ID }

// Cursor is the last event applied by a named processor.
type Cursor struct {
	ID       string `json:"id"`
	Block    uint64 `json:"block"`
	LogIndex uint64 `json:"log_index"`
}

func (Cursor) EntityKind() Kind    { return KindCursor }
func (c Cursor) EntityID() string { return c.ID }

// After reports whether (block, logIndex) comes strictly after the cursor.
func (c Cursor) After(block, logIndex uint64) bool {
	if block != c.Block {
		return block > c.Block
	}
	return logIndex > c.LogIndex
}
