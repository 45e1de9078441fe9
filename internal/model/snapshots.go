package model

import "github.com/shopspring/decimal"

const (
	KindPoolSnapshot      Kind = "pool_snapshot"
	KindBalancerSnapshot  Kind = "balancer_snapshot"
	KindTradePairSnapshot Kind = "trade_pair_snapshot"
	KindTokenSnapshot     Kind = "token_snapshot"
	KindUserSnapshot      Kind = "user_snapshot"
)

// PoolSnapshot is the state of a pool at the end of a day.
type PoolSnapshot struct {
	ID              string            `json:"id"`
	PoolID          string            `json:"pool_id"`
	DayID           int64             `json:"day_id"`
	Timestamp       int64             `json:"timestamp"`
	Balances        []decimal.Decimal `json:"balances"`
	Liquidity       decimal.Decimal   `json:"liquidity"`
	SwapsCount      int64             `json:"swaps_count"`
	TotalSwapVolume decimal.Decimal   `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal   `json:"total_swap_fee"`
	DailySwapsCount int64             `json:"daily_swaps_count"`
	DailySwapVolume decimal.Decimal   `json:"daily_swap_volume"`
	DailySwapFee    decimal.Decimal   `json:"daily_swap_fee"`
}

func (PoolSnapshot) EntityKind() Kind     { return KindPoolSnapshot }
func (ps PoolSnapshot) EntityID() string { return ps.ID }

// BalancerSnapshot is the state of the protocol totals at the end of a day.
type BalancerSnapshot struct {
	ID              string          `json:"id"`
	VaultID         string          `json:"vault_id"`
	DayID           int64           `json:"day_id"`
	Timestamp       int64           `json:"timestamp"`
	PoolCount       int64           `json:"pool_count"`
	TotalLiquidity  decimal.Decimal `json:"total_liquidity"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
	TotalSwapCount  int64           `json:"total_swap_count"`
}

func (BalancerSnapshot) EntityKind() Kind     { return KindBalancerSnapshot }
func (bs BalancerSnapshot) EntityID() string { return bs.ID }

// TradePairSnapshot is the cumulative pair volume at the end of a day.
type TradePairSnapshot struct {
	ID              string          `json:"id"`
	PairID          string          `json:"pair_id"`
	DayID           int64           `json:"day_id"`
	Timestamp       int64           `json:"timestamp"`
	TotalSwapVolume decimal.Decimal `json:"total_swap_volume"`
	TotalSwapFee    decimal.Decimal `json:"total_swap_fee"`
}

func (TradePairSnapshot) EntityKind() Kind     { return KindTradePairSnapshot }
func (ts TradePairSnapshot) EntityID() string { return ts.ID }

// TokenSnapshot is the cumulative token activity at the end of a day.
type TokenSnapshot struct {
	ID                   string          `json:"id"`
	Token                string          `json:"token"`
	DayID                int64           `json:"day_id"`
	Timestamp            int64           `json:"timestamp"`
	TotalSwapCount       int64           `json:"total_swap_count"`
	TotalVolumeUSD       decimal.Decimal `json:"total_volume_usd"`
	TotalVolumeNotional  decimal.Decimal `json:"total_volume_notional"`
	TotalBalanceNotional decimal.Decimal `json:"total_balance_notional"`
}

func (TokenSnapshot) EntityKind() Kind     { return KindTokenSnapshot }
func (ts TokenSnapshot) EntityID() string { return ts.ID }

// UserSnapshot marks a day in which a user was active.
type UserSnapshot struct {
	ID         string `json:"id"`
	User       string `json:"user"`
	DayID      int64  `json:"day_id"`
	Timestamp  int64  `json:"timestamp"`
	EventCount int64  `json:"event_count"`
}

func (UserSnapshot) EntityKind() Kind     { return KindUserSnapshot }
func (us UserSnapshot) EntityID() string { return us.ID }
