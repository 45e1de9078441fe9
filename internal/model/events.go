package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapEventData is the decoded vault Swap payload.
type SwapEventData struct {
	PoolID    common.Hash    `json:"pool_id"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	AmountIn  *big.Int       `json:"amount_in"`
	AmountOut *big.Int       `json:"amount_out"`
}

// PoolBalanceChangedData is the decoded vault PoolBalanceChanged payload.
// Deltas are signed and aligned with Tokens.
type PoolBalanceChangedData struct {
	PoolID             common.Hash      `json:"pool_id"`
	LiquidityProvider  common.Address   `json:"liquidity_provider"`
	Tokens             []common.Address `json:"tokens"`
	Deltas             []*big.Int       `json:"deltas"`
	ProtocolFeeAmounts []*big.Int       `json:"protocol_fee_amounts,omitempty"`
}

// PoolBalanceManagedData is the decoded vault PoolBalanceManaged payload.
type PoolBalanceManagedData struct {
	PoolID       common.Hash    `json:"pool_id"`
	AssetManager common.Address `json:"asset_manager"`
	Token        common.Address `json:"token"`
	CashDelta    *big.Int       `json:"cash_delta"`
	ManagedDelta *big.Int       `json:"managed_delta"`
}

// InternalBalanceChangedData is the decoded vault InternalBalanceChanged payload.
type InternalBalanceChangedData struct {
	User  common.Address `json:"user"`
	Token common.Address `json:"token"`
	Delta *big.Int       `json:"delta"`
}

// PoolRegisteredData is the decoded vault PoolRegistered payload.
type PoolRegisteredData struct {
	PoolID         common.Hash    `json:"pool_id"`
	PoolAddress    common.Address `json:"pool_address"`
	Specialization uint8          `json:"specialization"`
}

// TokensRegisteredData is the decoded vault TokensRegistered payload.
type TokensRegisteredData struct {
	PoolID        common.Hash      `json:"pool_id"`
	Tokens        []common.Address `json:"tokens"`
	AssetManagers []common.Address `json:"asset_managers"`
}

// PoolCreatedData is the decoded factory PoolCreated payload.
type PoolCreatedData struct {
	Pool common.Address `json:"pool"`
}

// SwapFeePercentageChangedData is the decoded pool SwapFeePercentageChanged payload.
type SwapFeePercentageChangedData struct {
	SwapFeePercentage *big.Int `json:"swap_fee_percentage"`
}
