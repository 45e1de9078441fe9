package vault

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

func TestPoolRegistrationFlow(t *testing.T) {
	f := newFixture(t)
	poolHash, poolID := f.registerPool(t, 1, weightedFactory, weth, usdc)

	pool := f.pool(t, poolID)
	require.Equal(t, "Weighted", pool.PoolType)
	require.Equal(t, weightedFactory, pool.Factory)
	require.Equal(t, uint8(1), pool.Specialization)
	require.True(t, pool.SwapFee.Equal(dec("0.003")))
	require.Equal(t, []common.Address{weth, usdc}, pool.TokensList)
	require.Equal(t, 2, pool.TokensCount)
	require.False(t, pool.Liquidity.Valid)

	pt := f.poolToken(t, poolID, usdc)
	require.Equal(t, uint8(6), pt.Decimals)
	require.Equal(t, "USDC", pt.Symbol)
	require.True(t, pt.Balance.IsZero())

	contract, err := entity.Must[model.PoolContract](f.ctx, f.store, entity.AddressID(pool.Address))
	require.NoError(t, err)
	require.Equal(t, poolID, contract.PoolID)

	require.Equal(t, int64(1), f.vault(t).PoolCount)

	// A repeated registration is ignored.
	meta := f.next()
	require.NoError(t, f.handler.HandlePoolRegistered(f.ctx, f.store, meta, model.PoolRegisteredData{
		PoolID:      poolHash,
		PoolAddress: pool.Address,
	}))
	require.Equal(t, int64(1), f.vault(t).PoolCount)

	f.registerPool(t, 2, weightedFactory, tokenX, tokenY)
	require.Equal(t, int64(2), f.vault(t).PoolCount)
}

func TestTokensRegisteredSkipsKnownTokens(t *testing.T) {
	f := newFixture(t)
	poolHash, poolID := f.registerPool(t, 1, weightedFactory, weth, usdc)

	require.NoError(t, f.handler.HandleTokensRegistered(f.ctx, f.store, f.next(), model.TokensRegisteredData{
		PoolID: poolHash,
		Tokens: []common.Address{usdc, dai},
	}))

	pool := f.pool(t, poolID)
	require.Equal(t, []common.Address{weth, usdc, dai}, pool.TokensList)
	require.Equal(t, 3, pool.TokensCount)
}

func TestTokensRegisteredMetadataFailureLeavesDefaults(t *testing.T) {
	f := newFixture(t)
	unknown := common.HexToAddress("0x7777777777777777777777777777777777777777")
	_, poolID := f.registerPool(t, 1, weightedFactory, unknown, usdc)

	pt := f.poolToken(t, poolID, unknown)
	require.Equal(t, uint8(0), pt.Decimals)
	require.Empty(t, pt.Symbol)
}

func TestPoolFromUnknownFactory(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	_, poolID := f.registerPool(t, 1, other, weth, usdc)

	require.Equal(t, UnknownPoolType, f.pool(t, poolID).PoolType)
}

func TestRegistrationWithoutPoolContract(t *testing.T) {
	f := newFixture(t)
	poolAddr := common.HexToAddress("0x8888888888888888888888888888888888888888")
	poolHash := common.HexToHash("0x01")

	require.NoError(t, f.handler.HandlePoolRegistered(f.ctx, f.store, f.next(), model.PoolRegisteredData{
		PoolID:      poolHash,
		PoolAddress: poolAddr,
	}))

	pool := f.pool(t, entity.PoolID(poolHash))
	require.Equal(t, UnknownPoolType, pool.PoolType)
	require.True(t, pool.SwapFee.IsZero())
}

func TestSwapFeeChanged(t *testing.T) {
	f := newFixture(t)
	_, poolID := f.registerPool(t, 1, weightedFactory, weth, usdc)
	pool := f.pool(t, poolID)

	meta := f.next()
	meta.Address = pool.Address
	require.NoError(t, f.handler.HandleSwapFeeChanged(f.ctx, f.store, meta, model.SwapFeePercentageChangedData{
		SwapFeePercentage: units("0.01", 18),
	}))
	require.True(t, f.pool(t, poolID).SwapFee.Equal(dec("0.01")))

	meta = f.next()
	meta.Address = common.HexToAddress("0x9999999999999999999999999999999999999999")
	require.NoError(t, f.handler.HandleSwapFeeChanged(f.ctx, f.store, meta, model.SwapFeePercentageChangedData{
		SwapFeePercentage: big.NewInt(1),
	}))
	require.True(t, f.pool(t, poolID).SwapFee.Equal(dec("0.01")))
}

func TestVariableWeightsSetOnRegistration(t *testing.T) {
	f := newFixture(t)
	poolAddr := common.BytesToAddress([]byte{0xee, 3})
	f.pools.weights[poolAddr] = []*big.Int{units("0.9", 18), units("0.1", 18)}

	_, poolID := f.registerPool(t, 3, lbpFactory, tokenX, weth)
	require.Equal(t, poolAddr, f.pool(t, poolID).Address)

	require.True(t, f.poolToken(t, poolID, tokenX).Weight.Decimal.Equal(dec("0.9")))
	require.True(t, f.poolToken(t, poolID, weth).Weight.Decimal.Equal(dec("0.1")))
}

func TestWeightedPoolWeightsNotRead(t *testing.T) {
	f := newFixture(t)
	poolAddr := common.BytesToAddress([]byte{0xee, 4})
	f.pools.weights[poolAddr] = []*big.Int{units("0.5", 18), units("0.5", 18)}

	_, poolID := f.registerPool(t, 4, weightedFactory, tokenX, weth)
	require.False(t, f.poolToken(t, poolID, tokenX).Weight.Valid)
}
