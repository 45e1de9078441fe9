package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
	"balancerScope/internal/pricing"
)

var (
	weth   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai    = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	tokenX = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenY = common.HexToAddress("0x2222222222222222222222222222222222222222")

	weightedFactory = common.HexToAddress("0x8E9aa87E45e92bad84D5F8DD1bff34Fb92637dE9")
	lbpFactory      = common.HexToAddress("0x751A0bC0e3f75b38e01Cf25bFCE7fF36DE1C87DE")
	lp              = common.HexToAddress("0x3333333333333333333333333333333333333333")
	trader          = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

type fakeTokens map[common.Address]model.TokenMeta

func (f fakeTokens) TokenMeta(_ context.Context, token common.Address) (model.TokenMeta, error) {
	meta, ok := f[token]
	if !ok {
		return model.TokenMeta{Address: token.Hex()}, errors.New("execution reverted")
	}
	return meta, nil
}

type fakePools struct {
	fees    map[common.Address]*big.Int
	weights map[common.Address][]*big.Int
}

func (f *fakePools) SwapFeePercentage(_ context.Context, pool common.Address) (*big.Int, error) {
	fee, ok := f.fees[pool]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return fee, nil
}

func (f *fakePools) NormalizedWeights(_ context.Context, pool common.Address) ([]*big.Int, error) {
	weights, ok := f.weights[pool]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return weights, nil
}

type fixture struct {
	ctx     context.Context
	store   *entity.MemoryStore
	handler *Handler
	pools   *fakePools
	block   uint64
	logIdx  uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.Config{
		PricingAssets: []common.Address{weth, usdc, dai},
		USDStables:    []common.Address{usdc, dai},
	}, nil, nil)
	require.NoError(t, err)

	tokens := fakeTokens{
		weth:   {Address: weth.Hex(), Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
		usdc:   {Address: usdc.Hex(), Decimals: 6, Symbol: "USDC", Name: "USD Coin"},
		dai:    {Address: dai.Hex(), Decimals: 18, Symbol: "DAI", Name: "Dai Stablecoin"},
		tokenX: {Address: tokenX.Hex(), Decimals: 18, Symbol: "X"},
		tokenY: {Address: tokenY.Hex(), Decimals: 18, Symbol: "Y"},
	}
	pools := &fakePools{
		fees:    make(map[common.Address]*big.Int),
		weights: make(map[common.Address][]*big.Int),
	}
	handler := NewHandler(engine, Config{
		Factories: map[common.Address]string{
			weightedFactory: "Weighted",
			lbpFactory:      "LiquidityBootstrapping",
		},
		VariableWeightTypes: []string{"LiquidityBootstrapping"},
	}, tokens, pools, nil, nil)

	return &fixture{
		ctx:     context.Background(),
		store:   entity.NewMemoryStore(),
		handler: handler,
		pools:   pools,
		block:   100,
	}
}

// next returns the position of a new event in its own transaction.
func (f *fixture) next() EventMeta {
	f.block++
	f.logIdx = 0
	return EventMeta{
		Block:     f.block,
		Timestamp: int64(1_700_000_000 + f.block*12),
		TxHash:    common.BigToHash(new(big.Int).SetUint64(f.block)),
		LogIndex:  0,
		From:      trader,
	}
}

// same returns the position of a further event in the transaction of meta.
func (f *fixture) same(meta EventMeta) EventMeta {
	f.logIdx++
	meta.LogIndex = f.logIdx
	return meta
}

func units(value string, decimals int32) *big.Int {
	return decimal.RequireFromString(value).Shift(decimals).BigInt()
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (f *fixture) registerPool(t *testing.T, seed byte, factory common.Address, tokens ...common.Address) (common.Hash, string) {
	t.Helper()
	poolAddr := common.BytesToAddress([]byte{0xee, seed})
	poolHash := common.BytesToHash(append(poolAddr.Bytes(), 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, seed))
	f.pools.fees[poolAddr] = units("0.003", 18)

	meta := f.next()
	meta.Address = factory
	require.NoError(t, f.handler.HandlePoolCreated(f.ctx, f.store, meta, model.PoolCreatedData{Pool: poolAddr}))
	require.NoError(t, f.handler.HandlePoolRegistered(f.ctx, f.store, f.same(meta), model.PoolRegisteredData{
		PoolID:         poolHash,
		PoolAddress:    poolAddr,
		Specialization: 1,
	}))
	require.NoError(t, f.handler.HandleTokensRegistered(f.ctx, f.store, f.same(meta), model.TokensRegisteredData{
		PoolID:        poolHash,
		Tokens:        tokens,
		AssetManagers: make([]common.Address, len(tokens)),
	}))
	return poolHash, entity.PoolID(poolHash)
}

func (f *fixture) changeBalances(t *testing.T, poolHash common.Hash, tokens []common.Address, deltas ...*big.Int) EventMeta {
	t.Helper()
	meta := f.next()
	require.NoError(t, f.handler.HandleBalanceChange(f.ctx, f.store, meta, model.PoolBalanceChangedData{
		PoolID:            poolHash,
		LiquidityProvider: lp,
		Tokens:            tokens,
		Deltas:            deltas,
	}))
	return meta
}

func (f *fixture) poolToken(t *testing.T, poolID string, token common.Address) *model.PoolToken {
	t.Helper()
	pt, err := entity.Must[model.PoolToken](f.ctx, f.store, entity.PoolTokenID(poolID, token))
	require.NoError(t, err)
	return pt
}

func (f *fixture) pool(t *testing.T, poolID string) *model.Pool {
	t.Helper()
	pool, err := entity.Must[model.Pool](f.ctx, f.store, poolID)
	require.NoError(t, err)
	return pool
}

func (f *fixture) vault(t *testing.T) *model.Balancer {
	t.Helper()
	vault, err := entity.Must[model.Balancer](f.ctx, f.store, entity.DefaultVaultID)
	require.NoError(t, err)
	return vault
}

func requireDecimals(t *testing.T, want []string, got []decimal.Decimal) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Truef(t, got[i].Equal(dec(want[i])), "index %d: want %s, got %s", i, want[i], got[i])
	}
}
