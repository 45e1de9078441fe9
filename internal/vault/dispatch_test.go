package vault

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

func record(t *testing.T, name string, meta EventMeta, payload interface{}) model.TypedEventRecord {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return model.TypedEventRecord{
		ChainID:     1,
		BlockNumber: meta.Block,
		TxHash:      meta.TxHash.Hex(),
		LogIndex:    meta.LogIndex,
		Address:     meta.Address.Hex(),
		From:        meta.From.Hex(),
		EventName:   name,
		Timestamp:   uint64(meta.Timestamp),
		Decoded:     data,
	}
}

func TestApplyRoutesDecodedEvents(t *testing.T) {
	f := newFixture(t)
	poolAddr := common.HexToAddress("0x8888888888888888888888888888888888888888")
	poolHash := common.HexToHash("0x8888888888888888888888888888888888888888000100000000000000000001")
	poolID := entity.PoolID(poolHash)

	meta := f.next()
	meta.Address = weightedFactory
	require.NoError(t, f.handler.Apply(f.ctx, f.store, record(t, model.EventPoolCreated, meta, model.PoolCreatedData{Pool: poolAddr})))
	require.NoError(t, f.handler.Apply(f.ctx, f.store, record(t, model.EventPoolRegistered, f.same(meta), model.PoolRegisteredData{
		PoolID: poolHash, PoolAddress: poolAddr, Specialization: 2,
	})))
	require.NoError(t, f.handler.Apply(f.ctx, f.store, record(t, model.EventTokensRegistered, f.same(meta), model.TokensRegisteredData{
		PoolID: poolHash, Tokens: []common.Address{weth, usdc},
	})))

	meta = f.next()
	require.NoError(t, f.handler.Apply(f.ctx, f.store, record(t, model.EventPoolBalanceChanged, meta, model.PoolBalanceChangedData{
		PoolID:            poolHash,
		LiquidityProvider: lp,
		Tokens:            []common.Address{weth, usdc},
		Deltas:            []*big.Int{units("1", 18), units("2000", 6)},
	})))

	meta = f.next()
	require.NoError(t, f.handler.Apply(f.ctx, f.store, record(t, model.EventSwap, meta, model.SwapEventData{
		PoolID:    poolHash,
		TokenIn:   usdc,
		TokenOut:  weth,
		AmountIn:  units("200", 6),
		AmountOut: units("0.1", 18),
	})))

	pool := f.pool(t, poolID)
	require.Equal(t, "Weighted", pool.PoolType)
	require.Equal(t, uint8(2), pool.Specialization)
	require.Equal(t, int64(1), pool.SwapsCount)
	require.True(t, f.poolToken(t, poolID, usdc).Balance.Equal(dec("2200")))

	swap, err := entity.Must[model.Swap](f.ctx, f.store, entity.EventID(meta.TxHash, meta.LogIndex))
	require.NoError(t, err)
	require.Equal(t, trader, swap.User)
}

func TestApplyUnsupportedEvent(t *testing.T) {
	f := newFixture(t)
	err := f.handler.Apply(f.ctx, f.store, record(t, "FlashLoan", f.next(), struct{}{}))
	require.True(t, errors.Is(err, ErrUnsupportedEvent))
}

func TestApplyMalformedPayload(t *testing.T) {
	f := newFixture(t)
	rec := record(t, model.EventSwap, f.next(), struct{}{})
	rec.Decoded = json.RawMessage(`{"amount_in": "not a number"}`)

	err := f.handler.Apply(f.ctx, f.store, rec)
	require.True(t, errors.Is(err, ErrInvalidEvent))
}
