package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/entity"
	"balancerScope/internal/model"
)

// Set INDEXER_TEST_PG_DSN to run these against a scratch database.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("INDEXER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("INDEXER_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	id := fmt.Sprintf("test-%d", time.Now().UnixNano())

	missing, err := entity.Load[model.Balancer](ctx, store, id)
	require.NoError(t, err)
	require.Nil(t, missing)

	row := &model.Balancer{ID: id, PoolCount: 3, TotalLiquidity: decimal.RequireFromString("1234.5")}
	require.NoError(t, entity.Save(ctx, store, row))

	row.PoolCount = 4
	require.NoError(t, entity.Save(ctx, store, row))

	got, err := entity.Must[model.Balancer](ctx, store, id)
	require.NoError(t, err)
	require.Equal(t, int64(4), got.PoolCount)
	require.True(t, got.TotalLiquidity.Equal(row.TotalLiquidity))
}

func TestStoreWithinTxRollsBack(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	id := fmt.Sprintf("tx-%d", time.Now().UnixNano())
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx entity.Store) error {
		if err := entity.Save(ctx, tx, &model.Cursor{ID: id, Block: 10}); err != nil {
			return err
		}
		seen, err := entity.Must[model.Cursor](ctx, tx, id)
		if err != nil {
			return err
		}
		require.Equal(t, uint64(10), seen.Block)
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := entity.Load[model.Cursor](ctx, store, id)
	require.NoError(t, err)
	require.Nil(t, after)

	require.NoError(t, store.WithinTx(ctx, func(tx entity.Store) error {
		return entity.Save(ctx, tx, &model.Cursor{ID: id, Block: 11, LogIndex: 2})
	}))
	committed, err := entity.Must[model.Cursor](ctx, store, id)
	require.NoError(t, err)
	require.Equal(t, uint64(11), committed.Block)
}
