package badger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

func newStore(t *testing.T) *StrategyStore {
	t.Helper()
	db, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	store := NewStrategyStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id string) ports.StrategyRecord {
	return ports.StrategyRecord{
		ID:         id,
		Name:       "Local " + id,
		Data:       ports.RecordData{ID: id, UpdatedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)},
		Components: ports.RecordComponents{Nodes: []ports.ComponentDTO{{ID: "a1", Type: "asset-selector", Name: "Asset"}}},
		Allocation: decimal.RequireFromString("1"),
	}
}

func TestStrategyStore_SaveGetLatest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("one")))
	require.NoError(t, store.Save(ctx, record("two")))

	got, err := store.GetByID(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "Local one", got.Name)
	require.Len(t, got.Components.Nodes, 1)
	assert.Equal(t, "asset-selector", got.Components.Nodes[0].Type)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", latest.ID)

	ids, err := store.IDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, ids)
}

func TestStrategyStore_Overwrite(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := record("one")
	require.NoError(t, store.Save(ctx, rec))
	rec.Name = "Renamed"
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.GetByID(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestStrategyStore_Empty(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = store.GetByID(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsValidation(store.Save(ctx, ports.StrategyRecord{})))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)

	db, err := Open(Config{Path: t.TempDir()}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
