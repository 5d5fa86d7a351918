package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

// fakeTable keeps items by PK+SK and understands the one condition the
// store writes: attribute_not_exists(PK) OR UpdatedAt <= :v.
type fakeTable struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	failGet error
	puts    int
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return str(item["PK"]) + "|" + str(item["SK"])
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	k := itemKey(in.Item)
	if in.ConditionExpression != nil {
		if existing, ok := f.items[k]; ok {
			var incoming string
			for _, v := range in.ExpressionAttributeValues {
				incoming = str(v)
			}
			if str(existing["UpdatedAt"]) > incoming {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("newer")}
			}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func record(id string, at time.Time) ports.StrategyRecord {
	return ports.StrategyRecord{
		ID:         id,
		Name:       "Strategy " + id,
		Data:       ports.RecordData{ID: id, IsValid: true, UpdatedAt: at},
		MarketType: "spot",
		OrderType:  "market",
		Allocation: decimal.RequireFromString("0.25"),
		Indicators: []ports.IndicatorConfig{{Type: "RSI", Params: map[string]any{"period": float64(14)}}},
	}
}

func TestStrategyStore_SaveAndGet(t *testing.T) {
	store := NewStrategyStore(newFakeTable(), "strategies", nil)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, record("s1", at)))

	got, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Strategy s1", got.Name)
	assert.True(t, got.Allocation.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, at, got.Data.UpdatedAt)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", latest.ID)
}

func TestStrategyStore_LatestNeverMovesBack(t *testing.T) {
	store := NewStrategyStore(newFakeTable(), "strategies", nil)
	ctx := context.Background()
	newer := time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC)
	older := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, record("new", newer)))
	require.NoError(t, store.Save(ctx, record("old", older)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)

	_, err = store.GetByID(ctx, "old")
	assert.NoError(t, err, "the older record itself is still stored")
}

func TestStrategyStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		store := NewStrategyStore(newFakeTable(), "strategies", nil)
		_, err := store.GetByID(ctx, "nope")
		assert.True(t, pkgerrors.IsNotFound(err))
		_, err = store.Latest(ctx)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("no id", func(t *testing.T) {
		store := NewStrategyStore(newFakeTable(), "strategies", nil)
		assert.True(t, pkgerrors.IsValidation(store.Save(ctx, ports.StrategyRecord{Name: "x"})))
	})

	t.Run("backend down", func(t *testing.T) {
		table := newFakeTable()
		table.failGet = errors.New("connection reset")
		store := NewStrategyStore(table, "strategies", nil)
		_, err := store.GetByID(ctx, "s1")
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeDatabase))
	})

	t.Run("record key falls back to data id", func(t *testing.T) {
		table := newFakeTable()
		store := NewStrategyStore(table, "strategies", nil)
		rec := record("", time.Now())
		rec.Data.ID = "from-data"
		require.NoError(t, store.Save(ctx, rec))
		_, err := store.GetByID(ctx, "from-data")
		assert.NoError(t, err)
	})
}
