package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

// fakePostgREST serves the strategies table from memory
type fakePostgREST struct {
	mu   sync.Mutex
	rows map[string]json.RawMessage
	at   map[string]time.Time
	fail bool
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasSuffix(r.URL.Path, "/rest/v1/strategies") {
		http.NotFound(w, r)
		return
	}
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
		return
	}

	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var rec ports.StrategyRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.rows[rec.ID] = body
		f.at[rec.ID] = rec.Data.UpdatedAt
		w.WriteHeader(http.StatusCreated)

	case http.MethodGet:
		var out []json.RawMessage
		if id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq."); id != "" {
			if row, ok := f.rows[id]; ok {
				out = append(out, row)
			}
		} else {
			var newest string
			for id, at := range f.at {
				if newest == "" || at.After(f.at[newest]) {
					newest = id
				}
			}
			if newest != "" {
				out = append(out, f.rows[newest])
			}
		}
		if out == nil {
			out = []json.RawMessage{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func newStore(t *testing.T) (*StrategyStore, *fakePostgREST) {
	t.Helper()
	fake := &fakePostgREST{rows: map[string]json.RawMessage{}, at: map[string]time.Time{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewStrategyStore(srv.URL, "service-key", "", nil)
	require.NoError(t, err)
	return store, fake
}

func record(id string, at time.Time) ports.StrategyRecord {
	sl := decimal.RequireFromString("0.05")
	return ports.StrategyRecord{
		ID:         id,
		Name:       "Breakout " + id,
		Data:       ports.RecordData{ID: id, IsValid: true, UpdatedAt: at},
		MarketType: "perp",
		OrderType:  "limit",
		Allocation: decimal.RequireFromString("0.5"),
		Slippage:   decimal.RequireFromString("5"),
		Fee:        decimal.RequireFromString("1.5"),
		StopLoss:   &sl,
	}
}

func TestStrategyStore_RoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("a", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, store.Save(ctx, record("b", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))))

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Breakout a", got.Name)
	require.NotNil(t, got.StopLoss)
	assert.True(t, got.StopLoss.Equal(decimal.RequireFromString("0.05")))
	assert.Nil(t, got.TakeProfit)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestStrategyStore_Missing(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "ghost")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = store.Latest(ctx)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStrategyStore_Failures(t *testing.T) {
	store, fake := newStore(t)
	fake.fail = true

	_, err := store.GetByID(context.Background(), "a")
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, pkgerrors.IsType(store.Save(ctx, record("a", time.Now())), pkgerrors.ErrorTypeTimeout))

	assert.True(t, pkgerrors.IsValidation(store.Save(context.Background(), ports.StrategyRecord{})))
}
