package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"strategy-editor/application/ports"
	"strategy-editor/domain/events"
)

func TestCollector_RecordsEditorActivity(t *testing.T) {
	c := NewCollector("test")

	c.RecordMutation(events.MutationAddNode)
	c.RecordMutation(events.MutationAddNode)
	c.RecordHistory("undo")
	c.RecordGesture("click")
	c.RecordValidation(false, 2, 1)
	c.RecordSave(ports.SourceLocalFallback, nil)
	c.RecordSave("", errors.New("no store"))
	c.RecordSubmit(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Mutations.WithLabelValues("add_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.History.WithLabelValues("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Gestures.WithLabelValues("click")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Valid))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Findings.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Saves.WithLabelValues("local-fallback", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Saves.WithLabelValues("none", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Submissions.WithLabelValues("ok")))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")
	a.RecordHTTP(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.HTTPRequests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.HTTPRequests.WithLabelValues("GET", "/health", "200")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("editor")
	c.RecordStoreOperation("save", "badger", nil, 2*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `editor_store_operations_total{operation="save",status="ok",store="badger"} 1`)
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(env, "not-a-level")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	}
}
