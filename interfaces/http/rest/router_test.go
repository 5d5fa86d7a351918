package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"strategy-editor/application/ports"
	"strategy-editor/application/session"
	"strategy-editor/domain/events"
	"strategy-editor/infrastructure/observability"
	"strategy-editor/infrastructure/persistence"
	"strategy-editor/infrastructure/persistence/badger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	return m.Called(ctx, evs).Error(0)
}

type testServer struct {
	handler   http.Handler
	publisher *mockPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig(), nil)
	require.NoError(t, err)
	store := badger.NewStrategyStore(db)
	t.Cleanup(func() { _ = store.Close() })

	metrics := observability.NewCollector("editor")
	publisher := new(mockPublisher)
	repo := persistence.NewRepository(nil, store, persistence.Options{}, nil, persistence.WithStoreMetrics(metrics))
	s := session.New(nil, nil,
		session.WithRepository(repo),
		session.WithPublisher(publisher),
		session.WithMetrics(metrics),
	)
	host := NewSessionHost(s, metrics, nil)
	router := NewRouter(host, metrics, RouterOptions{EnableCORS: true, EnableMetrics: true}, nil)
	return &testServer{handler: router.Setup(), publisher: publisher}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) view(t *testing.T) View {
	t.Helper()
	rr := ts.do(t, http.MethodGet, "/api/v1/editor", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var v View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func (ts *testServer) addNode(t *testing.T, nodeType string, x, y float64) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes", map[string]interface{}{"type": nodeType, "x": x, "y": y})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func (ts *testServer) gesture(t *testing.T, event map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPost, "/api/v1/editor/gestures", event)
}

func click(kind, nodeID, port string) map[string]interface{} {
	return map[string]interface{}{
		"type":   "click",
		"target": map[string]interface{}{"kind": kind, "nodeId": nodeID, "port": port},
	}
}

// connect wires asset.data to sma.data through the gesture API
func (ts *testServer) connect(t *testing.T) (asset, sma string) {
	t.Helper()
	asset = ts.addNode(t, "asset-selector", 0, 0)
	sma = ts.addNode(t, "sma-indicator", 200, 0)
	require.Equal(t, http.StatusOK, ts.gesture(t, click("output_port", asset, "data")).Code)
	rr := ts.gesture(t, click("input_port", sma, "data"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return asset, sma
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

func TestRouter_EmptyView(t *testing.T) {
	ts := newTestServer(t)
	v := ts.view(t)
	assert.Empty(t, v.Strategy.Components)
	assert.False(t, v.IsValid)
	assert.NotEmpty(t, v.Findings)
	assert.Equal(t, "idle", string(v.State.Kind))
	assert.Equal(t, "default", string(v.Cursor))
	assert.False(t, v.CanUndo)
	assert.False(t, v.Saving)
}

func TestRouter_AddNode(t *testing.T) {
	ts := newTestServer(t)
	id := ts.addNode(t, "rsi-indicator", 40, 60)

	v := ts.view(t)
	require.Len(t, v.Strategy.Components, 1)
	assert.Equal(t, id, v.Strategy.Components[0].ID)
	assert.Equal(t, "rsi-indicator", v.Strategy.Components[0].Type)
	assert.True(t, v.CanUndo)

	t.Run("unknown type", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes", map[string]interface{}{"type": "wave"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing type", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "VALIDATION", body.Type)
		assert.Contains(t, body.Details, "type")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes", []byte("{"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("name too long", func(t *testing.T) {
		rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes", map[string]interface{}{
			"type": "sma-indicator",
			"name": strings.Repeat("x", 150),
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Len(t, ts.view(t).Strategy.Components, 1)
	})
}

func TestRouter_AddNamedNode(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes", map[string]interface{}{
		"type": "sma-indicator",
		"name": "Fast SMA",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	v := ts.view(t)
	require.Len(t, v.Strategy.Components, 1)
	assert.Equal(t, "Fast SMA", v.Strategy.Components[0].Name)

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/undo", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	v = ts.view(t)
	assert.Empty(t, v.Strategy.Components)
	assert.False(t, v.CanUndo)
}

func TestRouter_ConnectByGestures(t *testing.T) {
	ts := newTestServer(t)
	asset := ts.addNode(t, "asset-selector", 0, 0)
	sma := ts.addNode(t, "sma-indicator", 200, 0)

	rr := ts.gesture(t, click("output_port", asset, "data"))
	require.Equal(t, http.StatusOK, rr.Code)
	var v View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, "connecting_from_output", string(v.State.Kind))
	assert.Equal(t, "crosshair", string(v.Cursor))

	rr = ts.gesture(t, click("input_port", sma, "data"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, "idle", string(v.State.Kind))
	require.Len(t, v.Strategy.Connections, 1)
	assert.Equal(t, asset, v.Strategy.Connections[0].From)
	assert.Equal(t, sma, v.Strategy.Connections[0].To)
	assert.True(t, v.IsValid)

	t.Run("duplicate edge is rejected with the view", func(t *testing.T) {
		require.Equal(t, http.StatusOK, ts.gesture(t, click("output_port", asset, "data")).Code)
		rr := ts.gesture(t, click("input_port", sma, "data"))
		assert.Equal(t, http.StatusConflict, rr.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "DUPLICATE_EDGE", body.Code)
		require.NotNil(t, body.View)
		assert.Len(t, body.View.Strategy.Connections, 1)
		assert.Equal(t, "idle", string(body.View.State.Kind))
	})

	t.Run("unknown event type", func(t *testing.T) {
		rr := ts.gesture(t, map[string]interface{}{"type": "wiggle"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestRouter_DragGesture(t *testing.T) {
	ts := newTestServer(t)
	id := ts.addNode(t, "sma-indicator", 10, 10)

	down := map[string]interface{}{"type": "pointer_down", "x": 15, "y": 15, "target": map[string]interface{}{"kind": "node", "nodeId": id}}
	require.Equal(t, http.StatusOK, ts.gesture(t, down).Code)
	require.Equal(t, http.StatusOK, ts.gesture(t, map[string]interface{}{"type": "pointer_move", "x": 105, "y": 55}).Code)
	require.Equal(t, http.StatusOK, ts.gesture(t, map[string]interface{}{"type": "pointer_up"}).Code)

	v := ts.view(t)
	require.Len(t, v.Strategy.Components, 1)
	assert.Equal(t, 100.0, v.Strategy.Components[0].Position.X())
	assert.Equal(t, 50.0, v.Strategy.Components[0].Position.Y())
	assert.Equal(t, id, v.Selection.NodeID)

	rr := ts.do(t, http.MethodPost, "/api/v1/editor/undo", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Applied)
	assert.Equal(t, 10.0, resp.View.Strategy.Components[0].Position.X())
}

func TestRouter_UndoRedo(t *testing.T) {
	ts := newTestServer(t)
	ts.addNode(t, "sma-indicator", 0, 0)

	rr := ts.do(t, http.MethodPost, "/api/v1/editor/undo", nil)
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Applied)
	assert.Empty(t, resp.View.Strategy.Components)
	assert.True(t, resp.View.CanRedo)

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/redo", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Applied)
	assert.Len(t, resp.View.Strategy.Components, 1)

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/redo", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Applied)
}

func TestRouter_DuplicateAndDelete(t *testing.T) {
	ts := newTestServer(t)
	id := ts.addNode(t, "macd-indicator", 0, 0)

	rr := ts.do(t, http.MethodPost, "/api/v1/editor/nodes/"+id+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEqual(t, id, resp.ID)
	assert.Len(t, resp.View.Strategy.Components, 2)

	rr = ts.do(t, http.MethodDelete, "/api/v1/editor/nodes/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, ts.view(t).Strategy.Components, 1)

	rr = ts.do(t, http.MethodDelete, "/api/v1/editor/nodes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Properties(t *testing.T) {
	ts := newTestServer(t)
	id := ts.addNode(t, "rsi-indicator", 0, 0)
	path := "/api/v1/editor/nodes/" + id + "/properties"

	rr := ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var form PropertiesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &form))
	assert.Equal(t, "rsi-indicator", string(form.Type))
	require.Len(t, form.Fields, 3)
	assert.Equal(t, "period", form.Fields[0].Name)
	assert.EqualValues(t, 14, form.Fields[0].Value)

	rr = ts.do(t, http.MethodPut, path, UpdatePropertiesRequest{Values: map[string]interface{}{"period": 21}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := ts.view(t)
	assert.EqualValues(t, 21, v.Strategy.Components[0].Properties["period"])

	t.Run("out of range is rejected and nothing is committed", func(t *testing.T) {
		undoBefore := ts.view(t).CanUndo
		rr := ts.do(t, http.MethodPut, path, UpdatePropertiesRequest{Values: map[string]interface{}{"period": 5000}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		after := ts.view(t)
		assert.EqualValues(t, 21, after.Strategy.Components[0].Properties["period"])
		assert.Equal(t, undoBefore, after.CanUndo)
	})

	t.Run("unknown option", func(t *testing.T) {
		rr := ts.do(t, http.MethodPut, path, UpdatePropertiesRequest{Values: map[string]interface{}{"colour": "red"}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown node", func(t *testing.T) {
		rr := ts.do(t, http.MethodGet, "/api/v1/editor/nodes/missing/properties", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRouter_LogicProperties(t *testing.T) {
	ts := newTestServer(t)
	ts.addNode(t, "sma-indicator", 0, 0)
	gate := ts.addNode(t, "and-logic", 200, 0)

	rr := ts.do(t, http.MethodGet, "/api/v1/editor/nodes/"+gate+"/properties", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var form PropertiesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &form))
	require.NotNil(t, form.Logic)
	require.NotEmpty(t, form.OperandChoices)
	assert.True(t, form.OperandChoices[len(form.OperandChoices)-1].Literal)
}

func TestRouter_SaveAndLoad(t *testing.T) {
	ts := newTestServer(t)
	ts.addNode(t, "asset-selector", 0, 0)
	saved := ts.view(t).Strategy.ID

	rr := ts.do(t, http.MethodPost, "/api/v1/editor/save", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp PersistResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, ports.SourceLocal, resp.Source)
	assert.False(t, resp.View.Saving)

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/clear", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := ts.view(t)
	assert.Empty(t, cleared.Strategy.Components)
	assert.NotEqual(t, saved, cleared.Strategy.ID)
	assert.True(t, cleared.CanUndo, "clearing is undoable")

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/load", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, saved, resp.View.Strategy.ID)
	assert.Len(t, resp.View.Strategy.Components, 1)
	assert.False(t, resp.View.CanUndo, "loading drops history")

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/load", LoadRequest{ID: "no-such-strategy"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, saved, ts.view(t).Strategy.ID)
}

func TestRouter_ExportImport(t *testing.T) {
	ts := newTestServer(t)
	ts.connect(t)

	rr := ts.do(t, http.MethodGet, "/api/v1/editor/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	file := rr.Body.Bytes()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/v1/editor/clear", nil).Code)

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/import", file)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v := ts.view(t)
	assert.Len(t, v.Strategy.Components, 2)
	assert.Len(t, v.Strategy.Connections, 1)

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/import", []byte("not a strategy"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, ts.view(t).Strategy.Components, 2)
}

func TestRouter_Submit(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/api/v1/editor/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "STRATEGY_INVALID", body.Code)
	ts.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	ts.connect(t)
	ts.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
		_, ok := e.(events.StrategySubmitted)
		return ok
	})).Return(nil).Once()

	rr = ts.do(t, http.MethodPost, "/api/v1/editor/submit", nil)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	ts.publisher.AssertExpectations(t)
}

func TestRouter_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.addNode(t, "sma-indicator", 0, 0)
	ts.gesture(t, click("canvas", "", ""))

	rr := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `editor_http_requests_total{method="POST",route="/api/v1/editor/nodes`)
	assert.Contains(t, body, `editor_gestures_total{event="click"} 1`)
	assert.Contains(t, body, `editor_graph_mutations_total`)
}
