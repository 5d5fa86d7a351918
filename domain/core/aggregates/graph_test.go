package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-editor/domain/config"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
	pkgerrors "strategy-editor/pkg/errors"
)

func newNode(t *testing.T, id string, nt catalog.NodeType) *entities.Node {
	t.Helper()
	n, err := entities.NewNode(valueobjects.MustNodeID(id), nt, "", valueobjects.MustPosition(0, 0))
	require.NoError(t, err)
	return n
}

func newEdge(t *testing.T, id, src, srcPort, tgt, tgtPort string) *entities.Edge {
	t.Helper()
	e, err := entities.NewEdge(valueobjects.MustEdgeID(id),
		valueobjects.MustNodeID(src), srcPort, valueobjects.MustNodeID(tgt), tgtPort)
	require.NoError(t, err)
	return e
}

// buildGraph creates asset a1 -> sma s1 -> market-order o1
func buildGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(valueobjects.NewGraphID(), "", nil)
	var err error
	for _, n := range []*entities.Node{
		newNode(t, "a1", catalog.TypeAssetSelector),
		newNode(t, "s1", catalog.TypeSMA),
		newNode(t, "o1", catalog.TypeMarketOrder),
	} {
		g, err = g.AddNode(n)
		require.NoError(t, err)
	}
	g, err = g.AddEdge(newEdge(t, "e1", "a1", "data", "s1", "data"))
	require.NoError(t, err)
	g, err = g.AddEdge(newEdge(t, "e2", "s1", "result", "o1", "signal"))
	require.NoError(t, err)
	return g
}

func TestNewGraph(t *testing.T) {
	g := NewGraph(valueobjects.GraphID{}, "  ", nil)

	assert.False(t, g.ID().IsZero(), "a missing id is minted")
	assert.Equal(t, "New Strategy", g.Name())
	assert.True(t, g.IsEmpty())
	assert.NotNil(t, g.Nodes())
	assert.NotNil(t, g.Edges())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph(valueobjects.NewGraphID(), "Test", nil)
	a := newNode(t, "a1", catalog.TypeAssetSelector)

	g2, err := g.AddNode(a)
	require.NoError(t, err)
	assert.Equal(t, 1, g2.NodeCount())
	assert.Equal(t, 0, g.NodeCount(), "receiver is not modified")

	_, err = g2.AddNode(newNode(t, "a1", catalog.TypeSMA))
	assert.True(t, pkgerrors.IsConflict(err))

	rules := config.DefaultDomainConfig()
	rules.MaxNodesPerGraph = 1
	_, err = g2.WithRules(rules).AddNode(newNode(t, "s1", catalog.TypeSMA))
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGraph_AddNode_BranchesDoNotShareStorage(t *testing.T) {
	base := buildGraph(t)

	left, err := base.AddNode(newNode(t, "x", catalog.TypeRSI))
	require.NoError(t, err)
	right, err := base.AddNode(newNode(t, "y", catalog.TypeMACD))
	require.NoError(t, err)

	assert.True(t, left.HasNode(valueobjects.MustNodeID("x")))
	assert.False(t, left.HasNode(valueobjects.MustNodeID("y")))
	assert.True(t, right.HasNode(valueobjects.MustNodeID("y")))
	assert.Equal(t, 3, base.NodeCount())
}

func TestGraph_RemoveNode_Cascades(t *testing.T) {
	g := buildGraph(t)

	for _, id := range []string{"a1", "s1", "o1"} {
		t.Run(id, func(t *testing.T) {
			nodeID := valueobjects.MustNodeID(id)
			out, err := g.RemoveNode(nodeID)
			require.NoError(t, err)

			assert.False(t, out.HasNode(nodeID))
			for _, e := range out.Edges() {
				assert.False(t, e.Touches(nodeID), "edge %s still references %s", e.ID(), id)
			}
			assert.NoError(t, out.CheckIntegrity())
		})
	}

	out, err := g.RemoveNode(valueobjects.MustNodeID("s1"))
	require.NoError(t, err)
	assert.Equal(t, 0, out.EdgeCount())
	assert.Equal(t, 2, g.EdgeCount(), "receiver keeps its edges")

	_, err = g.RemoveNode(valueobjects.MustNodeID("missing"))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGraph_UpdateNode(t *testing.T) {
	g := buildGraph(t)
	id := valueobjects.MustNodeID("s1")
	name := "Fast SMA"
	pos := valueobjects.MustPosition(120, 80)

	out, err := g.UpdateNode(id, NodeUpdate{
		Name:        &name,
		Position:    &pos,
		ConfigPatch: map[string]any{"period": 9},
	})
	require.NoError(t, err)

	n, _ := out.Node(id)
	assert.Equal(t, "Fast SMA", n.Name())
	assert.True(t, n.Position().Equals(pos))
	assert.Equal(t, catalog.SMAConfig{Period: 9, Source: "close"}, n.Config())

	before, _ := g.Node(id)
	assert.Equal(t, catalog.SMAConfig{Period: 20, Source: "close"}, before.Config())

	_, err = g.UpdateNode(id, NodeUpdate{Config: catalog.MustDefault(catalog.TypeRSI)})
	assert.True(t, pkgerrors.IsValidation(err), "configuration of another type is rejected")

	empty := " "
	_, err = g.UpdateNode(id, NodeUpdate{Name: &empty})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGraph_MoveNode(t *testing.T) {
	g := buildGraph(t)
	id := valueobjects.MustNodeID("o1")

	out, err := g.MoveNode(id, valueobjects.MustPosition(10, 20))
	require.NoError(t, err)
	n, _ := out.Node(id)
	assert.Equal(t, 10.0, n.Position().X())
	assert.Equal(t, g.Edges(), out.Edges(), "edges are shared untouched")
}

func TestGraph_AddEdge(t *testing.T) {
	tests := []struct {
		name      string
		edge      *entities.Edge
		checkErr  func(error) bool
		errorCode string
	}{
		{
			name:     "unknown source",
			edge:     newEdge(t, "x", "nope", "data", "s1", "data"),
			checkErr: pkgerrors.IsNotFound,
		},
		{
			name:     "source port is not an output",
			edge:     newEdge(t, "x", "s1", "data", "o1", "signal"),
			checkErr: pkgerrors.IsValidation,
		},
		{
			name:     "target port is not an input",
			edge:     newEdge(t, "x", "a1", "data", "s1", "result"),
			checkErr: pkgerrors.IsValidation,
		},
		{
			name:      "self loop",
			edge:      newEdge(t, "x", "s1", "result", "s1", "data"),
			checkErr:  pkgerrors.IsValidation,
			errorCode: "SELF_LOOP",
		},
		{
			name:      "duplicate endpoints",
			edge:      newEdge(t, "x", "a1", "data", "s1", "data"),
			checkErr:  pkgerrors.IsConflict,
			errorCode: "DUPLICATE_EDGE",
		},
		{
			name:     "duplicate id",
			edge:     newEdge(t, "e1", "a1", "data", "o1", "signal"),
			checkErr: pkgerrors.IsConflict,
		},
	}

	g := buildGraph(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := g.AddEdge(tt.edge)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, tt.checkErr(err), "unexpected error %v", err)
			if tt.errorCode != "" {
				assert.Equal(t, tt.errorCode, pkgerrors.GetAppError(err).Code)
			}
			assert.Equal(t, 2, g.EdgeCount())
		})
	}
}

func TestGraph_SelfLoopPolicy(t *testing.T) {
	g := NewGraph(valueobjects.NewGraphID(), "", nil)
	g, err := g.AddNode(newNode(t, "s1", catalog.TypeSMA))
	require.NoError(t, err)

	// rejected twice in a row: the outcome never depends on prior attempts
	for i := 0; i < 2; i++ {
		_, _, err = g.Connect(valueobjects.MustNodeID("s1"), "result", valueobjects.MustNodeID("s1"), "data")
		assert.True(t, pkgerrors.IsValidation(err))
	}

	rules := config.DefaultDomainConfig()
	rules.AllowSelfConnections = true
	out, edge, err := g.WithRules(rules).Connect(valueobjects.MustNodeID("s1"), "result", valueobjects.MustNodeID("s1"), "data")
	require.NoError(t, err)
	assert.True(t, edge.IsSelfLoop())
	assert.Equal(t, 1, out.EdgeCount())
}

func TestGraph_RetargetEdge(t *testing.T) {
	g := buildGraph(t)
	g, err := g.AddNode(newNode(t, "r1", catalog.TypeRSI))
	require.NoError(t, err)
	g, err = g.AddNode(newNode(t, "l1", catalog.TypeLimitOrder))
	require.NoError(t, err)

	e1 := valueobjects.MustEdgeID("e1")
	e2 := valueobjects.MustEdgeID("e2")

	t.Run("target keeps port name when available", func(t *testing.T) {
		out, err := g.RetargetEdge(e1, entities.EndTarget, valueobjects.MustNodeID("r1"), "")
		require.NoError(t, err)
		edge, ok := out.Edge(e1)
		require.True(t, ok)
		assert.Equal(t, "a1", edge.SourceID().String())
		assert.Equal(t, "data", edge.SourcePort())
		assert.Equal(t, "r1", edge.TargetID().String())
		assert.Equal(t, "data", edge.TargetPort())
		assert.Equal(t, 0, indexOfEdge(out, e1), "edge keeps its place")
	})

	t.Run("source falls back to first output", func(t *testing.T) {
		out, err := g.RetargetEdge(e2, entities.EndSource, valueobjects.MustNodeID("r1"), "")
		require.NoError(t, err)
		edge, _ := out.Edge(e2)
		assert.Equal(t, "r1", edge.SourceID().String())
		assert.Equal(t, "result", edge.SourcePort())
		assert.Equal(t, "o1", edge.TargetID().String())
		assert.Equal(t, "signal", edge.TargetPort())
	})

	t.Run("explicit port", func(t *testing.T) {
		out, err := g.RetargetEdge(e2, entities.EndTarget, valueobjects.MustNodeID("l1"), "signal")
		require.NoError(t, err)
		edge, _ := out.Edge(e2)
		assert.Equal(t, "l1", edge.TargetID().String())
	})

	t.Run("node without ports on that side", func(t *testing.T) {
		_, err := g.RetargetEdge(e2, entities.EndTarget, valueobjects.MustNodeID("a1"), "")
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("would duplicate an existing edge", func(t *testing.T) {
		// moving e2's source to a1 onto s1.data duplicates e1
		g2, err := g.RetargetEdge(e2, entities.EndTarget, valueobjects.MustNodeID("s1"), "data")
		require.Error(t, err)
		assert.Nil(t, g2)

		moved, err := g.RetargetEdge(e2, entities.EndSource, valueobjects.MustNodeID("a1"), "")
		require.NoError(t, err)
		_, err = moved.RetargetEdge(e2, entities.EndTarget, valueobjects.MustNodeID("s1"), "")
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("no end chosen", func(t *testing.T) {
		_, err := g.RetargetEdge(e2, entities.EndNone, valueobjects.MustNodeID("r1"), "")
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func indexOfEdge(g *Graph, id valueobjects.EdgeID) int {
	for i, e := range g.Edges() {
		if e.ID().Equals(id) {
			return i
		}
	}
	return -1
}

func TestGraph_Rename(t *testing.T) {
	g := buildGraph(t)
	out, err := g.Rename(" Breakout ", "rsi breakout")
	require.NoError(t, err)
	assert.Equal(t, "Breakout", out.Name())
	assert.Equal(t, "rsi breakout", out.Description())

	_, err = g.Rename("", "")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestReconstruct_Integrity(t *testing.T) {
	a := newNode(t, "a1", catalog.TypeAssetSelector)
	s := newNode(t, "s1", catalog.TypeSMA)

	tests := []struct {
		name  string
		nodes []*entities.Node
		edges []*entities.Edge
		ok    bool
	}{
		{name: "consistent", nodes: []*entities.Node{a, s}, edges: []*entities.Edge{newEdge(t, "e", "a1", "data", "s1", "data")}, ok: true},
		{name: "dangling edge", nodes: []*entities.Node{a}, edges: []*entities.Edge{newEdge(t, "e", "a1", "data", "s1", "data")}},
		{name: "duplicate node", nodes: []*entities.Node{a, a}},
		{name: "bad port", nodes: []*entities.Node{a, s}, edges: []*entities.Edge{newEdge(t, "e", "a1", "result", "s1", "data")}},
		{
			name:  "duplicate edge id",
			nodes: []*entities.Node{a, s},
			edges: []*entities.Edge{newEdge(t, "e", "a1", "data", "s1", "data"), newEdge(t, "e", "a1", "data", "s1", "data")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Reconstruct(valueobjects.NewGraphID(), "x", "", tt.nodes, tt.edges, time.Time{}, time.Time{}, nil)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, len(tt.nodes), g.NodeCount())
				return
			}
			assert.True(t, pkgerrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestGraph_CloneAndEquals(t *testing.T) {
	g := buildGraph(t)
	c := g.Clone()
	assert.True(t, g.Equals(c))

	moved, err := c.MoveNode(valueobjects.MustNodeID("a1"), valueobjects.MustPosition(5, 5))
	require.NoError(t, err)
	assert.False(t, g.Equals(moved))
	assert.True(t, g.Equals(c))
}
