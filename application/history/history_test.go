package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-editor/domain/core/aggregates"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
)

// mutate records g and returns it with one more node
func mutate(t *testing.T, m *Manager, g *aggregates.Graph, i int) *aggregates.Graph {
	t.Helper()
	n, err := entities.NewNode(valueobjects.MustNodeID(fmt.Sprintf("n%d", i)), catalog.TypeSMA, "", valueobjects.MustPosition(float64(i), 0))
	require.NoError(t, err)
	m.Record(g)
	out, err := g.AddNode(n)
	require.NoError(t, err)
	return out
}

func TestManager_UndoRedoRoundTrip(t *testing.T) {
	m := NewManager(0)
	g := aggregates.NewGraph(valueobjects.NewGraphID(), "", nil)

	states := []*aggregates.Graph{g}
	for i := 0; i < 5; i++ {
		g = mutate(t, m, g, i)
		states = append(states, g)
	}
	final := g

	for round := 0; round < 3; round++ {
		for i := len(states) - 2; i >= 0; i-- {
			var ok bool
			g, ok = m.Undo(g)
			require.True(t, ok)
			assert.True(t, states[i].Equals(g), "undo to state %d", i)
		}
		_, ok := m.Undo(g)
		assert.False(t, ok, "undo stack exhausted")

		for i := 1; i < len(states); i++ {
			var ok bool
			g, ok = m.Redo(g)
			require.True(t, ok)
			assert.True(t, states[i].Equals(g), "redo to state %d", i)
		}
		_, ok = m.Redo(g)
		assert.False(t, ok)
	}
	assert.True(t, final.Equals(g))
}

func TestManager_RecordClearsRedo(t *testing.T) {
	m := NewManager(0)
	g := aggregates.NewGraph(valueobjects.NewGraphID(), "", nil)
	g = mutate(t, m, g, 0)
	g = mutate(t, m, g, 1)

	g, ok := m.Undo(g)
	require.True(t, ok)
	assert.True(t, m.CanRedo())

	_ = mutate(t, m, g, 2)
	assert.False(t, m.CanRedo())
	assert.Equal(t, 2, m.UndoDepth())
}

func TestManager_EmptyIsNoop(t *testing.T) {
	m := NewManager(0)
	g := aggregates.NewGraph(valueobjects.NewGraphID(), "", nil)

	out, ok := m.Undo(g)
	assert.False(t, ok)
	assert.Same(t, g, out)

	out, ok = m.Redo(g)
	assert.False(t, ok)
	assert.Same(t, g, out)
	assert.False(t, m.CanUndo())
}

func TestManager_Limit(t *testing.T) {
	m := NewManager(2)
	g := aggregates.NewGraph(valueobjects.NewGraphID(), "", nil)
	for i := 0; i < 4; i++ {
		g = mutate(t, m, g, i)
	}
	assert.Equal(t, 2, m.UndoDepth())

	g, _ = m.Undo(g)
	g, _ = m.Undo(g)
	assert.Equal(t, 2, g.NodeCount(), "oldest snapshots were dropped")
	assert.False(t, m.CanUndo())
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(0)
	g := aggregates.NewGraph(valueobjects.NewGraphID(), "", nil)
	g = mutate(t, m, g, 0)
	_, _ = m.Undo(g)

	m.Clear()
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}
