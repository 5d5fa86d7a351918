// Package history keeps whole-graph snapshots for undo and redo.
package history

import (
	"strategy-editor/domain/core/aggregates"
)

// Manager holds the undo and redo stacks. It is not safe for concurrent use;
// the owning session serializes access.
type Manager struct {
	undo  []*aggregates.Graph
	redo  []*aggregates.Graph
	limit int
}

// NewManager creates a manager keeping at most limit undo snapshots.
// A limit of 0 keeps every snapshot.
func NewManager(limit int) *Manager {
	if limit < 0 {
		limit = 0
	}
	return &Manager{limit: limit}
}

// Record pushes a snapshot of the pre-mutation graph and clears redo
func (m *Manager) Record(pre *aggregates.Graph) {
	if pre == nil {
		return
	}
	m.undo = append(m.undo, pre.Clone())
	if m.limit > 0 && len(m.undo) > m.limit {
		m.undo = append([]*aggregates.Graph(nil), m.undo[len(m.undo)-m.limit:]...)
	}
	m.redo = nil
}

// Undo returns the graph to restore, moving current onto the redo stack.
// ok is false when there is nothing to undo.
func (m *Manager) Undo(current *aggregates.Graph) (*aggregates.Graph, bool) {
	if len(m.undo) == 0 {
		return current, false
	}
	prev := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, current.Clone())
	return prev, true
}

// Redo is the mirror of Undo
func (m *Manager) Redo(current *aggregates.Graph) (*aggregates.Graph, bool) {
	if len(m.redo) == 0 {
		return current, false
	}
	next := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, current.Clone())
	return next, true
}

func (m *Manager) CanUndo() bool  { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool  { return len(m.redo) > 0 }
func (m *Manager) UndoDepth() int { return len(m.undo) }
func (m *Manager) RedoDepth() int { return len(m.redo) }

// Clear drops both stacks, used when a strategy is loaded
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}
