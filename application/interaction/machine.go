// Package interaction turns raw gesture events into graph edits. It owns the
// gesture state (dragging, connecting, editing an edge endpoint, renaming)
// and nothing else: every edit goes through the Editor it drives.
package interaction

import (
	"strings"

	"go.uber.org/zap"

	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
	pkgerrors "strategy-editor/pkg/errors"
)

// Editor is the part of the editor session the state machine drives
type Editor interface {
	Node(id string) (*entities.Node, bool)
	SelectNode(id string) error
	SelectEdge(id string) error
	ClearSelection()
	SelectedNode() (string, bool)

	BeginDrag(id string) error
	DragTo(pos valueobjects.Position) error
	EndDrag() bool
	CancelDrag()

	Connect(sourceID, sourcePort, targetID, targetPort string) (*entities.Edge, error)
	RetargetEdge(edgeID string, end entities.End, nodeID, port string) error
	RemoveNode(id string) error
	RenameNode(id, name string) error

	Undo() bool
	Redo() bool
}

// StateKind names a gesture state
type StateKind string

const (
	StateIdle            StateKind = "idle"
	StateDraggingNode    StateKind = "dragging_node"
	StateConnecting      StateKind = "connecting_from_output"
	StateEditingEndpoint StateKind = "editing_connection_endpoint"
)

// State is the current gesture. NodeID is set while dragging or connecting,
// Port while connecting, EdgeID and End while editing an endpoint. End stays
// empty until the user picks one of the edge's handles.
type State struct {
	Kind   StateKind             `json:"kind"`
	NodeID string                `json:"nodeId,omitempty"`
	Port   string                `json:"port,omitempty"`
	EdgeID string                `json:"edgeId,omitempty"`
	End    entities.End          `json:"end,omitempty"`
	Offset valueobjects.Position `json:"offset"`
}

// Rename is the inline rename mode, separate from the gesture states
type Rename struct {
	NodeID string `json:"nodeId"`
	Draft  string `json:"draft"`
}

// Cursor is an affordance hint for the renderer
type Cursor string

const (
	CursorDefault   Cursor = "default"
	CursorGrabbing  Cursor = "grabbing"
	CursorCrosshair Cursor = "crosshair"
	CursorPointer   Cursor = "pointer"
	CursorText      Cursor = "text"
)

// GestureMetrics counts handled gestures
type GestureMetrics interface {
	RecordGesture(event string)
}

// Option configures a Machine
type Option func(*Machine)

// WithPersist sets what the primary+S shortcut runs
func WithPersist(fn func() error) Option {
	return func(m *Machine) { m.persist = fn }
}

// WithGestureMetrics sets the gesture counter
func WithGestureMetrics(gm GestureMetrics) Option {
	return func(m *Machine) { m.metrics = gm }
}

// Machine is the interaction state machine
type Machine struct {
	editor  Editor
	state   State
	rename  *Rename
	persist func() error
	metrics GestureMetrics
	logger  *zap.Logger
}

// NewMachine creates a machine in the idle state
func NewMachine(editor Editor, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		editor: editor,
		state:  State{Kind: StateIdle},
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current gesture state
func (m *Machine) State() State { return m.state }

// Renaming returns the inline rename in progress, if any
func (m *Machine) Renaming() (Rename, bool) {
	if m.rename == nil {
		return Rename{}, false
	}
	return *m.rename, true
}

// Cursor returns the cursor the renderer should show
func (m *Machine) Cursor() Cursor {
	if m.rename != nil {
		return CursorText
	}
	switch m.state.Kind {
	case StateDraggingNode:
		return CursorGrabbing
	case StateConnecting:
		return CursorCrosshair
	case StateEditingEndpoint:
		if m.state.End == entities.EndNone {
			return CursorPointer
		}
		return CursorCrosshair
	}
	return CursorDefault
}

// Handle dispatches one renderer event. The returned error is an edit the
// session rejected; the machine is back in a consistent state either way.
func (m *Machine) Handle(e Event) error {
	if m.metrics != nil {
		m.metrics.RecordGesture(string(e.Type))
	}
	switch e.Type {
	case EventPointerDown:
		p, err := e.Point()
		if err != nil {
			return err
		}
		return m.PointerDown(e.Target, p)
	case EventPointerMove:
		p, err := e.Point()
		if err != nil {
			return err
		}
		return m.PointerMove(p)
	case EventPointerUp:
		m.PointerUp()
		return nil
	case EventClick:
		return m.Click(e.Target)
	case EventDoubleClick:
		return m.DoubleClick(e.Target)
	case EventKey:
		return m.Key(e.Key)
	case EventText:
		m.TextInput(e.Text)
		return nil
	case EventBlur:
		return m.CommitRename()
	}
	return pkgerrors.NewValidationErrorf("unknown gesture event %q", e.Type)
}

// PointerDown on a node body in the idle state selects the node and starts
// dragging it. Everything else is left to the click that follows.
func (m *Machine) PointerDown(t Target, p valueobjects.Position) error {
	if err := m.blurRename(); err != nil {
		return err
	}
	if m.state.Kind != StateIdle || t.Kind != TargetNode {
		return nil
	}
	n, ok := m.editor.Node(t.NodeID)
	if !ok {
		return pkgerrors.NewNotFoundError("node " + t.NodeID)
	}
	if err := m.editor.SelectNode(t.NodeID); err != nil {
		return err
	}
	if err := m.editor.BeginDrag(t.NodeID); err != nil {
		return err
	}
	m.transition(State{Kind: StateDraggingNode, NodeID: t.NodeID, Offset: p.Sub(n.Position())})
	return nil
}

// PointerMove makes the dragged node follow the pointer
func (m *Machine) PointerMove(p valueobjects.Position) error {
	if m.state.Kind != StateDraggingNode {
		return nil
	}
	pos, err := p.Translate(-m.state.Offset.X(), -m.state.Offset.Y())
	if err != nil {
		return err
	}
	return m.editor.DragTo(pos)
}

// PointerUp ends a drag
func (m *Machine) PointerUp() {
	if m.state.Kind != StateDraggingNode {
		return
	}
	m.editor.EndDrag()
	m.transition(State{Kind: StateIdle})
}

// Click advances the connect and endpoint-edit gestures
func (m *Machine) Click(t Target) error {
	if err := m.blurRename(); err != nil {
		return err
	}
	switch m.state.Kind {
	case StateIdle:
		return m.clickIdle(t)
	case StateConnecting:
		return m.clickConnecting(t)
	case StateEditingEndpoint:
		return m.clickEditing(t)
	}
	return nil
}

func (m *Machine) clickIdle(t Target) error {
	switch t.Kind {
	case TargetCanvas:
		m.editor.ClearSelection()
	case TargetNode, TargetInputPort:
		return m.editor.SelectNode(t.NodeID)
	case TargetOutputPort:
		if _, ok := m.editor.Node(t.NodeID); !ok {
			return pkgerrors.NewNotFoundError("node " + t.NodeID)
		}
		m.transition(State{Kind: StateConnecting, NodeID: t.NodeID, Port: t.Port})
	case TargetEdge, TargetEdgeHandle:
		return m.startEndpointEdit(t)
	}
	return nil
}

func (m *Machine) clickConnecting(t Target) error {
	from := m.state
	m.transition(State{Kind: StateIdle})
	switch t.Kind {
	case TargetInputPort:
		_, err := m.editor.Connect(from.NodeID, from.Port, t.NodeID, t.Port)
		return err
	case TargetCanvas:
		m.editor.ClearSelection()
	}
	return nil
}

func (m *Machine) clickEditing(t Target) error {
	edit := m.state
	switch {
	case t.Kind == TargetEdgeHandle && t.EdgeID == edit.EdgeID:
		if t.End == entities.EndNone {
			return pkgerrors.NewValidationError("an edge handle must name its end")
		}
		edit.End = t.End
		m.transition(edit)
		return nil
	case t.Kind == TargetEdge || t.Kind == TargetEdgeHandle:
		return m.startEndpointEdit(t)
	case t.OnNode():
		m.transition(State{Kind: StateIdle})
		if edit.End == entities.EndNone {
			return m.editor.SelectNode(t.NodeID)
		}
		port := ""
		if (edit.End == entities.EndSource && t.Kind == TargetOutputPort) ||
			(edit.End == entities.EndTarget && t.Kind == TargetInputPort) {
			port = t.Port
		}
		return m.editor.RetargetEdge(edit.EdgeID, edit.End, t.NodeID, port)
	case t.Kind == TargetCanvas:
		m.transition(State{Kind: StateIdle})
		m.editor.ClearSelection()
	default:
		m.transition(State{Kind: StateIdle})
	}
	return nil
}

func (m *Machine) startEndpointEdit(t Target) error {
	if err := m.editor.SelectEdge(t.EdgeID); err != nil {
		m.transition(State{Kind: StateIdle})
		return err
	}
	end := entities.EndNone
	if t.Kind == TargetEdgeHandle {
		end = t.End
	}
	m.transition(State{Kind: StateEditingEndpoint, EdgeID: t.EdgeID, End: end})
	return nil
}

// DoubleClick on a node enters inline rename with the current name as draft
func (m *Machine) DoubleClick(t Target) error {
	if !t.OnNode() {
		return nil
	}
	n, ok := m.editor.Node(t.NodeID)
	if !ok {
		return pkgerrors.NewNotFoundError("node " + t.NodeID)
	}
	m.Cancel()
	if err := m.editor.SelectNode(t.NodeID); err != nil {
		return err
	}
	m.rename = &Rename{NodeID: t.NodeID, Draft: n.Name()}
	return nil
}

// TextInput replaces the rename draft
func (m *Machine) TextInput(text string) {
	if m.rename != nil {
		m.rename.Draft = text
	}
}

// CommitRename applies the rename draft. A blank draft is discarded.
func (m *Machine) CommitRename() error {
	r := m.rename
	if r == nil {
		return nil
	}
	m.rename = nil
	name := strings.TrimSpace(r.Draft)
	if name == "" {
		return nil
	}
	return m.editor.RenameNode(r.NodeID, name)
}

// CancelRename leaves rename mode without changing the node
func (m *Machine) CancelRename() {
	m.rename = nil
}

// blurRename commits a rename the user clicked away from
func (m *Machine) blurRename() error {
	if m.rename == nil {
		return nil
	}
	return m.CommitRename()
}

// Key handles keyboard shortcuts. They are ignored while focus is in an
// editable field; while renaming only Enter and Escape count.
func (m *Machine) Key(k KeyEvent) error {
	if m.rename != nil {
		switch k.Key {
		case "Enter":
			return m.CommitRename()
		case "Escape":
			m.CancelRename()
		}
		return nil
	}
	if k.InEditable {
		return nil
	}

	key := strings.ToLower(k.Key)
	switch {
	case k.Primary && key == "z" && k.Shift, k.Primary && key == "y":
		m.Cancel()
		m.editor.Redo()
	case k.Primary && key == "z":
		m.Cancel()
		m.editor.Undo()
	case k.Primary && key == "s":
		if m.persist == nil {
			return pkgerrors.NewUnavailableError("strategy persistence")
		}
		return m.persist()
	case !k.Primary && (k.Key == "Delete" || k.Key == "Backspace"):
		id, ok := m.editor.SelectedNode()
		if !ok {
			return nil
		}
		m.Cancel()
		return m.editor.RemoveNode(id)
	case k.Key == "Escape":
		m.Cancel()
	}
	return nil
}

// Cancel abandons the current gesture. A drag in progress is rolled back.
func (m *Machine) Cancel() {
	if m.state.Kind == StateDraggingNode {
		m.editor.CancelDrag()
	}
	m.transition(State{Kind: StateIdle})
}

func (m *Machine) transition(next State) {
	if next.Kind != m.state.Kind {
		m.logger.Debug("Interaction state changed",
			zap.String("from", string(m.state.Kind)),
			zap.String("to", string(next.Kind)),
		)
	}
	m.state = next
}
