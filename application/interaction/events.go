package interaction

import (
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
)

// TargetKind identifies what a pointer event landed on
type TargetKind string

const (
	TargetCanvas     TargetKind = "canvas"
	TargetNode       TargetKind = "node"
	TargetInputPort  TargetKind = "input_port"
	TargetOutputPort TargetKind = "output_port"
	TargetEdge       TargetKind = "edge"
	TargetEdgeHandle TargetKind = "edge_handle"
)

// Target is the hit-test result the renderer reports with a pointer event.
// NodeID and Port are set for nodes and ports, EdgeID and End for edges and
// their endpoint handles.
type Target struct {
	Kind   TargetKind   `json:"kind" validate:"omitempty,oneof=canvas node input_port output_port edge edge_handle"`
	NodeID string       `json:"nodeId,omitempty"`
	Port   string       `json:"port,omitempty"`
	EdgeID string       `json:"edgeId,omitempty"`
	End    entities.End `json:"end,omitempty"`
}

// OnNode reports whether the target is a node body or one of its ports
func (t Target) OnNode() bool {
	switch t.Kind {
	case TargetNode, TargetInputPort, TargetOutputPort:
		return t.NodeID != ""
	}
	return false
}

// EventType names a gesture event
type EventType string

const (
	EventPointerDown EventType = "pointer_down"
	EventPointerMove EventType = "pointer_move"
	EventPointerUp   EventType = "pointer_up"
	EventClick       EventType = "click"
	EventDoubleClick EventType = "double_click"
	EventKey         EventType = "key"
	EventText        EventType = "text"
	EventBlur        EventType = "blur"
)

// Event is one gesture reported by the renderer. Which fields matter depends
// on Type.
type Event struct {
	Type   EventType `json:"type" validate:"required,oneof=pointer_down pointer_move pointer_up click double_click key text blur"`
	Target Target    `json:"target"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Key    KeyEvent  `json:"key"`
	Text   string    `json:"text,omitempty"`
}

// Point returns the event's canvas coordinates
func (e Event) Point() (valueobjects.Position, error) {
	return valueobjects.NewPosition(e.X, e.Y)
}

// KeyEvent is a key press. Primary is the platform's primary modifier
// (Ctrl, or Cmd on macOS); Shift is the secondary one. InEditable is set
// when focus is inside a text field.
type KeyEvent struct {
	Key        string `json:"key"`
	Primary    bool   `json:"primary"`
	Shift      bool   `json:"shift"`
	InEditable bool   `json:"inEditable"`
}
