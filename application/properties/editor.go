// Package properties stages configuration edits for one node and commits
// them to the editor session on confirm.
package properties

import (
	"strategy-editor/domain/core/aggregates"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/logic"
	pkgerrors "strategy-editor/pkg/errors"
)

// Host is the part of the editor session the properties editor needs
type Host interface {
	Node(id string) (*entities.Node, bool)
	Graph() *aggregates.Graph
	UpdateNode(id string, update aggregates.NodeUpdate) error
	RemoveNode(id string) error
}

// Editor holds the staged configuration of one node. Nothing reaches the
// graph until Confirm.
type Editor struct {
	host     Host
	nodeID   string
	nodeType catalog.NodeType
	original catalog.Config
	staged   catalog.Config
	closed   bool
}

// Open stages a copy of a node's configuration
func Open(host Host, nodeID string) (*Editor, error) {
	n, ok := host.Node(nodeID)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + nodeID)
	}
	staged, err := catalog.Merge(n.Config(), nil)
	if err != nil {
		return nil, err
	}
	return &Editor{
		host:     host,
		nodeID:   nodeID,
		nodeType: n.Type(),
		original: n.Config(),
		staged:   staged,
	}, nil
}

func (e *Editor) NodeID() string             { return e.nodeID }
func (e *Editor) NodeType() catalog.NodeType { return e.nodeType }
func (e *Editor) Staged() catalog.Config     { return e.staged }

// Dirty reports whether staged edits differ from the node's configuration
func (e *Editor) Dirty() bool {
	return !catalog.Equal(e.original, e.staged)
}

// Set stages one option. The value must fit the option's type; range
// checks wait until Confirm.
func (e *Editor) Set(name string, value any) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, known := fieldNames(e.nodeType)[name]; !known {
		return pkgerrors.NewValidationErrorf("%s has no option %q", e.nodeType, name)
	}
	next, err := catalog.Merge(e.staged, map[string]any{name: value})
	if err != nil {
		return err
	}
	e.staged = next
	return nil
}

// SetAll stages several options at once
func (e *Editor) SetAll(values map[string]any) error {
	for name := range values {
		if _, known := fieldNames(e.nodeType)[name]; !known {
			return pkgerrors.NewValidationErrorf("%s has no option %q", e.nodeType, name)
		}
	}
	if err := e.checkOpen(); err != nil {
		return err
	}
	next, err := catalog.Merge(e.staged, values)
	if err != nil {
		return err
	}
	e.staged = next
	return nil
}

// Logic returns the expression editor of a logic gate
func (e *Editor) Logic() (*LogicEditor, bool) {
	if _, ok := catalog.LogicTree(e.staged); !ok {
		return nil, false
	}
	return &LogicEditor{editor: e}, true
}

// OperandChoice is one entry of an operand picker
type OperandChoice struct {
	Label   string `json:"label"`
	NodeID  string `json:"nodeId,omitempty"`
	Port    string `json:"port,omitempty"`
	Literal bool   `json:"literal,omitempty"`
}

// Operand converts the choice, using literal for the literal entry
func (c OperandChoice) Operand(literal string) logic.Operand {
	if c.Literal {
		return logic.ParseLiteral(literal)
	}
	return logic.Ref(c.NodeID, c.Port)
}

// OperandChoices lists the outputs of every other node, then the literal mode
func (e *Editor) OperandChoices() []OperandChoice {
	var out []OperandChoice
	for _, n := range e.host.Graph().Nodes() {
		if n.ID().String() == e.nodeID {
			continue
		}
		for _, port := range n.Outputs() {
			out = append(out, OperandChoice{
				Label:  n.Name() + "." + port,
				NodeID: n.ID().String(),
				Port:   port,
			})
		}
	}
	return append(out, OperandChoice{Label: "Constant value", Literal: true})
}

// Confirm validates the staged configuration and commits it as one history
// step. An unchanged configuration commits nothing. The editor stays open
// when validation fails.
func (e *Editor) Confirm() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := catalog.Validate(e.staged); err != nil {
		return err
	}
	n, ok := e.host.Node(e.nodeID)
	if !ok {
		e.closed = true
		return pkgerrors.NewNotFoundError("node " + e.nodeID)
	}
	if n.Type() != e.nodeType {
		e.closed = true
		return pkgerrors.NewConflictError("node type changed while its properties were open")
	}
	if !catalog.Equal(n.Config(), e.staged) {
		if err := e.host.UpdateNode(e.nodeID, aggregates.NodeUpdate{Config: e.staged}); err != nil {
			return err
		}
	}
	e.closed = true
	return nil
}

// Cancel discards every staged edit
func (e *Editor) Cancel() {
	e.staged = e.original
	e.closed = true
}

// Delete removes the node from the graph and closes the editor
func (e *Editor) Delete() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := e.host.RemoveNode(e.nodeID); err != nil {
		return err
	}
	e.closed = true
	return nil
}

// Closed reports whether the editor was confirmed, cancelled or deleted
func (e *Editor) Closed() bool { return e.closed }

func (e *Editor) checkOpen() error {
	if e.closed {
		return pkgerrors.NewConflictError("properties editor is closed")
	}
	return nil
}
