package session

import (
	pkgerrors "strategy-editor/pkg/errors"
)

var errNilGraph = pkgerrors.NewValidationError("graph cannot be nil")

// Selection is the node or edge the user has selected. At most one of the
// two ids is set. It is never part of a history snapshot.
type Selection struct {
	NodeID string `json:"nodeId,omitempty"`
	EdgeID string `json:"edgeId,omitempty"`
}

// IsEmpty reports whether nothing is selected
func (s Selection) IsEmpty() bool {
	return s.NodeID == "" && s.EdgeID == ""
}

// SelectNode selects a node of the current graph
func (s *Session) SelectNode(id string) error {
	if !s.nodeExists(id) {
		return pkgerrors.NewNotFoundError("node " + id)
	}
	s.selection = Selection{NodeID: id}
	return nil
}

// SelectEdge selects an edge of the current graph
func (s *Session) SelectEdge(id string) error {
	if !s.edgeExists(id) {
		return pkgerrors.NewNotFoundError("edge " + id)
	}
	s.selection = Selection{EdgeID: id}
	return nil
}

// ClearSelection selects nothing
func (s *Session) ClearSelection() {
	s.selection = Selection{}
}

// SelectedNode returns the selected node, if a node is selected
func (s *Session) SelectedNode() (string, bool) {
	return s.selection.NodeID, s.selection.NodeID != ""
}
