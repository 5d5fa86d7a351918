package entities

import (
	"strings"

	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/valueobjects"
	pkgerrors "strategy-editor/pkg/errors"
)

// MaxNameLength bounds a node's display name
const MaxNameLength = 100

// Node is one typed processing step of a strategy.
// Nodes are immutable: the With* methods return modified copies, so a node
// value may be shared freely between graph versions and history snapshots.
type Node struct {
	id       valueobjects.NodeID
	nodeType catalog.NodeType
	name     string
	position valueobjects.Position
	config   catalog.Config
	inputs   []string
	outputs  []string
}

// NewNode creates a node of type t with the catalog's default configuration.
// An empty name falls back to the catalog label.
func NewNode(id valueobjects.NodeID, t catalog.NodeType, name string, position valueobjects.Position) (*Node, error) {
	cfg, err := catalog.Default(t)
	if err != nil {
		return nil, err
	}
	return ReconstructNode(id, t, name, position, cfg)
}

// ReconstructNode rebuilds a node from stored data. Ports always come from
// the catalog, never from the stored data.
func ReconstructNode(
	id valueobjects.NodeID,
	t catalog.NodeType,
	name string,
	position valueobjects.Position,
	cfg catalog.Config,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	entry, ok := catalog.Lookup(t)
	if !ok {
		return nil, pkgerrors.NewValidationErrorf("unknown node type %q", t)
	}
	if cfg == nil {
		cfg, _ = catalog.Default(t)
	}
	if cfg.NodeType() != t {
		return nil, pkgerrors.NewValidationErrorf("configuration for %s does not fit a %s node", cfg.NodeType(), t)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = entry.Label
	}
	if len(name) > MaxNameLength {
		return nil, pkgerrors.NewValidationErrorf("node name cannot exceed %d characters", MaxNameLength)
	}

	return &Node{
		id:       id,
		nodeType: t,
		name:     name,
		position: position,
		config:   cfg,
		inputs:   entry.Inputs,
		outputs:  entry.Outputs,
	}, nil
}

// Getters

func (n *Node) ID() valueobjects.NodeID         { return n.id }
func (n *Node) Type() catalog.NodeType          { return n.nodeType }
func (n *Node) Category() catalog.Category      { return n.nodeType.Category() }
func (n *Node) Name() string                    { return n.name }
func (n *Node) Position() valueobjects.Position { return n.position }
func (n *Node) Config() catalog.Config          { return n.config }

// Inputs returns a copy of the ordered input port names
func (n *Node) Inputs() []string { return append([]string(nil), n.inputs...) }

// Outputs returns a copy of the ordered output port names
func (n *Node) Outputs() []string { return append([]string(nil), n.outputs...) }

// HasInput reports whether port is an input port of the node
func (n *Node) HasInput(port string) bool { return containsPort(n.inputs, port) }

// HasOutput reports whether port is an output port of the node
func (n *Node) HasOutput(port string) bool { return containsPort(n.outputs, port) }

// ConfigMap exposes the configuration as an option-name to value mapping
func (n *Node) ConfigMap() map[string]any {
	m, err := catalog.ToMap(n.config)
	if err != nil {
		return map[string]any{}
	}
	return m
}

// WithName returns a copy carrying a new display name
func (n *Node) WithName(name string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("node name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return nil, pkgerrors.NewValidationErrorf("node name cannot exceed %d characters", MaxNameLength)
	}
	out := *n
	out.name = name
	return &out, nil
}

// WithPosition returns a copy at a new position
func (n *Node) WithPosition(p valueobjects.Position) *Node {
	out := *n
	out.position = p
	return &out
}

// WithConfig returns a copy using cfg, which must match the node type
func (n *Node) WithConfig(cfg catalog.Config) (*Node, error) {
	if cfg == nil || cfg.NodeType() != n.nodeType {
		return nil, pkgerrors.NewValidationErrorf("configuration does not fit a %s node", n.nodeType)
	}
	out := *n
	out.config = cfg
	return &out, nil
}

// WithID returns a copy under a different identifier, used by duplicate
func (n *Node) WithID(id valueobjects.NodeID) *Node {
	out := *n
	out.id = id
	return &out
}

// Equals compares every observable attribute of two nodes
func (n *Node) Equals(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.id.Equals(other.id) &&
		n.nodeType == other.nodeType &&
		n.name == other.name &&
		n.position.Equals(other.position) &&
		catalog.Equal(n.config, other.config)
}

// FirstInput returns the first input port, if any
func (n *Node) FirstInput() (string, bool) {
	if len(n.inputs) == 0 {
		return "", false
	}
	return n.inputs[0], true
}

// FirstOutput returns the first output port, if any
func (n *Node) FirstOutput() (string, bool) {
	if len(n.outputs) == 0 {
		return "", false
	}
	return n.outputs[0], true
}

func containsPort(ports []string, port string) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}
