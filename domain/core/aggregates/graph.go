package aggregates

import (
	"fmt"
	"strings"
	"time"

	"strategy-editor/domain/config"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
	pkgerrors "strategy-editor/pkg/errors"
)

// Graph is the aggregate root for a strategy: ordered nodes, ordered edges
// and the strategy's identity.
//
// A Graph is a value. Every mutating method returns a new *Graph and leaves
// the receiver untouched; nodes and edges are themselves immutable and are
// shared between versions. That makes Clone cheap and history snapshots safe.
type Graph struct {
	id          valueobjects.GraphID
	name        string
	description string
	nodes       []*entities.Node
	edges       []*entities.Edge
	createdAt   time.Time
	updatedAt   time.Time
	rules       *config.DomainConfig
}

// NodeUpdate merges into an existing node. Nil fields are left unchanged.
// Config replaces the configuration outright; ConfigPatch merges option
// values into it. Both may be set, Config applies first.
type NodeUpdate struct {
	Name        *string
	Position    *valueobjects.Position
	Config      catalog.Config
	ConfigPatch map[string]any
}

// IsEmpty reports whether the update would change nothing
func (u NodeUpdate) IsEmpty() bool {
	return u.Name == nil && u.Position == nil && u.Config == nil && len(u.ConfigPatch) == 0
}

// NewGraph creates an empty strategy
func NewGraph(id valueobjects.GraphID, name string, rules *config.DomainConfig) *Graph {
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	if id.IsZero() {
		id = valueobjects.NewGraphID()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = rules.DefaultGraphName
	}
	now := time.Now().UTC()
	return &Graph{
		id:        id,
		name:      name,
		nodes:     []*entities.Node{},
		edges:     []*entities.Edge{},
		createdAt: now,
		updatedAt: now,
		rules:     rules,
	}
}

// Reconstruct rebuilds a graph from stored data and checks its integrity
func Reconstruct(
	id valueobjects.GraphID,
	name, description string,
	nodes []*entities.Node,
	edges []*entities.Edge,
	createdAt, updatedAt time.Time,
	rules *config.DomainConfig,
) (*Graph, error) {
	g := NewGraph(id, name, rules)
	g.description = description
	g.nodes = append([]*entities.Node{}, nodes...)
	g.edges = append([]*entities.Edge{}, edges...)
	if !createdAt.IsZero() {
		g.createdAt = createdAt
	}
	if !updatedAt.IsZero() {
		g.updatedAt = updatedAt
	}
	if err := g.CheckIntegrity(); err != nil {
		return nil, err
	}
	return g, nil
}

// Getters

func (g *Graph) ID() valueobjects.GraphID    { return g.id }
func (g *Graph) Name() string                { return g.name }
func (g *Graph) Description() string         { return g.description }
func (g *Graph) CreatedAt() time.Time        { return g.createdAt }
func (g *Graph) UpdatedAt() time.Time        { return g.updatedAt }
func (g *Graph) Rules() *config.DomainConfig { return g.rules }
func (g *Graph) NodeCount() int              { return len(g.nodes) }
func (g *Graph) EdgeCount() int              { return len(g.edges) }
func (g *Graph) IsEmpty() bool               { return len(g.nodes) == 0 }

// Nodes returns the nodes in insertion order
func (g *Graph) Nodes() []*entities.Node {
	return append([]*entities.Node{}, g.nodes...)
}

// Edges returns the edges in insertion order
func (g *Graph) Edges() []*entities.Edge {
	return append([]*entities.Edge{}, g.edges...)
}

// Node looks up a node by id
func (g *Graph) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	i := g.nodeIndex(id)
	if i < 0 {
		return nil, false
	}
	return g.nodes[i], true
}

// GetNode is Node returning a not-found error
func (g *Graph) GetNode(id valueobjects.NodeID) (*entities.Node, error) {
	if n, ok := g.Node(id); ok {
		return n, nil
	}
	return nil, pkgerrors.NewNotFoundError("node " + id.String())
}

// HasNode checks if a node exists in the graph
func (g *Graph) HasNode(id valueobjects.NodeID) bool {
	return g.nodeIndex(id) >= 0
}

// Edge looks up an edge by id
func (g *Graph) Edge(id valueobjects.EdgeID) (*entities.Edge, bool) {
	i := g.edgeIndex(id)
	if i < 0 {
		return nil, false
	}
	return g.edges[i], true
}

// GetEdge is Edge returning a not-found error
func (g *Graph) GetEdge(id valueobjects.EdgeID) (*entities.Edge, error) {
	if e, ok := g.Edge(id); ok {
		return e, nil
	}
	return nil, pkgerrors.NewNotFoundError("edge " + id.String())
}

// IncidentEdges returns every edge touching the node
func (g *Graph) IncidentEdges(id valueobjects.NodeID) []*entities.Edge {
	var out []*entities.Edge
	for _, e := range g.edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// Degree counts the edges touching the node
func (g *Graph) Degree(id valueobjects.NodeID) int {
	n := 0
	for _, e := range g.edges {
		if e.Touches(id) {
			n++
		}
	}
	return n
}

// NodesOfCategory returns the nodes whose type belongs to c
func (g *Graph) NodesOfCategory(c catalog.Category) []*entities.Node {
	var out []*entities.Node
	for _, n := range g.nodes {
		if n.Category() == c {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns an independent snapshot of the graph
func (g *Graph) Clone() *Graph {
	out := *g
	out.nodes = append([]*entities.Node{}, g.nodes...)
	out.edges = append([]*entities.Edge{}, g.edges...)
	return &out
}

// WithRules returns a copy that enforces different domain rules
func (g *Graph) WithRules(rules *config.DomainConfig) *Graph {
	out := g.Clone()
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	out.rules = rules
	return out
}

// AddNode appends a node. Its id must be unused.
func (g *Graph) AddNode(node *entities.Node) (*Graph, error) {
	if node == nil {
		return nil, pkgerrors.NewValidationError("node cannot be nil")
	}
	if g.HasNode(node.ID()) {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("node %s already exists", node.ID()))
	}
	if g.rules.MaxNodesPerGraph > 0 && len(g.nodes) >= g.rules.MaxNodesPerGraph {
		return nil, pkgerrors.NewValidationErrorf("graph has reached maximum capacity of %d nodes", g.rules.MaxNodesPerGraph)
	}
	out := g.touch()
	out.nodes = make([]*entities.Node, 0, len(g.nodes)+1)
	out.nodes = append(append(out.nodes, g.nodes...), node)
	return out, nil
}

// RemoveNode removes a node and, in the same step, every edge touching it
func (g *Graph) RemoveNode(id valueobjects.NodeID) (*Graph, error) {
	i := g.nodeIndex(id)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}
	out := g.touch()
	out.nodes = append(append([]*entities.Node{}, g.nodes[:i]...), g.nodes[i+1:]...)
	out.edges = make([]*entities.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if !e.Touches(id) {
			out.edges = append(out.edges, e)
		}
	}
	return out, nil
}

// UpdateNode merges name, position and configuration changes into a node
func (g *Graph) UpdateNode(id valueobjects.NodeID, update NodeUpdate) (*Graph, error) {
	i := g.nodeIndex(id)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}
	node := g.nodes[i]
	var err error

	if update.Name != nil {
		if node, err = node.WithName(*update.Name); err != nil {
			return nil, err
		}
	}
	if update.Position != nil {
		node = node.WithPosition(*update.Position)
	}
	if update.Config != nil {
		if node, err = node.WithConfig(update.Config); err != nil {
			return nil, err
		}
	}
	if len(update.ConfigPatch) > 0 {
		merged, err := catalog.Merge(node.Config(), update.ConfigPatch)
		if err != nil {
			return nil, err
		}
		if node, err = node.WithConfig(merged); err != nil {
			return nil, err
		}
	}

	return g.replaceNodeAt(i, node), nil
}

// MoveNode is the position-only path used while dragging. It does no work
// beyond copying the node slice.
func (g *Graph) MoveNode(id valueobjects.NodeID, position valueobjects.Position) (*Graph, error) {
	i := g.nodeIndex(id)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}
	return g.replaceNodeAt(i, g.nodes[i].WithPosition(position)), nil
}

// AddEdge appends an edge after checking its endpoints and the edge policy
func (g *Graph) AddEdge(edge *entities.Edge) (*Graph, error) {
	if edge == nil {
		return nil, pkgerrors.NewValidationError("edge cannot be nil")
	}
	if g.edgeIndex(edge.ID()) >= 0 {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("edge %s already exists", edge.ID()))
	}
	if g.rules.MaxEdgesPerGraph > 0 && len(g.edges) >= g.rules.MaxEdgesPerGraph {
		return nil, pkgerrors.NewValidationErrorf("graph has reached maximum capacity of %d edges", g.rules.MaxEdgesPerGraph)
	}
	if err := g.checkEdge(edge); err != nil {
		return nil, err
	}
	out := g.touch()
	out.edges = make([]*entities.Edge, 0, len(g.edges)+1)
	out.edges = append(append(out.edges, g.edges...), edge)
	return out, nil
}

// Connect creates and adds an edge with a fresh id
func (g *Graph) Connect(sourceID valueobjects.NodeID, sourcePort string, targetID valueobjects.NodeID, targetPort string) (*Graph, *entities.Edge, error) {
	edge, err := entities.NewEdge(valueobjects.NewEdgeID(), sourceID, sourcePort, targetID, targetPort)
	if err != nil {
		return nil, nil, err
	}
	out, err := g.AddEdge(edge)
	if err != nil {
		return nil, nil, err
	}
	return out, edge, nil
}

// RemoveEdge removes an edge by id
func (g *Graph) RemoveEdge(id valueobjects.EdgeID) (*Graph, error) {
	i := g.edgeIndex(id)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("edge " + id.String())
	}
	out := g.touch()
	out.edges = append(append([]*entities.Edge{}, g.edges[:i]...), g.edges[i+1:]...)
	return out, nil
}

// RetargetEdge moves one end of an edge to another node. The edge keeps its
// id, its position in the edge order and its other end.
//
// The port on the new node is port when given, otherwise the port of the
// same name when the new node has one, otherwise the node's first port on
// that side.
func (g *Graph) RetargetEdge(edgeID valueobjects.EdgeID, end entities.End, nodeID valueobjects.NodeID, port string) (*Graph, error) {
	i := g.edgeIndex(edgeID)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("edge " + edgeID.String())
	}
	edge := g.edges[i]
	node, ok := g.Node(nodeID)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + nodeID.String())
	}

	var current string
	switch end {
	case entities.EndSource:
		current = edge.SourcePort()
	case entities.EndTarget:
		current = edge.TargetPort()
	default:
		return nil, pkgerrors.NewValidationError("an edge end must be chosen before re-targeting")
	}

	resolved, err := resolvePort(node, end, port, current)
	if err != nil {
		return nil, err
	}
	moved, err := edge.WithEnd(end, nodeID, resolved)
	if err != nil {
		return nil, err
	}
	if err := g.checkEdge(moved); err != nil {
		return nil, err
	}

	out := g.touch()
	out.edges = append([]*entities.Edge{}, g.edges...)
	out.edges[i] = moved
	return out, nil
}

// Rename changes the strategy's name and description
func (g *Graph) Rename(name, description string) (*Graph, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("strategy name cannot be empty")
	}
	out := g.touch()
	out.name = name
	out.description = strings.TrimSpace(description)
	return out, nil
}

// CheckIntegrity reports the first structural violation: duplicate ids,
// dangling edges or ports that do not exist on their node.
func (g *Graph) CheckIntegrity() error {
	seenNodes := make(map[valueobjects.NodeID]*entities.Node, len(g.nodes))
	for _, n := range g.nodes {
		if n == nil {
			return pkgerrors.NewValidationError("graph contains an empty node")
		}
		if _, dup := seenNodes[n.ID()]; dup {
			return pkgerrors.NewValidationErrorf("duplicate node id %s", n.ID())
		}
		seenNodes[n.ID()] = n
	}

	seenEdges := make(map[valueobjects.EdgeID]bool, len(g.edges))
	for _, e := range g.edges {
		if e == nil {
			return pkgerrors.NewValidationError("graph contains an empty edge")
		}
		if seenEdges[e.ID()] {
			return pkgerrors.NewValidationErrorf("duplicate edge id %s", e.ID())
		}
		seenEdges[e.ID()] = true

		src, ok := seenNodes[e.SourceID()]
		if !ok {
			return pkgerrors.NewValidationErrorf("edge %s references missing source node %s", e.ID(), e.SourceID())
		}
		tgt, ok := seenNodes[e.TargetID()]
		if !ok {
			return pkgerrors.NewValidationErrorf("edge %s references missing target node %s", e.ID(), e.TargetID())
		}
		if !src.HasOutput(e.SourcePort()) {
			return pkgerrors.NewValidationErrorf("edge %s uses unknown output port %q of %s", e.ID(), e.SourcePort(), e.SourceID())
		}
		if !tgt.HasInput(e.TargetPort()) {
			return pkgerrors.NewValidationErrorf("edge %s uses unknown input port %q of %s", e.ID(), e.TargetPort(), e.TargetID())
		}
	}
	return nil
}

// Equals compares identity, metadata, nodes and edges in order. Timestamps
// are ignored.
func (g *Graph) Equals(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	if !g.id.Equals(other.id) || g.name != other.name || g.description != other.description ||
		len(g.nodes) != len(other.nodes) || len(g.edges) != len(other.edges) {
		return false
	}
	for i := range g.nodes {
		if !g.nodes[i].Equals(other.nodes[i]) {
			return false
		}
	}
	for i := range g.edges {
		if !g.edges[i].Equals(other.edges[i]) {
			return false
		}
	}
	return true
}

// checkEdge validates endpoints and the self-loop/duplicate policy. An edge
// with the same id as edge is not considered a duplicate of it.
func (g *Graph) checkEdge(edge *entities.Edge) error {
	src, ok := g.Node(edge.SourceID())
	if !ok {
		return pkgerrors.NewNotFoundError("source node " + edge.SourceID().String())
	}
	tgt, ok := g.Node(edge.TargetID())
	if !ok {
		return pkgerrors.NewNotFoundError("target node " + edge.TargetID().String())
	}
	if !src.HasOutput(edge.SourcePort()) {
		return pkgerrors.NewValidationErrorf("%q is not an output port of %s", edge.SourcePort(), src.Name())
	}
	if !tgt.HasInput(edge.TargetPort()) {
		return pkgerrors.NewValidationErrorf("%q is not an input port of %s", edge.TargetPort(), tgt.Name())
	}
	if edge.IsSelfLoop() && !g.rules.AllowSelfConnections {
		return pkgerrors.NewValidationError("cannot connect a node to itself").WithCode(pkgerrors.CodeSelfLoop)
	}
	if !g.rules.AllowDuplicateEdges {
		for _, e := range g.edges {
			if !e.ID().Equals(edge.ID()) && e.SameEndpoints(edge) {
				return pkgerrors.NewConflictError("these ports are already connected").WithCode(pkgerrors.CodeDuplicateEdge)
			}
		}
	}
	return nil
}

func resolvePort(node *entities.Node, end entities.End, requested, current string) (string, error) {
	has, first := node.HasInput, node.FirstInput
	side := "input"
	if end == entities.EndSource {
		has, first, side = node.HasOutput, node.FirstOutput, "output"
	}
	if requested != "" {
		if !has(requested) {
			return "", pkgerrors.NewValidationErrorf("%q is not an %s port of %s", requested, side, node.Name())
		}
		return requested, nil
	}
	if has(current) {
		return current, nil
	}
	if port, ok := first(); ok {
		return port, nil
	}
	return "", pkgerrors.NewValidationErrorf("%s has no %s ports", node.Name(), side)
}

func (g *Graph) replaceNodeAt(i int, node *entities.Node) *Graph {
	out := g.touch()
	out.nodes = append([]*entities.Node{}, g.nodes...)
	out.nodes[i] = node
	return out
}

// touch copies the header and bumps updatedAt. Slices are shared until the
// caller replaces them.
func (g *Graph) touch() *Graph {
	out := *g
	out.updatedAt = time.Now().UTC()
	return &out
}

func (g *Graph) nodeIndex(id valueobjects.NodeID) int {
	for i, n := range g.nodes {
		if n.ID().Equals(id) {
			return i
		}
	}
	return -1
}

func (g *Graph) edgeIndex(id valueobjects.EdgeID) int {
	for i, e := range g.edges {
		if e.ID().Equals(id) {
			return i
		}
	}
	return -1
}
