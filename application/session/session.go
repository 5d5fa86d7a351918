// Package session holds the editor session: the single owner of the strategy
// graph, its undo history, the current selection and the latest validation
// report. Every mutation entry point goes through a Session.
//
// A Session is not safe for concurrent use. The host calls it from one
// goroutine; only Save touches shared state from elsewhere, through the
// saving flag and the listener list.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"strategy-editor/application/history"
	"strategy-editor/application/ports"
	"strategy-editor/domain/config"
	"strategy-editor/domain/core/aggregates"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
	"strategy-editor/domain/events"
	"strategy-editor/domain/validation"
)

// Listener receives the events a session raises
type Listener func(events.DomainEvent)

// Metrics is what the session reports to the metrics backend
type Metrics interface {
	RecordMutation(m events.Mutation)
	RecordHistory(direction string)
	RecordValidation(valid bool, errs, warnings int)
	RecordSave(source ports.SaveSource, err error)
	RecordSubmit(err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordMutation(events.Mutation)     {}
func (noopMetrics) RecordHistory(string)               {}
func (noopMetrics) RecordValidation(bool, int, int)    {}
func (noopMetrics) RecordSave(ports.SaveSource, error) {}
func (noopMetrics) RecordSubmit(error)                 {}

// Option configures optional collaborators of a Session
type Option func(*Session)

// WithRepository sets the persistence adapter used by Save and LoadFromStore
func WithRepository(repo ports.StrategyRepository) Option {
	return func(s *Session) { s.repo = repo }
}

// WithAutosaver sets the background writer notified after each commit
func WithAutosaver(a ports.Autosaver) Option {
	return func(s *Session) { s.autosaver = a }
}

// WithPublisher sets the publisher used by Submit
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Session) { s.publisher = p }
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the owned editor store
type Session struct {
	graph     *aggregates.Graph
	history   *history.Manager
	rules     *config.DomainConfig
	selection Selection
	report    validation.Report
	drag      *dragState

	saving atomic.Bool

	mu        sync.RWMutex
	listeners []Listener

	repo      ports.StrategyRepository
	autosaver ports.Autosaver
	publisher ports.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type dragState struct {
	nodeID valueobjects.NodeID
	start  valueobjects.Position
	pre    *aggregates.Graph
}

// New creates a session holding an empty strategy
func New(rules *config.DomainConfig, logger *zap.Logger, opts ...Option) *Session {
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		rules:   rules,
		history: history.NewManager(rules.HistoryLimit),
		metrics: noopMetrics{},
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.graph = aggregates.NewGraph(valueobjects.NewGraphID(), "", rules)
	s.revalidate()
	return s
}

// Subscribe registers l for every event raised from now on
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Accessors

func (s *Session) Graph() *aggregates.Graph    { return s.graph }
func (s *Session) Report() validation.Report   { return s.report }
func (s *Session) IsValid() bool               { return s.report.IsValid() }
func (s *Session) Selection() Selection        { return s.selection }
func (s *Session) Rules() *config.DomainConfig { return s.rules }
func (s *Session) CanUndo() bool               { return s.history.CanUndo() }
func (s *Session) CanRedo() bool               { return s.history.CanRedo() }
func (s *Session) Saving() bool                { return s.saving.Load() }
func (s *Session) Dragging() bool              { return s.drag != nil }

// HistoryDepth returns the sizes of the undo and redo stacks
func (s *Session) HistoryDepth() (undo, redo int) {
	return s.history.UndoDepth(), s.history.RedoDepth()
}

// SetRules swaps the editing rules, for instance after the rules file was
// reloaded. The history is kept; the graph is revalidated.
func (s *Session) SetRules(rules *config.DomainConfig) {
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	s.rules = rules
	s.graph = s.graph.WithRules(rules)
	s.revalidate()
	s.logger.Info("Editor rules updated",
		zap.Int("maxNodes", rules.MaxNodesPerGraph),
		zap.Int("historyLimit", rules.HistoryLimit),
	)
}

// apply runs op against the current graph and, on success, commits its
// result as one undoable step
func (s *Session) apply(m events.Mutation, nodeID, edgeID string, op func(*aggregates.Graph) (*aggregates.Graph, error)) error {
	s.finishDrag()
	next, err := op(s.graph)
	if err != nil {
		s.logger.Debug("Mutation rejected",
			zap.String("mutation", string(m)),
			zap.String("nodeID", nodeID),
			zap.String("edgeID", edgeID),
			zap.Error(err),
		)
		return err
	}
	s.commit(s.graph, next, m, nodeID, edgeID)
	return nil
}

func (s *Session) commit(pre, next *aggregates.Graph, m events.Mutation, nodeID, edgeID string) {
	s.history.Record(pre)
	s.graph = next
	s.pruneSelection()
	s.metrics.RecordMutation(m)
	s.emit(events.NewGraphChanged(s.graph.ID().String(), m, nodeID, edgeID, s.now()))
	s.revalidate()
	s.scheduleAutosave()
}

func (s *Session) revalidate() {
	s.report = validation.Validate(s.graph, s.rules)
	errs, warnings := s.report.Errors(), s.report.Warnings()
	s.metrics.RecordValidation(s.report.IsValid(), errs, warnings)
	s.emit(events.NewGraphValidated(s.graph.ID().String(), s.report.IsValid(), errs, warnings, s.now()))
}

func (s *Session) emit(e events.DomainEvent) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(e)
	}
}

// finishDrag commits a drag interrupted by another mutation
func (s *Session) finishDrag() {
	if s.drag != nil {
		s.EndDrag()
	}
}

// pruneSelection drops a selection that no longer resolves
func (s *Session) pruneSelection() {
	switch {
	case s.selection.NodeID != "":
		if !s.graph.HasNode(valueobjects.MustNodeID(s.selection.NodeID)) {
			s.selection = Selection{}
		}
	case s.selection.EdgeID != "":
		if _, ok := s.graph.Edge(valueobjects.MustEdgeID(s.selection.EdgeID)); !ok {
			s.selection = Selection{}
		}
	}
}

// Undo restores the previous snapshot. It reports false when there was
// nothing to undo. The selection is cleared either way.
func (s *Session) Undo() bool {
	return s.moveHistory("undo", s.history.Undo)
}

// Redo mirrors Undo
func (s *Session) Redo() bool {
	return s.moveHistory("redo", s.history.Redo)
}

func (s *Session) moveHistory(direction string, step func(*aggregates.Graph) (*aggregates.Graph, bool)) bool {
	s.CancelDrag()
	s.selection = Selection{}
	next, ok := step(s.graph)
	if !ok {
		return false
	}
	s.graph = next.WithRules(s.rules)
	s.metrics.RecordHistory(direction)
	s.emit(events.NewHistoryMoved(s.graph.ID().String(), direction, s.now()))
	s.revalidate()
	s.scheduleAutosave()
	return true
}

// ReplaceGraph swaps in a whole graph as one undoable step
func (s *Session) ReplaceGraph(g *aggregates.Graph) error {
	return s.apply(events.MutationReplace, "", "", func(*aggregates.Graph) (*aggregates.Graph, error) {
		return checked(g, s.rules)
	})
}

// Clear starts a new, empty strategy. The old one stays reachable by undo.
func (s *Session) Clear() error {
	return s.apply(events.MutationClear, "", "", func(*aggregates.Graph) (*aggregates.Graph, error) {
		return aggregates.NewGraph(valueobjects.NewGraphID(), "", s.rules), nil
	})
}

// Reset replaces the graph and drops all history, the way opening a stored
// strategy does
func (s *Session) Reset(g *aggregates.Graph) error {
	next, err := checked(g, s.rules)
	if err != nil {
		return err
	}
	s.drag = nil
	s.history.Clear()
	s.graph = next
	s.selection = Selection{}
	s.revalidate()
	return nil
}

func checked(g *aggregates.Graph, rules *config.DomainConfig) (*aggregates.Graph, error) {
	if g == nil {
		return nil, errNilGraph
	}
	g = g.WithRules(rules)
	if err := g.CheckIntegrity(); err != nil {
		return nil, err
	}
	return g, nil
}

// Rename changes the strategy name and description
func (s *Session) Rename(name, description string) error {
	return s.apply(events.MutationRename, "", "", func(g *aggregates.Graph) (*aggregates.Graph, error) {
		return g.Rename(name, description)
	})
}

// edgeExists is used by callers validating a selection target
func (s *Session) edgeExists(id string) bool {
	eid, err := valueobjects.NewEdgeIDFromString(id)
	if err != nil {
		return false
	}
	_, ok := s.graph.Edge(eid)
	return ok
}

// nodeExists is the node counterpart of edgeExists
func (s *Session) nodeExists(id string) bool {
	nid, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return false
	}
	return s.graph.HasNode(nid)
}

// Node looks up a node of the current graph by its string id
func (s *Session) Node(id string) (*entities.Node, bool) {
	nid, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return nil, false
	}
	return s.graph.Node(nid)
}
