// Package events defines what the editor session reports after each change.
package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events.
// Events describe something that has already happened.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func base(graphID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{AggregateID: graphID, EventType: eventType, Timestamp: at}
}

// Event types
const (
	TypeGraphChanged      = "strategy.changed"
	TypeHistoryMoved      = "strategy.history_moved"
	TypeGraphValidated    = "strategy.validated"
	TypeStrategySaved     = "strategy.saved"
	TypeStrategyLoaded    = "strategy.loaded"
	TypeStrategySubmitted = "strategy.submitted"
)

// Mutation names the operation behind a GraphChanged event
type Mutation string

const (
	MutationAddNode      Mutation = "add_node"
	MutationRemoveNode   Mutation = "remove_node"
	MutationUpdateNode   Mutation = "update_node"
	MutationMoveNode     Mutation = "move_node"
	MutationAddEdge      Mutation = "add_edge"
	MutationRemoveEdge   Mutation = "remove_edge"
	MutationRetargetEdge Mutation = "retarget_edge"
	MutationRename       Mutation = "rename"
	MutationReplace      Mutation = "replace_graph"
	MutationClear        Mutation = "clear"
)

// GraphChanged is raised after every committed mutation
type GraphChanged struct {
	BaseEvent
	Mutation Mutation `json:"mutation"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
}

// NewGraphChanged creates a GraphChanged event
func NewGraphChanged(graphID string, m Mutation, nodeID, edgeID string, at time.Time) GraphChanged {
	return GraphChanged{BaseEvent: base(graphID, TypeGraphChanged, at), Mutation: m, NodeID: nodeID, EdgeID: edgeID}
}

// HistoryMoved is raised by undo and redo
type HistoryMoved struct {
	BaseEvent
	Direction string `json:"direction"` // "undo" or "redo"
}

func NewHistoryMoved(graphID, direction string, at time.Time) HistoryMoved {
	return HistoryMoved{BaseEvent: base(graphID, TypeHistoryMoved, at), Direction: direction}
}

// GraphValidated carries the outcome of a validation pass
type GraphValidated struct {
	BaseEvent
	IsValid  bool `json:"is_valid"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
}

func NewGraphValidated(graphID string, valid bool, errs, warnings int, at time.Time) GraphValidated {
	return GraphValidated{BaseEvent: base(graphID, TypeGraphValidated, at), IsValid: valid, Errors: errs, Warnings: warnings}
}

// StrategySaved reports where a save landed
type StrategySaved struct {
	BaseEvent
	Source    string `json:"source"`
	RemoteErr string `json:"remote_error,omitempty"`
}

func NewStrategySaved(graphID, source, remoteErr string, at time.Time) StrategySaved {
	return StrategySaved{BaseEvent: base(graphID, TypeStrategySaved, at), Source: source, RemoteErr: remoteErr}
}

// StrategyLoaded reports a graph replaced from storage or a file
type StrategyLoaded struct {
	BaseEvent
	Source   string `json:"source"`
	MintedID bool   `json:"minted_id"`
}

func NewStrategyLoaded(graphID, source string, minted bool, at time.Time) StrategyLoaded {
	return StrategyLoaded{BaseEvent: base(graphID, TypeStrategyLoaded, at), Source: source, MintedID: minted}
}

// StrategySubmitted hands a validated strategy to the execution side
type StrategySubmitted struct {
	BaseEvent
	Name      string      `json:"name"`
	NodeCount int         `json:"node_count"`
	EdgeCount int         `json:"edge_count"`
	Strategy  interface{} `json:"strategy"`
}

func NewStrategySubmitted(graphID, name string, nodes, edges int, strategy interface{}, at time.Time) StrategySubmitted {
	return StrategySubmitted{
		BaseEvent: base(graphID, TypeStrategySubmitted, at),
		Name:      name,
		NodeCount: nodes,
		EdgeCount: edges,
		Strategy:  strategy,
	}
}
