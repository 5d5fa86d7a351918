package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NodeID is a value object representing a node identifier.
// Nodes created in the editor get a UUID; loaded strategies may carry any
// non-empty identifier and keep it for the node's lifetime.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// MustNodeID is NewNodeIDFromString for identifiers known to be valid
func MustNodeID(id string) NodeID {
	nodeID, err := NewNodeIDFromString(id)
	if err != nil {
		panic(err)
	}
	return nodeID
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *NodeID) UnmarshalText(data []byte) error {
	parsed, err := NewNodeIDFromString(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// EdgeID identifies a connection between two ports
type EdgeID struct {
	value string
}

// NewEdgeID creates a new random EdgeID
func NewEdgeID() EdgeID {
	return EdgeID{value: uuid.New().String()}
}

// NewEdgeIDFromString creates an EdgeID from an existing string
func NewEdgeIDFromString(id string) (EdgeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return EdgeID{}, errors.New("edge ID cannot be empty")
	}
	return EdgeID{value: id}, nil
}

// MustEdgeID is NewEdgeIDFromString for identifiers known to be valid
func MustEdgeID(id string) EdgeID {
	edgeID, err := NewEdgeIDFromString(id)
	if err != nil {
		panic(err)
	}
	return edgeID
}

func (id EdgeID) String() string           { return id.value }
func (id EdgeID) Equals(other EdgeID) bool { return id.value == other.value }
func (id EdgeID) IsZero() bool             { return id.value == "" }

// MarshalText implements encoding.TextMarshaler
func (id EdgeID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *EdgeID) UnmarshalText(data []byte) error {
	parsed, err := NewEdgeIDFromString(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// GraphID identifies a strategy graph. Unlike node IDs it must be a UUID,
// since it is the key of the backend strategy record.
type GraphID struct {
	value string
}

// NewGraphID creates a new random GraphID
func NewGraphID() GraphID {
	return GraphID{value: uuid.New().String()}
}

// ParseGraphID validates that id is a well-formed UUID
func ParseGraphID(id string) (GraphID, error) {
	if id == "" {
		return GraphID{}, errors.New("graph ID cannot be empty")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return GraphID{}, errors.New("graph ID must be a valid UUID")
	}
	return GraphID{value: parsed.String()}, nil
}

// GraphIDOrNew returns the parsed id, or a freshly minted one when id is
// missing or malformed. The second result reports whether a new id was minted.
func GraphIDOrNew(id string) (GraphID, bool) {
	parsed, err := ParseGraphID(id)
	if err != nil {
		return NewGraphID(), true
	}
	return parsed, false
}

func (id GraphID) String() string            { return id.value }
func (id GraphID) Equals(other GraphID) bool { return id.value == other.value }
func (id GraphID) IsZero() bool              { return id.value == "" }

// MarshalText implements encoding.TextMarshaler
func (id GraphID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *GraphID) UnmarshalText(data []byte) error {
	parsed, err := ParseGraphID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
