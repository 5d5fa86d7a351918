package ports

import (
	"context"

	"strategy-editor/domain/events"
)

// StrategyStore is a backend that persists strategy records.
// This is a port in hexagonal architecture: Supabase, DynamoDB and Badger
// implement it.
type StrategyStore interface {
	// Save upserts a record by its key
	Save(ctx context.Context, record StrategyRecord) error

	// GetByID retrieves a record, returning a not-found AppError when absent
	GetByID(ctx context.Context, id string) (StrategyRecord, error)

	// Latest retrieves the most recently saved record
	Latest(ctx context.Context) (StrategyRecord, error)
}

// SaveSource tells where a save or load was served from
type SaveSource string

const (
	SourceRemote        SaveSource = "remote"
	SourceLocal         SaveSource = "local"
	SourceLocalFallback SaveSource = "local-fallback"
	SourceFile          SaveSource = "file"
)

// SaveResult reports the outcome of a save. A failed remote write that
// landed locally is not an error; RemoteErr carries the remote failure.
type SaveResult struct {
	Source    SaveSource     `json:"source"`
	RemoteErr error          `json:"-"`
	Record    StrategyRecord `json:"-"`
}

// LoadResult is what a load returns along with where it came from
type LoadResult struct {
	Record    StrategyRecord
	Source    SaveSource
	RemoteErr error
}

// StrategyRepository is the persistence adapter used by the editor session:
// remote first, local copy on failure.
type StrategyRepository interface {
	Save(ctx context.Context, record StrategyRecord) (SaveResult, error)
	Load(ctx context.Context, id string) (LoadResult, error)
}

// Autosaver receives the latest record after each committed change
type Autosaver interface {
	Schedule(record StrategyRecord)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
