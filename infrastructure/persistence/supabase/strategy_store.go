// Package supabase stores strategy records in the Supabase strategies table.
package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

// DefaultTable is the table saved strategies live in
const DefaultTable = "strategies"

// StrategyStore upserts records by id through PostgREST
type StrategyStore struct {
	client *supabase.Client
	table  string
	logger *zap.Logger
}

var _ ports.StrategyStore = (*StrategyStore)(nil)

// NewStrategyStore connects to a Supabase project
func NewStrategyStore(url, key, table string, logger *zap.Logger) (*StrategyStore, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyStore{client: client, table: table, logger: logger}, nil
}

// Save upserts the record on its id. The PostgREST client does not take a
// context, so a cancelled ctx is only honoured before the call.
func (s *StrategyStore) Save(ctx context.Context, record ports.StrategyRecord) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTimeoutError("supabase save")
	}
	record.ID = record.Key()
	if record.ID == "" {
		return pkgerrors.NewValidationError("strategy record has no id")
	}
	if _, _, err := s.client.From(s.table).
		Upsert(record, "id", "minimal", "").
		Execute(); err != nil {
		return pkgerrors.NewExternalError("supabase", err)
	}
	s.logger.Debug("Strategy upserted", zap.String("strategy_id", record.ID), zap.String("table", s.table))
	return nil
}

// GetByID selects one record by id
func (s *StrategyStore) GetByID(ctx context.Context, id string) (ports.StrategyRecord, error) {
	if err := ctx.Err(); err != nil {
		return ports.StrategyRecord{}, pkgerrors.NewTimeoutError("supabase load")
	}
	var rows []ports.StrategyRecord
	if _, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&rows); err != nil {
		return ports.StrategyRecord{}, pkgerrors.NewExternalError("supabase", err)
	}
	if len(rows) == 0 {
		return ports.StrategyRecord{}, pkgerrors.NewNotFoundError("strategy " + id)
	}
	return rows[0], nil
}

// Latest returns the record with the newest data.updatedAt
func (s *StrategyStore) Latest(ctx context.Context) (ports.StrategyRecord, error) {
	if err := ctx.Err(); err != nil {
		return ports.StrategyRecord{}, pkgerrors.NewTimeoutError("supabase load")
	}
	var rows []ports.StrategyRecord
	if _, err := s.client.From(s.table).
		Select("*", "", false).
		Order("data->>updatedAt", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&rows); err != nil {
		return ports.StrategyRecord{}, pkgerrors.NewExternalError("supabase", err)
	}
	if len(rows) == 0 {
		return ports.StrategyRecord{}, pkgerrors.NewNotFoundError("latest strategy")
	}
	return rows[0], nil
}
