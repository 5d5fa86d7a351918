package session

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"strategy-editor/application/mapper"
	"strategy-editor/application/ports"
	"strategy-editor/domain/events"
	pkgerrors "strategy-editor/pkg/errors"
)

// SaveOutcome is delivered by SaveAsync once the save has finished
type SaveOutcome struct {
	Result ports.SaveResult
	Err    error
}

// Record returns the backend record for the current graph
func (s *Session) Record() ports.StrategyRecord {
	return mapper.ToRecord(s.graph, s.report.IsValid())
}

// Save writes the current graph through the repository and waits for the
// outcome. A remote failure that landed in the local store is reported in
// the result, not as an error. Only one save may be in flight at a time.
func (s *Session) Save(ctx context.Context) (ports.SaveResult, error) {
	rec, err := s.beginSave()
	if err != nil {
		return ports.SaveResult{}, err
	}
	return s.persist(ctx, rec)
}

// SaveAsync snapshots the graph on the calling goroutine and runs the save
// in the background. The channel receives exactly one outcome.
func (s *Session) SaveAsync(ctx context.Context) (<-chan SaveOutcome, error) {
	rec, err := s.beginSave()
	if err != nil {
		return nil, err
	}
	out := make(chan SaveOutcome, 1)
	go func() {
		res, err := s.persist(ctx, rec)
		out <- SaveOutcome{Result: res, Err: err}
		close(out)
	}()
	return out, nil
}

func (s *Session) beginSave() (ports.StrategyRecord, error) {
	if s.repo == nil {
		return ports.StrategyRecord{}, pkgerrors.NewUnavailableError("strategy repository")
	}
	if !s.saving.CompareAndSwap(false, true) {
		return ports.StrategyRecord{}, pkgerrors.NewConflictError("a save is already in progress").WithCode(pkgerrors.CodeSaveInFlight)
	}
	return s.Record(), nil
}

// persist may run off the session goroutine; it only touches the saving
// flag, the metrics sink and the listener list
func (s *Session) persist(ctx context.Context, rec ports.StrategyRecord) (ports.SaveResult, error) {
	defer s.saving.Store(false)

	res, err := s.repo.Save(ctx, rec)
	s.metrics.RecordSave(res.Source, err)
	if err != nil {
		s.logger.Error("Failed to save strategy",
			zap.String("strategyID", rec.Key()),
			zap.Error(err),
		)
		return res, err
	}

	remoteErr := ""
	if res.RemoteErr != nil {
		remoteErr = res.RemoteErr.Error()
		s.logger.Warn("Remote save failed, strategy kept locally",
			zap.String("strategyID", rec.Key()),
			zap.Error(res.RemoteErr),
		)
	}
	s.emit(events.NewStrategySaved(rec.Key(), string(res.Source), remoteErr, s.now()))
	return res, nil
}

// LoadFromStore replaces the graph with a stored strategy and drops the
// history. An empty id loads the most recent strategy. On failure the graph
// is left unchanged.
func (s *Session) LoadFromStore(ctx context.Context, id string) (ports.LoadResult, error) {
	if s.repo == nil {
		return ports.LoadResult{}, pkgerrors.NewUnavailableError("strategy repository")
	}
	res, err := s.repo.Load(ctx, id)
	if err != nil {
		return res, err
	}
	g, minted, err := mapper.FromRecord(res.Record, s.rules)
	if err != nil {
		return res, pkgerrors.Wrap(err, "stored strategy is malformed")
	}
	if err := s.Reset(g); err != nil {
		return res, err
	}
	if minted {
		s.logger.Warn("Stored strategy had no usable id, a new one was minted",
			zap.String("storedID", res.Record.Key()),
			zap.String("strategyID", g.ID().String()),
		)
	}
	s.emit(events.NewStrategyLoaded(g.ID().String(), string(res.Source), minted, s.now()))
	return res, nil
}

// ImportJSON replaces the graph with an exported strategy file. Malformed
// input is a validation error and leaves the graph unchanged.
func (s *Session) ImportJSON(data []byte) error {
	var doc ports.StrategyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return pkgerrors.NewValidationError("strategy file is not valid JSON").WithCause(err)
	}
	g, minted, err := mapper.FromDocument(doc, s.rules)
	if err != nil {
		return pkgerrors.Wrap(err, "strategy file is malformed")
	}
	if err := s.Reset(g); err != nil {
		return err
	}
	s.emit(events.NewStrategyLoaded(g.ID().String(), string(ports.SourceFile), minted, s.now()))
	return nil
}

// ExportJSON renders the current graph as a strategy file
func (s *Session) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(mapper.ToDocument(s.graph, s.report.IsValid()), "", "  ")
	if err != nil {
		return nil, pkgerrors.NewInternalError("encode strategy file").WithCause(err)
	}
	return data, nil
}

// Submit hands a valid strategy to the execution side
func (s *Session) Submit(ctx context.Context) error {
	if s.publisher == nil {
		return pkgerrors.NewUnavailableError("strategy publisher")
	}
	if !s.report.IsValid() {
		return pkgerrors.NewValidationError("strategy has validation errors").
			WithCode(pkgerrors.CodeStrategyInvalid).
			WithDetail("errors", s.report.Errors())
	}
	rec := s.Record()
	ev := events.NewStrategySubmitted(rec.Key(), rec.Name, s.graph.NodeCount(), s.graph.EdgeCount(), rec, s.now())
	err := s.publisher.Publish(ctx, ev)
	s.metrics.RecordSubmit(err)
	if err != nil {
		s.logger.Error("Failed to submit strategy", zap.String("strategyID", rec.Key()), zap.Error(err))
		return pkgerrors.NewExternalError("eventbridge", err)
	}
	s.logger.Info("Strategy submitted",
		zap.String("strategyID", rec.Key()),
		zap.Int("nodes", ev.NodeCount),
		zap.Int("edges", ev.EdgeCount),
	)
	s.emit(ev)
	return nil
}

func (s *Session) scheduleAutosave() {
	if s.autosaver == nil {
		return
	}
	s.autosaver.Schedule(s.Record())
}
