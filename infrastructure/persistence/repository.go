// Package persistence adapts the strategy stores to the editor session:
// remote first behind a circuit breaker, with a local durable copy.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

// StoreMetrics receives one observation per store call
type StoreMetrics interface {
	RecordStoreOperation(operation, store string, err error, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordStoreOperation(string, string, error, time.Duration) {}

// Options tune the remote side of the repository
type Options struct {
	RemoteName       string
	Timeout          time.Duration
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.RemoteName == "" {
		o.RemoteName = "remote"
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerOpenDelay <= 0 {
		o.BreakerOpenDelay = 30 * time.Second
	}
	return o
}

// Repository implements ports.StrategyRepository
type Repository struct {
	remote  ports.StrategyStore
	local   ports.StrategyStore
	opts    Options
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	metrics StoreMetrics
	logger  *zap.Logger
}

var _ ports.StrategyRepository = (*Repository)(nil)

// RepositoryOption configures optional collaborators
type RepositoryOption func(*Repository)

func WithTracer(t trace.Tracer) RepositoryOption {
	return func(r *Repository) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithStoreMetrics(m StoreMetrics) RepositoryOption {
	return func(r *Repository) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRepository combines a remote store and a local store. remote may be
// nil, in which case every call is served locally.
func NewRepository(remote, local ports.StrategyStore, opts Options, logger *zap.Logger, options ...RepositoryOption) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	r := &Repository{
		remote:  remote,
		local:   local,
		opts:    opts,
		tracer:  noop.NewTracerProvider().Tracer("persistence"),
		metrics: noopMetrics{},
		logger:  logger,
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.RemoteName,
		MaxRequests: 1,
		Timeout:     opts.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Remote store circuit breaker state changed",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Answers about the data itself say nothing about remote health
		IsSuccessful: func(err error) bool {
			return err == nil || pkgerrors.IsNotFound(err) || pkgerrors.IsValidation(err)
		},
	})
	for _, o := range options {
		o(r)
	}
	return r
}

// BreakerState reports the remote circuit breaker state
func (r *Repository) BreakerState() gobreaker.State {
	return r.breaker.State()
}

// Save writes remote first and mirrors the record locally. When the remote
// write fails the local copy is the save and the remote failure is reported
// in the result.
func (r *Repository) Save(ctx context.Context, record ports.StrategyRecord) (ports.SaveResult, error) {
	ctx, span := r.tracer.Start(ctx, "strategy.save", trace.WithAttributes(
		attribute.String("strategy.id", record.Key()),
		attribute.String("strategy.name", record.Name),
	))
	defer span.End()

	if r.remote == nil {
		if err := r.saveLocal(ctx, record); err != nil {
			fail(span, err)
			return ports.SaveResult{}, err
		}
		span.SetAttributes(attribute.String("save.source", string(ports.SourceLocal)))
		return ports.SaveResult{Source: ports.SourceLocal, Record: record}, nil
	}

	remoteErr := r.saveRemote(ctx, record)
	if remoteErr == nil {
		if err := r.saveLocal(ctx, record); err != nil {
			r.logger.Warn("Local mirror of remote save failed",
				zap.String("strategy_id", record.Key()),
				zap.Error(err),
			)
		}
		span.SetAttributes(attribute.String("save.source", string(ports.SourceRemote)))
		return ports.SaveResult{Source: ports.SourceRemote, Record: record}, nil
	}
	if pkgerrors.IsValidation(remoteErr) {
		fail(span, remoteErr)
		return ports.SaveResult{}, remoteErr
	}

	span.RecordError(remoteErr)
	if err := r.saveLocal(ctx, record); err != nil {
		fail(span, err)
		return ports.SaveResult{}, pkgerrors.NewDatabaseError("save strategy", errors.Join(remoteErr, err))
	}
	span.SetAttributes(attribute.String("save.source", string(ports.SourceLocalFallback)))
	return ports.SaveResult{Source: ports.SourceLocalFallback, RemoteErr: remoteErr, Record: record}, nil
}

// Load reads remote first. An empty id loads the most recent strategy. The
// local copy answers when the remote store fails or does not know the id.
func (r *Repository) Load(ctx context.Context, id string) (ports.LoadResult, error) {
	ctx, span := r.tracer.Start(ctx, "strategy.load", trace.WithAttributes(
		attribute.String("strategy.id", id),
	))
	defer span.End()

	if r.remote == nil {
		rec, err := r.loadLocal(ctx, id)
		if err != nil {
			fail(span, err)
			return ports.LoadResult{}, err
		}
		return ports.LoadResult{Record: rec, Source: ports.SourceLocal}, nil
	}

	rec, remoteErr := r.loadRemote(ctx, id)
	if remoteErr == nil {
		return ports.LoadResult{Record: rec, Source: ports.SourceRemote}, nil
	}

	rec, err := r.loadLocal(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(remoteErr) {
			fail(span, remoteErr)
			return ports.LoadResult{}, remoteErr
		}
		fail(span, err)
		return ports.LoadResult{}, pkgerrors.NewExternalError(r.opts.RemoteName, errors.Join(remoteErr, err))
	}
	if !pkgerrors.IsNotFound(remoteErr) {
		r.logger.Warn("Remote load failed, served from local store",
			zap.String("strategy_id", rec.Key()),
			zap.Error(remoteErr),
		)
	}
	return ports.LoadResult{Record: rec, Source: ports.SourceLocalFallback, RemoteErr: remoteErr}, nil
}

func (r *Repository) saveRemote(ctx context.Context, record ports.StrategyRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.remote.Save(ctx, record)
	})
	err = breakerError(err, r.opts.RemoteName)
	r.metrics.RecordStoreOperation("save", r.opts.RemoteName, err, time.Since(start))
	return err
}

func (r *Repository) loadRemote(ctx context.Context, id string) (ports.StrategyRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	out, err := r.breaker.Execute(func() (interface{}, error) {
		if id == "" {
			return r.remote.Latest(ctx)
		}
		return r.remote.GetByID(ctx, id)
	})
	err = breakerError(err, r.opts.RemoteName)
	r.metrics.RecordStoreOperation("load", r.opts.RemoteName, err, time.Since(start))
	if err != nil {
		return ports.StrategyRecord{}, err
	}
	return out.(ports.StrategyRecord), nil
}

func (r *Repository) saveLocal(ctx context.Context, record ports.StrategyRecord) error {
	start := time.Now()
	err := r.local.Save(ctx, record)
	r.metrics.RecordStoreOperation("save", "local", err, time.Since(start))
	return err
}

func (r *Repository) loadLocal(ctx context.Context, id string) (ports.StrategyRecord, error) {
	start := time.Now()
	var (
		rec ports.StrategyRecord
		err error
	)
	if id == "" {
		rec, err = r.local.Latest(ctx)
	} else {
		rec, err = r.local.GetByID(ctx, id)
	}
	r.metrics.RecordStoreOperation("load", "local", err, time.Since(start))
	return rec, err
}

func breakerError(err error, store string) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.NewUnavailableError(store).WithCause(err)
	}
	return err
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
