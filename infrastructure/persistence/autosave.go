package persistence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"strategy-editor/application/ports"
)

// Autosaver writes the newest scheduled record to a store once edits have
// paused for the configured delay. Bursts of edits produce one write.
type Autosaver struct {
	store  ports.StrategyStore
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending *ports.StrategyRecord
	timer   *time.Timer
	closed  bool
	wg      sync.WaitGroup
	onSaved func(ports.StrategyRecord, error)
}

var _ ports.Autosaver = (*Autosaver)(nil)

// NewAutosaver creates an autosaver writing to store
func NewAutosaver(store ports.StrategyStore, delay time.Duration, logger *zap.Logger) *Autosaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{store: store, delay: delay, logger: logger}
}

// OnSaved registers a callback run after every autosave attempt
func (a *Autosaver) OnSaved(fn func(ports.StrategyRecord, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSaved = fn
}

// Schedule replaces the pending record and restarts the delay
func (a *Autosaver) Schedule(record ports.StrategyRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = &record
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Pending reports whether a record is waiting to be written
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	rec := a.pending
	a.pending = nil
	if rec != nil {
		a.wg.Add(1)
	}
	a.mu.Unlock()
	if rec == nil {
		return
	}
	defer a.wg.Done()
	a.write(*rec)
}

func (a *Autosaver) write(rec ports.StrategyRecord) {
	err := a.store.Save(context.Background(), rec)
	if err != nil {
		a.logger.Error("Autosave failed", zap.String("strategy_id", rec.Key()), zap.Error(err))
	} else {
		a.logger.Debug("Autosaved strategy", zap.String("strategy_id", rec.Key()))
	}
	a.mu.Lock()
	cb := a.onSaved
	a.mu.Unlock()
	if cb != nil {
		cb(rec, err)
	}
}

// Flush writes the pending record now, if there is one
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	a.fire()
	a.wg.Wait()
}

// Close flushes and stops accepting records
func (a *Autosaver) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.Flush()
}
