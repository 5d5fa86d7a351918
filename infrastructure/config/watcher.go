package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domainconfig "strategy-editor/domain/config"
)

// RulesWatcher reloads the editor rules file when it changes on disk
type RulesWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *domainconfig.DomainConfig
	mu       sync.RWMutex
	onChange []func(*domainconfig.DomainConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	debounce time.Duration
}

// NewRulesWatcher loads the rules file and prepares a watcher for it
func NewRulesWatcher(path string, logger *zap.Logger) (*RulesWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules, err := LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial rules: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// The directory catches editors that save by rename
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch rules directory: %w", err)
	}

	return &RulesWatcher{
		path:     path,
		watcher:  watcher,
		current:  rules,
		logger:   logger,
		stopCh:   make(chan struct{}),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Start begins watching for changes
func (w *RulesWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Rules watcher started", zap.String("path", w.path))
}

// Stop stops watching. It is safe to call more than once.
func (w *RulesWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Rules watcher stopped")
	})
}

func (w *RulesWatcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *RulesWatcher) reload() {
	rules, err := LoadRules(w.path)
	if err != nil {
		w.logger.Error("Invalid rules file, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = rules
	handlers := append([]func(*domainconfig.DomainConfig){}, w.onChange...)
	w.mu.Unlock()

	for _, handler := range handlers {
		handler(rules.Clone())
	}
	w.logger.Info("Rules reloaded",
		zap.Int("max_nodes", rules.MaxNodesPerGraph),
		zap.Int("history_limit", rules.HistoryLimit),
	)
}

// OnChange registers a callback run with each successfully reloaded rule set
func (w *RulesWatcher) OnChange(handler func(*domainconfig.DomainConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns a copy of the active rules
func (w *RulesWatcher) Current() *domainconfig.DomainConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Clone()
}
