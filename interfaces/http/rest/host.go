package rest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"strategy-editor/application/interaction"
	"strategy-editor/application/mapper"
	"strategy-editor/application/ports"
	"strategy-editor/application/session"
	domainconfig "strategy-editor/domain/config"
	"strategy-editor/domain/validation"
	"strategy-editor/infrastructure/config"
)

// shortcutSaveTimeout bounds a save started by the primary+S shortcut
const shortcutSaveTimeout = 30 * time.Second

// SessionHost owns one editor session and its gesture machine. The session
// is single-owner, so every request runs under the host's mutex.
type SessionHost struct {
	mu      sync.Mutex
	session *session.Session
	machine *interaction.Machine
	logger  *zap.Logger
}

// NewSessionHost wraps s. gestures may be nil.
func NewSessionHost(s *session.Session, gestures interaction.GestureMetrics, logger *zap.Logger) *SessionHost {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []interaction.Option{
		interaction.WithPersist(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shortcutSaveTimeout)
			defer cancel()
			_, err := s.Save(ctx)
			return err
		}),
	}
	if gestures != nil {
		opts = append(opts, interaction.WithGestureMetrics(gestures))
	}
	return &SessionHost{
		session: s,
		machine: interaction.NewMachine(s, logger, opts...),
		logger:  logger,
	}
}

// Do runs fn with exclusive access to the session and machine
func (h *SessionHost) Do(fn func(s *session.Session, m *interaction.Machine) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.session, h.machine)
}

// WatchRules applies every reloaded rule set to the session
func (h *SessionHost) WatchRules(w *config.RulesWatcher) {
	if w == nil {
		return
	}
	w.OnChange(func(rules *domainconfig.DomainConfig) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.session.SetRules(rules)
		h.logger.Info("Editor rules updated", zap.Int("history_limit", rules.HistoryLimit))
	})
}

// View is everything a renderer needs to repaint
type View struct {
	Strategy  ports.StrategyDocument `json:"strategy"`
	Findings  []validation.Finding   `json:"findings"`
	IsValid   bool                   `json:"isValid"`
	Errors    int                    `json:"errors"`
	Warnings  int                    `json:"warnings"`
	Selection session.Selection      `json:"selection"`
	State     interaction.State      `json:"state"`
	Rename    *interaction.Rename    `json:"rename,omitempty"`
	Cursor    interaction.Cursor     `json:"cursor"`
	CanUndo   bool                   `json:"canUndo"`
	CanRedo   bool                   `json:"canRedo"`
	Saving    bool                   `json:"saving"`
}

// view must be called with the lock held
func (h *SessionHost) view() View {
	s, m := h.session, h.machine
	report := s.Report()
	findings := report.Findings
	if findings == nil {
		findings = []validation.Finding{}
	}
	v := View{
		Strategy:  mapper.ToDocument(s.Graph(), report.IsValid()),
		Findings:  findings,
		IsValid:   report.IsValid(),
		Errors:    report.Errors(),
		Warnings:  report.Warnings(),
		Selection: s.Selection(),
		State:     m.State(),
		Cursor:    m.Cursor(),
		CanUndo:   s.CanUndo(),
		CanRedo:   s.CanRedo(),
		Saving:    s.Saving(),
	}
	if r, ok := m.Renaming(); ok {
		v.Rename = &r
	}
	return v
}

// View returns the current renderer view
func (h *SessionHost) View() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view()
}

// Apply runs fn and returns the view afterwards, also when fn failed
func (h *SessionHost) Apply(fn func(s *session.Session, m *interaction.Machine) error) (View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	err := fn(h.session, h.machine)
	return h.view(), err
}
