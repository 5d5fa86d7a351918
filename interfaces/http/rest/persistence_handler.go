package rest

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"strategy-editor/application/interaction"
	"strategy-editor/application/ports"
	"strategy-editor/application/session"
	pkgerrors "strategy-editor/pkg/errors"
)

// PersistenceHandler handles save, load, file import/export and hand-off
type PersistenceHandler struct {
	host   *SessionHost
	logger *zap.Logger
}

// NewPersistenceHandler creates a new persistence handler
func NewPersistenceHandler(host *SessionHost, logger *zap.Logger) *PersistenceHandler {
	return &PersistenceHandler{host: host, logger: logger}
}

// LoadRequest names the strategy to open. An empty id opens the latest one.
type LoadRequest struct {
	ID string `json:"id,omitempty" validate:"omitempty,max=200"`
}

// PersistResponse reports where a save or load was served from
type PersistResponse struct {
	Source      ports.SaveSource `json:"source"`
	RemoteError string           `json:"remoteError,omitempty"`
	View        View             `json:"view"`
}

// Save handles POST /api/v1/editor/save
func (h *PersistenceHandler) Save(w http.ResponseWriter, r *http.Request) {
	var res ports.SaveResult
	view, err := h.host.Apply(func(s *session.Session, _ *interaction.Machine) error {
		var err error
		res, err = s.Save(r.Context())
		return err
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, persistResponse(res.Source, res.RemoteErr, view))
}

// Load handles POST /api/v1/editor/load
func (h *PersistenceHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	// An empty body opens the latest strategy
	if err := decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(h.logger, w, r, err, nil)
		return
	}
	var res ports.LoadResult
	view, err := h.host.Apply(func(s *session.Session, m *interaction.Machine) error {
		m.Cancel()
		m.CancelRename()
		var err error
		res, err = s.LoadFromStore(r.Context(), req.ID)
		return err
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, persistResponse(res.Source, res.RemoteErr, view))
}

// Import handles POST /api/v1/editor/import. The body is a strategy file.
func (h *PersistenceHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(h.logger, w, r, pkgerrors.NewValidationError("could not read strategy file: "+err.Error()), nil)
		return
	}
	view, err := h.host.Apply(func(s *session.Session, m *interaction.Machine) error {
		m.Cancel()
		m.CancelRename()
		return s.ImportJSON(data)
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, view)
}

// Export handles GET /api/v1/editor/export
func (h *PersistenceHandler) Export(w http.ResponseWriter, r *http.Request) {
	var (
		data []byte
		id   string
	)
	err := h.host.Do(func(s *session.Session, _ *interaction.Machine) error {
		var err error
		data, err = s.ExportJSON()
		id = s.Graph().ID().String()
		return err
	})
	if err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="strategy-`+id+`.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write strategy file", zap.Error(err))
	}
}

// Submit handles POST /api/v1/editor/submit
func (h *PersistenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	view, err := h.host.Apply(func(s *session.Session, _ *interaction.Machine) error {
		return s.Submit(r.Context())
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusAccepted, map[string]interface{}{
		"status":     "submitted",
		"strategyId": view.Strategy.ID,
	})
}

func persistResponse(source ports.SaveSource, remoteErr error, view View) PersistResponse {
	resp := PersistResponse{Source: source, View: view}
	if remoteErr != nil {
		resp.RemoteError = remoteErr.Error()
	}
	return resp
}
