package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"strategy-editor/application/interaction"
	"strategy-editor/application/properties"
	"strategy-editor/application/session"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/logic"
	"strategy-editor/domain/core/valueobjects"
)

// EditorHandler handles the graph editing routes
type EditorHandler struct {
	host   *SessionHost
	logger *zap.Logger
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(host *SessionHost, logger *zap.Logger) *EditorHandler {
	return &EditorHandler{host: host, logger: logger}
}

// AddNodeRequest represents the request body for adding a node from the palette
type AddNodeRequest struct {
	Type string   `json:"type" validate:"required"`
	Name string   `json:"name,omitempty" validate:"omitempty,max=100"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
}

// RenameStrategyRequest represents the request body for renaming the strategy
type RenameStrategyRequest struct {
	Name        string `json:"name" validate:"max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdatePropertiesRequest stages and confirms option values in one step
type UpdatePropertiesRequest struct {
	Values map[string]interface{} `json:"values" validate:"required"`
}

// PropertiesResponse is a node's properties form
type PropertiesResponse struct {
	NodeID         string                     `json:"nodeId"`
	Type           catalog.NodeType           `json:"type"`
	Fields         []properties.Field         `json:"fields"`
	OperandChoices []properties.OperandChoice `json:"operandChoices,omitempty"`
	Logic          *logic.Tree                `json:"logic,omitempty"`
}

// MutationResponse carries the id an edit produced and the new view
type MutationResponse struct {
	ID      string `json:"id,omitempty"`
	Applied bool   `json:"applied"`
	View    View   `json:"view"`
}

// GetView handles GET /api/v1/editor
func (h *EditorHandler) GetView(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.logger, w, http.StatusOK, h.host.View())
}

// GetCatalog handles GET /api/v1/editor/catalog
func (h *EditorHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.logger, w, http.StatusOK, map[string]interface{}{"nodeTypes": catalog.All()})
}

// HandleGesture handles POST /api/v1/editor/gestures
func (h *EditorHandler) HandleGesture(w http.ResponseWriter, r *http.Request) {
	var event interaction.Event
	if err := decode(w, r, &event); err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	view, err := h.host.Apply(func(_ *session.Session, m *interaction.Machine) error {
		return m.Handle(event)
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, view)
}

// AddNode handles POST /api/v1/editor/nodes
func (h *EditorHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if err := decode(w, r, &req); err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	nodeType, err := catalog.ParseNodeType(req.Type)
	if err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	var at *valueobjects.Position
	if req.X != nil && req.Y != nil {
		pos, err := valueobjects.NewPosition(*req.X, *req.Y)
		if err != nil {
			respondError(h.logger, w, r, err, nil)
			return
		}
		at = &pos
	}

	var id string
	view, err := h.host.Apply(func(s *session.Session, _ *interaction.Machine) error {
		n, err := s.AddNodeOfType(nodeType, req.Name, at)
		if err != nil {
			return err
		}
		id = n.ID().String()
		return nil
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	h.logger.Debug("Node added", zap.String("nodeID", id), zap.String("type", string(nodeType)))
	respondJSON(h.logger, w, http.StatusCreated, MutationResponse{ID: id, Applied: true, View: view})
}

// DeleteNode handles DELETE /api/v1/editor/nodes/{nodeID}
func (h *EditorHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	view, err := h.host.Apply(func(s *session.Session, m *interaction.Machine) error {
		m.Cancel()
		return s.RemoveNode(nodeID)
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, MutationResponse{ID: nodeID, Applied: true, View: view})
}

// DuplicateNode handles POST /api/v1/editor/nodes/{nodeID}/duplicate
func (h *EditorHandler) DuplicateNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	var id string
	view, err := h.host.Apply(func(s *session.Session, _ *interaction.Machine) error {
		n, err := s.DuplicateNode(nodeID)
		if err != nil {
			return err
		}
		id = n.ID().String()
		return nil
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusCreated, MutationResponse{ID: id, Applied: true, View: view})
}

// GetProperties handles GET /api/v1/editor/nodes/{nodeID}/properties
func (h *EditorHandler) GetProperties(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	var resp PropertiesResponse
	err := h.host.Do(func(s *session.Session, _ *interaction.Machine) error {
		editor, err := properties.Open(s, nodeID)
		if err != nil {
			return err
		}
		defer editor.Cancel()
		resp = PropertiesResponse{
			NodeID: nodeID,
			Type:   editor.NodeType(),
			Fields: editor.Fields(),
		}
		if le, ok := editor.Logic(); ok {
			tree := le.Tree()
			resp.Logic = &tree
		}
		if editor.NodeType().Category() == catalog.CategoryLogic || editor.NodeType() == catalog.TypeComparison {
			resp.OperandChoices = editor.OperandChoices()
		}
		return nil
	})
	if err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, resp)
}

// UpdateProperties handles PUT /api/v1/editor/nodes/{nodeID}/properties.
// The values are staged and confirmed as one history step.
func (h *EditorHandler) UpdateProperties(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	var req UpdatePropertiesRequest
	if err := decode(w, r, &req); err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	view, err := h.host.Apply(func(s *session.Session, _ *interaction.Machine) error {
		editor, err := properties.Open(s, nodeID)
		if err != nil {
			return err
		}
		if err := editor.SetAll(req.Values); err != nil {
			editor.Cancel()
			return err
		}
		if err := editor.Confirm(); err != nil {
			editor.Cancel()
			return err
		}
		return nil
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, MutationResponse{ID: nodeID, Applied: true, View: view})
}

// RenameStrategy handles PUT /api/v1/editor/details
func (h *EditorHandler) RenameStrategy(w http.ResponseWriter, r *http.Request) {
	var req RenameStrategyRequest
	if err := decode(w, r, &req); err != nil {
		respondError(h.logger, w, r, err, nil)
		return
	}
	view, err := h.host.Apply(func(s *session.Session, _ *interaction.Machine) error {
		return s.Rename(req.Name, req.Description)
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, view)
}

// Undo handles POST /api/v1/editor/undo
func (h *EditorHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*session.Session).Undo)
}

// Redo handles POST /api/v1/editor/redo
func (h *EditorHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*session.Session).Redo)
}

func (h *EditorHandler) step(w http.ResponseWriter, r *http.Request, move func(*session.Session) bool) {
	var applied bool
	view, _ := h.host.Apply(func(s *session.Session, m *interaction.Machine) error {
		m.Cancel()
		applied = move(s)
		return nil
	})
	respondJSON(h.logger, w, http.StatusOK, MutationResponse{Applied: applied, View: view})
}

// Clear handles POST /api/v1/editor/clear
func (h *EditorHandler) Clear(w http.ResponseWriter, r *http.Request) {
	view, err := h.host.Apply(func(s *session.Session, m *interaction.Machine) error {
		m.Cancel()
		m.CancelRename()
		return s.Clear()
	})
	if err != nil {
		respondError(h.logger, w, r, err, &view)
		return
	}
	respondJSON(h.logger, w, http.StatusOK, MutationResponse{ID: view.Strategy.ID, Applied: true, View: view})
}
