package rest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	pkgerrors "strategy-editor/pkg/errors"
	"strategy-editor/pkg/validation"
)

// maxBodyBytes caps request bodies, strategy files included
const maxBodyBytes = 4 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   bool                   `json:"error"`
	Type    string                 `json:"type,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	View    *View                  `json:"view,omitempty"`
}

func respondJSON(logger *zap.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError maps err to its HTTP status. view, when given, lets the
// renderer repaint after a rejected edit.
func respondError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error, view *View) {
	status := pkgerrors.HTTPStatus(err)
	body := ErrorResponse{Error: true, Message: err.Error(), View: view}
	if app := pkgerrors.GetAppError(err); app != nil {
		body.Type = string(app.Type)
		body.Code = app.Code
		body.Message = app.Message
		body.Details = app.Details
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	respondJSON(logger, w, status, body)
}

// decode reads a JSON body and validates it by its struct tags
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.NewValidationError("invalid request body: " + err.Error()).WithCause(err)
	}
	return validation.GetValidator().Validate(dst)
}
