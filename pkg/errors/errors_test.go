package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Status(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest},
		{"not found", NewNotFoundError("node n1"), http.StatusNotFound},
		{"conflict", NewConflictError("busy"), http.StatusConflict},
		{"timeout", NewTimeoutError("save"), http.StatusGatewayTimeout},
		{"unavailable", NewUnavailableError("supabase"), http.StatusServiceUnavailable},
		{"database", NewDatabaseError("save", errors.New("disk")), http.StatusInternalServerError},
		{"external", NewExternalError("eventbridge", errors.New("throttled")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestAppError_ChainAndCodes(t *testing.T) {
	root := errors.New("connection refused")
	err := NewExternalError("supabase", root)
	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), "caused by: connection refused")

	conflict := NewConflictError("a save is already in progress").WithCode(CodeSaveInFlight)
	assert.True(t, HasCode(fmt.Errorf("save: %w", conflict), CodeSaveInFlight))
	assert.False(t, HasCode(conflict, CodeDuplicateEdge))
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsNotFound(conflict))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	orig := NewValidationError("period must be at least 1").WithCode("RANGE")
	wrapped := Wrap(orig, "rsi configuration")
	require.True(t, IsValidation(wrapped))
	app := GetAppError(wrapped)
	assert.Equal(t, "rsi configuration: period must be at least 1", app.Message)
	assert.Equal(t, "RANGE", app.Code)
	assert.Equal(t, "period must be at least 1", orig.Message, "the original is not modified")

	plain := Wrapf(errors.New("boom"), "step %d", 3)
	assert.True(t, IsType(plain, ErrorTypeInternal))
	assert.Contains(t, plain.Error(), "step 3")
}
