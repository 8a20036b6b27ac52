package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "note not found",
			err:             services.ErrNoteNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "Note not found",
		},
		{
			name:            "tenant not found",
			err:             services.ErrTenantNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "Tenant not found",
		},
		{
			name:            "validation error",
			err:             services.ErrInvalidInput,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "Invalid request format",
		},
		{
			name:            "invalid note id",
			err:             services.ErrInvalidNoteID,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "Invalid note ID",
		},
		{
			name:            "expired token",
			err:             services.ErrTokenExpired,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "Unauthorized",
		},
		{
			name:            "invalid credentials",
			err:             services.ErrInvalidCredentials,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "invalid_credentials",
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "forbidden error",
			err:             services.ErrTenantMismatch,
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "Forbidden",
		},
		{
			name:            "note limit reached",
			err:             services.ErrNoteLimitReached.WithDetail("limit", 3),
			expectedStatus:  http.StatusForbidden,
			expectedError:   "note_limit_reached",
			expectedMessage: "Tenant has reached the note limit for Free plan",
		},
		{
			name:            "duplicate email",
			err:             services.ErrDuplicateEmail,
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: "User with this email already exists",
		},
		{
			name:            "too many attempts",
			err:             services.ErrTooManyAttempts,
			expectedStatus:  http.StatusTooManyRequests,
			expectedError:   "rate_limit_exceeded",
			expectedMessage: "Too many login attempts",
		},
		{
			name:            "internal error",
			err:             services.WrapInternal("failed to count notes", errors.New("pq: connection refused")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Internal server error",
		},
		{
			name:            "unknown error",
			err:             errors.New("some unknown error"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_QuotaBodyIsExact(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, services.ErrNoteLimitReached.WithDetail("limit", 3), zap.NewNop())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t,
		`{"error":"note_limit_reached","message":"Tenant has reached the note limit for Free plan"}`,
		w.Body.String())
}

func TestHandleServiceError_NoInternalsLeak(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, services.WrapInternal("failed to lock tenant", errors.New("pq: deadlock detected")), zap.NewNop())

	assert.NotContains(t, w.Body.String(), "deadlock")
	assert.NotContains(t, w.Body.String(), "lock tenant")
}

func TestHandleServiceErrorWithDetails(t *testing.T) {
	err := services.ErrInvalidInput.WithDetail("title", "title is required")

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "title is required", response.Details["title"])
}

func TestHandleServiceErrorNil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, zap.NewNop())

	// Should not write anything
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}

	w := httptest.NewRecorder()
	HandleValidationError(w, utils.ValidateStruct(&body{}), zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Invalid request format", response.Message)
	assert.Contains(t, response.Details, "email")
}
