package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
)

// Public messages. Service error messages never reach the client.
const (
	msgNoteNotFound       = "Note not found"
	msgTenantNotFound     = "Tenant not found"
	msgInvalidNoteID      = "Invalid note ID"
	msgInvalidRequest     = "Invalid request format"
	msgInvalidCredentials = "Invalid credentials"
	msgForbidden          = "Forbidden"
	msgNoteLimitReached   = "Tenant has reached the note limit for Free plan"
	msgDuplicateEmail     = "User with this email already exists"
	msgTooManyAttempts    = "Too many login attempts"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	var writeErr error

	switch {
	case services.IsNotFoundError(err):
		msg := msgNoteNotFound
		if errors.Is(err, services.ErrTenantNotFound) {
			msg = msgTenantNotFound
		}
		writeErr = utils.WriteNotFound(w, msg)

	case services.IsValidationError(err):
		msg := msgInvalidRequest
		if errors.Is(err, services.ErrInvalidNoteID) {
			msg = msgInvalidNoteID
		}
		writeErr = utils.WriteBadRequest(w, msg, details)

	case services.IsUnauthorizedError(err):
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeErr = utils.WriteError(w, http.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials, nil)
		} else {
			writeErr = utils.WriteUnauthorized(w)
		}

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, msgForbidden)

	case services.IsQuotaExceededError(err):
		writeErr = utils.WriteError(w, http.StatusForbidden, "note_limit_reached", msgNoteLimitReached, nil)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, msgDuplicateEmail, nil)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, msgTooManyAttempts, details)

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w)
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}

	logger.Debug("handled service error",
		zap.String("type", string(services.GetErrorType(err))),
		zap.String("code", services.GetErrorCode(err)))
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var details map[string]interface{}
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
	}
	if err := utils.WriteBadRequest(w, msgInvalidRequest, details); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
