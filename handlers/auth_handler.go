package handlers

import (
	"context"
	"net"
	"net/http"

	"github.com/upb/tenant-notes/middleware"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token string `json:"token"`
}

// Authenticator exchanges credentials for a signed token
type Authenticator interface {
	Login(ctx context.Context, email, password, clientKey string) (string, error)
}

// AuthHandler handles login and identity endpoints
type AuthHandler struct {
	auth   Authenticator
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to parse login body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, msgInvalidRequest, nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	signed, err := h.auth.Login(ctx, req.Email, req.Password, clientIP(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, LoginResponse{Token: signed})
}

// HandleMe handles GET /me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}
	_ = utils.WriteOK(w, p)
}

// clientIP returns the host part of RemoteAddr. RealIP rewrites RemoteAddr
// only when proxy headers are trusted, so clients cannot pick their own key.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requirePrincipal returns the request principal or writes 401. Routes that
// call it are mounted behind RequireAuth, so a miss is a wiring error.
func requirePrincipal(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*models.Principal, bool) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		logger.Error("missing principal in context",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteUnauthorized(w)
		return nil, false
	}
	return p, true
}
