package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/tenant-notes/auth"
	"github.com/upb/tenant-notes/internal/observability"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/token"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// TokenVerifier defines the interface for verifying access tokens
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// AuthMiddleware provides authentication and authorization middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. metrics may be nil.
func NewAuthMiddleware(verifier TokenVerifier, metrics *observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Authenticate derives the principal from the Authorization header.
// It touches no storage and has no side effects.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*models.Principal, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, services.ErrMissingCredential
	}

	claims, err := m.verifier.Verify(raw)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

// RequireAuth rejects requests without a valid token. Every failure gets the
// same 401 body; the reason only reaches logs and metrics.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, err := m.Authenticate(r)
		if err != nil {
			reason := services.GetErrorCode(err)
			if reason == "" {
				reason = "token_invalid"
			}
			m.logger.Warn("authentication failed",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("reason", reason),
				zap.String("path", r.URL.Path))
			if m.metrics != nil {
				m.metrics.AuthFailures.WithLabelValues(reason).Inc()
			}
			_ = utils.WriteUnauthorized(w)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("user_id", principal.UserID.String()),
			zap.String("tenant", principal.TenantSlug))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireTenantAdmin is a middleware that requires an admin of the tenant
// named by the URL parameter param. Must be mounted after RequireAuth.
func (m *AuthMiddleware) RequireTenantAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				_ = utils.WriteUnauthorized(w)
				return
			}
			if err := auth.RequireAdminOf(principal, chi.URLParam(r, param)); err != nil {
				m.forbid(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) forbid(w http.ResponseWriter, r *http.Request, err error) {
	principal := PrincipalFromContext(r.Context())
	m.logger.Warn("authorization denied",
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.String("reason", services.GetErrorCode(err)),
		zap.String("user_id", principal.UserID.String()),
		zap.String("role", string(principal.Role)),
		zap.String("path", r.URL.Path))
	_ = utils.WriteForbidden(w, "Forbidden")
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-sensitively with exactly one space.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	raw := header[len(bearerPrefix):]
	if raw == "" {
		return "", false
	}
	return raw, true
}
