package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/services/tenants"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
)

// InviteRequest is the body of POST /tenants/{slug}/invite
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

// InviteResponse is returned when a user was invited
type InviteResponse struct {
	Message           string             `json:"message"`
	User              models.UserSummary `json:"user"`
	TemporaryPassword string             `json:"temporaryPassword,omitempty"`
}

// UpgradeResponse is returned when a tenant was upgraded
type UpgradeResponse struct {
	Message string      `json:"message"`
	Slug    string      `json:"slug"`
	Plan    models.Plan `json:"plan"`
}

// TenantService defines the tenant administration operations used by TenantHandler
type TenantService interface {
	Invite(ctx context.Context, p *models.Principal, email string, role models.UserRole) (*tenants.InviteResult, error)
	Upgrade(ctx context.Context, p *models.Principal) (*models.Tenant, error)
	AuditLogs(ctx context.Context, p *models.Principal, limit, offset int) ([]*models.AuditLog, error)
	RequestAuditLogs(ctx context.Context, p *models.Principal, requestID string) ([]*models.AuditLog, error)
}

// TenantHandler handles tenant administration. Routes are mounted behind
// RequireTenantAdmin, so the principal is an admin of the tenant named in the path.
type TenantHandler struct {
	tenants TenantService
	logger  *zap.Logger
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenants TenantService, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		tenants: tenants,
		logger:  logger,
	}
}

// HandleInvite handles POST /tenants/{slug}/invite
func (h *TenantHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}

	var req InviteRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, msgInvalidRequest, nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.tenants.Invite(r.Context(), p, req.Email, models.UserRole(req.Role))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, InviteResponse{
		Message:           "User invited successfully",
		User:              result.User,
		TemporaryPassword: result.TemporaryPassword,
	})
}

// HandleUpgrade handles POST /tenants/{slug}/upgrade
func (h *TenantHandler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}

	tenant, err := h.tenants.Upgrade(r.Context(), p)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, UpgradeResponse{
		Message: "Tenant upgraded to Pro plan successfully",
		Slug:    tenant.Slug,
		Plan:    tenant.Plan,
	})
}

// HandleAuditLogs handles GET /tenants/{slug}/audit-logs. With ?requestId= it
// returns the entries of that request instead of a page.
func (h *TenantHandler) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}

	if requestID := r.URL.Query().Get("requestId"); requestID != "" {
		logs, err := h.tenants.RequestAuditLogs(r.Context(), p, requestID)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, logs)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleServiceError(w, services.ErrInvalidInput.WithDetail("limit", "limit must be an integer"), h.logger)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		HandleServiceError(w, services.ErrInvalidInput.WithDetail("offset", "offset must be an integer"), h.logger)
		return
	}

	logs, err := h.tenants.AuditLogs(r.Context(), p, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, logs)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
