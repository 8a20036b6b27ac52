// Package tenants implements tenant administration: inviting users and
// upgrading the plan.
package tenants

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/services/audit"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Auditor records audit events
type Auditor interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// Config holds configuration for Service
type Config struct {
	// InvitePassword, when set, is given to every invited user instead of a
	// generated one-time password.
	InvitePassword string
	BcryptCost     int
}

const (
	// DefaultAuditPageSize is used when no limit is given
	DefaultAuditPageSize = 50

	// MaxAuditPageSize caps a single audit log page
	MaxAuditPageSize = 200
)

// InviteResult is the outcome of an invitation
type InviteResult struct {
	User models.UserSummary
	// TemporaryPassword is set only when it was generated for this invitation
	TemporaryPassword string
}

// Service handles tenant administration. Callers must have checked that the
// principal is an admin of the tenant addressed by the request.
type Service struct {
	tenants repositories.TenantRepository
	users   repositories.UserRepository
	audit   repositories.AuditRepository
	config  Config
	auditor Auditor
	logger  *zap.Logger
}

// NewService creates a new tenants Service. auditor may be nil.
func NewService(repos *repositories.Repositories, config Config, auditor Auditor, logger *zap.Logger) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		tenants: repos.Tenants,
		users:   repos.Users,
		audit:   repos.AuditLogs,
		config:  config,
		auditor: auditor,
		logger:  logger,
	}
}

// Invite creates a user in the principal's tenant. Email uniqueness is
// enforced by the insert itself.
func (s *Service) Invite(ctx context.Context, p *models.Principal, email string, role models.UserRole) (*InviteResult, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, services.ErrInvalidInput.WithDetail("email", "email must be a valid email")
	}
	if !role.IsValid() {
		return nil, services.ErrInvalidInput.WithDetail("role", "role must be one of: admin member")
	}

	password, generated := s.config.InvitePassword, false
	if password == "" {
		var err error
		if password, err = generatePassword(); err != nil {
			return nil, services.WrapInternal("failed to generate password", err)
		}
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(email, string(hash), p.TenantID, role)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateEmail
		}
		return nil, services.WrapInternal("failed to create user", err)
	}

	s.logger.Info("user invited",
		zap.String("tenant", p.TenantSlug),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)))
	if s.auditor != nil {
		s.auditor.Record(ctx, audit.UserInvited(user, p.UserID))
	}

	result := &InviteResult{User: user.Summary()}
	if generated {
		result.TemporaryPassword = password
	}
	return result, nil
}

// Upgrade moves the principal's tenant to the pro plan. Upgrading a pro
// tenant again succeeds and changes nothing.
func (s *Service) Upgrade(ctx context.Context, p *models.Principal) (*models.Tenant, error) {
	tenant, err := s.tenants.UpgradeToPro(ctx, p.TenantID, p.TenantSlug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrTenantNotFound
		}
		return nil, services.WrapInternal("failed to upgrade tenant", err)
	}

	s.logger.Info("tenant upgraded", zap.String("tenant", tenant.Slug))
	if s.auditor != nil {
		s.auditor.Record(ctx, audit.TenantUpgraded(tenant, p.UserID))
	}
	return tenant, nil
}

// AuditLogs returns a page of the tenant's audit trail, newest first. A zero
// limit selects DefaultAuditPageSize.
func (s *Service) AuditLogs(ctx context.Context, p *models.Principal, limit, offset int) ([]*models.AuditLog, error) {
	if limit < 0 {
		return nil, services.ErrInvalidInput.WithDetail("limit", "limit must not be negative")
	}
	if offset < 0 {
		return nil, services.ErrInvalidInput.WithDetail("offset", "offset must not be negative")
	}
	if limit == 0 {
		limit = DefaultAuditPageSize
	}
	if limit > MaxAuditPageSize {
		limit = MaxAuditPageSize
	}

	logs, err := s.audit.GetByTenantID(ctx, p.TenantID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list audit logs", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}

// RequestAuditLogs returns the audit entries one request wrote for the
// principal's tenant, oldest first.
func (s *Service) RequestAuditLogs(ctx context.Context, p *models.Principal, requestID string) ([]*models.AuditLog, error) {
	if requestID == "" {
		return nil, services.ErrInvalidInput.WithDetail("requestId", "requestId is required")
	}

	logs, err := s.audit.GetByRequestID(ctx, p.TenantID, requestID)
	if err != nil {
		return nil, services.WrapInternal("failed to list audit logs", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
