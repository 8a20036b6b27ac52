// Package identity authenticates users by email and password and issues
// access tokens.
package identity

import (
	"context"
	"errors"

	"github.com/upb/tenant-notes/internal/observability"
	"github.com/upb/tenant-notes/repositories"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/services/ratelimit"
	"github.com/upb/tenant-notes/token"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens
type TokenIssuer interface {
	Issue(claims token.Claims) (string, error)
}

// Config holds configuration for LoginService
type Config struct {
	// MaxAttempts is the number of login attempts allowed per client per window
	MaxAttempts int
	BcryptCost  int
}

// LoginService verifies credentials and issues tokens
type LoginService struct {
	users   repositories.UserRepository
	tenants repositories.TenantRepository
	issuer  TokenIssuer
	limiter ratelimit.Limiter
	config  Config
	metrics *observability.Metrics
	logger  *zap.Logger

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewLoginService creates a new LoginService. limiter and metrics may be nil.
func NewLoginService(
	repos *repositories.Repositories,
	issuer TokenIssuer,
	limiter ratelimit.Limiter,
	config Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*LoginService, error) {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), config.BcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to prepare password hasher", err)
	}
	return &LoginService{
		users:     repos.Users,
		tenants:   repos.Tenants,
		issuer:    issuer,
		limiter:   limiter,
		config:    config,
		metrics:   metrics,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Login returns a signed token for valid credentials. Unknown email and wrong
// password are the same error. clientKey identifies the caller for throttling.
func (s *LoginService) Login(ctx context.Context, email, password, clientKey string) (string, error) {
	if s.limiter != nil && s.config.MaxAttempts > 0 {
		decision := s.limiter.Allow(ctx, "login:"+clientKey, s.config.MaxAttempts)
		if !decision.Allowed {
			s.observe("throttled")
			return "", services.ErrTooManyAttempts.WithDetail("retry_at", decision.ResetAt)
		}
	}

	user, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return "", services.WrapInternal("failed to load user", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.observe("invalid_credentials")
		return "", services.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.observe("invalid_credentials")
		return "", services.ErrInvalidCredentials
	}

	tenant, err := s.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.observe("invalid_credentials")
			return "", services.ErrInvalidCredentials
		}
		return "", services.WrapInternal("failed to load tenant", err)
	}

	signed, err := s.issuer.Issue(token.ClaimsFor(user, tenant))
	if err != nil {
		return "", err
	}

	s.observe("success")
	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant", tenant.Slug))
	return signed, nil
}

// HashPassword hashes a password with the configured cost
func (s *LoginService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", services.WrapInternal("failed to hash password", err)
	}
	return string(hash), nil
}

func (s *LoginService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

