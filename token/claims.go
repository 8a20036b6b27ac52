package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
)

// Claims is the payload of an access token. Registered claims carry exp and iat.
type Claims struct {
	jwt.RegisteredClaims
	UserID     uuid.UUID       `json:"userId"`
	Email      string          `json:"email"`
	TenantID   uuid.UUID       `json:"tenantId"`
	TenantSlug string          `json:"tenantSlug"`
	Role       models.UserRole `json:"role"`
}

// ClaimsFor builds the identity part of the claims for a user of a tenant
func ClaimsFor(user *models.User, tenant *models.Tenant) Claims {
	return Claims{
		UserID:     user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Role:       user.Role,
	}
}

// Principal maps verified claims to the request identity
func (c *Claims) Principal() *models.Principal {
	return &models.Principal{
		UserID:     c.UserID,
		Email:      c.Email,
		TenantID:   c.TenantID,
		TenantSlug: c.TenantSlug,
		Role:       c.Role,
	}
}

// validate checks the identity claims. A token whose signature is valid but
// whose payload does not describe a principal is treated as invalid.
func (c *Claims) validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return fmt.Errorf("missing claim: userId")
	case c.TenantID == uuid.Nil:
		return fmt.Errorf("missing claim: tenantId")
	case c.TenantSlug == "":
		return fmt.Errorf("missing claim: tenantSlug")
	case c.Email == "":
		return fmt.Errorf("missing claim: email")
	case !c.Role.IsValid():
		return fmt.Errorf("invalid claim: role %q", c.Role)
	case c.ExpiresAt == nil:
		return fmt.Errorf("missing claim: exp")
	}
	return nil
}
