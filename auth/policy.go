// Package auth holds the authorization policy: pure checks of a principal
// against a required role or tenant.
package auth

import (
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services"
)

// RequireRole returns a forbidden error unless the principal holds role exactly.
// There is no role hierarchy.
func RequireRole(p *models.Principal, role models.UserRole) error {
	if p == nil || p.Role != role {
		return services.ErrRoleRequired.WithDetail("required_role", string(role))
	}
	return nil
}

// RequireTenantMatch returns a forbidden error unless the principal's tenant slug equals slug
func RequireTenantMatch(p *models.Principal, slug string) error {
	if p == nil || slug == "" || p.TenantSlug != slug {
		return services.ErrTenantMismatch
	}
	return nil
}

// RequireAdminOf combines both checks in the order they are applied to tenant
// administration routes: role first, then tenant.
func RequireAdminOf(p *models.Principal, slug string) error {
	if err := RequireRole(p, models.RoleAdmin); err != nil {
		return err
	}
	return RequireTenantMatch(p, slug)
}
