package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

// DemoPassword is the password of every seeded user
const DemoPassword = "password"

// PasswordHasher hashes seed passwords with the configured cost
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type demoTenant struct {
	name, slug string
}

var demoTenants = []demoTenant{
	{name: "Acme Corporation", slug: "acme"},
	{name: "Globex Corporation", slug: "globex"},
}

// SeedDemoData creates the demo tenants acme and globex, each with an admin@
// and a user@ account. Existing rows are left untouched, so seeding twice is
// harmless.
func SeedDemoData(ctx context.Context, repos *repositories.Repositories, hasher PasswordHasher, logger *zap.Logger) error {
	hash, err := hasher.HashPassword(DemoPassword)
	if err != nil {
		return err
	}

	for _, dt := range demoTenants {
		tenant, err := ensureTenant(ctx, repos.Tenants, dt)
		if err != nil {
			return err
		}
		accounts := []struct {
			local string
			role  models.UserRole
		}{
			{"admin", models.RoleAdmin},
			{"user", models.RoleMember},
		}
		for _, a := range accounts {
			email := fmt.Sprintf("%s@%s.test", a.local, dt.slug)
			user := models.NewUser(email, hash, tenant.ID, a.role)
			if err := repos.Users.Create(ctx, user); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
				return fmt.Errorf("seed user %s: %w", email, err)
			}
		}
		logger.Info("seeded demo tenant", zap.String("tenant", dt.slug))
	}
	return nil
}

func ensureTenant(ctx context.Context, tenants repositories.TenantRepository, dt demoTenant) (*models.Tenant, error) {
	existing, err := tenants.GetBySlug(ctx, dt.slug)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("seed tenant %s: %w", dt.slug, err)
	}

	tenant := models.NewTenant(dt.name, dt.slug)
	if err := tenants.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("seed tenant %s: %w", dt.slug, err)
	}
	return tenant, nil
}
