package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

const tenantColumns = `id, slug, name, plan, created_at, updated_at`

// TenantRepository implements the repositories.TenantRepository interface
type TenantRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB, logger *zap.Logger) repositories.TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, slug, name, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, query,
		tenant.ID,
		tenant.Slug,
		tenant.Name,
		tenant.Plan,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		return mapError("create tenant", err)
	}

	r.logger.Debug("tenant created", zap.String("id", tenant.ID.String()), zap.String("slug", tenant.Slug))
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(ctx, "get tenant", query, id)
}

// GetBySlug retrieves a tenant by slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return r.scanOne(ctx, "get tenant by slug", query, slug)
}

// LockForQuota reads the tenant row with FOR UPDATE. The row lock is held until
// the surrounding transaction commits or rolls back, which serializes note
// creation per tenant while leaving other tenants unaffected.
func (r *TenantRepository) LockForQuota(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if _, ok := txFromContext(ctx); !ok {
		r.logger.Warn("LockForQuota called outside a transaction", zap.String("tenant_id", id.String()))
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 FOR UPDATE`
	return r.scanOne(ctx, "lock tenant", query, id)
}

// UpgradeToPro moves the tenant matching both id and slug to the pro plan.
// Already-pro tenants are matched too, so the call is idempotent.
func (r *TenantRepository) UpgradeToPro(ctx context.Context, id uuid.UUID, slug string) (*models.Tenant, error) {
	query := `
		UPDATE tenants
		SET plan = $3,
		    updated_at = $4
		WHERE id = $1 AND slug = $2
		RETURNING ` + tenantColumns

	tenant, err := r.scanOne(ctx, "upgrade tenant", query, id, slug, models.PlanPro, models.Now())
	if err != nil {
		return nil, err
	}

	r.logger.Debug("tenant upgraded", zap.String("id", id.String()), zap.String("slug", slug))
	return tenant, nil
}

func (r *TenantRepository) scanOne(ctx context.Context, op, query string, args ...interface{}) (*models.Tenant, error) {
	q := conn(ctx, r.db)
	tenant := &models.Tenant{}

	err := q.QueryRowContext(ctx, query, args...).Scan(
		&tenant.ID,
		&tenant.Slug,
		&tenant.Name,
		&tenant.Plan,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(op, err)
	}

	return tenant, nil
}
