package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
)

var (
	// ErrNotFound is returned when no row matches the query predicate
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// The ctx passed to fn carries the transaction; repositories called with it
	// run their statements inside the transaction.
	// Commits if fn succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

// TenantRepository handles tenant data operations
type TenantRepository interface {
	// Create creates a new tenant
	Create(ctx context.Context, tenant *models.Tenant) error

	// GetByID retrieves a tenant by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	// GetBySlug retrieves a tenant by slug
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)

	// LockForQuota reads the tenant and holds an exclusive lock on it until the
	// surrounding transaction ends. Must be called inside InTransaction.
	LockForQuota(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	// UpgradeToPro sets plan=pro on the tenant matching both id and slug
	UpgradeToPro(ctx context.Context, id uuid.UUID, slug string) (*models.Tenant, error)
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// NoteRepository handles note data operations.
// Every read or write of an existing note is scoped by tenant id in the same statement.
type NoteRepository interface {
	// Create inserts a new note
	Create(ctx context.Context, note *models.Note) error

	// GetOwned retrieves a note by id within a tenant
	GetOwned(ctx context.Context, id, tenantID uuid.UUID) (*models.Note, error)

	// UpdateOwned applies patch to the note matching id and tenant and returns the new row
	UpdateOwned(ctx context.Context, id, tenantID uuid.UUID, patch models.NotePatch) (*models.Note, error)

	// DeleteOwned deletes the note matching id and tenant
	DeleteOwned(ctx context.Context, id, tenantID uuid.UUID) error

	// ListByTenant retrieves the notes of a tenant, newest first
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error)

	// CountByTenant counts the notes of a tenant
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByTenantID retrieves audit logs for a tenant with pagination, newest first
	GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByRequestID retrieves the audit logs of one request within a tenant, oldest first
	GetByRequestID(ctx context.Context, tenantID uuid.UUID, requestID string) ([]*models.AuditLog, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Tenants   TenantRepository
	Users     UserRepository
	Notes     NoteRepository
	AuditLogs AuditRepository
}
