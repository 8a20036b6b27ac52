package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
)

// TenantRepository implements repositories.TenantRepository
type TenantRepository struct {
	store *Store
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	row := copyTenant(tenant)
	return r.store.write(ctx, func() error {
		if _, ok := r.store.tenants[row.ID]; ok {
			return fmt.Errorf("create tenant: %w", repositories.ErrDuplicate)
		}
		for _, t := range r.store.tenants {
			if t.Slug == row.Slug {
				return fmt.Errorf("create tenant: %w (slug)", repositories.ErrDuplicate)
			}
		}
		return nil
	}, func() {
		r.store.tenants[row.ID] = row
	})
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var out *models.Tenant
	err := r.store.read(ctx, func() error {
		t, ok := r.store.tenants[id]
		if !ok {
			return fmt.Errorf("get tenant: %w", repositories.ErrNotFound)
		}
		out = copyTenant(t)
		return nil
	})
	return out, err
}

// GetBySlug retrieves a tenant by slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var out *models.Tenant
	err := r.store.read(ctx, func() error {
		for _, t := range r.store.tenants {
			if t.Slug == slug {
				out = copyTenant(t)
				return nil
			}
		}
		return fmt.Errorf("get tenant by slug: %w", repositories.ErrNotFound)
	})
	return out, err
}

// LockForQuota acquires the tenant's lock for the rest of the transaction and
// returns the tenant as committed.
func (r *TenantRepository) LockForQuota(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tx, ok := txFromContext(ctx)
	if !ok {
		return nil, errNoTransaction
	}
	if err := tx.lockTenant(ctx, id); err != nil {
		return nil, fmt.Errorf("lock tenant: %w", err)
	}
	return r.GetByID(ctx, id)
}

// UpgradeToPro moves the tenant matching id and slug to the pro plan
func (r *TenantRepository) UpgradeToPro(ctx context.Context, id uuid.UUID, slug string) (*models.Tenant, error) {
	now := models.Now()
	var out *models.Tenant
	err := r.store.write(ctx, func() error {
		t, ok := r.store.tenants[id]
		if !ok || t.Slug != slug {
			return fmt.Errorf("upgrade tenant: %w", repositories.ErrNotFound)
		}
		out = copyTenant(t)
		out.Plan = models.PlanPro
		out.UpdatedAt = now
		return nil
	}, func() {
		t := r.store.tenants[id]
		t.Plan = models.PlanPro
		t.UpdatedAt = now
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	store *Store
}

// Create creates a new user; email is unique across all tenants
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	row := copyUser(user)
	return r.store.write(ctx, func() error {
		for _, u := range r.store.users {
			if u.Email == row.Email || u.ID == row.ID {
				return fmt.Errorf("create user: %w (users_email_key)", repositories.ErrDuplicate)
			}
		}
		return nil
	}, func() {
		r.store.users[row.ID] = row
	})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.store.read(ctx, func() error {
		for _, u := range r.store.users {
			if u.Email == email {
				out = copyUser(u)
				return nil
			}
		}
		return fmt.Errorf("get user by email: %w", repositories.ErrNotFound)
	})
	return out, err
}

// NoteRepository implements repositories.NoteRepository
type NoteRepository struct {
	store *Store
}

// Create inserts a new note
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	row := copyNote(note)
	return r.store.write(ctx, func() error {
		if _, ok := r.store.notes[row.ID]; ok {
			return fmt.Errorf("create note: %w", repositories.ErrDuplicate)
		}
		if _, ok := r.store.tenants[row.TenantID]; !ok {
			return fmt.Errorf("create note: tenant %s does not exist", row.TenantID)
		}
		return nil
	}, func() {
		r.store.notes[row.ID] = &noteRow{note: row, seq: r.store.nextSeq()}
	})
}

// owned returns the row only when it belongs to tenantID. Caller holds the lock.
func (r *NoteRepository) owned(id, tenantID uuid.UUID) (*noteRow, bool) {
	row, ok := r.store.notes[id]
	if !ok || row.note.TenantID != tenantID {
		return nil, false
	}
	return row, true
}

// GetOwned retrieves a note by id within a tenant
func (r *NoteRepository) GetOwned(ctx context.Context, id, tenantID uuid.UUID) (*models.Note, error) {
	var out *models.Note
	err := r.store.read(ctx, func() error {
		row, ok := r.owned(id, tenantID)
		if !ok {
			return fmt.Errorf("get note: %w", repositories.ErrNotFound)
		}
		out = copyNote(row.note)
		return nil
	})
	return out, err
}

// UpdateOwned applies patch to the note matching id and tenant
func (r *NoteRepository) UpdateOwned(ctx context.Context, id, tenantID uuid.UUID, patch models.NotePatch) (*models.Note, error) {
	now := models.Now()
	var out *models.Note
	err := r.store.write(ctx, func() error {
		row, ok := r.owned(id, tenantID)
		if !ok {
			return fmt.Errorf("update note: %w", repositories.ErrNotFound)
		}
		out = copyNote(row.note)
		patch.Apply(out, now)
		return nil
	}, func() {
		patch.Apply(r.store.notes[id].note, now)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOwned deletes the note matching id and tenant
func (r *NoteRepository) DeleteOwned(ctx context.Context, id, tenantID uuid.UUID) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.owned(id, tenantID); !ok {
			return fmt.Errorf("delete note: %w", repositories.ErrNotFound)
		}
		return nil
	}, func() {
		delete(r.store.notes, id)
	})
}

// ListByTenant retrieves the notes of a tenant, newest first
func (r *NoteRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error) {
	rows := make([]*noteRow, 0)
	err := r.store.read(ctx, func() error {
		for _, row := range r.store.notes {
			if row.note.TenantID == tenantID {
				rows = append(rows, &noteRow{note: copyNote(row.note), seq: row.seq})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].note.CreatedAt.Equal(rows[j].note.CreatedAt) {
			return rows[i].note.CreatedAt.After(rows[j].note.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	notes := make([]*models.Note, len(rows))
	for i, row := range rows {
		notes[i] = row.note
	}
	return notes, nil
}

// CountByTenant counts the committed notes of a tenant
func (r *NoteRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := r.store.read(ctx, func() error {
		for _, row := range r.store.notes {
			if row.note.TenantID == tenantID {
				count++
			}
		}
		return nil
	})
	return count, err
}

// AuditRepository implements repositories.AuditRepository
type AuditRepository struct {
	store *Store
}

// Insert appends an audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	row := copyAudit(log)
	return r.store.write(ctx, func() error { return nil }, func() {
		r.store.audit = append(r.store.audit, row)
	})
}

// GetByTenantID retrieves audit logs for a tenant, newest first
func (r *AuditRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	var out []*models.AuditLog
	err := r.store.read(ctx, func() error {
		for i := len(r.store.audit) - 1; i >= 0; i-- {
			if r.store.audit[i].TenantID == tenantID {
				out = append(out, copyAudit(r.store.audit[i]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// GetByRequestID retrieves the audit logs a request wrote for a tenant, in insertion order
func (r *AuditRepository) GetByRequestID(ctx context.Context, tenantID uuid.UUID, requestID string) ([]*models.AuditLog, error) {
	var out []*models.AuditLog
	err := r.store.read(ctx, func() error {
		for _, a := range r.store.audit {
			if a.TenantID == tenantID && a.RequestID == requestID {
				out = append(out, copyAudit(a))
			}
		}
		return nil
	})
	return out, err
}
