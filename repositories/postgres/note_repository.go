package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

const noteColumns = `id, title, content, tenant_id, created_by, created_at, updated_at`

// NoteRepository implements the repositories.NoteRepository interface.
// Every statement touching an existing note carries the tenant predicate, so a
// row owned by another tenant is indistinguishable from a missing one.
type NoteRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *DB, logger *zap.Logger) repositories.NoteRepository {
	return &NoteRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new note
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (id, title, content, tenant_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, query,
		note.ID,
		note.Title,
		note.Content,
		note.TenantID,
		note.CreatedBy,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return mapError("create note", err)
	}

	r.logger.Debug("note created", zap.String("id", note.ID.String()), zap.String("tenant_id", note.TenantID.String()))
	return nil
}

// GetOwned retrieves a note by id within a tenant
func (r *NoteRepository) GetOwned(ctx context.Context, id, tenantID uuid.UUID) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND tenant_id = $2`
	return r.scanOne(ctx, "get note", query, id, tenantID)
}

// UpdateOwned updates title and/or content in one statement. COALESCE keeps the
// stored value for fields the patch leaves nil.
func (r *NoteRepository) UpdateOwned(ctx context.Context, id, tenantID uuid.UUID, patch models.NotePatch) (*models.Note, error) {
	query := `
		UPDATE notes
		SET title = COALESCE($3, title),
		    content = COALESCE($4, content),
		    updated_at = $5
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + noteColumns

	note, err := r.scanOne(ctx, "update note", query, id, tenantID, patch.Title, patch.Content, models.Now())
	if err != nil {
		return nil, err
	}

	r.logger.Debug("note updated", zap.String("id", id.String()))
	return note, nil
}

// DeleteOwned deletes the note matching id and tenant
func (r *NoteRepository) DeleteOwned(ctx context.Context, id, tenantID uuid.UUID) error {
	query := `DELETE FROM notes WHERE id = $1 AND tenant_id = $2`

	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return mapError("delete note", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapError("delete note rows affected", err)
	}

	if rowsAffected == 0 {
		return mapError("delete note", repositories.ErrNotFound)
	}

	r.logger.Debug("note deleted", zap.String("id", id.String()))
	return nil
}

// ListByTenant retrieves the notes of a tenant, newest first
func (r *NoteRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE tenant_id = $1 ORDER BY created_at DESC, id`

	q := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, mapError("list notes", err)
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		note := &models.Note{}
		if err := rows.Scan(
			&note.ID,
			&note.Title,
			&note.Content,
			&note.TenantID,
			&note.CreatedBy,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, mapError("scan note", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("iterate note rows", err)
	}

	return notes, nil
}

// CountByTenant counts the notes of a tenant
func (r *NoteRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notes WHERE tenant_id = $1`

	var count int
	q := conn(ctx, r.db)
	if err := q.QueryRowContext(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, mapError("count notes", err)
	}
	return count, nil
}

func (r *NoteRepository) scanOne(ctx context.Context, op, query string, args ...interface{}) (*models.Note, error) {
	q := conn(ctx, r.db)
	note := &models.Note{}

	err := q.QueryRowContext(ctx, query, args...).Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.TenantID,
		&note.CreatedBy,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(op, err)
	}

	return note, nil
}
