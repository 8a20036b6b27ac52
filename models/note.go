package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxTitleLength is the longest title in characters; the notes.title column is VARCHAR(255)
const MaxTitleLength = 255

// Note is a tenant-owned text document
type Note struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	TenantID  uuid.UUID `json:"tenantId" db:"tenant_id"`
	CreatedBy uuid.UUID `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NewNote creates a new Note owned by the given tenant
func NewNote(tenantID, createdBy uuid.UUID, title, content string) *Note {
	now := Now()
	return &Note{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		TenantID:  tenantID,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NotePatch holds the optional fields of a note update. Nil fields are left unchanged.
type NotePatch struct {
	Title   *string
	Content *string
}

// IsEmpty returns true when the patch changes nothing
func (p NotePatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil
}

// Apply applies the patch to n and bumps UpdatedAt
func (p NotePatch) Apply(n *Note, at time.Time) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	n.UpdatedAt = at
}
