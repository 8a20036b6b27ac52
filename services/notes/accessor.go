// Package notes implements tenant-scoped note access and quota-enforced creation.
package notes

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"github.com/upb/tenant-notes/services"
)

// Accessor reads and mutates existing notes of one tenant. Every operation is
// a single repository statement filtered by both note id and tenant id, so a
// foreign note and a missing note are indistinguishable.
type Accessor struct {
	notes repositories.NoteRepository
}

// NewAccessor creates a new Accessor
func NewAccessor(notes repositories.NoteRepository) *Accessor {
	return &Accessor{notes: notes}
}

// FindOwned returns the note if it belongs to tenantID
func (a *Accessor) FindOwned(ctx context.Context, id, tenantID uuid.UUID) (*models.Note, error) {
	note, err := a.notes.GetOwned(ctx, id, tenantID)
	if err != nil {
		return nil, translate(err, "failed to get note")
	}
	return note, nil
}

// UpdateOwned applies patch to the note if it belongs to tenantID
func (a *Accessor) UpdateOwned(ctx context.Context, id, tenantID uuid.UUID, patch models.NotePatch) (*models.Note, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	note, err := a.notes.UpdateOwned(ctx, id, tenantID, patch)
	if err != nil {
		return nil, translate(err, "failed to update note")
	}
	return note, nil
}

// DeleteOwned deletes the note if it belongs to tenantID
func (a *Accessor) DeleteOwned(ctx context.Context, id, tenantID uuid.UUID) error {
	if err := a.notes.DeleteOwned(ctx, id, tenantID); err != nil {
		return translate(err, "failed to delete note")
	}
	return nil
}

// ListOwned returns the notes of tenantID, newest first
func (a *Accessor) ListOwned(ctx context.Context, tenantID uuid.UUID) ([]*models.Note, error) {
	notes, err := a.notes.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, translate(err, "failed to list notes")
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	return notes, nil
}

func validateTitle(title string) error {
	switch {
	case title == "":
		return services.ErrInvalidInput.WithDetail("title", "title is required")
	case utf8.RuneCountInString(title) > models.MaxTitleLength:
		return services.ErrInvalidInput.WithDetail("title", "title must be at most 255 characters")
	case strings.ContainsRune(title, 0):
		return services.ErrInvalidInput.WithDetail("title", "title must not contain NUL characters")
	}
	return nil
}

func validateContent(content string) error {
	if strings.ContainsRune(content, 0) {
		return services.ErrInvalidInput.WithDetail("content", "content must not contain NUL characters")
	}
	return nil
}

func validatePatch(patch models.NotePatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return err
		}
	}
	if patch.Content != nil {
		return validateContent(*patch.Content)
	}
	return nil
}

func translate(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrNoteNotFound
	}
	return services.WrapInternal(message, err)
}
