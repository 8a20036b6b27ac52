package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/tenant-notes/middleware"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/services/notes"
	"github.com/upb/tenant-notes/utils"
	"go.uber.org/zap"
)

// CreateNoteRequest is the body of POST /notes
type CreateNoteRequest struct {
	Title   string `json:"title" validate:"required,max=255,nonul"`
	Content string `json:"content" validate:"nonul"`
}

// UpdateNoteRequest is the body of PUT /notes/{id}. Absent fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitnil,min=1,max=255,nonul"`
	Content *string `json:"content" validate:"omitnil,nonul"`
}

// NoteService defines the note operations used by NotesHandler
type NoteService interface {
	Create(ctx context.Context, p *models.Principal, input notes.CreateInput) (*models.Note, error)
	Get(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, p *models.Principal) ([]*models.Note, error)
	Update(ctx context.Context, p *models.Principal, id uuid.UUID, patch models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, p *models.Principal, id uuid.UUID) error
}

// NotesHandler handles note HTTP requests. Every operation is scoped to the
// tenant of the authenticated principal.
type NotesHandler struct {
	notes  NoteService
	logger *zap.Logger
}

// NewNotesHandler creates a new NotesHandler
func NewNotesHandler(notes NoteService, logger *zap.Logger) *NotesHandler {
	return &NotesHandler{
		notes:  notes,
		logger: logger,
	}
}

// HandleList handles GET /notes
func (h *NotesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.notes.List(r.Context(), p)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleCreate handles POST /notes
func (h *NotesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateNoteRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, msgInvalidRequest, nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	note, err := h.notes.Create(ctx, p, notes.CreateInput{Title: req.Title, Content: req.Content})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("note created",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("note_id", note.ID.String()),
		zap.String("tenant", p.TenantSlug))
	_ = utils.WriteCreated(w, note)
}

// HandleGet handles GET /notes/{id}
func (h *NotesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Get(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, note)
}

// HandleUpdate handles PUT /notes/{id}
func (h *NotesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, msgInvalidRequest, nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	note, err := h.notes.Update(r.Context(), p, id, models.NotePatch{Title: req.Title, Content: req.Content})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, note)
}

// HandleDelete handles DELETE /notes/{id}
func (h *NotesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}

	if err := h.notes.Delete(r.Context(), p, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteMessage(w, http.StatusOK, "Note deleted successfully")
}

func (h *NotesHandler) noteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		HandleServiceError(w, services.ErrInvalidNoteID, h.logger)
		return uuid.Nil, false
	}
	return id, true
}
