package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/internal/observability"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/services/audit"
	"go.uber.org/zap"
)

const (
	// DefaultFreePlanLimit is the number of notes a free tenant may hold
	DefaultFreePlanLimit = 3

	// DefaultTxTimeout bounds the quota transaction
	DefaultTxTimeout = 5 * time.Second
)

// Auditor records audit events
type Auditor interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// Config holds configuration for Service
type Config struct {
	FreePlanLimit int
	TxTimeout     time.Duration
}

// CreateInput is the payload of a new note
type CreateInput struct {
	Title   string
	Content string
}

// Service is the note API used by handlers. Reads and mutations of existing
// notes go through the Accessor; creation goes through the quota transaction.
type Service struct {
	*Accessor
	tenants repositories.TenantRepository
	notes   repositories.NoteRepository
	txMgr   repositories.TransactionManager
	config  Config
	auditor Auditor
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewService creates a new notes Service. auditor and metrics may be nil.
func NewService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	config Config,
	auditor Auditor,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if config.FreePlanLimit <= 0 {
		config.FreePlanLimit = DefaultFreePlanLimit
	}
	if config.TxTimeout <= 0 {
		config.TxTimeout = DefaultTxTimeout
	}
	return &Service{
		Accessor: NewAccessor(repos.Notes),
		tenants:  repos.Tenants,
		notes:    repos.Notes,
		txMgr:    txMgr,
		config:   config,
		auditor:  auditor,
		metrics:  metrics,
		logger:   logger,
	}
}

// Create inserts a note for the principal's tenant. The tenant row is locked
// for the duration of the count and insert, so concurrent creates of one
// tenant are serialized and the free plan limit cannot be overrun.
func (s *Service) Create(ctx context.Context, p *models.Principal, input CreateInput) (*models.Note, error) {
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := validateContent(input.Content); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	var rejected *models.Tenant
	note, err := services.WithTransactionResult(ctx, s.txMgr, func(txCtx context.Context) (*models.Note, error) {
		tenant, err := s.tenants.LockForQuota(txCtx, p.TenantID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrTenantNotFound
		}
		if err != nil {
			return nil, services.WrapInternal("failed to lock tenant", err)
		}

		if tenant.IsFree() {
			count, err := s.notes.CountByTenant(txCtx, tenant.ID)
			if err != nil {
				return nil, services.WrapInternal("failed to count notes", err)
			}
			if count >= s.config.FreePlanLimit {
				rejected = tenant
				return nil, services.ErrNoteLimitReached.
					WithDetail("limit", s.config.FreePlanLimit).
					WithDetail("plan", string(tenant.Plan))
			}
		}

		note := models.NewNote(tenant.ID, p.UserID, input.Title, input.Content)
		if err := s.notes.Create(txCtx, note); err != nil {
			return nil, services.WrapInternal("failed to create note", err)
		}
		return note, nil
	})
	if err != nil {
		if rejected != nil {
			s.logger.Info("note limit reached",
				zap.String("tenant", rejected.Slug),
				zap.Int("limit", s.config.FreePlanLimit))
			if s.metrics != nil {
				s.metrics.QuotaRejections.WithLabelValues(string(rejected.Plan)).Inc()
			}
			s.record(ctx, audit.QuotaRejected(rejected, p.UserID, s.config.FreePlanLimit))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.NotesCreated.Inc()
	}
	s.record(ctx, audit.NoteCreated(note))
	return note, nil
}

// Get returns a note of the principal's tenant
func (s *Service) Get(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Note, error) {
	return s.FindOwned(ctx, id, p.TenantID)
}

// List returns the notes of the principal's tenant, newest first
func (s *Service) List(ctx context.Context, p *models.Principal) ([]*models.Note, error) {
	return s.ListOwned(ctx, p.TenantID)
}

// Update patches a note of the principal's tenant
func (s *Service) Update(ctx context.Context, p *models.Principal, id uuid.UUID, patch models.NotePatch) (*models.Note, error) {
	note, err := s.UpdateOwned(ctx, id, p.TenantID, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.NoteUpdated(note, p.UserID, patchedFields(patch)))
	return note, nil
}

// Delete removes a note of the principal's tenant
func (s *Service) Delete(ctx context.Context, p *models.Principal, id uuid.UUID) error {
	if err := s.DeleteOwned(ctx, id, p.TenantID); err != nil {
		return err
	}
	s.record(ctx, audit.NoteDeleted(p.TenantID, id, p.UserID))
	return nil
}

func (s *Service) record(ctx context.Context, log *models.AuditLog) {
	if s.auditor != nil {
		s.auditor.Record(ctx, log)
	}
}

func patchedFields(patch models.NotePatch) []string {
	fields := []string{}
	if patch.Title != nil {
		fields = append(fields, "title")
	}
	if patch.Content != nil {
		fields = append(fields, "content")
	}
	return fields
}
