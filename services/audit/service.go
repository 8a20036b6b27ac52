package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/tenant-notes/internal/observability"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when events are logged outside Start/Stop
	ErrNotStarted = errors.New("audit service not started")

	// ErrBufferFull is returned when the event was dropped
	ErrBufferFull = errors.New("audit event buffer full")
)

// AuditService writes audit logs asynchronously through a worker pool
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	metrics     *observability.Metrics
	eventChan   chan *models.AuditLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	stopped     bool
	mu          sync.Mutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1024,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance. metrics may be nil.
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config, metrics *observability.Metrics) *AuditService {
	if config.BufferSize <= 0 || config.WorkerCount <= 0 {
		config = DefaultConfig()
	}
	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		metrics:     metrics,
		eventChan:   make(chan *models.AuditLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for queued ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopped = true
	pending := len(s.eventChan)
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an audit log without blocking. Full buffers drop the event.
func (s *AuditService) LogEvent(log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.eventChan <- log:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(log.Action)),
			zap.String("tenant_id", log.TenantID.String()))
		if s.metrics != nil {
			s.metrics.AuditDropped.Inc()
		}
		return ErrBufferFull
	}
}

// Record tags log with the request id from ctx and queues it.
// Failures are logged, never returned: auditing does not fail requests.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) {
	if s == nil {
		return
	}
	log.WithRequest(chimw.GetReqID(ctx))
	if err := s.LogEvent(log); err != nil && !errors.Is(err, ErrBufferFull) {
		s.logger.Debug("audit event not recorded",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	for log := range s.eventChan {
		if err := s.processEvent(log); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(log.Action)),
				zap.String("tenant_id", log.TenantID.String()))
		}
	}
}

func (s *AuditService) processEvent(log *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

