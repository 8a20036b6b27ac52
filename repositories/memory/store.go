// Package memory is an in-process implementation of the repository
// interfaces. It backs STORE_DRIVER=memory and the end-to-end tests, and keeps
// the same isolation and locking guarantees as the postgres implementation:
// every owned-note operation is scoped by tenant, and LockForQuota holds a
// per-tenant lock until the enclosing transaction ends.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

// Store holds all rows behind a single RWMutex
type Store struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*models.Tenant
	users   map[uuid.UUID]*models.User
	notes   map[uuid.UUID]*noteRow
	audit   []*models.AuditLog
	seq     uint64

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}

	logger *zap.Logger
}

type noteRow struct {
	note *models.Note
	seq  uint64
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		tenants: make(map[uuid.UUID]*models.Tenant),
		users:   make(map[uuid.UUID]*models.User),
		notes:   make(map[uuid.UUID]*noteRow),
		locks:   make(map[uuid.UUID]chan struct{}),
		logger:  logger,
	}
}

// NewRepositories returns repositories backed by the store
func (s *Store) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Tenants:   &TenantRepository{store: s},
		Users:     &UserRepository{store: s},
		Notes:     &NoteRepository{store: s},
		AuditLogs: &AuditRepository{store: s},
	}
}

// GetTransactionManager returns a transaction manager for the store
func (s *Store) GetTransactionManager() repositories.TransactionManager {
	return &TransactionManager{store: s}
}

// HealthCheck always succeeds; the store lives in process memory.
func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// write runs check and apply atomically. Inside a transaction the check runs
// now against committed state and again at commit, and apply is deferred to
// commit.
func (s *Store) write(ctx context.Context, check func() error, apply func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := txFromContext(ctx); ok {
		s.mu.RLock()
		err := check()
		s.mu.RUnlock()
		if err != nil {
			return err
		}
		return tx.enqueue(op{check: check, apply: apply})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := check(); err != nil {
		return err
	}
	apply()
	return nil
}

// read runs fn under the read lock
func (s *Store) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

func (s *Store) tenantLock(id uuid.UUID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

// acquireTenant blocks until the tenant lock is free or ctx is done
func (s *Store) acquireTenant(ctx context.Context, id uuid.UUID) error {
	select {
	case s.tenantLock(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) releaseTenant(id uuid.UUID) {
	<-s.tenantLock(id)
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func copyTenant(t *models.Tenant) *models.Tenant {
	c := *t
	return &c
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyNote(n *models.Note) *models.Note {
	c := *n
	return &c
}

func copyAudit(a *models.AuditLog) *models.AuditLog {
	c := *a
	if a.Details != nil {
		c.Details = append([]byte(nil), a.Details...)
	}
	return &c
}
