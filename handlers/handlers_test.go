package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-notes/middleware"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services"
	"github.com/upb/tenant-notes/services/notes"
	"github.com/upb/tenant-notes/services/tenants"
	"go.uber.org/zap"
)

// MockAuthenticator mocks the login service
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password, clientKey string) (string, error) {
	args := m.Called(ctx, email, password, clientKey)
	return args.String(0), args.Error(1)
}

// MockNoteService mocks the notes service
type MockNoteService struct {
	mock.Mock
}

func (m *MockNoteService) Create(ctx context.Context, p *models.Principal, input notes.CreateInput) (*models.Note, error) {
	args := m.Called(ctx, p, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockNoteService) Get(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Note, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockNoteService) List(ctx context.Context, p *models.Principal) ([]*models.Note, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Note), args.Error(1)
}

func (m *MockNoteService) Update(ctx context.Context, p *models.Principal, id uuid.UUID, patch models.NotePatch) (*models.Note, error) {
	args := m.Called(ctx, p, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockNoteService) Delete(ctx context.Context, p *models.Principal, id uuid.UUID) error {
	args := m.Called(ctx, p, id)
	return args.Error(0)
}

// MockTenantService mocks the tenants service
type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) Invite(ctx context.Context, p *models.Principal, email string, role models.UserRole) (*tenants.InviteResult, error) {
	args := m.Called(ctx, p, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenants.InviteResult), args.Error(1)
}

func (m *MockTenantService) Upgrade(ctx context.Context, p *models.Principal) (*models.Tenant, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) AuditLogs(ctx context.Context, p *models.Principal, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, p, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func (m *MockTenantService) RequestAuditLogs(ctx context.Context, p *models.Principal, requestID string) ([]*models.AuditLog, error) {
	args := m.Called(ctx, p, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func testPrincipal() *models.Principal {
	return &models.Principal{
		UserID:     uuid.New(),
		Email:      "admin@acme.test",
		TenantID:   uuid.New(),
		TenantSlug: "acme",
		Role:       models.RoleAdmin,
	}
}

// newRequest builds a request carrying p and the chi URL params
func newRequest(method, target, body string, p *models.Principal, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if p != nil {
		ctx = middleware.WithPrincipal(ctx, p)
	}
	return req.WithContext(ctx)
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	t.Run("returns token", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Login", mock.Anything, "admin@acme.test", "password", "192.0.2.1").Return("signed.jwt.token", nil)
		h := NewAuthHandler(auth, zap.NewNop())

		req := newRequest(http.MethodPost, "/auth/login", `{"email":"admin@acme.test","password":"password"}`, nil, nil)
		req.RemoteAddr = "192.0.2.1:5555"
		w := httptest.NewRecorder()
		h.HandleLogin(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"token":"signed.jwt.token"}`, w.Body.String())
		auth.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		auth := new(MockAuthenticator)
		h := NewAuthHandler(auth, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleLogin(w, newRequest(http.MethodPost, "/auth/login", `{"email":`, nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		auth.AssertNotCalled(t, "Login")
	})

	t.Run("missing password", func(t *testing.T) {
		auth := new(MockAuthenticator)
		h := NewAuthHandler(auth, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleLogin(w, newRequest(http.MethodPost, "/auth/login", `{"email":"a@b.test"}`, nil, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "password is required")
	})

	t.Run("throttled", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", services.ErrTooManyAttempts)
		h := NewAuthHandler(auth, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleLogin(w, newRequest(http.MethodPost, "/auth/login", `{"email":"a@b.test","password":"x"}`, nil, nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}

func TestAuthHandler_HandleMe(t *testing.T) {
	h := NewAuthHandler(new(MockAuthenticator), zap.NewNop())
	p := testPrincipal()

	w := httptest.NewRecorder()
	h.HandleMe(w, newRequest(http.MethodGet, "/me", "", p, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenantSlug":"acme"`)

	w = httptest.NewRecorder()
	h.HandleMe(w, newRequest(http.MethodGet, "/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotesHandler_HandleCreate(t *testing.T) {
	p := testPrincipal()

	t.Run("created", func(t *testing.T) {
		svc := new(MockNoteService)
		note := models.NewNote(p.TenantID, p.UserID, "hello", "world")
		svc.On("Create", mock.Anything, p, notes.CreateInput{Title: "hello", Content: "world"}).Return(note, nil)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCreate(w, newRequest(http.MethodPost, "/notes", `{"title":"hello","content":"world"}`, p, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"title":"hello"`)
		svc.AssertExpectations(t)
	})

	t.Run("title required", func(t *testing.T) {
		svc := new(MockNoteService)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCreate(w, newRequest(http.MethodPost, "/notes", `{"content":"x"}`, p, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("malformed title", func(t *testing.T) {
		for name, body := range map[string]string{
			"256 characters": `{"title":"` + strings.Repeat("x", 256) + `"}`,
			"NUL byte":       `{"title":"a\u0000b"}`,
		} {
			t.Run(name, func(t *testing.T) {
				svc := new(MockNoteService)
				h := NewNotesHandler(svc, zap.NewNop())

				w := httptest.NewRecorder()
				h.HandleCreate(w, newRequest(http.MethodPost, "/notes", body, p, nil))

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), `"title"`)
				svc.AssertNotCalled(t, "Create")
			})
		}
	})

	t.Run("NUL in content", func(t *testing.T) {
		svc := new(MockNoteService)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCreate(w, newRequest(http.MethodPost, "/notes", `{"title":"ok","content":"a\u0000b"}`, p, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("limit reached", func(t *testing.T) {
		svc := new(MockNoteService)
		svc.On("Create", mock.Anything, p, mock.Anything).Return(nil, services.ErrNoteLimitReached)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCreate(w, newRequest(http.MethodPost, "/notes", `{"title":"x"}`, p, nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "note_limit_reached")
	})
}

func TestNotesHandler_InvalidID(t *testing.T) {
	svc := new(MockNoteService)
	h := NewNotesHandler(svc, zap.NewNop())
	p := testPrincipal()

	for name, fn := range map[string]http.HandlerFunc{
		"get":    h.HandleGet,
		"update": h.HandleUpdate,
		"delete": h.HandleDelete,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, newRequest(http.MethodGet, "/notes/123", `{"title":"x"}`, p, map[string]string{"id": "123"}))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid note ID")
		})
	}
	svc.AssertNotCalled(t, "Get")
	svc.AssertNotCalled(t, "Update")
	svc.AssertNotCalled(t, "Delete")
}

func TestNotesHandler_HandleUpdate(t *testing.T) {
	p := testPrincipal()
	id := uuid.New()

	t.Run("partial patch", func(t *testing.T) {
		svc := new(MockNoteService)
		note := models.NewNote(p.TenantID, p.UserID, "new", "old")
		svc.On("Update", mock.Anything, p, id, mock.MatchedBy(func(patch models.NotePatch) bool {
			return patch.Title != nil && *patch.Title == "new" && patch.Content == nil
		})).Return(note, nil)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUpdate(w, newRequest(http.MethodPut, "/notes/"+id.String(), `{"title":"new"}`, p, map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("empty title", func(t *testing.T) {
		svc := new(MockNoteService)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUpdate(w, newRequest(http.MethodPut, "/notes/"+id.String(), `{"title":""}`, p, map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Update")
	})

	t.Run("title too long", func(t *testing.T) {
		svc := new(MockNoteService)
		h := NewNotesHandler(svc, zap.NewNop())
		body := `{"title":"` + strings.Repeat("x", 256) + `"}`

		w := httptest.NewRecorder()
		h.HandleUpdate(w, newRequest(http.MethodPut, "/notes/"+id.String(), body, p, map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Update")
	})

	t.Run("other tenant's note", func(t *testing.T) {
		svc := new(MockNoteService)
		svc.On("Update", mock.Anything, p, id, mock.Anything).Return(nil, services.ErrNoteNotFound)
		h := NewNotesHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleUpdate(w, newRequest(http.MethodPut, "/notes/"+id.String(), `{"content":"x"}`, p, map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNotesHandler_HandleDeleteAndList(t *testing.T) {
	p := testPrincipal()
	id := uuid.New()
	svc := new(MockNoteService)
	svc.On("Delete", mock.Anything, p, id).Return(nil)
	svc.On("List", mock.Anything, p).Return([]*models.Note{}, nil)
	h := NewNotesHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleDelete(w, newRequest(http.MethodDelete, "/notes/"+id.String(), "", p, map[string]string{"id": id.String()}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Note deleted successfully"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.HandleList(w, newRequest(http.MethodGet, "/notes", "", p, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTenantHandler_HandleInvite(t *testing.T) {
	p := testPrincipal()

	t.Run("created", func(t *testing.T) {
		svc := new(MockTenantService)
		user := models.NewUser("new@acme.test", "hash", p.TenantID, models.RoleMember)
		svc.On("Invite", mock.Anything, p, "new@acme.test", models.RoleMember).
			Return(&tenants.InviteResult{User: user.Summary(), TemporaryPassword: "tmp"}, nil)
		h := NewTenantHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleInvite(w, newRequest(http.MethodPost, "/tenants/acme/invite", `{"email":"new@acme.test","role":"member"}`, p, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"message":"User invited successfully"`)
		assert.Contains(t, w.Body.String(), `"temporaryPassword":"tmp"`)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc := new(MockTenantService)
		h := NewTenantHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleInvite(w, newRequest(http.MethodPost, "/tenants/acme/invite", `{"email":"new@acme.test","role":"owner"}`, p, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Invite")
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := new(MockTenantService)
		svc.On("Invite", mock.Anything, p, mock.Anything, mock.Anything).Return(nil, services.ErrDuplicateEmail)
		h := NewTenantHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleInvite(w, newRequest(http.MethodPost, "/tenants/acme/invite", `{"email":"dup@acme.test","role":"admin"}`, p, nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestTenantHandler_HandleUpgrade(t *testing.T) {
	p := testPrincipal()

	svc := new(MockTenantService)
	tenant := models.NewTenant("Acme", "acme")
	tenant.Plan = models.PlanPro
	svc.On("Upgrade", mock.Anything, p).Return(tenant, nil).Once()
	svc.On("Upgrade", mock.Anything, p).Return(nil, services.ErrTenantNotFound).Once()
	h := NewTenantHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleUpgrade(w, newRequest(http.MethodPost, "/tenants/acme/upgrade", "", p, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Tenant upgraded to Pro plan successfully","slug":"acme","plan":"pro"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.HandleUpgrade(w, newRequest(http.MethodPost, "/tenants/acme/upgrade", "", p, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Tenant not found")
}

func TestTenantHandler_HandleAuditLogs(t *testing.T) {
	p := testPrincipal()
	svc := new(MockTenantService)
	svc.On("AuditLogs", mock.Anything, p, 10, 5).Return([]*models.AuditLog{}, nil)
	h := NewTenantHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleAuditLogs(w, newRequest(http.MethodGet, "/tenants/acme/audit-logs?limit=10&offset=5", "", p, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)

	w = httptest.NewRecorder()
	h.HandleAuditLogs(w, newRequest(http.MethodGet, "/tenants/acme/audit-logs?offset=x", "", p, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantHandler_HandleAuditLogsByRequest(t *testing.T) {
	p := testPrincipal()
	entry := models.NewAuditLog(p.TenantID, models.AuditActionNoteCreated, "note").WithRequest("req-1")
	svc := new(MockTenantService)
	svc.On("RequestAuditLogs", mock.Anything, p, "req-1").Return([]*models.AuditLog{entry}, nil)
	h := NewTenantHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleAuditLogs(w, newRequest(http.MethodGet, "/tenants/acme/audit-logs?requestId=req-1&limit=x", "", p, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requestId":"req-1"`)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "AuditLogs")
}
