package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-notes/config"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services/ratelimit"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func TestNewDependencies(t *testing.T) {
	t.Run("memory store wires every component", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(t), zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps)
		defer deps.Close(ctx)

		// Infrastructure
		assert.NotNil(t, deps.Metrics)
		assert.Nil(t, deps.DB)
		assert.Nil(t, deps.Redis)
		assert.NotNil(t, deps.MemStore)
		assert.NotNil(t, deps.Repos)
		assert.NotNil(t, deps.TxManager)
		assert.NotNil(t, deps.Store)

		// Services
		assert.NotNil(t, deps.Tokens)
		assert.IsType(t, &ratelimit.InMemoryLimiter{}, deps.Limiter)
		assert.NotNil(t, deps.Audit)
		assert.NotNil(t, deps.Login)
		assert.NotNil(t, deps.Notes)
		assert.NotNil(t, deps.Tenants)

		// HTTP
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.HealthHandler)
		assert.NotNil(t, deps.AuthHandler)
		assert.NotNil(t, deps.NotesHandler)
		assert.NotNil(t, deps.TenantHandler)
	})

	t.Run("redis limiter when REDIS_URL is set", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.RateLimit.RedisURL = "redis://" + mr.Addr()

		ctx := context.Background()
		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer deps.Close(ctx)

		assert.NotNil(t, deps.Redis)
		assert.IsType(t, &ratelimit.RedisLimiter{}, deps.Limiter)
	})

	t.Run("invalid redis url", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.RateLimit.RedisURL = "not a url"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.True(t, config.IsConfigurationError(err))
	})

	t.Run("unknown store driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store.Driver = "mongo"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize store")
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.JWTSecret = ""

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
	})
}

func TestNewDependencies_SeedsDemoData(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed.DemoData = true

	ctx := context.Background()
	deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer deps.Close(ctx)

	for _, slug := range []string{"acme", "globex"} {
		tenant, err := deps.Repos.Tenants.GetBySlug(ctx, slug)
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, tenant.Plan)

		admin, err := deps.Repos.Users.GetByEmail(ctx, "admin@"+slug+".test")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.Equal(t, tenant.ID, admin.TenantID)

		member, err := deps.Repos.Users.GetByEmail(ctx, "user@"+slug+".test")
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, member.Role)
	}

	signed, err := deps.Login.Login(ctx, "admin@acme.test", DemoPassword, "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, signed)

	// Seeding again leaves existing rows alone
	before, err := deps.Repos.Users.GetByEmail(ctx, "admin@acme.test")
	require.NoError(t, err)
	acme := mustTenant(t, deps, "acme")
	require.NoError(t, SeedDemoData(ctx, deps.Repos, deps.Login, deps.Logger))
	after, err := deps.Repos.Users.GetByEmail(ctx, "admin@acme.test")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, acme.ID, mustTenant(t, deps, "acme").ID)
}

func TestDependenciesClose(t *testing.T) {
	ctx := context.Background()
	deps, err := NewDependencies(ctx, testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NoError(t, deps.Close(ctx))
	// Second close should not fail
	assert.NoError(t, deps.Close(ctx))
}

// Test helpers

func mustTenant(t *testing.T, deps *Dependencies, slug string) *models.Tenant {
	t.Helper()
	tenant, err := deps.Repos.Tenants.GetBySlug(context.Background(), slug)
	require.NoError(t, err)
	return tenant
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: config.StoreConfig{Driver: config.StoreDriverMemory},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Quota: config.QuotaConfig{
			FreePlanNoteLimit: 3,
			TxTimeout:         time.Second,
		},
		RateLimit: config.RateLimitConfig{
			LoginAttempts: 10,
			LoginWindow:   time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}
