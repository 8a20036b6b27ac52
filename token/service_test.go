package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/services"
	"pgregory.net/rapid"
)

const testSecret = "test-secret-do-not-use"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	svc, err := NewService(Config{Secret: testSecret, Now: clock.Now})
	require.NoError(t, err)
	return svc
}

func sampleClaims() Claims {
	return Claims{
		UserID:     uuid.New(),
		Email:      "admin@acme.test",
		TenantID:   uuid.New(),
		TenantSlug: "acme",
		Role:       models.RoleAdmin,
	}
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestNewService_Defaults(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, svc.TTL())
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock)
	in := sampleClaims()

	signed, err := svc.Issue(in)
	require.NoError(t, err)
	assert.Len(t, strings.Split(signed, "."), 3)

	out, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, in.TenantID, out.TenantID)
	assert.Equal(t, "acme", out.TenantSlug)
	assert.Equal(t, models.RoleAdmin, out.Role)
	assert.Equal(t, clock.t.Add(24*time.Hour).Unix(), out.ExpiresAt.Unix())
	assert.Equal(t, clock.t.Unix(), out.IssuedAt.Unix())

	p := out.Principal()
	assert.Equal(t, in.UserID, p.UserID)
	assert.Equal(t, models.RoleAdmin, p.Role)
}

func TestIssue_PayloadFieldNames(t *testing.T) {
	svc := newTestService(t, &fakeClock{t: time.Now()})
	signed, err := svc.Issue(sampleClaims())
	require.NoError(t, err)

	mapClaims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(signed, mapClaims)
	require.NoError(t, err)
	for _, key := range []string{"userId", "email", "tenantId", "tenantSlug", "role", "exp", "iat"} {
		assert.Contains(t, mapClaims, key)
	}
}

func TestIssue_RejectsIncompleteClaims(t *testing.T) {
	svc := newTestService(t, &fakeClock{t: time.Now()})
	c := sampleClaims()
	c.Role = "owner"
	_, err := svc.Issue(c)
	assert.True(t, services.IsInternalError(err))
}

func TestVerify_Expiry(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"just issued", 0, nil},
		{"23h59m later", 23*time.Hour + 59*time.Minute, nil},
		{"24h1s later", 24*time.Hour + time.Second, services.ErrTokenExpired},
		{"a week later", 7 * 24 * time.Hour, services.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: start}
			svc := newTestService(t, clock)
			signed, err := svc.Issue(sampleClaims())
			require.NoError(t, err)

			clock.Advance(tt.elapsed)
			_, err = svc.Verify(signed)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, services.IsUnauthorizedError(err))
		})
	}
}

func TestVerify_Invalid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(t, clock)
	good, err := svc.Issue(sampleClaims())
	require.NoError(t, err)

	other, err := NewService(Config{Secret: "another-secret", Now: clock.Now})
	require.NoError(t, err)
	foreign, err := other.Issue(sampleClaims())
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": uuid.NewString(), "email": "x@y.z", "tenantId": uuid.NewString(),
		"tenantSlug": "acme", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           uuid.New(), Email: "x@y.z", TenantID: uuid.New(), TenantSlug: "acme", Role: models.RoleAdmin,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": uuid.NewString(), "email": "x@y.z", "tenantId": uuid.NewString(),
		"tenantSlug": "acme", "role": "superuser", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": uuid.NewString(), "email": "x@y.z", "tenantId": uuid.NewString(),
		"tenantSlug": "acme", "role": "member",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"tampered payload", tampered},
		{"alg none", noneToken},
		{"alg HS512", hs512},
		{"unknown role", badRole},
		{"missing exp", noExp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, services.ErrTokenInvalid)
			assert.NotErrorIs(t, err, services.ErrTokenExpired)
		})
	}
}

func TestVerify_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	other, err := NewService(Config{Secret: "another-secret", Now: clock.Now})
	require.NoError(t, err)
	foreign, err := other.Issue(sampleClaims())
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	svc := newTestService(t, clock)
	_, err = svc.Verify(foreign)
	assert.ErrorIs(t, err, services.ErrTokenInvalid)
}

// A token verifies exactly while less than the TTL has elapsed since issue.
func TestVerify_LifetimeProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Unix(rapid.Int64Range(1_600_000_000, 2_000_000_000).Draw(rt, "issuedAt"), 0).UTC()
		elapsed := time.Duration(rapid.Int64Range(0, int64(72*time.Hour/time.Second)).Draw(rt, "elapsedSeconds")) * time.Second

		clock := &fakeClock{t: start}
		svc, err := NewService(Config{Secret: testSecret, Now: clock.Now})
		if err != nil {
			rt.Fatalf("new service: %v", err)
		}
		signed, err := svc.Issue(sampleClaims())
		if err != nil {
			rt.Fatalf("issue: %v", err)
		}

		clock.Advance(elapsed)
		_, err = svc.Verify(signed)
		if elapsed < DefaultTTL {
			if err != nil {
				rt.Fatalf("expected valid token after %s, got %v", elapsed, err)
			}
			return
		}
		if !services.IsUnauthorizedError(err) || services.GetErrorCode(err) != "token_expired" {
			rt.Fatalf("expected expired token after %s, got %v", elapsed, err)
		}
	})
}
