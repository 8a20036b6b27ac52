package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggerConfig
		level   zapcore.Level
		wantErr bool
	}{
		{"json info", LoggerConfig{Level: "info", Format: "json"}, zapcore.InfoLevel, false},
		{"text debug", LoggerConfig{Level: "debug", Format: "text"}, zapcore.DebugLevel, false},
		{"upper case", LoggerConfig{Level: "WARN", Format: "JSON"}, zapcore.WarnLevel, false},
		{"default format", LoggerConfig{Level: "error"}, zapcore.ErrorLevel, false},
		{"bad level", LoggerConfig{Level: "loud", Format: "json"}, 0, true},
		{"bad format", LoggerConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			assert.False(t, logger.Core().Enabled(tt.level-1))
		})
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.AuthFailures.WithLabelValues("token_expired").Inc()
	a.NotesCreated.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.AuthFailures.WithLabelValues("token_expired")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuthFailures.WithLabelValues("token_expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.NotesCreated))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.QuotaRejections.WithLabelValues("free").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `quota_rejections_total{plan="free"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
