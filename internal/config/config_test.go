package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ODOO_URL", "SESSION_FILE", "RESTORE_LOCK_FILE", "PROBE_TIMEOUT_SEC", "MONGO_URI", "ALERT_WEBHOOK_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "http://localhost:8069", cfg.OdooURL)
	assert.Equal(t, "/var/lib/odoo/.healthcheck_session", cfg.SessionFile)
	assert.Equal(t, "/var/lib/odoo/.restore.lock", cfg.RestoreLockFile)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.False(t, cfg.HistoryEnabled())
	assert.False(t, cfg.AlertsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ODOO_URL", "https://erp.example.com")
	t.Setenv("PROBE_TIMEOUT_SEC", "3")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.example.com/odoo")
	t.Setenv("ALERT_FAILURE_THRESHOLD", "5")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	cfg := Load()

	assert.Equal(t, "https://erp.example.com", cfg.OdooURL)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.True(t, cfg.HistoryEnabled())
	assert.True(t, cfg.AlertsEnabled())
	assert.Equal(t, 5, cfg.AlertFailureThreshold)
	assert.True(t, cfg.CORSAllowCredentials)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT_SEC", "ten")
	t.Setenv("WORKER_QUEUE_SIZE", "many")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "perhaps")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 16, cfg.WorkerQueueSize)
	assert.False(t, cfg.CORSAllowCredentials)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad scheme", func(c *Config) { c.OdooURL = "odoo:8069" }, true},
		{"no session file", func(c *Config) { c.SessionFile = "" }, true},
		{"zero timeout", func(c *Config) { c.ProbeTimeout = 0 }, true},
		{"zero threshold", func(c *Config) { c.AlertFailureThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				OdooURL:               "http://odoo:8069",
				SessionFile:           "/tmp/session",
				ProbeTimeout:          time.Second,
				AlertFailureThreshold: 1,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "status_code", 503)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"status_code":503`)

	buf.Reset()
	NewLogger(&Config{LogLevel: "bogus", LogFormat: "text"}, &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
