package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECORD_API_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("REQUEST_TIMEOUT_SEC", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:9000/api", cfg.RecordAPIBaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECORD_API_URL", "http://records.internal/api")
	t.Setenv("REQUEST_TIMEOUT_SEC", "5")

	cfg := Load()
	assert.Equal(t, "http://records.internal/api", cfg.RecordAPIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestGetEnvIntInvalid(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SEC", "not-a-number")
	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
