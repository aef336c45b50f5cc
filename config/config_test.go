package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clearEnv unsets every variable LoadConfig reads, restoring the
// originals when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "SERVER_PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_USE_SSL",
		"SESSION_SECRET", "SESSION_TTL_HOURS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_TTL_HOURS", "2")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}
