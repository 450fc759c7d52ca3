package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "jwt", cfg.AuthMode)
	assert.Equal(t, "prayerwall", cfg.MongoDatabase)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("STORE_POLL_INTERVAL", "250ms")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("STORE_POLL_INTERVAL", "not-a-duration")
	cfg := Load()
	assert.Equal(t, time.Second, cfg.PollInterval)
}
