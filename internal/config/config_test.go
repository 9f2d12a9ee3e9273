package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Equal(t, 720, cfg.CatalogSyncMinutes)
	assert.Equal(t, 15, cfg.DigestHourUTC)
	assert.Equal(t, 90, cfg.DigestWindowDays)
	assert.Empty(t, cfg.MarketplaceSKUs)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EVENT_QUEUE_SIZE", "64")
	t.Setenv("MARKETPLACE_SKUS", "123, 456 ,789")
	t.Setenv("DIGEST_HOUR_UTC", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, []string{"123", "456", "789"}, cfg.MarketplaceSKUs)
	// Unparseable values fall back to the default.
	assert.Equal(t, 15, cfg.DigestHourUTC)
}
