package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadBookingConfigDefaults(t *testing.T) {
	c := LoadBookingConfig()

	assert.Equal(t, 15*time.Minute, c.HoldTTL)
	assert.Equal(t, 10, c.MaxSeats)
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 25*time.Millisecond, c.RetryBackoff)
	assert.Equal(t, 30*time.Second, c.ReaperInterval)
	assert.Equal(t, 100, c.ReaperBatch)
}

func TestLoadBookingConfigOverrides(t *testing.T) {
	t.Setenv("BOOKING_HOLD_TTL", "30s")
	t.Setenv("BOOKING_MAX_SEATS", "4")
	t.Setenv("REAPER_INTERVAL", "10ms")
	t.Setenv("REAPER_BATCH_SIZE", "not-a-number")

	c := LoadBookingConfig()
	assert.Equal(t, 2*time.Minute, c.HoldTTL, "ttl is clamped so the checkout session fits inside the hold")
	assert.Equal(t, 4, c.MaxSeats)
	assert.Equal(t, time.Second, c.ReaperInterval)
	assert.Equal(t, 100, c.ReaperBatch)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2m")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	c := LoadRateLimitConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, 7, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 2*time.Minute, c.RefillInterval)
	assert.Equal(t, 10*time.Minute, c.TTL)
}

func TestLoadSeatCacheConfig(t *testing.T) {
	t.Setenv("SEAT_CACHE_ENABLED", "false")
	t.Setenv("SEAT_CACHE_PREFIX", "avail")

	c := LoadSeatCacheConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, "avail", c.Prefix)
	assert.Equal(t, 2*time.Second, c.TTL)
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "hook")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("AMQP_URL", "amqp://legacy/")

	c := Load()
	assert.Equal(t, "memory", c.StoreDriver)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "amqp://legacy/", c.RabbitURL)
	assert.True(t, c.DBMigrate)
	assert.Empty(t, c.DBHost)
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(Config{Env: "prod", LogLevel: "debug"})
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLogger(Config{Env: "dev", LogLevel: "bogus"})
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
