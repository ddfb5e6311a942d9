package config

import "time"

// BookingConfig tunes holds, conflict retries and the expiry reaper.
type BookingConfig struct {
	HoldTTL        time.Duration
	MaxSeats       int
	MaxAttempts    int
	RetryBackoff   time.Duration
	ReaperInterval time.Duration
	ReaperBatch    int
}

func LoadBookingConfig() BookingConfig {
	c := BookingConfig{
		HoldTTL:        envDur("BOOKING_HOLD_TTL", 15*time.Minute),
		MaxSeats:       envInt("BOOKING_MAX_SEATS", 10),
		MaxAttempts:    envInt("BOOKING_MAX_ATTEMPTS", 5),
		RetryBackoff:   envDur("BOOKING_RETRY_BACKOFF", 25*time.Millisecond),
		ReaperInterval: envDur("REAPER_INTERVAL", 30*time.Second),
		ReaperBatch:    envInt("REAPER_BATCH_SIZE", 100),
	}
	// the gateway session ends a minute before the hold
	if c.HoldTTL < 2*time.Minute {
		c.HoldTTL = 2 * time.Minute
	}
	if c.ReaperInterval < time.Second {
		c.ReaperInterval = time.Second
	}
	return c
}

// SeatCacheConfig controls the Redis copy of show seat maps served to
// availability queries.
type SeatCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

func LoadSeatCacheConfig() SeatCacheConfig {
	return SeatCacheConfig{
		Enabled: envBool("SEAT_CACHE_ENABLED", true),
		TTL:     envDur("SEAT_CACHE_TTL", 2*time.Second),
		Prefix:  envStr("SEAT_CACHE_PREFIX", "seats"),
	}
}
