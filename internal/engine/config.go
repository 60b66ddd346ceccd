package engine

import (
	"time"

	"github.com/kestrelworks/streamlink/internal/framing"
)

// Config tunes the read loop. Zero values fall back to defaults.
type Config struct {
	// PollInterval is the idle tick between reads; keeps CPU bounded
	// while holding latency low.
	PollInterval time.Duration
	// RetryInterval is the backoff when the transport is closed, a read
	// fails, or the loop recovers from a fault.
	RetryInterval time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration
	// BufferCeiling is the receive-buffer overflow threshold in bytes.
	BufferCeiling int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  time.Millisecond,
		RetryInterval: 100 * time.Millisecond,
		StopTimeout:   time.Second,
		BufferCeiling: framing.DefaultBufferCeiling,
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = def.RetryInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = def.StopTimeout
	}
	if c.BufferCeiling <= 0 {
		c.BufferCeiling = def.BufferCeiling
	}
	return c
}
