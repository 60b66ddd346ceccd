// Package client owns the device session: transport lifecycle, outbound
// commands, and the streaming engine that delivers telemetry.
package client

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kestrelworks/streamlink/internal/command"
	"github.com/kestrelworks/streamlink/internal/decode"
	"github.com/kestrelworks/streamlink/internal/engine"
	"github.com/kestrelworks/streamlink/internal/transport"
)

var (
	ErrNotConnected = errors.New("client: not connected")
	ErrConnect      = errors.New("client: connect failed")
)

// Config tunes session behavior. Zero values fall back to defaults.
type Config struct {
	// ConnectAttempts bounds how many times Connect tries to open the
	// transport before giving up.
	ConnectAttempts int
	Backoff         BackoffConfig
	Engine          engine.Config
}

func DefaultConfig() Config {
	return Config{
		ConnectAttempts: 3,
		Backoff:         DefaultBackoffConfig(),
		Engine:          engine.DefaultConfig(),
	}
}

func (c Config) WithDefaults() Config {
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 3
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = DefaultBackoffConfig()
	}
	c.Engine = c.Engine.WithDefaults()
	return c
}

// Client is the device-facing session object. Start/stop of telemetry
// streaming is independent of connect/disconnect; streaming over a
// closed transport simply idles until the link comes back.
type Client struct {
	tr     transport.Transport
	cfg    Config
	engine *engine.Engine
	log    zerolog.Logger
	rng    *rand.Rand

	mu        sync.Mutex
	connected bool
	sessionID string
}

func New(tr transport.Transport, cfg Config, log zerolog.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	eng, err := engine.New(tr, cfg.Engine, log)
	if err != nil {
		return nil, err
	}
	return &Client{
		tr:     tr,
		cfg:    cfg,
		engine: eng,
		log:    log.With().Str("component", "client").Logger(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Connect opens the transport, retrying with jittered exponential
// backoff up to ConnectAttempts times.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.ConnectAttempts; attempt++ {
		err := c.tr.Open()
		if err == nil || errors.Is(err, transport.ErrAlreadyOpen) {
			c.connected = true
			c.sessionID = uuid.NewString()
			c.log = c.log.With().Str("session_id", c.sessionID).Logger()
			c.log.Info().Int("attempt", attempt).Msg("device connected")
			return nil
		}
		lastErr = err
		delay := nextBackoffDelay(c.cfg.Backoff, attempt, c.rng)
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("connect attempt failed")
		if attempt < c.cfg.ConnectAttempts {
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConnect, c.cfg.ConnectAttempts, lastErr)
}

// Disconnect stops streaming (clearing the latest-value slot) and
// closes the transport.
func (c *Client) Disconnect() {
	c.engine.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	if err := c.tr.Close(); err != nil {
		c.log.Error().Err(err).Msg("transport close failed")
	}
	c.connected = false
	c.log.Info().Msg("device disconnected")
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// StartStreaming launches the telemetry engine. The callback (which may
// be nil) receives every decoded sample on the engine goroutine.
func (c *Client) StartStreaming(cb engine.Callback) {
	c.engine.Start(cb)
}

func (c *Client) StopStreaming() {
	c.engine.Stop()
}

// LatestSample returns a snapshot of the most recent telemetry object.
func (c *Client) LatestSample() (decode.Sample, bool) {
	return c.engine.Latest()
}

func (c *Client) StreamStats() engine.Stats {
	return c.engine.Stats()
}

// SendCommand sends a float-valued control command.
func (c *Client) SendCommand(t command.Type, value float32) error {
	return c.send(command.EncodeFloat(t, value))
}

// SendCommandInt sends an integer-valued control command.
func (c *Client) SendCommandInt(t command.Type, value int32) error {
	return c.send(command.EncodeInt(t, value))
}

// RequestDeviceInfo asks the firmware for its identity block; the reply
// arrives through the telemetry stream like any other object.
func (c *Client) RequestDeviceInfo() error {
	return c.send([]byte(command.DeviceInfoRequest))
}

func (c *Client) send(frame []byte) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if err := c.tr.Write(frame); err != nil {
		return fmt.Errorf("client: send command: %w", err)
	}
	return nil
}
