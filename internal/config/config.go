// Package config owns the daemon's runtime configuration: transport
// selection, engine tuning, session behavior and the admin surface.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/kestrelworks/streamlink/internal/client"
	"github.com/kestrelworks/streamlink/internal/engine"
	"github.com/kestrelworks/streamlink/internal/transport"
)

const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
)

type Config struct {
	Transport string        `toml:"transport"`
	Serial    SerialConfig  `toml:"serial"`
	TCP       TCPConfig     `toml:"tcp"`
	Session   SessionConfig `toml:"session"`
	Engine    EngineConfig  `toml:"engine"`
	Admin     AdminConfig   `toml:"admin"`
}

type SerialConfig struct {
	Port     string `toml:"port"`
	BaudRate int    `toml:"baud_rate"`
}

type TCPConfig struct {
	Address     string `toml:"address"`
	DialTimeout string `toml:"dial_timeout"`
}

type SessionConfig struct {
	ConnectAttempts int `toml:"connect_attempts"`
}

type EngineConfig struct {
	PollInterval  string `toml:"poll_interval"`
	RetryInterval string `toml:"retry_interval"`
	StopTimeout   string `toml:"stop_timeout"`
	BufferCeiling int    `toml:"buffer_ceiling"`
}

type AdminConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

func Default() Config {
	return Config{
		Transport: TransportSerial,
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 460800,
		},
		Admin: AdminConfig{
			Addr: ":9320",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	switch strings.TrimSpace(cfg.Transport) {
	case TransportSerial:
		if strings.TrimSpace(cfg.Serial.Port) == "" {
			return fmt.Errorf("serial config missing port")
		}
		if cfg.Serial.BaudRate <= 0 {
			return fmt.Errorf("serial config invalid baud_rate: %d", cfg.Serial.BaudRate)
		}
	case TransportTCP:
		if strings.TrimSpace(cfg.TCP.Address) == "" {
			return fmt.Errorf("tcp config missing address")
		}
	default:
		return fmt.Errorf("unknown transport kind %q", cfg.Transport)
	}
	if _, err := durations(cfg); err != nil {
		return err
	}
	if cfg.Engine.BufferCeiling < 0 {
		return fmt.Errorf("engine config invalid buffer_ceiling: %d", cfg.Engine.BufferCeiling)
	}
	return nil
}

// BuildTransport constructs the configured Transport implementation.
func BuildTransport(cfg Config) (transport.Transport, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	d, _ := durations(cfg)
	switch strings.TrimSpace(cfg.Transport) {
	case TransportTCP:
		return transport.NewTCPLink(transport.TCPConfig{
			Address:     cfg.TCP.Address,
			DialTimeout: d.dial,
		}), nil
	default:
		return transport.NewSerialPort(transport.SerialConfig{
			Port:     cfg.Serial.Port,
			BaudRate: cfg.Serial.BaudRate,
		}), nil
	}
}

// ClientConfig converts the file shapes into typed session settings.
func ClientConfig(cfg Config) (client.Config, error) {
	if err := Validate(cfg); err != nil {
		return client.Config{}, err
	}
	d, _ := durations(cfg)
	out := client.DefaultConfig()
	if cfg.Session.ConnectAttempts > 0 {
		out.ConnectAttempts = cfg.Session.ConnectAttempts
	}
	out.Engine = engine.Config{
		PollInterval:  d.poll,
		RetryInterval: d.retry,
		StopTimeout:   d.stop,
		BufferCeiling: cfg.Engine.BufferCeiling,
	}.WithDefaults()
	return out, nil
}

type durationSet struct {
	dial  time.Duration
	poll  time.Duration
	retry time.Duration
	stop  time.Duration
}

func durations(cfg Config) (durationSet, error) {
	var (
		d   durationSet
		err error
	)
	if d.dial, err = parseDuration("tcp.dial_timeout", cfg.TCP.DialTimeout); err != nil {
		return durationSet{}, err
	}
	if d.poll, err = parseDuration("engine.poll_interval", cfg.Engine.PollInterval); err != nil {
		return durationSet{}, err
	}
	if d.retry, err = parseDuration("engine.retry_interval", cfg.Engine.RetryInterval); err != nil {
		return durationSet{}, err
	}
	if d.stop, err = parseDuration("engine.stop_timeout", cfg.Engine.StopTimeout); err != nil {
		return durationSet{}, err
	}
	return d, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
