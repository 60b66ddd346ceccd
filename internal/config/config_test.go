package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kestrelworks/streamlink/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamlink.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
transport = "serial"

[serial]
port = "/dev/ttyACM2"

[session]
connect_attempts = 5

[engine]
poll_interval = "2ms"
buffer_ceiling = 4096

[admin]
addr = ":9400"
cors_origins = ["http://localhost:3000"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyACM2" {
		t.Fatalf("unexpected port: %q", cfg.Serial.Port)
	}
	if cfg.Serial.BaudRate != 460800 {
		t.Fatalf("default baud rate lost: %d", cfg.Serial.BaudRate)
	}
	if cfg.Admin.Addr != ":9400" {
		t.Fatalf("unexpected admin addr: %q", cfg.Admin.Addr)
	}

	clientCfg, err := ClientConfig(cfg)
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	if clientCfg.ConnectAttempts != 5 {
		t.Fatalf("unexpected connect attempts: %d", clientCfg.ConnectAttempts)
	}
	if clientCfg.Engine.PollInterval != 2*time.Millisecond {
		t.Fatalf("unexpected poll interval: %v", clientCfg.Engine.PollInterval)
	}
	if clientCfg.Engine.BufferCeiling != 4096 {
		t.Fatalf("unexpected buffer ceiling: %d", clientCfg.Engine.BufferCeiling)
	}
	// Unset durations fall back to engine defaults.
	if clientCfg.Engine.RetryInterval != 100*time.Millisecond {
		t.Fatalf("unexpected retry interval: %v", clientCfg.Engine.RetryInterval)
	}
}

func TestLoadTCPTransport(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
transport = "tcp"

[tcp]
address = "127.0.0.1:9321"
dial_timeout = "250ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tr, err := BuildTransport(cfg)
	if err != nil {
		t.Fatalf("build transport: %v", err)
	}
	if tr == nil {
		t.Fatalf("nil transport")
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown transport",
			body: `transport = "carrier-pigeon"`,
			want: "unknown transport",
		},
		{
			name: "missing tcp address",
			body: `transport = "tcp"`,
			want: "missing address",
		},
		{
			name: "bad duration",
			body: "transport = \"serial\"\n[engine]\npoll_interval = \"fast\"",
			want: "poll_interval",
		},
		{
			name: "negative duration",
			body: "transport = \"serial\"\n[engine]\nretry_interval = \"-5ms\"",
			want: "retry_interval",
		},
		{
			name: "zero baud",
			body: "transport = \"serial\"\n[serial]\nbaud_rate = -1",
			want: "baud_rate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
