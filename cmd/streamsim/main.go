// streamsim is a stand-in device: it serves concatenated, delimiter-free
// JSON telemetry over TCP at a configurable rate, optionally reproducing
// firmware quirks (trailing commas, line noise), and logs any control
// commands it receives. It lets streamlinkd soak without hardware.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kestrelworks/streamlink/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "streamsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "optional scenario config path")
	flag.Parse()

	observability.InitLogger("streamsim")

	cfg := defaultScenarioConfig()
	if *configPath != "" {
		loaded, err := loadScenarioConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Int("rate_hz", cfg.RateHz).Msg("simulated device listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go serveConn(conn, cfg)
	}
}

func serveConn(conn net.Conn, cfg scenarioConfig) {
	defer conn.Close()
	logger := log.With().Str("peer", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("client connected")

	go drainCommands(conn, logger)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RateHz))
	defer ticker.Stop()

	seq := 0
	for range ticker.C {
		frame := nextFrame(cfg, rng, seq)
		if _, err := conn.Write(frame); err != nil {
			logger.Info().Err(err).Msg("client gone")
			return
		}
		seq++
	}
}

// nextFrame renders one telemetry object, sometimes mangled the way the
// real firmware mangles it.
func nextFrame(cfg scenarioConfig, rng *rand.Rand, seq int) []byte {
	t := float64(seq) / float64(cfg.RateHz)
	sample := map[string]any{
		"device": cfg.DeviceID,
		"seq":    seq,
		"t":      t,
		"pose": map[string]any{
			"x": math.Sin(t),
			"y": math.Cos(t),
			"z": 0.1 * math.Sin(t/3),
		},
		"rotation": []float64{0, 0, math.Sin(t / 2), math.Cos(t / 2)},
		"battery":  87,
	}
	body, err := json.Marshal(sample)
	if err != nil {
		return nil
	}

	if rng.Intn(100) < cfg.TrailingCommaPct {
		// `{"a":1}` becomes `{"a":1,}`.
		body = append(body[:len(body)-1], ',', '}')
	}
	if cfg.GarbagePct > 0 && rng.Intn(100) < cfg.GarbagePct {
		body = append(body, []byte("\x00\x00??~~")...)
	}
	return body
}

func drainCommands(conn net.Conn, logger zerolog.Logger) {
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			logger.Info().Hex("command", buf[:n]).Msg("command received")
		}
	}
}
