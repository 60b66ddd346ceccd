package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// scenarioConfig shapes the simulated device: emission rate plus the
// firmware quirks worth reproducing (trailing commas, line noise).
type scenarioConfig struct {
	Listen           string
	DeviceID         string
	RateHz           int
	TrailingCommaPct int
	GarbagePct       int
}

func defaultScenarioConfig() scenarioConfig {
	return scenarioConfig{
		Listen:           ":9321",
		DeviceID:         "sim-tracker-01",
		RateHz:           120,
		TrailingCommaPct: 20,
		GarbagePct:       0,
	}
}

type scenarioFile struct {
	Listen           string `toml:"listen"`
	DeviceID         string `toml:"device_id"`
	RateHz           int    `toml:"rate_hz"`
	TrailingCommaPct int    `toml:"trailing_comma_pct"`
	GarbagePct       int    `toml:"garbage_pct"`
}

func loadScenarioConfig(path string) (scenarioConfig, error) {
	cfg := defaultScenarioConfig()

	var raw scenarioFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return scenarioConfig{}, fmt.Errorf("load scenario config: %w", err)
	}

	if meta.IsDefined("listen") {
		if addr := strings.TrimSpace(raw.Listen); addr != "" {
			cfg.Listen = addr
		}
	}
	if meta.IsDefined("device_id") {
		if id := strings.TrimSpace(raw.DeviceID); id != "" {
			cfg.DeviceID = id
		}
	}
	if meta.IsDefined("rate_hz") {
		cfg.RateHz = raw.RateHz
	}
	if meta.IsDefined("trailing_comma_pct") {
		cfg.TrailingCommaPct = raw.TrailingCommaPct
	}
	if meta.IsDefined("garbage_pct") {
		cfg.GarbagePct = raw.GarbagePct
	}

	if err := validateScenario(cfg); err != nil {
		return scenarioConfig{}, err
	}
	return cfg, nil
}

func validateScenario(cfg scenarioConfig) error {
	if cfg.RateHz <= 0 || cfg.RateHz > 10000 {
		return fmt.Errorf("rate_hz out of range: %d", cfg.RateHz)
	}
	if cfg.TrailingCommaPct < 0 || cfg.TrailingCommaPct > 100 {
		return fmt.Errorf("trailing_comma_pct out of range: %d", cfg.TrailingCommaPct)
	}
	if cfg.GarbagePct < 0 || cfg.GarbagePct > 100 {
		return fmt.Errorf("garbage_pct out of range: %d", cfg.GarbagePct)
	}
	return nil
}
