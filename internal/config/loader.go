package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills defaults for omitted
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields from [Default]. A MetricsAddr of
// "off" is the explicit way to disable the metrics endpoint, since an empty
// string is indistinguishable from an omitted field.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	switch cfg.Server.MetricsAddr {
	case "":
		cfg.Server.MetricsAddr = def.Server.MetricsAddr
	case "off":
		cfg.Server.MetricsAddr = ""
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Audio.FramesPerBuffer == 0 {
		cfg.Audio.FramesPerBuffer = def.Audio.FramesPerBuffer
	}
	if cfg.Harmony.WindowMs == 0 {
		cfg.Harmony.WindowMs = def.Harmony.WindowMs
	}
	if cfg.Harmony.StartLeadMs == 0 {
		cfg.Harmony.StartLeadMs = def.Harmony.StartLeadMs
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is out of range [8000, 192000]", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FramesPerBuffer < 64 || cfg.Audio.FramesPerBuffer > 8192 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d is out of range [64, 8192]", cfg.Audio.FramesPerBuffer))
	}

	if cfg.Harmony.WindowMs < 20 || cfg.Harmony.WindowMs > 120 {
		errs = append(errs, fmt.Errorf("harmony.window_ms %.1f is out of range [20, 120]", cfg.Harmony.WindowMs))
	}
	if cfg.Harmony.DelayMs < 0 || cfg.Harmony.DelayMs > 5000 {
		errs = append(errs, fmt.Errorf("harmony.delay_ms %.1f is out of range [0, 5000]", cfg.Harmony.DelayMs))
	}
	if cfg.Harmony.StartLeadMs < 10 || cfg.Harmony.StartLeadMs > 2000 {
		errs = append(errs, fmt.Errorf("harmony.start_lead_ms %.1f is out of range [10, 2000]", cfg.Harmony.StartLeadMs))
	}

	return errors.Join(errs...)
}
