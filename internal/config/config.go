// Package config provides the configuration schema, loader, and file watcher
// for the vocalharmony audition tool.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Harmony HarmonyConfig `yaml:"harmony"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AudioConfig holds capture-side device settings.
type AudioConfig struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// FramesPerBuffer is the capture callback buffer size in frames.
	FramesPerBuffer int `yaml:"frames_per_buffer"`
}

// HarmonyConfig tunes the voice chains and playback scheduling.
type HarmonyConfig struct {
	// WindowMs is the pitch-shift analysis window in milliseconds, in the
	// range [20, 120].
	WindowMs float64 `yaml:"window_ms"`

	// DelayMs is silence prepended to every chain in milliseconds.
	DelayMs float64 `yaml:"delay_ms"`

	// StartLeadMs is how far in the future playback start times are
	// scheduled, in milliseconds.
	StartLeadMs float64 `yaml:"start_lead_ms"`
}

// Default returns a config with every field at its default value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel:    LogInfo,
			MetricsAddr: ":9090",
		},
		Audio: AudioConfig{
			SampleRate:      44100,
			FramesPerBuffer: 512,
		},
		Harmony: HarmonyConfig{
			WindowMs:    100,
			DelayMs:     0,
			StartLeadMs: 120,
		},
	}
}
