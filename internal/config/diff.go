package config

// ConfigDiff describes what changed between two configs. Only fields that
// can be applied without restarting the audio device are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// HarmonyChanged is true when any chain tuning value changed. Chains
	// built before the change keep their old parameters until they are
	// next disposed and recreated.
	HarmonyChanged bool
	NewHarmony     HarmonyConfig
}

// Empty reports whether the diff contains no changes.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.HarmonyChanged
}

// Diff compares old and new configs and returns what changed. Only tracks
// changes that are safe to apply without restart; audio device settings are
// deliberately ignored.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Harmony != new.Harmony {
		d.HarmonyChanged = true
		d.NewHarmony = new.Harmony
	}
	return d
}
