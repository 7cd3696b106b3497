package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ModeChanged bool
	NewMode     Mode

	DenoiseChanged bool
	NewDenoise     bool

	MaxRepetitionsChanged bool
	NewMaxRepetitions     int
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ModeChanged || d.DenoiseChanged || d.MaxRepetitionsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; engine,
// grammar, and storage changes require one.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Pipeline.Mode != new.Pipeline.Mode {
		d.ModeChanged = true
		d.NewMode = new.Pipeline.Mode
	}

	if old.Pipeline.DenoiseEnabled() != new.Pipeline.DenoiseEnabled() {
		d.DenoiseChanged = true
		d.NewDenoise = new.Pipeline.DenoiseEnabled()
	}

	if old.Pipeline.MaxRepetitions != new.Pipeline.MaxRepetitions {
		d.MaxRepetitionsChanged = true
		d.NewMaxRepetitions = new.Pipeline.MaxRepetitions
	}

	return d
}
