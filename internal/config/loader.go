package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidEngineNames lists known transcription engine names. Used by [Validate]
// to warn about unrecognised names.
var ValidEngineNames = []string{"whisper", "whisper-native", "openai"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Pipeline
	if cfg.Pipeline.Mode != "" && !cfg.Pipeline.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("pipeline.mode %q is invalid; valid values: enhanced, basic", cfg.Pipeline.Mode))
	}
	if cfg.Pipeline.TargetSampleRate < 0 {
		errs = append(errs, fmt.Errorf("pipeline.target_sample_rate %d must not be negative", cfg.Pipeline.TargetSampleRate))
	}
	if cfg.Pipeline.MaxRepetitions < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_repetitions %d must not be negative", cfg.Pipeline.MaxRepetitions))
	}

	// Engines
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	} else {
		errs = append(errs, validateEngineEntry("providers.stt", cfg.Providers.STT)...)
	}
	for i, entry := range cfg.Providers.Fallbacks {
		prefix := fmt.Sprintf("providers.fallbacks[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		errs = append(errs, validateEngineEntry(prefix, entry)...)
	}

	// Optional services
	if cfg.Grammar.URL == "" {
		slog.Warn("grammar.url is empty; grammar correction is disabled")
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; transcripts will be kept in memory only")
	}

	return errors.Join(errs...)
}

// validateEngineEntry checks the per-engine required fields and warns about
// unknown engine names.
func validateEngineEntry(prefix string, entry ProviderEntry) []error {
	var errs []error

	if !slices.Contains(ValidEngineNames, entry.Name) {
		slog.Warn("unknown engine name — may be a typo or third-party engine",
			"field", prefix,
			"name", entry.Name,
			"known", ValidEngineNames,
		)
		return nil
	}

	switch entry.Name {
	case "whisper":
		if entry.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for the whisper engine", prefix))
		}
	case "whisper-native":
		if entry.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model (GGML model path) is required for the whisper-native engine", prefix))
		}
	case "openai":
		if entry.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for the openai engine", prefix))
		}
	}
	return errs
}
