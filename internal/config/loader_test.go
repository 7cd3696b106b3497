package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/voxscribe/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
pipeline:
  mode: enhanced
  denoise: true
  target_sample_rate: 16000
  max_repetitions: 2
providers:
  stt:
    name: whisper
    base_url: http://localhost:9000
    options:
      language: en
  fallbacks:
    - name: openai
      api_key: sk-test
grammar:
  url: http://localhost:8010
storage:
  postgres_dsn: "postgres://localhost/voxscribe"
`

func TestLoadFromReader_ValidConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Pipeline.Mode != config.ModeEnhanced {
		t.Errorf("Mode = %q", cfg.Pipeline.Mode)
	}
	if !cfg.Pipeline.DenoiseEnabled() {
		t.Error("DenoiseEnabled() = false")
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.BaseURL != "http://localhost:9000" {
		t.Errorf("STT entry = %+v", cfg.Providers.STT)
	}
	if len(cfg.Providers.Fallbacks) != 1 || cfg.Providers.Fallbacks[0].Name != "openai" {
		t.Errorf("Fallbacks = %+v", cfg.Providers.Fallbacks)
	}
	if lang := cfg.Providers.STT.Options["language"]; lang != "en" {
		t.Errorf("options.language = %v", lang)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: whisper
    base_url: http://localhost:9000
sevrer:
  listen_addr: ":8080"
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		yaml     string
		wantPart string
	}{
		{
			name:     "invalid log level",
			yaml:     "server:\n  log_level: bananas\nproviders:\n  stt:\n    name: whisper\n    base_url: http://x\n",
			wantPart: "log_level",
		},
		{
			name:     "invalid pipeline mode",
			yaml:     "pipeline:\n  mode: turbo\nproviders:\n  stt:\n    name: whisper\n    base_url: http://x\n",
			wantPart: "pipeline.mode",
		},
		{
			name:     "missing engine name",
			yaml:     "server:\n  listen_addr: \":8080\"\n",
			wantPart: "providers.stt.name is required",
		},
		{
			name:     "whisper without base_url",
			yaml:     "providers:\n  stt:\n    name: whisper\n",
			wantPart: "base_url is required",
		},
		{
			name:     "whisper-native without model",
			yaml:     "providers:\n  stt:\n    name: whisper-native\n",
			wantPart: "model (GGML model path) is required",
		},
		{
			name:     "openai without api key",
			yaml:     "providers:\n  stt:\n    name: openai\n",
			wantPart: "api_key is required",
		},
		{
			name:     "fallback without name",
			yaml:     "providers:\n  stt:\n    name: whisper\n    base_url: http://x\n  fallbacks:\n    - base_url: http://y\n",
			wantPart: "providers.fallbacks[0].name is required",
		},
		{
			name:     "negative max_repetitions",
			yaml:     "pipeline:\n  max_repetitions: -1\nproviders:\n  stt:\n    name: whisper\n    base_url: http://x\n",
			wantPart: "max_repetitions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected a validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Errorf("error should mention %q, got: %v", tt.wantPart, err)
			}
		})
	}
}

func TestValidate_UnknownEngineNameIsOnlyAWarning(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: some-future-engine
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unknown engine name must not be a hard error: %v", err)
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: shout
pipeline:
  mode: turbo
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, part := range []string{"log_level", "pipeline.mode", "providers.stt.name"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("joined error should mention %q, got: %v", part, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.Load("/nonexistent/voxscribe.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
