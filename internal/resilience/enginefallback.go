package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/voxscribe/internal/stt"
)

// ErrAllEnginesFailed is returned by [EngineFallback.Transcribe] when every
// registered engine fails or has an open breaker.
var ErrAllEnginesFailed = errors.New("all transcription engines failed")

// engineEntry pairs a transcription engine with its dedicated breaker.
type engineEntry struct {
	name    string
	engine  stt.Provider
	breaker *Breaker
}

// EngineFallback implements [stt.Provider] with automatic failover across
// transcription engines. Engines are tried in registration order; entries
// with an open breaker are skipped. It is safe for concurrent use.
type EngineFallback struct {
	entries []engineEntry
	cfg     BreakerConfig
}

// Compile-time interface assertion.
var _ stt.Provider = (*EngineFallback)(nil)

// NewEngineFallback creates an [EngineFallback] with primary as the
// preferred engine. cfg configures the per-engine breakers; the Name field
// is overridden per entry.
func NewEngineFallback(primary stt.Provider, primaryName string, cfg BreakerConfig) *EngineFallback {
	f := &EngineFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional engine, tried after all earlier entries.
func (f *EngineFallback) AddFallback(name string, engine stt.Provider) {
	f.add(name, engine)
}

func (f *EngineFallback) add(name string, engine stt.Provider) {
	cfg := f.cfg
	cfg.Name = name
	f.entries = append(f.entries, engineEntry{
		name:    name,
		engine:  engine,
		breaker: NewBreaker(cfg),
	})
}

// Transcribe tries each engine in order until one succeeds. Returns
// [ErrAllEnginesFailed] wrapped with the last error when none does.
func (f *EngineFallback) Transcribe(ctx context.Context, path string) (stt.Result, error) {
	var lastErr error
	for i := range f.entries {
		entry := &f.entries[i]

		var result stt.Result
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = entry.engine.Transcribe(ctx, path)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping transcription engine (circuit open)", "engine", entry.name)
		} else {
			slog.Warn("transcription engine failed, trying next",
				"engine", entry.name, "error", err)
		}
	}
	return stt.Result{}, fmt.Errorf("%w: %v", ErrAllEnginesFailed, lastErr)
}
