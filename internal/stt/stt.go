// Package stt defines the transcription engine contract: a batch
// speech-to-text provider that converts an audio file on disk into text.
//
// Implementations live in subpackages (whisper, openai) plus a mock for
// tests. All providers are constructed once at startup and shared across
// requests; each Transcribe call is independent, so providers must be safe
// for concurrent use.
package stt

import "context"

// DefaultOptions are the decode parameters every provider starts from.
// They match the tuning the service was calibrated with and are applied by
// each backend to the extent it supports them.
var DefaultOptions = Options{
	Language:                  "en",
	Temperature:               0,
	NoSpeechThreshold:         0.6,
	CompressionRatioThreshold: 2.4,
	LogProbThreshold:          -1.0,
	WordTimestamps:            false,
}

// Options carries the decoding parameters passed to the engine.
type Options struct {
	// Language is the BCP-47 code for the expected speech language.
	Language string

	// Temperature controls decode sampling. 0 selects greedy decoding.
	Temperature float64

	// NoSpeechThreshold is the probability above which a segment is treated
	// as silence and dropped.
	NoSpeechThreshold float64

	// CompressionRatioThreshold flags degenerate repetitive output; segments
	// compressing better than this ratio are treated as failed decodes.
	CompressionRatioThreshold float64

	// LogProbThreshold is the mean log-probability below which a decode is
	// treated as failed.
	LogProbThreshold float64

	// WordTimestamps enables per-word timing. Disabled for faster decodes;
	// nothing downstream consumes word timing.
	WordTimestamps bool
}

// Result is the engine's output for one audio file.
type Result struct {
	// Text is the transcribed text, whitespace-trimmed.
	Text string
}

// Provider transcribes an audio file on disk.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe reads the audio file at path and returns its transcription.
	// The file is 16 kHz mono PCM16 WAV on the primary pipeline path;
	// providers should tolerate other WAV rates for the fallback path.
	Transcribe(ctx context.Context, path string) (Result, error)
}
