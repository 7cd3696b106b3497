// Package preprocess validates uploaded audio and conditions it for
// transcription.
//
// Uploads must be PCM16 WAV and at most [MaxUploadBytes]; everything else is
// rejected before any processing starts. Conditioning (mono downmix, resample
// to 16 kHz, noise gating) is strictly best-effort: when any step fails — or
// denoising is disabled — the original bytes are written out verbatim so the
// pipeline always receives a usable file path. The only hard failure mode is
// being unable to create a temporary file at all.
package preprocess

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	// MaxUploadBytes is the upper bound on accepted audio payloads (50 MiB).
	MaxUploadBytes = 50 * 1024 * 1024

	// AcceptedExtension is the only upload extension accepted, matched
	// case-insensitively.
	AcceptedExtension = ".wav"

	// TargetSampleRate is the rate audio is resampled to before
	// transcription. 16 kHz is what whisper models are trained on.
	TargetSampleRate = 16000

	// noiseReduction is the proportion of amplitude removed from
	// noise-classified windows by the gate.
	noiseReduction = 0.8
)

// Blob is an uploaded audio payload, held in memory for the duration of one
// request. The core never persists it; storage is the transcript store's job.
type Blob struct {
	// Filename is the client-declared name, used for extension validation
	// and for the stored record.
	Filename string

	// Data is the raw payload.
	Data []byte
}

// Validate reports whether blob is acceptable for processing: the declared
// filename must end in [AcceptedExtension] (case-insensitive) and the payload
// must not exceed [MaxUploadBytes]. Anything ambiguous is invalid.
func Validate(blob Blob) bool {
	if !strings.HasSuffix(strings.ToLower(blob.Filename), AcceptedExtension) {
		return false
	}
	if len(blob.Data) > MaxUploadBytes {
		return false
	}
	return true
}

// Option is a functional option for configuring a [Preprocessor].
type Option func(*Preprocessor)

// WithDenoise enables or disables the noise-reduction pass. When disabled the
// preprocessor degrades to writing uploads out verbatim, mirroring the
// behaviour when the capability is unavailable. Enabled by default.
func WithDenoise(enabled bool) Option {
	return func(p *Preprocessor) {
		p.denoise = enabled
	}
}

// WithTargetSampleRate overrides the resample target. Defaults to
// [TargetSampleRate].
func WithTargetSampleRate(rate int) Option {
	return func(p *Preprocessor) {
		p.targetRate = rate
	}
}

// WithTempDir sets the directory temporary audio files are created in.
// Defaults to the OS temp directory.
func WithTempDir(dir string) Option {
	return func(p *Preprocessor) {
		p.tempDir = dir
	}
}

// Preprocessor conditions validated uploads for the transcription engine.
// It is stateless apart from configuration and safe for concurrent use.
type Preprocessor struct {
	denoise    bool
	targetRate int
	tempDir    string
}

// New returns a [Preprocessor] with the supplied options applied.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		denoise:    true,
		targetRate: TargetSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Denoise decodes blob, downmixes to mono, resamples to the target rate,
// applies the noise gate, and writes the result to a new temporary WAV file
// whose path is returned. The caller owns the file and must remove it.
//
// Denoise degrades rather than failing: when the denoise pass is disabled or
// any conditioning step fails, the original bytes are written out verbatim.
// An error is returned only when even that raw write fails.
func (p *Preprocessor) Denoise(blob Blob) (string, error) {
	if !p.denoise {
		slog.Debug("denoise disabled, using original audio", "filename", blob.Filename)
		return p.WriteRaw(blob)
	}

	path, err := p.condition(blob)
	if err != nil {
		slog.Warn("audio conditioning failed, using original audio",
			"filename", blob.Filename, "error", err)
		return p.WriteRaw(blob)
	}
	return path, nil
}

// WriteRaw writes blob's bytes verbatim to a new temporary file and returns
// its path. The caller owns the file and must remove it.
func (p *Preprocessor) WriteRaw(blob Blob) (string, error) {
	f, err := os.CreateTemp(p.tempDir, "voxscribe-*.wav")
	if err != nil {
		return "", fmt.Errorf("preprocess: create temp file: %w", err)
	}
	if _, err := f.Write(blob.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("preprocess: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("preprocess: close temp file: %w", err)
	}
	return f.Name(), nil
}

// condition runs the full decode → downmix → resample → gate → encode chain.
// Each step stays separately testable; Denoise handles the degradation
// policy.
func (p *Preprocessor) condition(blob Blob) (string, error) {
	samples, rate, channels, err := decodeWAV(blob.Data)
	if err != nil {
		return "", err
	}

	if channels > 1 {
		samples = downmixMono(samples, channels)
	}
	if rate != p.targetRate {
		samples = resampleLinear(samples, rate, p.targetRate)
		rate = p.targetRate
	}
	samples = reduceNoise(samples, rate, noiseReduction)

	out, err := os.CreateTemp(p.tempDir, "voxscribe-*_cleaned.wav")
	if err != nil {
		return "", fmt.Errorf("preprocess: create output file: %w", err)
	}
	if _, err := out.Write(encodeWAV(samples, rate)); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("preprocess: write output file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("preprocess: close output file: %w", err)
	}
	return out.Name(), nil
}

// RemoveTemp deletes a temporary audio file created by this package. Deletion
// failures never affect the request outcome; they are logged so leaked files
// can be spotted.
func RemoveTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove temporary audio file", "path", path, "error", err)
	}
}
