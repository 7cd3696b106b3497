// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/voxscribe/internal/stt"
)

// modelSampleRate is the sample rate whisper models are trained on. Input at
// other rates is linearly resampled before inference.
const modelSampleRate = 16000

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using the whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all requests; each Transcribe call creates its
// own whisper context, so concurrent calls do not interfere.
type NativeProvider struct {
	model whisperlib.Model
	opts  stt.Options
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeOptions overrides the decode parameters. Defaults to
// [stt.DefaultOptions]. The bindings expose only a subset of the decode
// knobs; unsupported parameters fall back to whisper.cpp defaults.
func WithNativeOptions(opts stt.Options) NativeOption {
	return func(p *NativeProvider) { p.opts = opts }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The model is loaded once and shared across all
// requests. The caller must call Close when the provider is no longer
// needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model: model,
		opts:  stt.DefaultOptions,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file at path, runs whisper.cpp inference with a
// fresh context, and returns the concatenated segment text.
func (p *NativeProvider) Transcribe(ctx context.Context, path string) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read audio file: %w", err)
	}
	samples, err := wavToFloat32Mono(data)
	if err != nil {
		return stt.Result{}, err
	}

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines, so a fresh context per call keeps calls independent.
	wctx, err := p.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(p.opts.Language); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", p.opts.Language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return stt.Result{Text: strings.Join(parts, " ")}, nil
}

// wavToFloat32Mono parses a PCM16 RIFF/WAVE payload into float32 mono
// samples at [modelSampleRate]. Stereo input is averaged per frame and other
// sample rates are linearly resampled, matching what the preprocessing stage
// would have produced on the primary path — the fallback path hands raw
// uploads to this provider directly.
func wavToFloat32Mono(data []byte) ([]float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("whisper: not a RIFF/WAVE file")
	}

	var (
		channels   int
		sampleRate int
		pcm        []byte
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("whisper: truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("whisper: fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(data[body : body+2]); format != 1 {
				return nil, fmt.Errorf("whisper: unsupported audio format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			if bits := binary.LittleEndian.Uint16(data[body+14 : body+16]); bits != 16 {
				return nil, fmt.Errorf("whisper: unsupported bit depth %d (want 16)", bits)
			}
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}
	if channels <= 0 || sampleRate <= 0 || pcm == nil {
		return nil, errors.New("whisper: missing fmt or data chunk")
	}

	frames := len(pcm) / (2 * channels)
	samples := make([]float32, frames)
	for i := range frames {
		var sum int32
		for c := range channels {
			idx := (i*channels + c) * 2
			sum += int32(int16(pcm[idx]) | int16(pcm[idx+1])<<8)
		}
		samples[i] = float32(sum/int32(channels)) / 32768.0
	}

	if sampleRate != modelSampleRate {
		samples = resampleFloat32(samples, sampleRate, modelSampleRate)
	}
	return samples, nil
}

// resampleFloat32 linearly resamples mono samples from srcRate to dstRate.
func resampleFloat32(samples []float32, srcRate, dstRate int) []float32 {
	if len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}
	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))
		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}
