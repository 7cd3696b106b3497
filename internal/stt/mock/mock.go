// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to feed controlled transcription text into the pipeline and
// inspect which file paths were submitted:
//
//	p := &mock.Provider{Text: "hello world"}
//	res, _ := p.Transcribe(ctx, "/tmp/audio.wav")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxscribe/internal/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Path is the audio file path passed to Transcribe.
	Path string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is the transcription returned by Transcribe.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFunc, if non-nil, overrides Text/Err entirely.
	TranscribeFunc func(ctx context.Context, path string) (stt.Result, error)

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(ctx context.Context, path string) (stt.Result, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Path: path})
	fn := p.TranscribeFunc
	text, err := p.Text, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, path)
	}
	if err != nil {
		return stt.Result{}, err
	}
	return stt.Result{Text: text}, nil
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
