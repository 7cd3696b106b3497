// Package openai provides an stt.Provider backed by the OpenAI hosted
// transcription API. It is the drop-in alternative for deployments without a
// local whisper.cpp model and the usual fallback target behind the native
// provider.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/voxscribe/internal/stt"
)

// defaultModel is the hosted transcription model used when none is configured.
const defaultModel = string(oai.AudioModelWhisper1)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
	opts    stt.Options
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the transcription model (e.g., "whisper-1").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithOptions overrides the decode parameters. Defaults to
// [stt.DefaultOptions]. The hosted API accepts language and temperature;
// the threshold parameters are server-side concerns it does not expose.
func WithOptions(opts stt.Options) Option {
	return func(c *config) {
		c.opts = opts
	}
}

// Provider implements stt.Provider using the OpenAI transcription API.
type Provider struct {
	client oai.Client
	model  string
	opts   stt.Options
}

// New constructs a new OpenAI transcription Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{
		model: defaultModel,
		opts:  stt.DefaultOptions,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
		opts:   cfg.opts,
	}, nil
}

// Transcribe uploads the audio file at path to the transcription endpoint
// and returns the text.
func (p *Provider) Transcribe(ctx context.Context, path string) (stt.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return stt.Result{}, fmt.Errorf("openai: open audio file: %w", err)
	}
	defer f.Close()

	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:        oai.File(f, filepath.Base(path), "audio/wav"),
		Model:       oai.AudioModel(p.model),
		Language:    oai.String(p.opts.Language),
		Temperature: oai.Float(p.opts.Temperature),
	})
	if err != nil {
		return stt.Result{}, fmt.Errorf("openai: transcribe: %w", err)
	}

	return stt.Result{Text: strings.TrimSpace(resp.Text)}, nil
}
