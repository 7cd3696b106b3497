// Package whisper provides stt.Provider implementations backed by
// whisper.cpp: an HTTP client for a running whisper-server binary, and a
// native CGO-bound provider that loads the model in-process.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/voxscribe/internal/stt"
)

// defaultTimeout bounds one inference round-trip against the whisper server.
const defaultTimeout = 120 * time.Second

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithOptions overrides the decode parameters. Defaults to
// [stt.DefaultOptions].
func WithOptions(opts stt.Options) Option {
	return func(p *Provider) {
		p.opts = opts
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider against a whisper.cpp server's
// POST /inference endpoint. It holds no per-request state and is safe for
// concurrent use.
type Provider struct {
	serverURL  string
	model      string
	opts       stt.Options
	httpClient *http.Client
}

// New creates a Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		opts:       stt.DefaultOptions,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads the audio file at path to the whisper server as
// multipart/form-data and returns the transcribed text. The decode
// parameters are forwarded as form fields alongside the file.
func (p *Provider) Transcribe(ctx context.Context, path string) (stt.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: write audio data: %w", err)
	}

	// entropy_thold is the server's counterpart to the compression ratio
	// gate; both default to 2.4.
	fields := map[string]string{
		"language":        p.opts.Language,
		"temperature":     formatFloat(p.opts.Temperature),
		"no_speech_thold": formatFloat(p.opts.NoSpeechThreshold),
		"entropy_thold":   formatFloat(p.opts.CompressionRatioThreshold),
		"logprob_thold":   formatFloat(p.opts.LogProbThreshold),
		"response_format": "json",
		"no_timestamps":   strconv.FormatBool(!p.opts.WordTimestamps),
	}
	if p.model != "" {
		fields["model"] = p.model
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stt.Result{}, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return stt.Result{Text: strings.TrimSpace(result.Text)}, nil
}

// formatFloat renders a float form field without trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
