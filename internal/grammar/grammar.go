// Package grammar corrects cleaned transcripts against a
// LanguageTool-compatible checking service.
//
// The service returns positional edit suggestions ("matches") computed
// against the exact text that was submitted. [ApplyMatches] splices them in
// descending offset order so earlier replacements never shift the offsets of
// matches that have not been applied yet. Offsets are only meaningful against
// the string they were computed from — never re-apply matches to an already
// corrected string.
//
// The client itself reports failures; the fail-open decision (keep the
// uncorrected text) is the pipeline's, so that degradations stay visible in
// the request's stage record.
package grammar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
)

// requestTimeout bounds one round-trip to the grammar service. A timeout is
// treated like any other network failure by the caller.
const requestTimeout = 10 * time.Second

// checkLanguage is the language variant requested for every check.
const checkLanguage = "en-US"

// Replacement is one suggested substitution for a matched span.
type Replacement struct {
	Value string `json:"value"`
}

// Match is one suggested edit, anchored to an offset in the original text.
type Match struct {
	// Offset is the start of the span in the text the match was computed
	// against, counted in characters.
	Offset int `json:"offset"`

	// Length is the span length in characters.
	Length int `json:"length"`

	// Replacements is the ordered candidate list; the first entry is the
	// service's preferred substitution. May be empty.
	Replacements []Replacement `json:"replacements"`
}

// checkResponse is the service's JSON response body.
type checkResponse struct {
	Matches []Match `json:"matches"`
}

// Client checks text against a LanguageTool-compatible endpoint.
// It is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, mainly for tests. The replacement
// should carry its own timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		g.httpClient = c
	}
}

// New creates a Client for the LanguageTool check endpoint at endpoint
// (e.g., "http://localhost:8081/v2/check"). The endpoint must be an absolute
// http(s) URL so that a misconfigured service surfaces at startup instead of
// as silent per-request degradation.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("grammar: endpoint must not be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("grammar: parse endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("grammar: endpoint %q must be an absolute http(s) URL", endpoint)
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Endpoint returns the configured check endpoint, for health reporting.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Correct submits text for checking and returns it with the service's
// suggested edits applied. Any network failure, non-success status, or
// malformed response is returned as an error with the input untouched; the
// caller decides whether to degrade.
func (c *Client) Correct(ctx context.Context, text string) (string, error) {
	form := url.Values{
		"text":     {text},
		"language": {checkLanguage},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return text, fmt.Errorf("grammar: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return text, fmt.Errorf("grammar: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return text, fmt.Errorf("grammar: service returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return text, fmt.Errorf("grammar: read response body: %w", err)
	}

	var result checkResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return text, fmt.Errorf("grammar: parse JSON response: %w", err)
	}

	return ApplyMatches(text, result.Matches), nil
}

// ApplyMatches splices each match's first replacement into text over
// [Offset, Offset+Length). Matches are applied in descending offset order
// regardless of their order in the input, so offsets of pending matches stay
// valid. Matches with no replacements are skipped. Matches are assumed
// disjoint — the service contract — and out-of-range spans are ignored.
func ApplyMatches(text string, matches []Match) string {
	if len(matches) == 0 {
		return text
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset > sorted[j].Offset
	})

	// Offsets and lengths count characters, not bytes; splice on runes so a
	// multibyte character ahead of a match cannot shift the edit position.
	corrected := []rune(text)
	for _, m := range sorted {
		if len(m.Replacements) == 0 {
			continue
		}
		if m.Offset < 0 || m.Length < 0 || m.Offset+m.Length > len(corrected) {
			continue
		}
		corrected = slices.Concat(
			corrected[:m.Offset],
			[]rune(m.Replacements[0].Value),
			corrected[m.Offset+m.Length:],
		)
	}
	return string(corrected)
}
