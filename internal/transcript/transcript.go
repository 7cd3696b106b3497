// Package transcript defines the persisted transcription record and its
// storage interface, with PostgreSQL and in-memory implementations.
package transcript

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no transcript with the requested ID exists.
var ErrNotFound = errors.New("transcript: not found")

// Transcript is one stored transcription run.
type Transcript struct {
	// ID is the store-assigned identifier.
	ID int64 `json:"id"`

	// AudioFilename is the client-declared name of the uploaded file.
	AudioFilename string `json:"audio_filename"`

	// Audio is the original uploaded payload. Omitted from [Store.List]
	// results.
	Audio []byte `json:"-"`

	// ConvertedText is the cleaned transcription before grammar correction.
	ConvertedText string `json:"converted_text"`

	// CorrectedText is the grammar-corrected transcription.
	CorrectedText string `json:"corrected_text"`

	// Strategy names the pipeline strategy that produced the texts.
	Strategy string `json:"strategy"`

	// CreatedAt is when the record was stored.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists transcripts. Implementations must be safe for concurrent
// use.
type Store interface {
	// Create stores t, assigning ID, CreatedAt, and UpdatedAt in place.
	Create(ctx context.Context, t *Transcript) error

	// Get returns the transcript with the given ID, including its audio
	// payload. Returns [ErrNotFound] when it does not exist.
	Get(ctx context.Context, id int64) (Transcript, error)

	// List returns all transcripts ordered newest first, without audio
	// payloads.
	List(ctx context.Context) ([]Transcript, error)

	// Delete removes the transcript with the given ID. Returns
	// [ErrNotFound] when it does not exist.
	Delete(ctx context.Context, id int64) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}
