// Package pipeline orchestrates the transcription flow: audio validation and
// conditioning, speech-to-text, transcript cleanup, and grammar correction.
//
// Two strategies implement [Processor]. [Basic] writes the upload out
// verbatim and transcribes it as-is; [Enhanced] conditions the audio first
// and hands the request over to a [Basic] run when anything after validation
// fails. Every run reports per-stage provenance in [Result.Stages], so a
// degraded stage (say, an unreachable grammar service) is visible to the
// caller instead of silently producing a lower-quality transcript.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/voxscribe/internal/grammar"
	"github.com/MrWong99/voxscribe/internal/preprocess"
)

// ErrInvalidAudio is returned by [Processor.Process] when the upload fails
// validation. The audio is never touched in that case.
var ErrInvalidAudio = errors.New("pipeline: invalid audio upload")

// ProcessingError reports a fatal failure of a single pipeline stage.
type ProcessingError struct {
	// Stage is the stage that failed, one of the Stage* constants.
	Stage string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("pipeline: stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProcessingError) Unwrap() error { return e.Err }

// Stage names, in pipeline order.
const (
	StagePreprocess = "preprocess"
	StageTranscribe = "transcribe"
	StageClean      = "clean"
	StageGrammar    = "grammar"
)

// Strategy names.
const (
	StrategyEnhanced = "enhanced"
	StrategyBasic    = "basic"
)

// Outcome classifies how a stage ended.
type Outcome string

const (
	// OutcomeOK means the stage ran and its result is in effect.
	OutcomeOK Outcome = "ok"

	// OutcomeDegraded means the stage failed but the pipeline continued
	// with a lower-quality substitute (raw audio, uncorrected text).
	OutcomeDegraded Outcome = "degraded"

	// OutcomeFailed means the stage failed fatally and ended the run.
	OutcomeFailed Outcome = "failed"

	// OutcomeSkipped means the stage was not configured for this run.
	OutcomeSkipped Outcome = "skipped"
)

// StageStatus records how one stage of a run went.
type StageStatus struct {
	// Stage is the stage name, one of the Stage* constants.
	Stage string `json:"stage"`

	// Outcome classifies the stage's ending.
	Outcome Outcome `json:"outcome"`

	// Detail holds the error text for degraded and failed stages.
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of a pipeline run.
type Result struct {
	// ConvertedText is the cleaned transcription before grammar correction.
	ConvertedText string `json:"converted_text"`

	// CorrectedText is the grammar-corrected transcription. Equal to
	// ConvertedText when the grammar stage was skipped or degraded.
	CorrectedText string `json:"corrected_text"`

	// Strategy names the strategy that produced the final text. A run that
	// started enhanced but fell back reports "basic".
	Strategy string `json:"strategy"`

	// Stages lists per-stage provenance in execution order. A run that fell
	// back from enhanced to basic carries the stages of both attempts.
	Stages []StageStatus `json:"stages"`
}

// Degraded reports whether the run produced lower-quality output than asked
// for: a stage ended degraded, or a failed stage from an abandoned enhanced
// attempt is on record.
func (r Result) Degraded() bool {
	for _, s := range r.Stages {
		if s.Outcome == OutcomeDegraded || s.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// statusLabel returns the metrics status attribute for the run.
func (r Result) statusLabel() string {
	if r.Degraded() {
		return "degraded"
	}
	return "ok"
}

// Processor runs an uploaded audio blob through the transcription pipeline.
type Processor interface {
	// Process transcribes blob and returns the run's result. The returned
	// error is [ErrInvalidAudio] for rejected uploads and a
	// [*ProcessingError] for fatal stage failures; in both cases the Result
	// still carries whatever stage provenance was gathered.
	Process(ctx context.Context, blob preprocess.Blob) (Result, error)
}

// Corrector fixes grammar in transcribed text. Implemented by
// [grammar.Client]; a nil Corrector disables the grammar stage.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

var _ Corrector = (*grammar.Client)(nil)
