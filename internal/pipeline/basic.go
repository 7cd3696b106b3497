package pipeline

import (
	"context"
	"time"

	"github.com/MrWong99/voxscribe/internal/observe"
	"github.com/MrWong99/voxscribe/internal/preprocess"
	"github.com/MrWong99/voxscribe/internal/stt"
	"github.com/MrWong99/voxscribe/internal/textproc"
)

// Config wires a pipeline strategy's dependencies.
type Config struct {
	// Engine is the transcription engine. Required.
	Engine stt.Provider

	// EngineName labels the engine in telemetry. Defaults to "default".
	EngineName string

	// Preprocessor handles temp-file management and, for the enhanced
	// strategy, audio conditioning. Required.
	Preprocessor *preprocess.Preprocessor

	// Corrector is the grammar-correction backend. Optional; when nil the
	// grammar stage is skipped.
	Corrector Corrector

	// MaxRepetitions caps consecutive repeats of the same word during
	// cleanup. Defaults to [textproc.DefaultMaxRepetitions].
	MaxRepetitions int

	// Metrics receives stage and run telemetry. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

func (c *Config) applyDefaults() {
	if c.EngineName == "" {
		c.EngineName = "default"
	}
	if c.MaxRepetitions <= 0 {
		c.MaxRepetitions = textproc.DefaultMaxRepetitions
	}
	if c.Metrics == nil {
		c.Metrics = observe.DefaultMetrics()
	}
}

// Basic is the plain transcription strategy: the upload is written out
// verbatim and fed to the engine without conditioning. Transcription failure
// is fatal; cleanup and grammar correction are best-effort.
type Basic struct {
	engine     stt.Provider
	engineName string
	pre        *preprocess.Preprocessor
	cleaner    *textproc.Cleaner
	corrector  Corrector
	metrics    *observe.Metrics
}

var _ Processor = (*Basic)(nil)

// NewBasic creates a [Basic] strategy from cfg.
func NewBasic(cfg Config) *Basic {
	cfg.applyDefaults()
	return &Basic{
		engine:     cfg.Engine,
		engineName: cfg.EngineName,
		pre:        cfg.Preprocessor,
		cleaner:    &textproc.Cleaner{MaxRepetitions: cfg.MaxRepetitions},
		corrector:  cfg.Corrector,
		metrics:    cfg.Metrics,
	}
}

// Process implements [Processor].
func (b *Basic) Process(ctx context.Context, blob preprocess.Blob) (Result, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.process")
	defer span.End()

	start := time.Now()
	res := Result{Strategy: StrategyBasic}
	if !preprocess.Validate(blob) {
		res.Stages = append(res.Stages, StageStatus{
			Stage:   StagePreprocess,
			Outcome: OutcomeFailed,
			Detail:  "upload rejected: must be a .wav file of at most 50 MiB",
		})
		b.metrics.RecordPipelineRequest(ctx, StrategyBasic, "invalid")
		return res, ErrInvalidAudio
	}

	err := b.run(ctx, blob, &res)
	b.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		b.metrics.RecordPipelineRequest(ctx, StrategyBasic, "error")
		return res, err
	}
	b.metrics.RecordPipelineRequest(ctx, StrategyBasic, res.statusLabel())
	return res, nil
}

// run executes the basic flow on an already-validated blob, appending stage
// provenance to res. Shared with [Enhanced] as its fallback path.
func (b *Basic) run(ctx context.Context, blob preprocess.Blob, res *Result) error {
	preStart := time.Now()
	path, err := b.pre.WriteRaw(blob)
	b.metrics.PreprocessDuration.Record(ctx, time.Since(preStart).Seconds())
	if err != nil {
		res.Stages = append(res.Stages, StageStatus{
			Stage:   StagePreprocess,
			Outcome: OutcomeFailed,
			Detail:  err.Error(),
		})
		return &ProcessingError{Stage: StagePreprocess, Err: err}
	}
	defer preprocess.RemoveTemp(path)
	res.Stages = append(res.Stages, StageStatus{Stage: StagePreprocess, Outcome: OutcomeOK})

	raw, err := b.transcribe(ctx, path, res)
	if err != nil {
		return err
	}

	b.finishText(ctx, raw, res)
	res.Strategy = StrategyBasic
	return nil
}

// transcribe runs the engine on path, recording duration and stage status.
func (b *Basic) transcribe(ctx context.Context, path string, res *Result) (string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.transcribe")
	defer span.End()

	start := time.Now()
	result, err := b.engine.Transcribe(ctx, path)
	b.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		res.Stages = append(res.Stages, StageStatus{
			Stage:   StageTranscribe,
			Outcome: OutcomeFailed,
			Detail:  err.Error(),
		})
		b.metrics.RecordEngineError(ctx, b.engineName)
		return "", &ProcessingError{Stage: StageTranscribe, Err: err}
	}
	res.Stages = append(res.Stages, StageStatus{Stage: StageTranscribe, Outcome: OutcomeOK})
	return result.Text, nil
}

// finishText cleans raw transcription output and applies grammar correction,
// filling res's text fields. Grammar failure degrades instead of failing.
func (b *Basic) finishText(ctx context.Context, raw string, res *Result) {
	cleanStart := time.Now()
	cleaned := b.cleaner.Clean(raw)
	b.metrics.CleanDuration.Record(ctx, time.Since(cleanStart).Seconds())
	res.ConvertedText = cleaned
	res.Stages = append(res.Stages, StageStatus{Stage: StageClean, Outcome: OutcomeOK})

	if b.corrector == nil {
		res.CorrectedText = cleaned
		res.Stages = append(res.Stages, StageStatus{Stage: StageGrammar, Outcome: OutcomeSkipped})
		return
	}

	gramStart := time.Now()
	corrected, err := b.corrector.Correct(ctx, cleaned)
	b.metrics.GrammarDuration.Record(ctx, time.Since(gramStart).Seconds())
	if err != nil {
		observe.Logger(ctx).Warn("grammar correction failed, keeping cleaned text",
			"error", err)
		res.CorrectedText = cleaned
		res.Stages = append(res.Stages, StageStatus{
			Stage:   StageGrammar,
			Outcome: OutcomeDegraded,
			Detail:  err.Error(),
		})
		b.metrics.RecordStageDegradation(ctx, StageGrammar)
		return
	}
	res.CorrectedText = corrected
	res.Stages = append(res.Stages, StageStatus{Stage: StageGrammar, Outcome: OutcomeOK})
}
