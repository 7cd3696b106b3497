package pipeline

import (
	"context"
	"time"

	"github.com/MrWong99/voxscribe/internal/observe"
	"github.com/MrWong99/voxscribe/internal/preprocess"
)

// Enhanced is the conditioning strategy: the upload is denoised, downmixed,
// and resampled before transcription. Validation failure is fatal; any later
// failure hands the request over to a [Basic] run on the original audio, so
// an upload that transcribes at all never fails just because conditioning or
// the conditioned transcription did.
type Enhanced struct {
	basic *Basic
}

var _ Processor = (*Enhanced)(nil)

// NewEnhanced creates an [Enhanced] strategy from cfg.
func NewEnhanced(cfg Config) *Enhanced {
	return &Enhanced{basic: NewBasic(cfg)}
}

// Process implements [Processor].
func (e *Enhanced) Process(ctx context.Context, blob preprocess.Blob) (Result, error) {
	b := e.basic
	ctx, span := observe.StartSpan(ctx, "pipeline.process")
	defer span.End()

	start := time.Now()
	res := Result{Strategy: StrategyEnhanced}
	if !preprocess.Validate(blob) {
		res.Stages = append(res.Stages, StageStatus{
			Stage:   StagePreprocess,
			Outcome: OutcomeFailed,
			Detail:  "upload rejected: must be a .wav file of at most 50 MiB",
		})
		b.metrics.RecordPipelineRequest(ctx, StrategyEnhanced, "invalid")
		return res, ErrInvalidAudio
	}

	err := e.run(ctx, blob, &res)
	if err != nil {
		// The enhanced attempt is exhausted; retry plain on the original
		// audio. Only a failure of that run is fatal.
		observe.Logger(ctx).Warn("enhanced transcription failed, falling back to basic",
			"filename", blob.Filename, "error", err)
		b.metrics.RecordStrategyFallback(ctx)
		err = b.run(ctx, blob, &res)
	}

	b.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		b.metrics.RecordPipelineRequest(ctx, StrategyEnhanced, "error")
		return res, err
	}
	b.metrics.RecordPipelineRequest(ctx, StrategyEnhanced, res.statusLabel())
	return res, nil
}

// run executes the enhanced flow on an already-validated blob.
func (e *Enhanced) run(ctx context.Context, blob preprocess.Blob, res *Result) error {
	b := e.basic

	preStart := time.Now()
	path, err := b.pre.Denoise(blob)
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
	res.Strategy = StrategyEnhanced
	return nil
}
