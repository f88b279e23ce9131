package job

import (
	"context"
	"time"

	"tickerpulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type PipelineRunner interface {
	RunOnce(ctx context.Context) (domain.BatchReport, error)
}

// PipelineJob drains the document inbox on a fixed interval.
type PipelineJob struct {
	tracer       trace.Tracer
	log          zerolog.Logger
	runner       PipelineRunner
	pollInterval time.Duration
}

func NewPipelineJob(tracer trace.Tracer, log zerolog.Logger, runner PipelineRunner, pollInterval time.Duration) *PipelineJob {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &PipelineJob{tracer: tracer, log: log, runner: runner, pollInterval: pollInterval}
}

func (j *PipelineJob) Start(ctx context.Context) {
	if j.runner == nil {
		j.log.Warn().Msg("pipeline job disabled: no runner")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *PipelineJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "pipeline-job.run-once")
	defer span.End()

	report, err := j.runner.RunOnce(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("pipeline cycle error")
		return
	}
	if report.Processed > 0 || report.Requeued > 0 {
		j.log.Info().
			Int("processed", report.Processed).
			Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Int("requeued", report.Requeued).
			Int("signals", len(report.Signals)).
			Msg("pipeline cycle complete")
	}
}
