package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// StatePruner drops rolling state older than the given cutoff and
// reports how many entries were removed.
type StatePruner interface {
	PruneBefore(cutoff time.Time) int
}

type StateStore interface {
	DeleteOlderThan(ctx context.Context, embeddingCutoff, mentionCutoff time.Time) (int64, error)
}

// PruneJob trims in-memory rolling state and its persisted snapshots so
// neither grows past the novelty window and velocity baseline.
type PruneJob struct {
	tracer           trace.Tracer
	log              zerolog.Logger
	novelty          StatePruner
	velocity         StatePruner
	store            StateStore
	noveltyWindow    time.Duration
	velocityBaseline time.Duration
	interval         time.Duration
}

func NewPruneJob(
	tracer trace.Tracer,
	log zerolog.Logger,
	novelty StatePruner,
	velocity StatePruner,
	store StateStore,
	noveltyWindow time.Duration,
	velocityBaseline time.Duration,
	interval time.Duration,
) *PruneJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PruneJob{
		tracer:           tracer,
		log:              log,
		novelty:          novelty,
		velocity:         velocity,
		store:            store,
		noveltyWindow:    noveltyWindow,
		velocityBaseline: velocityBaseline,
		interval:         interval,
	}
}

func (j *PruneJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
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

func (j *PruneJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "prune-job.run-once")
	defer span.End()

	now := time.Now().UTC()
	embeddingCutoff := now.Add(-j.noveltyWindow)
	mentionCutoff := now.Add(-j.velocityBaseline)

	if j.novelty != nil {
		j.novelty.PruneBefore(embeddingCutoff)
	}
	if j.velocity != nil {
		j.velocity.PruneBefore(mentionCutoff)
	}

	if j.store == nil {
		return
	}
	deleted, err := j.store.DeleteOlderThan(ctx, embeddingCutoff, mentionCutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("state prune error")
		return
	}
	if deleted > 0 {
		j.log.Info().Int64("rows", deleted).Msg("pruned persisted state")
	}
}
