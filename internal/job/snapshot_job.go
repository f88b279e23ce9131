package job

import (
	"context"
	"time"

	"tickerpulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type NoveltySnapshotter interface {
	Snapshot() []domain.EmbeddingEntry
}

type VelocitySnapshotter interface {
	Snapshot() []domain.MentionCount
}

type SnapshotStore interface {
	SaveEmbeddingEntries(ctx context.Context, entries []domain.EmbeddingEntry) error
	SaveMentionCounts(ctx context.Context, counts []domain.MentionCount) error
}

// SnapshotJob persists the rolling novelty and velocity state so a
// restarted service resumes with warm windows instead of empty ones.
type SnapshotJob struct {
	tracer   trace.Tracer
	log      zerolog.Logger
	novelty  NoveltySnapshotter
	velocity VelocitySnapshotter
	store    SnapshotStore
	interval time.Duration
}

func NewSnapshotJob(
	tracer trace.Tracer,
	log zerolog.Logger,
	novelty NoveltySnapshotter,
	velocity VelocitySnapshotter,
	store SnapshotStore,
	interval time.Duration,
) *SnapshotJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotJob{
		tracer:   tracer,
		log:      log,
		novelty:  novelty,
		velocity: velocity,
		store:    store,
		interval: interval,
	}
}

func (j *SnapshotJob) Start(ctx context.Context) {
	if j.store == nil {
		j.log.Warn().Msg("snapshot job disabled: no state store")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// final snapshot on shutdown, bounded so it cannot hang
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			j.runOnce(flushCtx)
			cancel()
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *SnapshotJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "snapshot-job.run-once")
	defer span.End()

	if err := j.store.SaveEmbeddingEntries(ctx, j.novelty.Snapshot()); err != nil {
		j.log.Error().Err(err).Msg("embedding snapshot error")
	}
	if err := j.store.SaveMentionCounts(ctx, j.velocity.Snapshot()); err != nil {
		j.log.Error().Err(err).Msg("mention count snapshot error")
	}
}
