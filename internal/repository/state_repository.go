package repository

import (
	"context"
	"time"

	"tickerpulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// StateRepository persists rolling-state snapshots (embedding window,
// mention counts) between runs so the in-memory partitioned stores can
// be warm-started.
type StateRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewStateRepository(pool PgxPool, tracer trace.Tracer) *StateRepository {
	return &StateRepository{pool: pool, tracer: tracer}
}

func (r *StateRepository) SaveEmbeddingEntries(ctx context.Context, entries []domain.EmbeddingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "state-repo.save-embedding-entries")
	defer span.End()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO embedding_entries (symbol, ts, vector)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (symbol, ts) DO NOTHING`,
			e.Symbol, e.Timestamp.UTC(), e.Vector,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *StateRepository) LoadEmbeddingEntries(ctx context.Context, since time.Time) ([]domain.EmbeddingEntry, error) {
	_, span := r.tracer.Start(ctx, "state-repo.load-embedding-entries")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT symbol, ts, vector
FROM embedding_entries
WHERE ts > $1
ORDER BY symbol, ts`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EmbeddingEntry
	for rows.Next() {
		var e domain.EmbeddingEntry
		if err := rows.Scan(&e.Symbol, &e.Timestamp, &e.Vector); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *StateRepository) SaveMentionCounts(ctx context.Context, counts []domain.MentionCount) error {
	if len(counts) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "state-repo.save-mention-counts")
	defer span.End()

	batch := &pgx.Batch{}
	for _, mc := range counts {
		batch.Queue(
			`INSERT INTO mention_counts (symbol, bucket, count)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (symbol, bucket) DO UPDATE SET count = EXCLUDED.count`,
			mc.Symbol, mc.Bucket.UTC(), mc.Count,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range counts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *StateRepository) LoadMentionCounts(ctx context.Context, since time.Time) ([]domain.MentionCount, error) {
	_, span := r.tracer.Start(ctx, "state-repo.load-mention-counts")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT symbol, bucket, count
FROM mention_counts
WHERE bucket > $1
ORDER BY symbol, bucket`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MentionCount
	for rows.Next() {
		var mc domain.MentionCount
		if err := rows.Scan(&mc.Symbol, &mc.Bucket, &mc.Count); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes expired rolling state from both tables.
func (r *StateRepository) DeleteOlderThan(ctx context.Context, embeddingCutoff, mentionCutoff time.Time) (int64, error) {
	_, span := r.tracer.Start(ctx, "state-repo.delete-older-than")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM embedding_entries WHERE ts <= $1`, embeddingCutoff.UTC())
	if err != nil {
		return 0, err
	}
	deleted := tag.RowsAffected()

	tag, err = r.pool.Exec(ctx, `DELETE FROM mention_counts WHERE bucket < $1`, mentionCutoff.UTC())
	if err != nil {
		return deleted, err
	}
	return deleted + tag.RowsAffected(), nil
}
