package repository

import (
	"context"

	"tickerpulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// DocumentRepository is the inbox written by external collectors and
// drained by the pipeline job.
type DocumentRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewDocumentRepository(pool PgxPool, tracer trace.Tracer) *DocumentRepository {
	return &DocumentRepository{pool: pool, tracer: tracer}
}

func (r *DocumentRepository) InsertDocuments(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "document-repo.insert-documents")
	defer span.End()

	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(
			`INSERT INTO documents (id, text, published_at, source)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			d.ID, d.Text, d.PublishedAt.UTC(), d.Source,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range docs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepository) ListUnprocessed(ctx context.Context, limit int) ([]domain.Document, error) {
	_, span := r.tracer.Start(ctx, "document-repo.list-unprocessed")
	defer span.End()

	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, text, published_at, source
FROM documents
WHERE processed_at IS NULL
ORDER BY published_at
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Text, &d.PublishedAt, &d.Source); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "document-repo.mark-processed")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE documents SET processed_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}
