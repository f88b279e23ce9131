package pipeline

import (
	"context"
	"fmt"

	"tickerpulse/internal/domain"

	"github.com/rs/zerolog"
)

// Inbox is the queued-document source drained by a pipeline run.
type Inbox interface {
	ListUnprocessed(ctx context.Context, limit int) ([]domain.Document, error)
	MarkProcessed(ctx context.Context, ids []string) error
}

// Runner drains the inbox through the pipeline one batch at a time.
// Requeued documents keep their unprocessed flag and are picked up
// again on the next run.
type Runner struct {
	log     zerolog.Logger
	service *Service
	inbox   Inbox
	limit   int
}

func NewRunner(log zerolog.Logger, service *Service, inbox Inbox, batchLimit int) *Runner {
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &Runner{log: log, service: service, inbox: inbox, limit: batchLimit}
}

func (r *Runner) RunOnce(ctx context.Context) (domain.BatchReport, error) {
	docs, err := r.inbox.ListUnprocessed(ctx, r.limit)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("list unprocessed documents: %w", err)
	}
	if len(docs) == 0 {
		return domain.BatchReport{}, nil
	}

	report, err := r.service.RunBatch(ctx, docs)
	if err != nil {
		return report, err
	}

	// cancellation requeues a contiguous suffix of the batch, so the
	// first Processed documents are exactly the ones to acknowledge
	processed := make([]string, 0, report.Processed)
	for _, doc := range docs[:report.Processed] {
		processed = append(processed, doc.ID)
	}
	if len(processed) > 0 {
		if err := r.inbox.MarkProcessed(ctx, processed); err != nil {
			return report, fmt.Errorf("mark documents processed: %w", err)
		}
	}
	return report, nil
}
