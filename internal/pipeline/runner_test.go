package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tickerpulse/internal/domain"
)

type memoryInbox struct {
	mu        sync.Mutex
	docs      []domain.Document
	processed []string
	listErr   error
}

func (m *memoryInbox) ListUnprocessed(_ context.Context, limit int) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit > len(m.docs) {
		limit = len(m.docs)
	}
	return m.docs[:limit], nil
}

func (m *memoryInbox) MarkProcessed(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, ids...)
	return nil
}

func TestRunnerAcknowledgesProcessedDocuments(t *testing.T) {
	f := newFixture(true)
	inbox := &memoryInbox{docs: []domain.Document{
		{ID: "d1", Text: "$AAPL breaking news", PublishedAt: batchStart},
		{ID: "d2", Text: "no tickers here", PublishedAt: batchStart},
	}}
	runner := NewRunner(f.service.log, f.service, inbox, 10)

	report, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("expected 2 processed, got %+v", report)
	}
	if len(inbox.processed) != 2 {
		t.Fatalf("expected both documents acknowledged, got %v", inbox.processed)
	}
}

func TestRunnerLeavesRequeuedDocumentsUnacknowledged(t *testing.T) {
	f := newFixture(true)
	inbox := &memoryInbox{docs: []domain.Document{
		{ID: "d1", Text: "$AAPL breaking news", PublishedAt: batchStart},
	}}
	runner := NewRunner(f.service.log, f.service, inbox, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Requeued != 1 {
		t.Fatalf("expected requeued document, got %+v", report)
	}
	if len(inbox.processed) != 0 {
		t.Fatalf("requeued documents must stay unacknowledged, got %v", inbox.processed)
	}
}

func TestRunnerEmptyInbox(t *testing.T) {
	f := newFixture(true)
	runner := NewRunner(f.service.log, f.service, &memoryInbox{}, 10)

	report, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Processed != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestRunnerListError(t *testing.T) {
	f := newFixture(true)
	inbox := &memoryInbox{listErr: errors.New("db down")}
	runner := NewRunner(f.service.log, f.service, inbox, 10)

	if _, err := runner.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from inbox listing")
	}
}

func TestRunnerRespectsBatchLimit(t *testing.T) {
	f := newFixture(true)
	inbox := &memoryInbox{}
	for i := 0; i < 5; i++ {
		inbox.docs = append(inbox.docs, domain.Document{
			ID:          string(rune('a' + i)),
			Text:        "$AAPL news",
			PublishedAt: batchStart.Add(time.Duration(i) * time.Minute),
		})
	}
	runner := NewRunner(f.service.log, f.service, inbox, 2)

	report, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("expected batch limited to 2, got %+v", report)
	}
}
