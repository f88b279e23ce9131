package sentiment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"tickerpulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type stubClassifier struct {
	results    []domain.SentimentResult
	err        error
	failBatch  bool
	callCount  int
	batchSizes []int
}

func (s *stubClassifier) ClassifyBatch(ctx context.Context, docs []domain.Document) ([]domain.SentimentResult, error) {
	s.callCount++
	s.batchSizes = append(s.batchSizes, len(docs))
	if s.failBatch && len(docs) > 1 {
		return nil, errors.New("batch inference failed")
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.results != nil {
		return s.results, nil
	}
	out := make([]domain.SentimentResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.SentimentResult{
			DocumentID:   d.ID,
			ProbPositive: 0.7,
			ProbNegative: 0.1,
			ProbNeutral:  0.2,
			Method:       domain.SentimentPrimary,
		})
	}
	return out, nil
}

func newTestScorer(primary Classifier, fallback bool) *HybridScorer {
	return NewHybridScorer(
		primary,
		trace.NewNoopTracerProvider().Tracer("test"),
		zerolog.Nop(),
		Config{BatchSize: 2, Timeout: time.Second, FallbackEnabled: fallback},
	)
}

func testDocs(ids ...string) []domain.Document {
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, domain.Document{ID: id, Text: "shares rally on strong growth", PublishedAt: time.Now()})
	}
	return docs
}

func TestScoreBatchPrimary(t *testing.T) {
	stub := &stubClassifier{}
	results, failures := newTestScorer(stub, true).ScoreBatch(context.Background(), testDocs("a", "b", "c"))

	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for id, r := range results {
		if r.Method != domain.SentimentPrimary {
			t.Fatalf("expected primary method for %s, got %s", id, r.Method)
		}
		if math.Abs(r.Score-0.6) > 1e-9 {
			t.Fatalf("expected score 0.6 for %s, got %v", id, r.Score)
		}
	}
	// batch size 2 over 3 docs means two primary calls
	if stub.callCount != 2 {
		t.Fatalf("expected 2 classifier calls, got %d", stub.callCount)
	}
}

func TestScoreBatchNormalizesDriftedProbabilities(t *testing.T) {
	stub := &stubClassifier{results: []domain.SentimentResult{{
		DocumentID:   "a",
		ProbPositive: 0.8,
		ProbNegative: 0.4,
		ProbNeutral:  0.4,
		Method:       domain.SentimentPrimary,
	}}}
	results, _ := newTestScorer(stub, true).ScoreBatch(context.Background(), testDocs("a"))

	r := results["a"]
	sum := r.ProbPositive + r.ProbNegative + r.ProbNeutral
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected renormalized sum 1, got %v", sum)
	}
	if math.Abs(r.Score-(r.ProbPositive-r.ProbNegative)) > 1e-9 {
		t.Fatalf("score not recomputed from adjusted distribution: %+v", r)
	}
}

func TestScoreBatchDegenerateDistribution(t *testing.T) {
	stub := &stubClassifier{results: []domain.SentimentResult{{
		DocumentID:   "a",
		ProbPositive: -1,
		ProbNegative: math.NaN(),
		ProbNeutral:  0,
	}}}
	results, _ := newTestScorer(stub, true).ScoreBatch(context.Background(), testDocs("a"))

	r := results["a"]
	if r.ProbNeutral != 1 || r.ProbPositive != 0 || r.ProbNegative != 0 {
		t.Fatalf("expected neutral collapse for degenerate probs, got %+v", r)
	}
}

func TestScoreBatchFallsBackPerDocument(t *testing.T) {
	stub := &stubClassifier{err: errors.New("model unavailable")}
	results, failures := newTestScorer(stub, true).ScoreBatch(context.Background(), testDocs("a", "b"))

	if len(failures) != 0 {
		t.Fatalf("expected fallback to absorb failures, got %v", failures)
	}
	for id, r := range results {
		if r.Method != domain.SentimentFallback {
			t.Fatalf("expected fallback method for %s, got %s", id, r.Method)
		}
	}
	// one failed batch call plus one retry per document
	if stub.callCount != 3 {
		t.Fatalf("expected 3 classifier calls, got %d", stub.callCount)
	}
}

func TestScoreBatchRetrySucceedsPerDocument(t *testing.T) {
	stub := &stubClassifier{failBatch: true}
	results, failures := newTestScorer(stub, true).ScoreBatch(context.Background(), testDocs("a", "b"))

	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	for id, r := range results {
		if r.Method != domain.SentimentPrimary {
			t.Fatalf("expected per-document retry to keep primary for %s, got %s", id, r.Method)
		}
	}
}

func TestScoreBatchFallbackDisabled(t *testing.T) {
	stub := &stubClassifier{err: errors.New("model unavailable")}
	results, failures := newTestScorer(stub, false).ScoreBatch(context.Background(), testDocs("a"))

	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
	err, ok := failures["a"]
	if !ok {
		t.Fatal("expected a recorded failure for document a")
	}
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestScoreBatchEmptyTextUsesFallback(t *testing.T) {
	stub := &stubClassifier{}
	docs := []domain.Document{{ID: "empty", Text: "   "}}
	results, failures := newTestScorer(stub, true).ScoreBatch(context.Background(), docs)

	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	r := results["empty"]
	if r.Method != domain.SentimentFallback {
		t.Fatalf("expected fallback for empty text, got %s", r.Method)
	}
	if stub.callCount != 0 {
		t.Fatal("empty text must not reach the primary classifier")
	}
}

func TestScoreBatchEmptyTextFailsWithoutFallback(t *testing.T) {
	docs := []domain.Document{{ID: "empty", Text: ""}}
	_, failures := newTestScorer(&stubClassifier{}, false).ScoreBatch(context.Background(), docs)

	if !errors.Is(failures["empty"], domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", failures["empty"])
	}
}

func TestScoreBatchNoPrimaryClassifier(t *testing.T) {
	results, failures := newTestScorer(nil, true).ScoreBatch(context.Background(), testDocs("a"))
	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	if results["a"].Method != domain.SentimentFallback {
		t.Fatalf("expected fallback without a primary classifier, got %+v", results["a"])
	}
}
