package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"tickerpulse/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Classifier produces document-level 3-way polarity distributions.
// Implementations may return fewer results than documents; missing
// documents are routed to the fallback by the HybridScorer.
type Classifier interface {
	ClassifyBatch(ctx context.Context, docs []domain.Document) ([]domain.SentimentResult, error)
}

type Config struct {
	BatchSize       int
	Timeout         time.Duration
	FallbackEnabled bool
}

// HybridScorer drives the primary classifier in batches and falls back
// to the deterministic lexicon scorer per document on failure, timeout,
// or degenerate input. A failing document never aborts its batch.
type HybridScorer struct {
	primary Classifier
	tracer  trace.Tracer
	log     zerolog.Logger
	cfg     Config
}

func NewHybridScorer(primary Classifier, tracer trace.Tracer, log zerolog.Logger, cfg Config) *HybridScorer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HybridScorer{primary: primary, tracer: tracer, log: log, cfg: cfg}
}

// ScoreBatch returns one result per document keyed by document ID, plus
// per-document failures for documents no strategy could score. With the
// fallback enabled the failure map stays empty for well-formed input.
func (s *HybridScorer) ScoreBatch(ctx context.Context, docs []domain.Document) (map[string]domain.SentimentResult, map[string]error) {
	ctx, span := s.tracer.Start(ctx, "sentiment.score-batch")
	defer span.End()

	results := make(map[string]domain.SentimentResult, len(docs))
	failures := make(map[string]error)

	var primaryDocs []domain.Document
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			s.fallbackOrFail(doc, fmt.Errorf("%w: empty text", domain.ErrInvalidInput), results, failures)
			continue
		}
		primaryDocs = append(primaryDocs, doc)
	}

	for start := 0; start < len(primaryDocs); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(primaryDocs))
		s.scoreChunk(ctx, primaryDocs[start:end], results, failures)
	}
	return results, failures
}

func (s *HybridScorer) scoreChunk(ctx context.Context, docs []domain.Document, results map[string]domain.SentimentResult, failures map[string]error) {
	if s.primary != nil {
		scored, err := s.classifyWithTimeout(ctx, docs)
		if err == nil {
			byID := make(map[string]domain.SentimentResult, len(scored))
			for _, r := range scored {
				byID[r.DocumentID] = normalize(r)
			}
			for _, doc := range docs {
				if r, ok := byID[doc.ID]; ok {
					results[doc.ID] = r
				} else {
					s.fallbackOrFail(doc, fmt.Errorf("%w: no result for document", domain.ErrClassifierUnavailable), results, failures)
				}
			}
			return
		}
		s.log.Warn().Err(err).Int("docs", len(docs)).Msg("primary classifier batch failed, retrying per document")

		// One individual retry per document before giving up on the
		// primary classifier for that document.
		for _, doc := range docs {
			scored, err := s.classifyWithTimeout(ctx, []domain.Document{doc})
			if err == nil && len(scored) > 0 {
				results[doc.ID] = normalize(scored[0])
				continue
			}
			if err == nil {
				err = fmt.Errorf("%w: empty response", domain.ErrClassifierUnavailable)
			}
			s.fallbackOrFail(doc, err, results, failures)
		}
		return
	}

	for _, doc := range docs {
		s.fallbackOrFail(doc, domain.ErrClassifierUnavailable, results, failures)
	}
}

func (s *HybridScorer) classifyWithTimeout(ctx context.Context, docs []domain.Document) ([]domain.SentimentResult, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	out, err := s.primary.ClassifyBatch(cctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	return out, nil
}

func (s *HybridScorer) fallbackOrFail(doc domain.Document, cause error, results map[string]domain.SentimentResult, failures map[string]error) {
	if !s.cfg.FallbackEnabled {
		failures[doc.ID] = cause
		return
	}
	results[doc.ID] = LexiconScore(doc)
}

// normalize clamps probabilities into [0,1] and rescales them to sum to
// 1, guarding against floating-point drift from the classifier. The
// scalar score is recomputed from the adjusted distribution.
func normalize(r domain.SentimentResult) domain.SentimentResult {
	r.ProbPositive = clamp01(r.ProbPositive)
	r.ProbNegative = clamp01(r.ProbNegative)
	r.ProbNeutral = clamp01(r.ProbNeutral)

	sum := r.ProbPositive + r.ProbNegative + r.ProbNeutral
	if sum <= 0 {
		r.ProbPositive, r.ProbNegative, r.ProbNeutral = 0, 0, 1
	} else {
		r.ProbPositive /= sum
		r.ProbNegative /= sum
		r.ProbNeutral /= sum
	}
	r.Score = r.ProbPositive - r.ProbNegative
	return r
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
