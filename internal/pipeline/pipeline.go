package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/internal/embedding"
	"tickerpulse/internal/sentiment"
	"tickerpulse/internal/signal"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Linker is the ticker-linking stage.
type Linker interface {
	Link(doc domain.Document) []domain.TickerLink
	Category(symbol string) string
}

// NoveltyScorer serializes same-symbol window access internally.
type NoveltyScorer interface {
	ScoreAndAppend(symbol string, vec []float64, ts time.Time) float64
}

// VelocityScorer serializes same-symbol bucket updates internally.
type VelocityScorer interface {
	Observe(symbol string, ts time.Time) float64
}

// ResultStore is the persistence collaborator for pipeline outputs.
type ResultStore interface {
	InsertLinks(ctx context.Context, links []domain.TickerLink) error
	InsertSentiments(ctx context.Context, results []domain.SentimentResult) error
	InsertSignals(ctx context.Context, signals []domain.Signal) error
}

// SignalCache keeps the latest composite per symbol for the read API.
type SignalCache interface {
	SetLatest(ctx context.Context, sig domain.Signal) error
}

type Config struct {
	Workers int
	Weights signal.Weights
}

// Service runs the full measurement pipeline over document batches:
// linking and sentiment per document, novelty and velocity per linked
// instrument, then the composite aggregation per pair.
type Service struct {
	tracer    trace.Tracer
	log       zerolog.Logger
	linker    Linker
	sentiment *sentiment.HybridScorer
	embedder  embedding.Embedder
	novelty   NoveltyScorer
	velocity  VelocityScorer
	store     ResultStore
	cache     SignalCache
	cfg       Config
}

func NewService(
	tracer trace.Tracer,
	log zerolog.Logger,
	linker Linker,
	sentimentScorer *sentiment.HybridScorer,
	embedder embedding.Embedder,
	noveltyScorer NoveltyScorer,
	velocityScorer VelocityScorer,
	store ResultStore,
	cache SignalCache,
	cfg Config,
) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Service{
		tracer:    tracer,
		log:       log,
		linker:    linker,
		sentiment: sentimentScorer,
		embedder:  embedder,
		novelty:   noveltyScorer,
		velocity:  velocityScorer,
		store:     store,
		cache:     cache,
		cfg:       cfg,
	}
}

type docOutcome struct {
	doc       domain.Document
	links     []domain.TickerLink
	signals   []domain.Signal
	failures  []domain.PairFailure
	requeued  bool
	processed bool
}

// RunBatch processes one batch of documents. Sentiment runs first in
// classifier-sized sub-batches (the inference bottleneck), then a
// bounded worker pool handles linking, embedding, rolling-state updates
// and aggregation per document. Per-pair failures never abort siblings;
// on context cancellation the remaining documents are reported as
// requeued rather than silently dropped.
func (s *Service) RunBatch(ctx context.Context, docs []domain.Document) (domain.BatchReport, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.run-batch")
	defer span.End()

	report := domain.BatchReport{}
	if len(docs) == 0 {
		return report, nil
	}

	sentiments, sentFailures := s.sentiment.ScoreBatch(ctx, docs)

	jobs := make(chan domain.Document)
	outcomes := make([]docOutcome, len(docs))
	indexByID := make(map[string]int, len(docs))
	for i, doc := range docs {
		indexByID[doc.ID] = i
	}

	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				out := s.processDocument(ctx, doc, sentiments, sentFailures)
				outcomes[indexByID[doc.ID]] = out
			}
		}()
	}

dispatch:
	for _, doc := range docs {
		if ctx.Err() != nil {
			for i := indexByID[doc.ID]; i < len(docs); i++ {
				outcomes[i] = docOutcome{doc: docs[i], requeued: true}
			}
			break
		}
		select {
		case jobs <- doc:
		case <-ctx.Done():
			// mark the current document and the rest as requeued
			for i := indexByID[doc.ID]; i < len(docs); i++ {
				outcomes[i] = docOutcome{doc: docs[i], requeued: true}
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	var allLinks []domain.TickerLink
	var allSignals []domain.Signal
	var allSentiments []domain.SentimentResult
	for _, out := range outcomes {
		if out.requeued {
			report.Requeued++
			continue
		}
		report.Processed++
		switch {
		case len(out.failures) > 0:
			report.Failed++
		case len(out.signals) > 0:
			report.Succeeded++
		default:
			report.Skipped++
		}
		allLinks = append(allLinks, out.links...)
		allSignals = append(allSignals, out.signals...)
		report.Failures = append(report.Failures, out.failures...)
		if res, ok := sentiments[out.doc.ID]; ok {
			allSentiments = append(allSentiments, res)
		}
	}
	sort.Slice(allSignals, func(i, j int) bool {
		if allSignals[i].DocumentID != allSignals[j].DocumentID {
			return allSignals[i].DocumentID < allSignals[j].DocumentID
		}
		return allSignals[i].Symbol < allSignals[j].Symbol
	})
	report.Signals = allSignals

	if err := s.persist(ctx, allLinks, allSentiments, allSignals); err != nil {
		return report, fmt.Errorf("persist batch results: %w", err)
	}

	s.log.Info().
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("requeued", report.Requeued).
		Msg("pipeline batch complete")
	return report, nil
}

// processDocument runs the per-document stages. Rolling state for a
// symbol is touched exactly once per (document, instrument) pair.
func (s *Service) processDocument(ctx context.Context, doc domain.Document, sentiments map[string]domain.SentimentResult, sentFailures map[string]error) docOutcome {
	out := docOutcome{doc: doc, processed: true}

	links := s.linker.Link(doc)
	if len(links) == 0 {
		// no instrument linked: sentiment may still exist, but the
		// document is excluded from novelty/velocity entirely
		return out
	}
	out.links = links

	sentRes, haveSentiment := sentiments[doc.ID]
	var sentErr error
	if !haveSentiment {
		sentErr = sentFailures[doc.ID]
		if sentErr == nil {
			sentErr = domain.ErrComponentMissing
		}
	}

	var vec []float64
	var embedErr error
	if haveSentiment {
		vec, embedErr = s.embedder.Embed(ctx, doc.Text)
	}

	for _, link := range links {
		if !haveSentiment {
			out.failures = append(out.failures, domain.PairFailure{
				DocumentID: doc.ID,
				Symbol:     link.Symbol,
				Reason:     fmt.Sprintf("sentiment: %v", sentErr),
			})
			continue
		}
		if embedErr != nil {
			out.failures = append(out.failures, domain.PairFailure{
				DocumentID: doc.ID,
				Symbol:     link.Symbol,
				Reason:     fmt.Sprintf("embedding: %v", embedErr),
			})
			continue
		}

		nov := s.novelty.ScoreAndAppend(link.Symbol, vec, doc.PublishedAt)
		vel := s.velocity.Observe(link.Symbol, doc.PublishedAt)

		link := link
		sig, err := signal.Aggregate(s.cfg.Weights, signal.Inputs{
			Link:      &link,
			Sentiment: &sentRes,
			Novelty:   &nov,
			Velocity:  &vel,
			Category:  s.linker.Category(link.Symbol),
		})
		if err != nil {
			out.failures = append(out.failures, domain.PairFailure{
				DocumentID: doc.ID,
				Symbol:     link.Symbol,
				Reason:     err.Error(),
			})
			continue
		}
		sig.Timestamp = doc.PublishedAt
		out.signals = append(out.signals, sig)
	}
	return out
}

func (s *Service) persist(ctx context.Context, links []domain.TickerLink, sentiments []domain.SentimentResult, signals []domain.Signal) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.InsertLinks(ctx, links); err != nil {
		return err
	}
	if err := s.store.InsertSentiments(ctx, sentiments); err != nil {
		return err
	}
	if err := s.store.InsertSignals(ctx, signals); err != nil {
		return err
	}
	if s.cache != nil {
		for _, sig := range signals {
			if err := s.cache.SetLatest(ctx, sig); err != nil {
				s.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("signal cache write failed")
			}
		}
	}
	return nil
}
