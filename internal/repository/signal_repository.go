package repository

import (
	"context"
	"strconv"

	"tickerpulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// SignalRepository persists pipeline outputs: links, sentiment results
// and composite signals.
type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

func (r *SignalRepository) InsertLinks(ctx context.Context, links []domain.TickerLink) error {
	if len(links) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "signal-repo.insert-links")
	defer span.End()

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(
			`INSERT INTO ticker_links (document_id, symbol, confidence, matched_terms)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (document_id, symbol) DO UPDATE SET
			     confidence = EXCLUDED.confidence,
			     matched_terms = EXCLUDED.matched_terms`,
			l.DocumentID, l.Symbol, l.Confidence, l.MatchedTerms,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range links {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *SignalRepository) InsertSentiments(ctx context.Context, results []domain.SentimentResult) error {
	if len(results) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "signal-repo.insert-sentiments")
	defer span.End()

	batch := &pgx.Batch{}
	for _, s := range results {
		batch.Queue(
			`INSERT INTO sentiment_results (document_id, prob_pos, prob_neg, prob_neu, score, method)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (document_id) DO UPDATE SET
			     prob_pos = EXCLUDED.prob_pos,
			     prob_neg = EXCLUDED.prob_neg,
			     prob_neu = EXCLUDED.prob_neu,
			     score = EXCLUDED.score,
			     method = EXCLUDED.method`,
			s.DocumentID, s.ProbPositive, s.ProbNegative, s.ProbNeutral, s.Score, string(s.Method),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *SignalRepository) InsertSignals(ctx context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "signal-repo.insert-signals")
	defer span.End()

	batch := &pgx.Batch{}
	for _, s := range signals {
		batch.Queue(
			`INSERT INTO signals (symbol, document_id, ts, score, sentiment, novelty, velocity, tag_boost)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (symbol, document_id) DO UPDATE SET
			     ts = EXCLUDED.ts,
			     score = EXCLUDED.score,
			     sentiment = EXCLUDED.sentiment,
			     novelty = EXCLUDED.novelty,
			     velocity = EXCLUDED.velocity,
			     tag_boost = EXCLUDED.tag_boost`,
			s.Symbol, s.DocumentID, s.Timestamp.UTC(), s.Score, s.Sentiment, s.Novelty, s.Velocity, s.TagBoost,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range signals {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *SignalRepository) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-signals")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
SELECT symbol, document_id, ts, score, sentiment, novelty, velocity, tag_boost
FROM signals`
	args := []any{}
	where := ""
	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		where = ` WHERE symbol = $1`
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		if where == "" {
			where = ` WHERE score >= $1`
		} else {
			where += ` AND score >= $2`
		}
	}
	args = append(args, limit)
	query += where + ` ORDER BY ts DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var s domain.Signal
		if err := rows.Scan(&s.Symbol, &s.DocumentID, &s.Timestamp, &s.Score, &s.Sentiment, &s.Novelty, &s.Velocity, &s.TagBoost); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
