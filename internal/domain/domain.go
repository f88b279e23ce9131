package domain

import "time"

// Document is a raw short-form text item produced by a collector.
// Immutable once ingested; the pipeline never mutates it.
type Document struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

type Instrument struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Category string   `json:"category,omitempty"`
}

type MatchMethod string

const (
	MatchCashtag     MatchMethod = "cashtag"
	MatchExactSymbol MatchMethod = "exact-symbol"
	MatchAlias       MatchMethod = "alias"
	MatchNERFallback MatchMethod = "ner-fallback"
)

// TickerCandidate is a single pre-dedup match surfaced by the linker.
type TickerCandidate struct {
	Symbol     string
	Term       string
	Method     MatchMethod
	Confidence float64
}

// TickerLink is the deduplicated, authoritative link for one
// (document, symbol) pair. Confidence is the max over all contributing
// candidates and MatchedTerms the union of their literal terms.
type TickerLink struct {
	DocumentID   string   `json:"document_id"`
	Symbol       string   `json:"symbol"`
	Confidence   float64  `json:"confidence"`
	MatchedTerms []string `json:"matched_terms"`
}

type SentimentMethod string

const (
	SentimentPrimary  SentimentMethod = "primary"
	SentimentFallback SentimentMethod = "fallback"
)

// SentimentResult is a document-level 3-way polarity distribution.
// Probabilities sum to 1; Score = ProbPositive - ProbNegative.
type SentimentResult struct {
	DocumentID   string          `json:"document_id"`
	ProbPositive float64         `json:"prob_pos"`
	ProbNegative float64         `json:"prob_neg"`
	ProbNeutral  float64         `json:"prob_neu"`
	Score        float64         `json:"score"`
	Method       SentimentMethod `json:"method"`
}

// EmbeddingEntry is one vector in a symbol's rolling novelty window.
// Appended once per (document, instrument), never mutated.
type EmbeddingEntry struct {
	Symbol    string
	Vector    []float64
	Timestamp time.Time
}

// MentionCount is the mention tally of a symbol within one time bucket.
type MentionCount struct {
	Symbol string
	Bucket time.Time
	Count  int
}

// Signal is the composite output for one (document, instrument) pair.
// The component values are retained for explainability.
type Signal struct {
	Symbol     string    `json:"symbol"`
	DocumentID string    `json:"document_id"`
	Timestamp  time.Time `json:"timestamp"`
	Score      float64   `json:"score"`
	Sentiment  float64   `json:"sentiment"`
	Novelty    float64   `json:"novelty"`
	Velocity   float64   `json:"velocity"`
	TagBoost   float64   `json:"tag_boost"`
}

// PairFailure records a (document, instrument) pair the pipeline could
// not score. Sibling pairs in the same batch are unaffected.
type PairFailure struct {
	DocumentID string `json:"document_id"`
	Symbol     string `json:"symbol,omitempty"`
	Reason     string `json:"reason"`
}

// BatchReport summarizes one pipeline run. Skipped counts documents
// that linked to no instrument (including empty-text documents).
type BatchReport struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Requeued  int           `json:"requeued"`
	Signals   []Signal      `json:"-"`
	Failures  []PairFailure `json:"failures,omitempty"`
}

type SignalFilter struct {
	Symbol   string
	MinScore *float64
	Limit    int
}
