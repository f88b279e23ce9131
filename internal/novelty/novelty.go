package novelty

import (
	"math"
	"sort"
	"sync"
	"time"

	"tickerpulse/internal/domain"

	"gonum.org/v1/gonum/floats"
)

// Scorer measures how dissimilar a document vector is from the rolling
// window of same-symbol vectors. State is partitioned by symbol; all
// reads and appends for one symbol are serialized by that partition's
// lock, so concurrent documents for the same instrument cannot race.
type Scorer struct {
	window time.Duration

	mu       sync.Mutex
	bySymbol map[string]*partition
}

type partition struct {
	mu      sync.Mutex
	entries []domain.EmbeddingEntry
}

func NewScorer(window time.Duration) *Scorer {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Scorer{window: window, bySymbol: make(map[string]*partition)}
}

// ScoreAndAppend computes novelty = 1 - max cosine similarity against
// window entries strictly newer than ts-window and strictly older than
// ts, then appends the vector as a new entry. Restricting to earlier
// timestamps keeps the score independent of the order concurrent
// same-symbol documents reach the scorer. An empty window yields 1.0 by
// definition. Expired entries are pruned eagerly while the partition
// lock is held.
func (s *Scorer) ScoreAndAppend(symbol string, vec []float64, ts time.Time) float64 {
	p := s.partition(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := ts.Add(-s.window)
	kept := p.entries[:0]
	for _, e := range p.entries {
		// entries exactly at the boundary are excluded
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	p.entries = kept

	score := 1.0
	scored := false
	maxSim := math.Inf(-1)
	for _, e := range p.entries {
		if !e.Timestamp.Before(ts) {
			continue
		}
		scored = true
		if sim := cosine(vec, e.Vector); sim > maxSim {
			maxSim = sim
		}
	}
	if scored {
		score = clamp01(1 - maxSim)
	}

	p.entries = append(p.entries, domain.EmbeddingEntry{
		Symbol:    symbol,
		Vector:    vec,
		Timestamp: ts,
	})
	return score
}

// PruneBefore drops entries at or before the cutoff across all symbols.
func (s *Scorer) PruneBefore(cutoff time.Time) int {
	removed := 0
	for _, p := range s.partitions() {
		p.mu.Lock()
		kept := p.entries[:0]
		for _, e := range p.entries {
			if e.Timestamp.After(cutoff) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		p.entries = kept
		p.mu.Unlock()
	}
	return removed
}

// Snapshot returns a copy of the live window for persistence.
func (s *Scorer) Snapshot() []domain.EmbeddingEntry {
	var out []domain.EmbeddingEntry
	for _, p := range s.partitions() {
		p.mu.Lock()
		out = append(out, p.entries...)
		p.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Restore loads persisted entries, replacing any in-memory state for
// the symbols present in the snapshot.
func (s *Scorer) Restore(entries []domain.EmbeddingEntry) {
	replaced := make(map[string]struct{})
	for _, e := range entries {
		p := s.partition(e.Symbol)
		p.mu.Lock()
		if _, ok := replaced[e.Symbol]; !ok {
			p.entries = nil
			replaced[e.Symbol] = struct{}{}
		}
		p.entries = append(p.entries, e)
		p.mu.Unlock()
	}
}

// Reset clears all rolling state.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySymbol = make(map[string]*partition)
}

func (s *Scorer) partition(symbol string) *partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bySymbol[symbol]
	if !ok {
		p = &partition{}
		s.bySymbol[symbol] = p
	}
	return p
}

func (s *Scorer) partitions() []*partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*partition, 0, len(s.bySymbol))
	for _, p := range s.bySymbol {
		out = append(out, p)
	}
	return out
}

// cosine computes cosine similarity on L2-normalized copies of a and b.
// A zero vector has similarity 0 against everything, never NaN.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := math.Sqrt(floats.Dot(a, a))
	nb := math.Sqrt(floats.Dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
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
