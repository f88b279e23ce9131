package velocity

import (
	"sort"
	"sync"
	"time"

	"tickerpulse/internal/domain"

	"gonum.org/v1/gonum/stat"
)

// Scorer maintains per-symbol mention counts in discrete time buckets
// and scores the current bucket as a z-score against the rolling
// baseline. Increments for one symbol are serialized by its partition
// lock and each score is computed after the current mention is
// recorded, so repeated documents in a bucket see a non-decreasing
// count.
type Scorer struct {
	baseline time.Duration
	bucket   time.Duration

	mu       sync.Mutex
	bySymbol map[string]*partition
}

type partition struct {
	mu     sync.Mutex
	counts map[time.Time]int
}

func NewScorer(baseline, bucket time.Duration) *Scorer {
	if baseline <= 0 {
		baseline = 30 * 24 * time.Hour
	}
	if bucket <= 0 {
		bucket = time.Hour
	}
	return &Scorer{baseline: baseline, bucket: bucket, bySymbol: make(map[string]*partition)}
}

// Observe records one mention at ts and returns the velocity z-score of
// the current bucket. The baseline is the mean and population standard
// deviation of counts over observed buckets inside the trailing window,
// excluding the current (incomplete) bucket. A zero-variance baseline
// (flat history, or fewer than two observed buckets) yields 0.
func (s *Scorer) Observe(symbol string, ts time.Time) float64 {
	p := s.partition(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()

	current := ts.Truncate(s.bucket)
	p.counts[current]++

	windowStart := current.Add(-s.baseline)
	var history []float64
	for bucket, count := range p.counts {
		if bucket.Equal(current) || bucket.Before(windowStart) || !bucket.Before(current) {
			continue
		}
		history = append(history, float64(count))
	}
	if len(history) < 2 {
		return 0
	}

	mean := stat.Mean(history, nil)
	stddev := stat.PopStdDev(history, nil)
	if stddev == 0 {
		return 0
	}
	return (float64(p.counts[current]) - mean) / stddev
}

// PruneBefore drops buckets older than the cutoff across all symbols.
func (s *Scorer) PruneBefore(cutoff time.Time) int {
	removed := 0
	for _, p := range s.partitions() {
		p.mu.Lock()
		for bucket := range p.counts {
			if bucket.Before(cutoff) {
				delete(p.counts, bucket)
				removed++
			}
		}
		p.mu.Unlock()
	}
	return removed
}

// Snapshot returns a copy of the live mention history for persistence.
func (s *Scorer) Snapshot() []domain.MentionCount {
	var out []domain.MentionCount
	for sym, p := range s.namedPartitions() {
		p.mu.Lock()
		for bucket, count := range p.counts {
			out = append(out, domain.MentionCount{Symbol: sym, Bucket: bucket, Count: count})
		}
		p.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out
}

// Restore loads persisted counts, replacing in-memory state for the
// symbols present in the snapshot.
func (s *Scorer) Restore(counts []domain.MentionCount) {
	replaced := make(map[string]struct{})
	for _, mc := range counts {
		p := s.partition(mc.Symbol)
		p.mu.Lock()
		if _, ok := replaced[mc.Symbol]; !ok {
			p.counts = make(map[time.Time]int)
			replaced[mc.Symbol] = struct{}{}
		}
		p.counts[mc.Bucket.Truncate(s.bucket)] = mc.Count
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
		p = &partition{counts: make(map[time.Time]int)}
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

func (s *Scorer) namedPartitions() map[string]*partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*partition, len(s.bySymbol))
	for sym, p := range s.bySymbol {
		out[sym] = p
	}
	return out
}
