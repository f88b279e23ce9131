package signal

import (
	"fmt"
	"strings"

	"tickerpulse/internal/domain"
)

// Weights configures the composite formula. TagBoosts is keyed by
// instrument category (lowercased); unknown categories boost by 0.
type Weights struct {
	Sentiment float64
	Novelty   float64
	Velocity  float64
	TagBoosts map[string]float64
}

// Inputs carries the four component outputs for one (document,
// instrument) pair. Nil pointers mark missing upstream components.
type Inputs struct {
	Link      *domain.TickerLink
	Sentiment *domain.SentimentResult
	Novelty   *float64
	Velocity  *float64
	Category  string
}

// Aggregate combines the component values into one Signal:
//
//	score = w_sent*sentiment + w_novelty*novelty + w_velocity*velocity + tag_boost
//
// It is pure and deterministic: identical inputs and weights yield a
// bit-identical score. A missing component is fatal for the pair; no
// partial signal is emitted.
func Aggregate(w Weights, in Inputs) (domain.Signal, error) {
	switch {
	case in.Link == nil:
		return domain.Signal{}, fmt.Errorf("%w: ticker link", domain.ErrComponentMissing)
	case in.Sentiment == nil:
		return domain.Signal{}, fmt.Errorf("%w: sentiment for %s", domain.ErrComponentMissing, in.Link.Symbol)
	case in.Novelty == nil:
		return domain.Signal{}, fmt.Errorf("%w: novelty for %s", domain.ErrComponentMissing, in.Link.Symbol)
	case in.Velocity == nil:
		return domain.Signal{}, fmt.Errorf("%w: velocity for %s", domain.ErrComponentMissing, in.Link.Symbol)
	}

	boost := w.TagBoosts[strings.ToLower(in.Category)]
	score := w.Sentiment*in.Sentiment.Score +
		w.Novelty*(*in.Novelty) +
		w.Velocity*(*in.Velocity) +
		boost

	return domain.Signal{
		Symbol:     in.Link.Symbol,
		DocumentID: in.Link.DocumentID,
		Score:      score,
		Sentiment:  in.Sentiment.Score,
		Novelty:    *in.Novelty,
		Velocity:   *in.Velocity,
		TagBoost:   boost,
	}, nil
}
