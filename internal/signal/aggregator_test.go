package signal

import (
	"errors"
	"testing"

	"tickerpulse/internal/domain"
)

func testInputs() Inputs {
	nov, vel := 0.8, 2.5
	return Inputs{
		Link:      &domain.TickerLink{DocumentID: "d1", Symbol: "AAPL", Confidence: 1.0},
		Sentiment: &domain.SentimentResult{DocumentID: "d1", Score: 0.6},
		Novelty:   &nov,
		Velocity:  &vel,
	}
}

func testWeights() Weights {
	return Weights{
		Sentiment: 1.0,
		Novelty:   0.5,
		Velocity:  0.1,
		TagBoosts: map[string]float64{"meme": 0.25, "etf": 0.1},
	}
}

func TestAggregateScore(t *testing.T) {
	sig, err := Aggregate(testWeights(), testInputs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1.0*0.6 + 0.5*0.8 + 0.1*2.5
	if sig.Score != want {
		t.Fatalf("expected score %v, got %v", want, sig.Score)
	}
	if sig.Symbol != "AAPL" || sig.DocumentID != "d1" {
		t.Fatalf("expected pair identity preserved, got %+v", sig)
	}
	if sig.Sentiment != 0.6 || sig.Novelty != 0.8 || sig.Velocity != 2.5 || sig.TagBoost != 0 {
		t.Fatalf("expected components retained, got %+v", sig)
	}
}

func TestAggregateTagBoost(t *testing.T) {
	in := testInputs()
	in.Category = "meme"
	sig, err := Aggregate(testWeights(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.TagBoost != 0.25 {
		t.Fatalf("expected boost 0.25, got %v", sig.TagBoost)
	}
	base, _ := Aggregate(testWeights(), testInputs())
	if sig.Score != base.Score+0.25 {
		t.Fatalf("expected boost added to score, got %v vs %v", sig.Score, base.Score)
	}
}

func TestAggregateUnknownCategoryBoostsZero(t *testing.T) {
	in := testInputs()
	in.Category = "unheard-of"
	sig, err := Aggregate(testWeights(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.TagBoost != 0 {
		t.Fatalf("expected zero boost, got %v", sig.TagBoost)
	}
}

func TestAggregateCategoryCaseInsensitive(t *testing.T) {
	in := testInputs()
	in.Category = "MEME"
	sig, _ := Aggregate(testWeights(), in)
	if sig.TagBoost != 0.25 {
		t.Fatalf("expected case-insensitive category lookup, got %v", sig.TagBoost)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	a, err := Aggregate(testWeights(), testInputs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Aggregate(testWeights(), testInputs())
	if a != b {
		t.Fatalf("expected bit-identical signals, got %+v vs %+v", a, b)
	}
}

func TestAggregateMissingComponents(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"link", func(in *Inputs) { in.Link = nil }},
		{"sentiment", func(in *Inputs) { in.Sentiment = nil }},
		{"novelty", func(in *Inputs) { in.Novelty = nil }},
		{"velocity", func(in *Inputs) { in.Velocity = nil }},
	}
	for _, tc := range cases {
		in := testInputs()
		tc.mutate(&in)
		if _, err := Aggregate(testWeights(), in); !errors.Is(err, domain.ErrComponentMissing) {
			t.Fatalf("%s: expected ErrComponentMissing, got %v", tc.name, err)
		}
	}
}

func TestAggregateNilTagBoosts(t *testing.T) {
	w := testWeights()
	w.TagBoosts = nil
	in := testInputs()
	in.Category = "meme"
	sig, err := Aggregate(w, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.TagBoost != 0 {
		t.Fatalf("expected zero boost with nil table, got %v", sig.TagBoost)
	}
}
