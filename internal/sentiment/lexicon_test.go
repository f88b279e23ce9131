package sentiment

import (
	"math"
	"testing"

	"tickerpulse/internal/domain"
)

func TestLexiconScoreNeutralWhenNoKeywords(t *testing.T) {
	res := LexiconScore(domain.Document{ID: "d1", Text: "the quarterly report was released today"})
	if res.Method != domain.SentimentFallback {
		t.Fatalf("expected fallback method, got %s", res.Method)
	}
	if res.ProbNeutral != 0.6 || res.ProbPositive != 0.2 || res.ProbNegative != 0.2 {
		t.Fatalf("expected neutral-leaning prior, got %+v", res)
	}
	if res.Score != 0 {
		t.Fatalf("expected zero score, got %v", res.Score)
	}
}

func TestLexiconScorePositive(t *testing.T) {
	res := LexiconScore(domain.Document{ID: "d1", Text: "shares surge after record profit"})
	if res.Score <= 0 {
		t.Fatalf("expected positive score, got %v", res.Score)
	}
	if res.ProbPositive <= res.ProbNegative {
		t.Fatalf("expected prob_pos > prob_neg, got %+v", res)
	}
}

func TestLexiconScoreNegative(t *testing.T) {
	res := LexiconScore(domain.Document{ID: "d1", Text: "stock tanks on lawsuit and fraud claims"})
	if res.Score >= 0 {
		t.Fatalf("expected negative score, got %v", res.Score)
	}
}

func TestLexiconScoreProbabilitiesSumToOne(t *testing.T) {
	texts := []string{
		"",
		"surge rally breakout",
		"crash dump selloff miss",
		"mixed: gains but also losses",
	}
	for _, text := range texts {
		res := LexiconScore(domain.Document{ID: "d1", Text: text})
		sum := res.ProbPositive + res.ProbNegative + res.ProbNeutral
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("probabilities for %q sum to %v", text, sum)
		}
	}
}

func TestLexiconScoreDeterministic(t *testing.T) {
	d := domain.Document{ID: "d1", Text: "bullish rally despite bearish chatter"}
	a, b := LexiconScore(d), LexiconScore(d)
	if a != b {
		t.Fatalf("expected identical results, got %+v vs %+v", a, b)
	}
}

func TestLexiconScoreStripsPunctuation(t *testing.T) {
	res := LexiconScore(domain.Document{ID: "d1", Text: "what a rally!"})
	if res.ProbPositive <= res.ProbNegative {
		t.Fatalf("expected punctuation-adjacent keyword to count, got %+v", res)
	}
}
