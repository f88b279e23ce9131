package sentiment

import (
	"strings"

	"tickerpulse/internal/domain"
)

// Finance-leaning polarity lexicons for the deterministic fallback.
var (
	positiveWords = []string{
		"beat", "beats", "breakout", "bull", "bullish", "buy", "gain",
		"gains", "growth", "moon", "outperform", "profit", "rally",
		"rebound", "record", "recover", "soar", "soars", "strong",
		"surge", "surges", "upgrade", "upside", "uptrend", "win",
	}
	negativeWords = []string{
		"ban", "bankrupt", "bear", "bearish", "crash", "decline",
		"downgrade", "downtrend", "drop", "dump", "fraud", "hack",
		"lawsuit", "liquidation", "loss", "losses", "miss", "misses",
		"plunge", "plunges", "recall", "sell", "selloff", "short",
		"tank", "tanks", "weak",
	}
)

// LexiconScore is the guaranteed-available terminal sentiment strategy.
// It is pure and never fails; degenerate text yields a neutral-leaning
// distribution. Probabilities sum to 1 by construction.
func LexiconScore(doc domain.Document) domain.SentimentResult {
	res := domain.SentimentResult{
		DocumentID: doc.ID,
		Method:     domain.SentimentFallback,
	}

	tokens := strings.Fields(strings.ToLower(doc.Text))
	pos, neg := 0, 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:()[]\"'#$")
		if contains(positiveWords, tok) {
			pos++
		} else if contains(negativeWords, tok) {
			neg++
		}
	}

	if pos == 0 && neg == 0 {
		res.ProbPositive = 0.2
		res.ProbNegative = 0.2
		res.ProbNeutral = 0.6
		return res
	}

	// Two pseudo-counts of neutral mass so a single keyword does not
	// saturate the distribution.
	total := float64(pos + neg + 2)
	res.ProbPositive = float64(pos) / total
	res.ProbNegative = float64(neg) / total
	res.ProbNeutral = 2.0 / total
	res.Score = res.ProbPositive - res.ProbNegative
	return res
}

func contains(words []string, tok string) bool {
	for _, w := range words {
		if w == tok {
			return true
		}
	}
	return false
}
