package linker

import (
	"regexp"
	"sort"
	"strings"

	"tickerpulse/internal/domain"
)

const (
	confCashtag     = 1.0
	confExactSymbol = 0.9
	confAlias       = 0.75
	confNERFallback = 0.5
)

var (
	cashtagRx    = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
	bareTokenRx  = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	properNounRx = regexp.MustCompile(`\b[A-Z][a-z]{2,}(?:\s+[A-Z][a-z]+)*\b`)
)

// Linker maps free text to instruments from a configured symbol universe.
type Linker struct {
	symbols map[string]domain.Instrument
	aliases map[string]string // lowercased alias/name -> symbol
	deny    map[string]struct{}
}

// New builds a linker over the given universe. Symbols on the deny list
// (plus every single-letter symbol) are too ambiguous as bare words and
// only match in cashtag form.
func New(universe []domain.Instrument, denyList []string) *Linker {
	l := &Linker{
		symbols: make(map[string]domain.Instrument, len(universe)),
		aliases: make(map[string]string),
		deny:    make(map[string]struct{}, len(denyList)),
	}
	for _, inst := range universe {
		sym := strings.ToUpper(strings.TrimSpace(inst.Symbol))
		if sym == "" {
			continue
		}
		inst.Symbol = sym
		l.symbols[sym] = inst
		if name := strings.ToLower(strings.TrimSpace(inst.Name)); name != "" {
			l.aliases[name] = sym
		}
		for _, alias := range inst.Aliases {
			if a := strings.ToLower(strings.TrimSpace(alias)); a != "" {
				l.aliases[a] = sym
			}
		}
		if len(sym) == 1 {
			l.deny[sym] = struct{}{}
		}
	}
	for _, s := range denyList {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			l.deny[s] = struct{}{}
		}
	}
	return l
}

// Category returns the configured category tag for a symbol, or "".
func (l *Linker) Category(symbol string) string {
	return l.symbols[strings.ToUpper(symbol)].Category
}

// Link extracts ticker candidates from the document text and collapses
// them into one TickerLink per symbol: max confidence, union of matched
// terms. Overlapping matches for distinct symbols are kept independently.
// Empty or unrecognizable text yields no links, not an error.
func (l *Linker) Link(doc domain.Document) []domain.TickerLink {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	candidates := l.cashtagCandidates(text)
	candidates = append(candidates, l.exactSymbolCandidates(text)...)
	candidates = append(candidates, l.aliasCandidates(text)...)
	candidates = append(candidates, l.nerFallbackCandidates(text, candidates)...)
	if len(candidates) == 0 {
		return nil
	}

	bySymbol := make(map[string]*domain.TickerLink)
	terms := make(map[string]map[string]struct{})
	for _, c := range candidates {
		link, ok := bySymbol[c.Symbol]
		if !ok {
			link = &domain.TickerLink{DocumentID: doc.ID, Symbol: c.Symbol}
			bySymbol[c.Symbol] = link
			terms[c.Symbol] = make(map[string]struct{})
		}
		if c.Confidence > link.Confidence {
			link.Confidence = c.Confidence
		}
		terms[c.Symbol][c.Term] = struct{}{}
	}

	out := make([]domain.TickerLink, 0, len(bySymbol))
	for sym, link := range bySymbol {
		for term := range terms[sym] {
			link.MatchedTerms = append(link.MatchedTerms, term)
		}
		sort.Strings(link.MatchedTerms)
		out = append(out, *link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (l *Linker) cashtagCandidates(text string) []domain.TickerCandidate {
	var out []domain.TickerCandidate
	for _, m := range cashtagRx.FindAllStringSubmatch(text, -1) {
		sym := m[1]
		if _, ok := l.symbols[sym]; !ok {
			continue // unknown symbols are dropped, not guessed at
		}
		out = append(out, domain.TickerCandidate{
			Symbol:     sym,
			Term:       m[0],
			Method:     domain.MatchCashtag,
			Confidence: confCashtag,
		})
	}
	return out
}

func (l *Linker) exactSymbolCandidates(text string) []domain.TickerCandidate {
	var out []domain.TickerCandidate
	for _, loc := range bareTokenRx.FindAllStringIndex(text, -1) {
		// skip cashtag forms already handled above
		if loc[0] > 0 && text[loc[0]-1] == '$' {
			continue
		}
		token := text[loc[0]:loc[1]]
		if _, ok := l.symbols[token]; !ok {
			continue
		}
		if _, denied := l.deny[token]; denied {
			continue // ambiguous bare symbol, cashtag form required
		}
		out = append(out, domain.TickerCandidate{
			Symbol:     token,
			Term:       token,
			Method:     domain.MatchExactSymbol,
			Confidence: confExactSymbol,
		})
	}
	return out
}

func (l *Linker) aliasCandidates(text string) []domain.TickerCandidate {
	lower := strings.ToLower(text)
	var out []domain.TickerCandidate
	for alias, sym := range l.aliases {
		if containsPhrase(lower, alias) {
			out = append(out, domain.TickerCandidate{
				Symbol:     sym,
				Term:       alias,
				Method:     domain.MatchAlias,
				Confidence: confAlias,
			})
		}
	}
	return out
}

// nerFallbackCandidates fuzzily matches proper-noun spans that no
// higher-confidence candidate already covers against instrument names.
func (l *Linker) nerFallbackCandidates(text string, existing []domain.TickerCandidate) []domain.TickerCandidate {
	covered := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		if c.Confidence >= confAlias {
			covered[c.Symbol] = struct{}{}
		}
	}

	var out []domain.TickerCandidate
	for _, span := range properNounRx.FindAllString(text, -1) {
		sym, ok := l.fuzzyNameMatch(span)
		if !ok {
			continue
		}
		if _, done := covered[sym]; done {
			continue
		}
		covered[sym] = struct{}{}
		out = append(out, domain.TickerCandidate{
			Symbol:     sym,
			Term:       span,
			Method:     domain.MatchNERFallback,
			Confidence: confNERFallback,
		})
	}
	return out
}

// fuzzyNameMatch accepts a span when it shares its leading word with an
// instrument name, e.g. "Apple" against "Apple Inc".
func (l *Linker) fuzzyNameMatch(span string) (string, bool) {
	spanLower := strings.ToLower(strings.TrimSpace(span))
	if spanLower == "" {
		return "", false
	}
	spanHead := strings.Fields(spanLower)[0]
	best := ""
	for _, inst := range l.symbols {
		name := strings.ToLower(inst.Name)
		if name == "" {
			continue
		}
		if strings.Fields(name)[0] == spanHead {
			if best == "" || inst.Symbol < best {
				best = inst.Symbol
			}
		}
	}
	return best, best != ""
}

// containsPhrase is a word-bounded, case-normalized substring match.
func containsPhrase(haystack, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordByte(haystack[start-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
