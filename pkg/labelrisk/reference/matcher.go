package reference

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/labelrisk/pkg/labelrisk/lexicon"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
)

// MinSubstringKeyLen is the shortest reference key allowed to match inside a
// longer token.
const MinSubstringKeyLen = 4

// UnknownExplanation is reported for tokens no strategy could classify.
const UnknownExplanation = "not found in reference list"

// Match is the rule-tier classification of one token.
type Match struct {
	Token       string
	Status      risk.Status
	Explanation string
	MatchedKey  string
	Source      risk.Source
}

// heuristic classifies whole ingredient families that the table may not list
// verbatim.
type heuristic struct {
	pattern     *regexp.Regexp
	key         string
	fallback    risk.Status
	explanation string
}

var defaultHeuristics = []heuristic{
	{
		pattern:     regexp.MustCompile(`paraben`),
		key:         "paraben",
		fallback:    risk.Risky,
		explanation: "Member of the paraben preservative family.",
	},
	{
		pattern:     regexp.MustCompile(`fragrance|parfum`),
		key:         "fragrance",
		fallback:    risk.Risky,
		explanation: "Fragrance blend with undisclosed components.",
	},
}

// Matcher classifies tokens against a reference table. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	table      *Table
	lexicon    *lexicon.Lexicon
	heuristics []heuristic
}

// NewMatcher creates a matcher. A nil lexicon disables synonym substitution.
func NewMatcher(table *Table, lex *lexicon.Lexicon) *Matcher {
	return &Matcher{table: table, lexicon: lex, heuristics: defaultHeuristics}
}

// Match classifies one token. Strategies run in a fixed order and the first
// hit wins: synonym+exact, substring, family heuristic, unknown.
func (m *Matcher) Match(token string) Match {
	key := NormalizeKey(token)
	canonical := key
	if m.lexicon != nil {
		canonical = NormalizeKey(m.lexicon.Normalize(key))
	}

	if e, ok := m.table.Get(canonical); ok {
		src := risk.SourceExact
		if canonical != key {
			src = risk.SourceSynonym
		}
		return m.hit(token, e, src)
	}

	if canonical != "" {
		for _, e := range m.table.entries {
			if utf8.RuneCountInString(e.Key) < MinSubstringKeyLen {
				continue
			}
			if strings.Contains(canonical, e.Key) {
				return m.hit(token, e, risk.SourceSubstring)
			}
		}

		for _, h := range m.heuristics {
			if !h.pattern.MatchString(canonical) {
				continue
			}
			if e, ok := m.table.Get(h.key); ok {
				return m.hit(token, e, risk.SourceHeuristic)
			}
			return Match{
				Token:       token,
				Status:      h.fallback,
				Explanation: h.explanation,
				MatchedKey:  h.key,
				Source:      risk.SourceHeuristic,
			}
		}
	}

	return Match{
		Token:       token,
		Status:      risk.Unknown,
		Explanation: UnknownExplanation,
		Source:      risk.SourceNone,
	}
}

// MatchAll classifies tokens in order.
func (m *Matcher) MatchAll(tokens []string) []Match {
	out := make([]Match, len(tokens))
	for i, tok := range tokens {
		out[i] = m.Match(tok)
	}
	return out
}

func (m *Matcher) hit(token string, e Entry, src risk.Source) Match {
	return Match{
		Token:       token,
		Status:      e.Status,
		Explanation: e.Explanation,
		MatchedKey:  e.Key,
		Source:      src,
	}
}
