// Package dataset classifies tokens against the curated ingredient dataset
// held in the store. Matching is strict: exact canonical name, then a whole
// alias element. Tokens that match neither are dropped.
package dataset

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
)

// NoMatchExplanation is the single explanation of a lookup with no hits.
const NoMatchExplanation = "no matching ingredients found in dataset"

// Source is the part of store.Store the lookup reads.
type Source interface {
	CountDataset(ctx context.Context) (int64, error)
	FindByName(ctx context.Context, name string) (store.DatasetRow, bool, error)
	FindAliasCandidates(ctx context.Context, token string) ([]store.DatasetRow, error)
}

// Match is one dataset hit.
type Match struct {
	Input     string      `json:"input"`
	Name      string      `json:"name"`
	RiskLevel risk.Level  `json:"risk_level"`
	Reason    string      `json:"reason"`
	Source    risk.Source `json:"match_source"`
}

// Result aggregates a lookup over a token list.
type Result struct {
	Matched      []Match      `json:"matched_ingredients"`
	Explanations []string     `json:"explanations"`
	RiskLevel    risk.Level   `json:"risk_level"`
	Summary      risk.Summary `json:"summary"`
	NoMatches    bool         `json:"no_matches"`
}

// Lookup runs dataset classification.
type Lookup struct {
	src Source
}

// New creates a lookup over src.
func New(src Source) *Lookup {
	return &Lookup{src: src}
}

// Available reports whether the dataset holds at least one row. A failing
// count means unavailable.
func (l *Lookup) Available(ctx context.Context) bool {
	if l == nil || l.src == nil {
		return false
	}
	n, err := l.src.CountDataset(ctx)
	return err == nil && n > 0
}

// Classify matches tokens in order. Storage failures are returned wrapped in
// internalerr.ErrUnavailable.
func (l *Lookup) Classify(ctx context.Context, tokens []string) (Result, error) {
	if l == nil || l.src == nil {
		return Result{}, eris.Wrap(internalerr.ErrUnavailable, "dataset: no store")
	}

	var matches []Match
	seen := make(map[string]bool)
	for _, tok := range tokens {
		m, ok, err := l.matchToken(ctx, tok)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		key := strings.ToLower(m.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, m)
	}
	return Aggregate(matches), nil
}

func (l *Lookup) matchToken(ctx context.Context, tok string) (Match, bool, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Match{}, false, nil
	}

	row, found, err := l.src.FindByName(ctx, tok)
	if err != nil {
		return Match{}, false, eris.Wrapf(internalerr.ErrUnavailable, "dataset: find %q: %v", tok, err)
	}
	if found {
		return toMatch(tok, row, risk.SourceExact), true, nil
	}

	cands, err := l.src.FindAliasCandidates(ctx, tok)
	if err != nil {
		return Match{}, false, eris.Wrapf(internalerr.ErrUnavailable, "dataset: alias %q: %v", tok, err)
	}
	for _, row := range cands {
		if AliasMatches(row.Aliases, tok) {
			return toMatch(tok, row, risk.SourceAlias), true, nil
		}
	}
	return Match{}, false, nil
}

func toMatch(tok string, row store.DatasetRow, src risk.Source) Match {
	return Match{
		Input:     tok,
		Name:      row.IngredientName,
		RiskLevel: risk.ParseLevel(row.RiskLevel),
		Reason:    row.Reason,
		Source:    src,
	}
}

// AliasMatches reports whether token equals one whole element of a
// comma-separated alias list, ignoring case and surrounding space.
func AliasMatches(aliases, token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return false
	}
	for _, a := range strings.Split(aliases, ",") {
		if strings.ToLower(strings.TrimSpace(a)) == token {
			return true
		}
	}
	return false
}

// Aggregate builds the result for a list of matches.
func Aggregate(matches []Match) Result {
	res := Result{Matched: matches, RiskLevel: risk.Low}
	if len(matches) == 0 {
		res.NoMatches = true
		res.Explanations = []string{NoMatchExplanation}
		return res
	}

	levels := make([]risk.Level, 0, len(matches))
	seenReason := make(map[string]bool)
	for _, m := range matches {
		levels = append(levels, m.RiskLevel)
		res.Summary.AddLevel(m.RiskLevel)
		if m.Reason != "" && !seenReason[m.Reason] {
			seenReason[m.Reason] = true
			res.Explanations = append(res.Explanations, m.Reason)
		}
	}
	res.RiskLevel = risk.HighestLevel(levels...)
	return res
}
