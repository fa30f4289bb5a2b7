package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultStopTerms are label fragments that survive splitting but are not ingredients.
var DefaultStopTerms = []string{
	"and",
	"or",
	"contains",
	"may contain",
	"other ingredients",
	"inactive ingredients",
	"active ingredients",
}

var (
	// A leading label word is only a header when a separator or line end
	// follows it; "contains milk" stays an ingredient.
	prefixPattern      = regexp.MustCompile(`(?i)^\s*(?:ingr[eé]dients?|composition|contains)\b(?:\s*[:\-–]|[ \t]*(?:\r?\n|$))\s*`)
	innerHeaderPattern = regexp.MustCompile(`(?i)\b(?:(?:in)?active|other)\s+ingr[eé]dients?\s*[:\-–]`)
	conjunctionPattern = regexp.MustCompile(`^(?:and|&)\s+`)
)

// edgeCutset is trimmed from both ends of every token. Parentheses are
// handled separately so balanced groups like "water (aqua)" survive.
const edgeCutset = " .:;\"'*"

// Tokenizer turns label text into ordered, deduplicated ingredient tokens.
// It holds no per-call state and is safe for concurrent use once built.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new tokenizer with the given stop terms
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stops[w] = struct{}{}
		}
	}
	return &Tokenizer{stopwords: stops}
}

// Tokenize extracts the ingredient section from raw OCR or pasted text and
// splits it into tokens.
func (t *Tokenizer) Tokenize(raw string) []string {
	return t.split(ExtractSection(prepare(raw)), false)
}

// Parse splits an ingredient section on commas and semicolons. Line breaks
// inside the section are treated as spaces since OCR wraps long names.
func (t *Tokenizer) Parse(section string) []string {
	return t.split(prepare(section), false)
}

// NormalizeIngredients is the looser variant for pasted lists: pipes and
// line breaks also separate ingredients and no section extraction happens.
func (t *Tokenizer) NormalizeIngredients(text string) []string {
	return t.split(prepare(text), true)
}

// split expects text that already went through prepare.
func (t *Tokenizer) split(text string, loose bool) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = prefixPattern.ReplaceAllString(text, "")
	text = innerHeaderPattern.ReplaceAllString(text, ",")
	if !loose {
		text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(text)
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';':
			return true
		case '|', '\n', '\r':
			return loose
		}
		return false
	})

	var tokens []string
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tok := t.processToken(p)
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

func prepare(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	if looksLikeHTML(text) {
		text = StripHTML(text)
	}
	return text
}

// processToken cleans one split fragment; it returns "" when the fragment
// should be dropped.
func (t *Tokenizer) processToken(part string) string {
	tok := strings.ToLower(collapseSpace(part))
	tok = trimEdges(tok)
	tok = conjunctionPattern.ReplaceAllString(tok, "")
	tok = trimEdges(tok)

	if utf8.RuneCountInString(tok) < 2 {
		return ""
	}
	if _, stop := t.stopwords[tok]; stop {
		return ""
	}
	return tok
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// trimEdges strips enumeration punctuation and unbalanced parentheses until
// the token stops changing.
func trimEdges(tok string) string {
	for {
		before := tok
		tok = strings.Trim(tok, edgeCutset)
		open, closed := strings.Count(tok, "("), strings.Count(tok, ")")
		if strings.HasPrefix(tok, "(") && open > closed {
			tok = tok[1:]
		} else if strings.HasSuffix(tok, ")") && closed > open {
			tok = tok[:len(tok)-1]
		} else if strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")") && isWrapped(tok) {
			tok = tok[1 : len(tok)-1]
		}
		tok = collapseSpace(tok)
		if tok == before {
			return tok
		}
	}
}

// isWrapped reports whether the first "(" closes at the final ")".
func isWrapped(tok string) bool {
	depth := 0
	for i, r := range tok {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(tok)-1
			}
		}
	}
	return false
}
