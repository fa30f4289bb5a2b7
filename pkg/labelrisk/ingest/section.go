package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxSectionLen bounds how far past the start marker a section may extend
// when no stop marker is found.
const MaxSectionLen = 1000

// StartMarkers are tried in order; the first one present in the text wins.
var StartMarkers = []string{
	"ingredients",
	"ingredient:",
	"ingrédients",
	"composition",
	"contains:",
}

// StopMarkers end an ingredient section. The earliest occurrence wins.
var StopMarkers = []string{
	"directions",
	"how to use",
	"storage",
	"store in",
	"warning",
	"caution",
	"manufactured",
	"distributed by",
	"net wt",
	"net weight",
	"expiry",
	"exp.",
	"best before",
	"nutrition facts",
}

var (
	startPatterns = compileEach(StartMarkers)
	stopPattern   = compileAny(StopMarkers)
)

func compileEach(markers []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(markers))
	for _, m := range markers {
		out = append(out, regexp.MustCompile("(?i)"+regexp.QuoteMeta(m)))
	}
	return out
}

func compileAny(markers []string) *regexp.Regexp {
	quoted := make([]string, len(markers))
	for i, m := range markers {
		quoted[i] = regexp.QuoteMeta(m)
	}
	return regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
}

// ExtractSection returns the ingredient section of raw label text.
// Text without a start marker is returned unchanged.
func ExtractSection(text string) string {
	start, markerEnd := -1, -1
	for _, re := range startPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			start, markerEnd = loc[0], loc[1]
			break
		}
	}
	if start < 0 {
		return text
	}

	end := len(text)
	if limit := start + MaxSectionLen; limit < end {
		end = snapToRune(text, limit)
	}
	if markerEnd < end {
		if loc := stopPattern.FindStringIndex(text[markerEnd:end]); loc != nil {
			end = markerEnd + loc[0]
		}
	}
	return text[start:end]
}

// snapToRune moves i back to the start of the rune containing it.
func snapToRune(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
