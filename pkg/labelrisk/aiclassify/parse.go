package aiclassify

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

// rawItem accepts both vocabularies a model may answer with.
type rawItem struct {
	Name        string `json:"name"`
	RiskLevel   string `json:"risk_level"`
	Risk        string `json:"risk"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Explanation string `json:"explanation"`
}

func (r rawItem) riskWord() string {
	for _, w := range []string{r.RiskLevel, r.Status, r.Risk} {
		if strings.TrimSpace(w) != "" {
			return w
		}
	}
	return ""
}

func (r rawItem) why() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Explanation
}

type wrapper struct {
	Ingredients     []rawItem `json:"ingredients"`
	Results         []rawItem `json:"results"`
	Recommendations []string  `json:"recommendations"`
}

// parseReply extracts the classification items from a model reply. Replies
// may be a bare array or an object carrying the array plus recommendations,
// optionally surrounded by code fences or prose.
func parseReply(reply string) ([]rawItem, []string, error) {
	obj, objAt := extractJSON(reply, '{', '}')
	arr, arrAt := extractJSON(reply, '[', ']')

	if obj != "" && (arr == "" || objAt < arrAt) {
		var w wrapper
		if err := json.Unmarshal([]byte(obj), &w); err == nil {
			items := w.Ingredients
			if items == nil {
				items = w.Results
			}
			if items != nil {
				return items, w.Recommendations, nil
			}
		}
	}

	if arr == "" {
		return nil, nil, eris.Wrap(internalerr.ErrMalformedResponse, "ai: no JSON array in reply")
	}
	var items []rawItem
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, nil, eris.Wrapf(internalerr.ErrMalformedResponse, "ai: decode array: %v", err)
	}
	return items, nil, nil
}

// extractJSON scans for the first balanced open..close span that is valid
// JSON, honoring string literals and escapes. It returns the span and its
// byte offset, or "" and -1.
func extractJSON(s string, open, close byte) (string, int) {
	for start := strings.IndexByte(s, open); start >= 0; {
		if end := matchClose(s, start, open, close); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, start
			}
		}
		next := strings.IndexByte(s[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", -1
}

func matchClose(s string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
