// Package risk holds the one vocabulary table shared by every classification
// tier: rule statuses (Safe/Risky/Restricted/Unknown), dataset and AI levels
// (LOW/MEDIUM/HIGH) and the lowercase values written to scan history.
package risk

import "strings"

// Status is the rule-tier vocabulary.
type Status string

const (
	Safe       Status = "Safe"
	Risky      Status = "Risky"
	Restricted Status = "Restricted"
	Unknown    Status = "Unknown"
)

// Level is the dataset/AI vocabulary.
type Level string

const (
	Low    Level = "LOW"
	Medium Level = "MEDIUM"
	High   Level = "HIGH"
)

type row struct {
	status   Status
	level    Level
	stored   string
	severity int
}

// table is the single source of truth for every conversion in this package.
// Unknown has no level: unmatched dataset/AI tokens are dropped, not mapped.
var table = []row{
	{status: Unknown, level: "", stored: "unknown", severity: 0},
	{status: Safe, level: Low, stored: "safe", severity: 1},
	{status: Risky, level: Medium, stored: "risky", severity: 2},
	{status: Restricted, level: High, stored: "restricted", severity: 3},
}

func byStatus(s Status) (row, bool) {
	for _, r := range table {
		if r.status == s {
			return r, true
		}
	}
	return row{}, false
}

func byLevel(l Level) (row, bool) {
	if l == "" {
		return row{}, false
	}
	for _, r := range table {
		if r.level == l {
			return r, true
		}
	}
	return row{}, false
}

// Level converts a status to its dataset level. Unknown reports false.
func (s Status) Level() (Level, bool) {
	r, ok := byStatus(s)
	if !ok || r.level == "" {
		return "", false
	}
	return r.level, true
}

// Stored returns the persistence value for the status.
func (s Status) Stored() string {
	if r, ok := byStatus(s); ok {
		return r.stored
	}
	return "unknown"
}

// Severity orders statuses; Unknown ranks lowest.
func (s Status) Severity() int {
	if r, ok := byStatus(s); ok {
		return r.severity
	}
	return 0
}

// Valid reports whether s is one of the four statuses.
func (s Status) Valid() bool {
	_, ok := byStatus(s)
	return ok
}

// Status converts a level to its rule-tier status. Unrecognized levels map to Unknown.
func (l Level) Status() Status {
	if r, ok := byLevel(l); ok {
		return r.status
	}
	return Unknown
}

// Severity orders levels; an invalid level ranks below LOW.
func (l Level) Severity() int {
	if r, ok := byLevel(l); ok {
		return r.severity
	}
	return 0
}

// Valid reports whether l is LOW, MEDIUM or HIGH.
func (l Level) Valid() bool {
	_, ok := byLevel(l)
	return ok
}

// ParseStored maps a persistence value back to a status.
func ParseStored(v string) Status {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, r := range table {
		if r.stored == v {
			return r.status
		}
	}
	return Unknown
}

var levelWords = map[string]Level{
	"low":          Low,
	"safe":         Low,
	"minimal":      Low,
	"none":         Low,
	"benign":       Low,
	"green":        Low,
	"ok":           Low,
	"medium":       Medium,
	"moderate":     Medium,
	"mid":          Medium,
	"risky":        Medium,
	"caution":      Medium,
	"warning":      Medium,
	"concern":      Medium,
	"some concern": Medium,
	"yellow":       Medium,
	"high":         High,
	"restricted":   High,
	"severe":       High,
	"dangerous":    High,
	"hazardous":    High,
	"toxic":        High,
	"banned":       High,
	"prohibited":   High,
	"avoid":        High,
	"red":          High,
}

func foldWord(raw string) string {
	w := strings.ToLower(strings.TrimSpace(raw))
	w = strings.NewReplacer("_", " ", "-", " ").Replace(w)
	w = strings.Join(strings.Fields(w), " ")
	w = strings.TrimSuffix(w, " risk")
	w = strings.TrimSuffix(w, " hazard")
	return w
}

// ParseLevel maps free-form risk words (as returned by a model or an import
// file) to a level. Unrecognized words map to LOW so ambiguous output is not
// over-flagged.
func ParseLevel(raw string) Level {
	if l, ok := LookupLevel(raw); ok {
		return l
	}
	return Low
}

// LookupLevel is ParseLevel without the default.
func LookupLevel(raw string) (Level, bool) {
	l, ok := levelWords[foldWord(raw)]
	return l, ok
}

// ParseStatus maps free-form words to a status, defaulting to Safe.
func ParseStatus(raw string) Status {
	return ParseLevel(raw).Status()
}

// HighestStatus returns the most severe status present, ignoring Unknown.
// With no known statuses it returns Safe.
func HighestStatus(statuses ...Status) Status {
	best := Safe
	for _, s := range statuses {
		if s.Severity() > best.Severity() {
			best = s
		}
	}
	return best
}

// HighestLevel returns the most severe valid level, or LOW.
func HighestLevel(levels ...Level) Level {
	best := Low
	for _, l := range levels {
		if l.Severity() > best.Severity() {
			best = l
		}
	}
	return best
}

// Summary counts results by status.
type Summary struct {
	Safe       int `json:"safe_count"`
	Risky      int `json:"risky_count"`
	Restricted int `json:"restricted_count"`
	Unknown    int `json:"unknown_count"`
	Total      int `json:"total"`
}

// Add counts one result.
func (s *Summary) Add(st Status) {
	switch st {
	case Safe:
		s.Safe++
	case Risky:
		s.Risky++
	case Restricted:
		s.Restricted++
	default:
		s.Unknown++
	}
	s.Total++
}

// AddLevel counts one dataset/AI result through the status table.
func (s *Summary) AddLevel(l Level) {
	s.Add(l.Status())
}

// Source records which strategy produced a match.
type Source string

const (
	SourceExact     Source = "exact"
	SourceAlias     Source = "alias"
	SourceSynonym   Source = "synonym"
	SourceSubstring Source = "substring"
	SourceHeuristic Source = "heuristic"
	SourceAI        Source = "ai"
	SourceNone      Source = "none"
)
