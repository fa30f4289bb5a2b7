// Package reference holds the curated ingredient list used by the
// rule-based tier and the matcher that classifies tokens against it.
package reference

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
)

//go:embed default.yaml
var defaultYAML []byte

// Entry is one curated ingredient.
type Entry struct {
	Key         string      `yaml:"key"`
	Status      risk.Status `yaml:"status"`
	Explanation string      `yaml:"explanation"`
}

// Table is an immutable, ordered reference list. Order is the file order and
// decides ties in substring matching.
type Table struct {
	entries []Entry
	index   map[string]int
}

// NewTable validates entries and builds the key index. Keys are normalized;
// a repeated key is an error.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		e.Key = NormalizeKey(e.Key)
		if e.Key == "" {
			return nil, eris.Wrap(internalerr.ErrInvalidInput, "reference: empty key")
		}
		if e.Status == risk.Unknown || !e.Status.Valid() {
			return nil, eris.Wrapf(internalerr.ErrInvalidInput, "reference: %q has invalid status %q", e.Key, e.Status)
		}
		if _, dup := t.index[e.Key]; dup {
			return nil, eris.Wrapf(internalerr.ErrInvalidInput, "reference: duplicate key %q", e.Key)
		}
		t.index[e.Key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Parse reads a YAML document with a top-level `entries` list.
func Parse(data []byte) (*Table, error) {
	var doc struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "reference: decode yaml")
	}
	return NewTable(doc.Entries)
}

// LoadFromYAML reads a reference table from disk.
func LoadFromYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the built-in reference table.
func Default() *Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic("reference: embedded table: " + err.Error())
	}
	return t
}

// Get looks up a normalized key.
func (t *Table) Get(key string) (Entry, bool) {
	i, ok := t.index[key]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

var bracketStripper = strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ")

// NormalizeKey lowercases, strips bracket characters and collapses whitespace.
func NormalizeKey(s string) string {
	s = bracketStripper.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}
