package lexicon

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps ingredient name variants to a canonical name:
//   - INCI/common pairs: aqua -> water
//   - marketing terms: perfume, parfum -> fragrance
//   - spelling variants: glycerine -> glycerin
//
// Canonical forms are the keys used by the reference table, so the matcher
// normalizes through the lexicon before looking a token up.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	synonyms map[string][]string

	// variant -> canonical
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		synonyms:     make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// Default returns the built-in synonym groups.
func Default() *Lexicon {
	lex := New()
	lex.AddSynonymGroup("water", []string{"aqua", "eau", "purified water", "aqua purificata"})
	lex.AddSynonymGroup("fragrance", []string{"perfume", "parfum", "aroma"})
	lex.AddSynonymGroup("glycerin", []string{"glycerine", "glycerol"})
	lex.AddSynonymGroup("sodium chloride", []string{"salt"})
	lex.AddSynonymGroup("tocopherol", []string{"vitamin e"})
	lex.AddSynonymGroup("sodium lauryl sulfate", []string{"sls", "sodium dodecyl sulfate"})
	lex.AddSynonymGroup("sodium laureth sulfate", []string{"sles"})
	lex.AddSynonymGroup("butylated hydroxyanisole", []string{"bha"})
	lex.AddSynonymGroup("butylated hydroxytoluene", []string{"bht"})
	lex.AddSynonymGroup("petrolatum", []string{"petroleum jelly", "vaseline"})
	return lex
}

// LoadFromYAML loads synonym mappings from a YAML file.
//
// Expected format:
//
//	synonyms:
//	  - canonical: water
//	    variants: [aqua, eau]
//	  - canonical: fragrance
//	    variants: [perfume, parfum]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML bytes in the LoadFromYAML format.
func Parse(data []byte) (*Lexicon, error) {
	var config struct {
		Synonyms []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"synonyms"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Synonyms {
		if strings.TrimSpace(entry.Canonical) == "" {
			continue
		}
		lex.AddSynonymGroup(entry.Canonical, entry.Variants)
	}
	return lex, nil
}

// AddSynonymGroup adds a synonym group with a canonical form and its variants.
// If the group already exists, old reverse index entries are cleaned up first.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	canonical = fold(canonical)

	if oldVariants, exists := l.synonyms[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, canonical)
	seen[canonical] = true

	for _, v := range variants {
		v = fold(v)
		if v != "" && !seen[v] {
			normalized = append(normalized, v)
			seen[v] = true
		}
	}

	l.synonyms[canonical] = normalized

	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Normalize returns the canonical form of a token.
// If the token is not in the lexicon, returns the folded token itself.
func (l *Lexicon) Normalize(token string) string {
	token = fold(token)
	if canonical, ok := l.reverseIndex[token]; ok {
		return canonical
	}
	return token
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
