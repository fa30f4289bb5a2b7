package config

import (
	"github.com/rotisserie/eris"

	"github.com/cognicore/labelrisk/pkg/labelrisk/ingest"
	"github.com/cognicore/labelrisk/pkg/labelrisk/lexicon"
	"github.com/cognicore/labelrisk/pkg/labelrisk/reference"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	TablePath    string
	LexiconPath  string
	StoplistPath string
}

// Components holds all loaded configuration components
type Components struct {
	Tokenizer *ingest.Tokenizer
	Table     *reference.Table
	Lexicon   *lexicon.Lexicon
	Matcher   *reference.Matcher
}

// Load reads all configuration files and returns initialized components.
// Unset paths fall back to the embedded defaults.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load stoplist
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, eris.Wrap(err, "load stoplist")
		}
		comp.Tokenizer = ingest.NewTokenizer(stoplist.Terms)
	} else {
		comp.Tokenizer = ingest.NewTokenizer(ingest.DefaultStopTerms)
	}

	// Load reference table
	if l.TablePath != "" {
		table, err := reference.LoadFromYAML(l.TablePath)
		if err != nil {
			return nil, eris.Wrap(err, "load reference table")
		}
		comp.Table = table
	} else {
		comp.Table = reference.Default()
	}

	// Load lexicon
	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, eris.Wrap(err, "load lexicon")
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.Default()
	}

	comp.Matcher = reference.NewMatcher(comp.Table, comp.Lexicon)
	return comp, nil
}
