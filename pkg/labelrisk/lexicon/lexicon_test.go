package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSynonyms(t *testing.T) {
	lex := Default()

	tests := map[string]string{
		"aqua":      "water",
		"AQUA":      "water",
		"perfume":   "fragrance",
		"parfum":    "fragrance",
		"glycerine": "glycerin",
		"water":     "water",
		"niacin":    "niacin",
	}
	for in, want := range tests {
		if got := lex.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSynonymGroupFolding(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("Water", []string{"Aqua", "eau", "aqua"})

	for _, in := range []string{"AQUA", " eau ", "Water"} {
		if got := lex.Normalize(in); got != "water" {
			t.Errorf("Normalize(%q) = %q, want water", in, got)
		}
	}
	if got := lex.Normalize("Milk"); got != "milk" {
		t.Errorf("unknown token should fold to itself, got %q", got)
	}
}

func TestAddSynonymGroupReplaces(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("fragrance", []string{"perfume"})
	lex.AddSynonymGroup("fragrance", []string{"parfum"})

	if got := lex.Normalize("perfume"); got != "perfume" {
		t.Errorf("old variant should be dropped, got %q", got)
	}
	if got := lex.Normalize("parfum"); got != "fragrance" {
		t.Errorf("new variant should map, got %q", got)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	content := `synonyms:
  - canonical: water
    variants: [aqua, "Eau  Thermale"]
  - canonical: ""
    variants: [ignored]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if got := lex.Normalize("eau thermale"); got != "water" {
		t.Errorf("got %q", got)
	}
	if got := lex.Normalize("ignored"); got != "ignored" {
		t.Errorf("entries without canonical should be skipped, got %q", got)
	}

	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
