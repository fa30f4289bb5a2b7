package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/labelrisk/pkg/labelrisk"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LABELRISK_AI_ENDPOINT", "")
	t.Setenv("LABELRISK_AI_API_KEY", "")
	t.Setenv("LABELRISK_DATABASE_URL", "")
	t.Setenv("LABELRISK_OCR_ENDPOINT", "")

	buf := &bytes.Buffer{}
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	for _, sub := range []string{"analyze", "tokenize", "dataset", "scans"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help should list %q", sub)
		}
	}
}

func TestTokenizeCommand(t *testing.T) {
	out, err := run(t, "tokenize", "--text", "Ingredients: Water, Glycerin. Directions: apply daily")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if got := strings.Fields(out); len(got) != 2 || got[0] != "water" || got[1] != "glycerin" {
		t.Fatalf("unexpected tokens %q", out)
	}
}

func TestAnalyzeRequiresText(t *testing.T) {
	if _, err := run(t, "analyze", "--no-store"); err == nil {
		t.Fatal("expected error without input")
	}
}

func TestDatasetImportAnalyzeAndScans(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "labelrisk.db")
	csvPath := filepath.Join(dir, "dataset.csv")
	csv := "ingredient_name,risk_level,reason,aliases\nparaben,HIGH,Endocrine concerns,\"methylparaben,propylparaben\"\nwater,LOW,Solvent,aqua\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--db", db, "dataset", "import", csvPath)
	if err != nil {
		t.Fatalf("dataset import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 rows") {
		t.Fatalf("import output %q", out)
	}

	out, err = run(t, "--db", db, "dataset", "count")
	if err != nil || strings.TrimSpace(out) != "2" {
		t.Fatalf("dataset count: %q %v", out, err)
	}

	out, err = run(t, "--db", db, "analyze", "--json", "--user", "u1", "--text", "Aqua, Methylparaben")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var v labelrisk.Verdict
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode verdict: %v\n%s", err, out)
	}
	if v.Source != labelrisk.SourceDataset || v.Summary.Restricted != 1 || v.ScanID == "" {
		t.Fatalf("unexpected verdict %+v", v)
	}

	out, err = run(t, "--db", db, "scans", "list", "--user", "u1")
	if err != nil || !strings.Contains(out, v.ScanID) {
		t.Fatalf("scans list: %q %v", out, err)
	}

	out, err = run(t, "--db", db, "scans", "show", v.ScanID)
	if err != nil || !strings.Contains(out, "paraben") {
		t.Fatalf("scans show: %q %v", out, err)
	}
	if !strings.Contains(out, "Overall: Restricted") || !strings.Contains(out, "Safe") {
		t.Fatalf("scans show should render stored risk as status words: %q", out)
	}

	if _, err := run(t, "--db", db, "scans", "show", "missing"); err == nil {
		t.Fatal("expected not found")
	}
}

func TestAnalyzeRulesWithoutStore(t *testing.T) {
	out, err := run(t, "analyze", "--no-store", "--text", "water, fragrance")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Source: rules") || !strings.Contains(out, "Risky") {
		t.Fatalf("unexpected output %q", out)
	}
}
