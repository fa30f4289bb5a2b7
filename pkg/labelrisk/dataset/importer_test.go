package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

func TestReadCSV(t *testing.T) {
	in := `ingredient_name,risk_level,reason,aliases
Methylparaben,moderate,Preservative,"Methyl Paraben, E218,"
Water,LOW,,
,,,
`
	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	r := rows[0]
	if r.IngredientName != "methylparaben" || r.RiskLevel != "MEDIUM" || r.Aliases != "methyl paraben,e218" {
		t.Errorf("row not normalized: %+v", r)
	}
}

func TestReadCSVRejects(t *testing.T) {
	cases := []string{
		"name,level\nwater,LOW\n",
		"ingredient_name,risk_level\nwater,purple\n",
		"",
	}
	for i, in := range cases {
		if _, err := ReadCSV(strings.NewReader(in)); !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestReadRowsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	content := `rows:
  - ingredient_name: paraben
    risk_level: HIGH
    reason: Endocrine concerns
    aliases: [methylparaben, propylparaben]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Aliases != "methylparaben,propylparaben" || rows[0].RiskLevel != "HIGH" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReadRowsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]string{
		{"ingredient_name", "risk_level", "reason", "aliases"},
		{"Triclosan", "high", "Antibacterial", "irgasan"},
		{"Glycerin", "low", "Humectant", ""},
	}
	for r, rec := range data {
		for c, v := range rec {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cellName, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rows, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 || rows[0].IngredientName != "triclosan" || rows[0].RiskLevel != "HIGH" || rows[1].RiskLevel != "LOW" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReadRowsUnsupported(t *testing.T) {
	if _, err := ReadRows("dataset.json"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
