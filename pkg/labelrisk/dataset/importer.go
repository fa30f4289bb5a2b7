package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
)

// Column names shared by the CSV and XLSX formats.
const (
	colName    = "ingredient_name"
	colLevel   = "risk_level"
	colReason  = "reason"
	colAliases = "aliases"
)

// ReadRows loads dataset rows from a .csv, .xlsx or .yaml/.yml file.
func ReadRows(path string) ([]store.DatasetRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return readXLSX(path)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		return ParseYAML(data)
	default:
		return nil, eris.Wrapf(internalerr.ErrInvalidInput, "dataset: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV reads a headered CSV. ingredient_name and risk_level are required
// columns; reason and aliases are optional.
func ReadCSV(r io.Reader) ([]store.DatasetRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(internalerr.ErrInvalidInput, "dataset: csv: %v", err)
	}
	return fromRecords(records)
}

func readXLSX(path string) ([]store.DatasetRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, eris.Wrapf(internalerr.ErrInvalidInput, "dataset: %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, eris.Wrapf(err, "read sheet %s", sheets[0])
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) ([]store.DatasetRow, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(internalerr.ErrInvalidInput, "dataset: missing header row")
	}
	idx := map[string]int{}
	for i, h := range records[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colName, colLevel} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Wrapf(internalerr.ErrInvalidInput, "dataset: header lacks %q", required)
		}
	}

	cell := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []store.DatasetRow
	for n, rec := range records[1:] {
		name := cell(rec, colName)
		if name == "" && cell(rec, colLevel) == "" {
			continue
		}
		row, err := NewRow(name, cell(rec, colLevel), cell(rec, colReason), cell(rec, colAliases))
		if err != nil {
			return nil, eris.Wrapf(err, "line %d", n+2)
		}
		out = append(out, row)
	}
	return out, nil
}

type yamlRow struct {
	Name      string   `yaml:"ingredient_name"`
	RiskLevel string   `yaml:"risk_level"`
	Reason    string   `yaml:"reason"`
	Aliases   []string `yaml:"aliases"`
}

// ParseYAML reads a document with a top-level `rows` list. Aliases are a
// YAML list rather than a comma-separated string.
func ParseYAML(data []byte) ([]store.DatasetRow, error) {
	var doc struct {
		Rows []yamlRow `yaml:"rows"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(internalerr.ErrInvalidInput, "dataset: yaml: %v", err)
	}
	out := make([]store.DatasetRow, 0, len(doc.Rows))
	for i, r := range doc.Rows {
		row, err := NewRow(r.Name, r.RiskLevel, r.Reason, strings.Join(r.Aliases, ","))
		if err != nil {
			return nil, eris.Wrapf(err, "row %d", i+1)
		}
		out = append(out, row)
	}
	return out, nil
}

// NewRow validates and normalizes one dataset row. The name is lowercased,
// the level mapped through the shared vocabulary and aliases re-joined
// without empty elements.
func NewRow(name, level, reason, aliases string) (store.DatasetRow, error) {
	name = strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if name == "" {
		return store.DatasetRow{}, eris.Wrap(internalerr.ErrInvalidInput, "dataset: empty ingredient name")
	}
	lvl, ok := risk.LookupLevel(level)
	if !ok {
		return store.DatasetRow{}, eris.Wrapf(internalerr.ErrInvalidInput, "dataset: %q has unknown risk level %q", name, level)
	}

	var parts []string
	for _, a := range strings.Split(aliases, ",") {
		a = strings.Join(strings.Fields(strings.ToLower(a)), " ")
		if a != "" {
			parts = append(parts, a)
		}
	}
	return store.DatasetRow{
		IngredientName: name,
		RiskLevel:      string(lvl),
		Reason:         strings.TrimSpace(reason),
		Aliases:        strings.Join(parts, ","),
	}, nil
}
