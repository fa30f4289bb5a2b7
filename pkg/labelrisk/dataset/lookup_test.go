package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store/memstore"
)

func seeded(t *testing.T, rows ...store.DatasetRow) *memstore.Store {
	t.Helper()
	s := memstore.New()
	if _, err := s.UpsertDatasetRows(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAliasStrictness(t *testing.T) {
	l := New(seeded(t, store.DatasetRow{IngredientName: "x", RiskLevel: "MEDIUM", Aliases: "y,z"}))
	ctx := context.Background()

	res, err := l.Classify(ctx, []string{"xy"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.NoMatches || len(res.Matched) != 0 {
		t.Fatalf("xy must not match by substring: %+v", res)
	}

	res, err = l.Classify(ctx, []string{"y"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matched) != 1 || res.Matched[0].Name != "x" || res.Matched[0].Source != risk.SourceAlias {
		t.Fatalf("y should alias-match x: %+v", res)
	}
}

func TestParabenAliasScenario(t *testing.T) {
	l := New(seeded(t, store.DatasetRow{
		IngredientName: "paraben",
		RiskLevel:      "HIGH",
		Reason:         "Endocrine disruptor concerns",
		Aliases:        "methylparaben,propylparaben",
	}))

	res, err := l.Classify(context.Background(), []string{"methylparaben"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matched) != 1 || res.Matched[0].Source != risk.SourceAlias {
		t.Fatalf("expected alias match: %+v", res.Matched)
	}
	if res.RiskLevel != risk.High {
		t.Errorf("risk level = %s", res.RiskLevel)
	}
	want := risk.Summary{Restricted: 1, Total: 1}
	if res.Summary != want {
		t.Errorf("summary = %+v, want %+v", res.Summary, want)
	}
}

func TestClassifyExactDedupAndAggregate(t *testing.T) {
	l := New(seeded(t,
		store.DatasetRow{IngredientName: "water", RiskLevel: "LOW", Reason: "Solvent", Aliases: "aqua"},
		store.DatasetRow{IngredientName: "sodium lauryl sulfate", RiskLevel: "MEDIUM", Reason: "Irritant", Aliases: "sls"},
		store.DatasetRow{IngredientName: "triclosan", RiskLevel: "HIGH", Reason: "Irritant"},
	))

	res, err := l.Classify(context.Background(), []string{"Water", "aqua", "unknownium", "sls", "triclosan"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matched) != 3 {
		t.Fatalf("aqua dedups onto water and unknownium is dropped: %+v", res.Matched)
	}
	if res.Matched[0].Input != "Water" || res.Matched[0].Source != risk.SourceExact {
		t.Errorf("first occurrence should be kept: %+v", res.Matched[0])
	}
	if res.RiskLevel != risk.High {
		t.Errorf("HIGH should dominate, got %s", res.RiskLevel)
	}
	if len(res.Explanations) != 2 {
		t.Errorf("reasons should be deduplicated: %v", res.Explanations)
	}
	if res.Summary.Safe != 1 || res.Summary.Risky != 1 || res.Summary.Restricted != 1 || res.Summary.Total != 3 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestClassifyNoMatches(t *testing.T) {
	l := New(seeded(t, store.DatasetRow{IngredientName: "water", RiskLevel: "LOW"}))
	res, err := l.Classify(context.Background(), []string{"nothing"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.NoMatches || res.RiskLevel != risk.Low || res.Summary.Total != 0 {
		t.Fatalf("unexpected %+v", res)
	}
	if len(res.Explanations) != 1 || res.Explanations[0] != NoMatchExplanation {
		t.Fatalf("explanations = %v", res.Explanations)
	}
}

type brokenSource struct {
	countErr error
	findErr  error
}

func (b brokenSource) CountDataset(context.Context) (int64, error) { return 1, b.countErr }
func (b brokenSource) FindByName(context.Context, string) (store.DatasetRow, bool, error) {
	return store.DatasetRow{}, false, b.findErr
}
func (b brokenSource) FindAliasCandidates(context.Context, string) ([]store.DatasetRow, error) {
	return nil, nil
}

func TestClassifyStorageFailure(t *testing.T) {
	l := New(brokenSource{findErr: errors.New("disk gone")})
	_, err := l.Classify(context.Background(), []string{"water"})
	if !errors.Is(err, internalerr.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	ctx := context.Background()
	if New(memstore.New()).Available(ctx) {
		t.Error("empty dataset should be unavailable")
	}
	if New(brokenSource{countErr: errors.New("boom")}).Available(ctx) {
		t.Error("count failure should be unavailable")
	}
	if New(nil).Available(ctx) {
		t.Error("nil source should be unavailable")
	}
	if !New(seeded(t, store.DatasetRow{IngredientName: "water", RiskLevel: "LOW"})).Available(ctx) {
		t.Error("seeded dataset should be available")
	}
}

func TestAliasMatches(t *testing.T) {
	cases := []struct {
		aliases, token string
		want           bool
	}{
		{"y,z", "y", true},
		{"y, Z ", "z", true},
		{"methyl paraben,e218", "Methyl Paraben", true},
		{"y,z", "yz", false},
		{"yy,z", "y", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := AliasMatches(c.aliases, c.token); got != c.want {
			t.Errorf("AliasMatches(%q, %q) = %v", c.aliases, c.token, got)
		}
	}
}
