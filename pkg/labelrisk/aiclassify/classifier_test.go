package aiclassify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
)

type fakeChat struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
	block   bool
}

func (f *fakeChat) Model() string { return "fake-1" }

func (f *fakeChat) Chat(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, user)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func (f *fakeChat) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func TestClassifyTextFencedReply(t *testing.T) {
	chat := &fakeChat{replies: []string{"Sure! Here you go:\n```json\n" +
		`[{"name":"water","risk_level":"low","reason":"Solvent"},` +
		`{"name":"fragrance","risk_level":"Moderate","reason":"Allergen"},` +
		`{"name":"triclosan","risk_level":"severe","reason":"Restricted biocide"}]` +
		"\n```"}}
	c := New(chat, Options{})

	res, err := c.ClassifyText(context.Background(), "water, fragrance, triclosan")
	if err != nil {
		t.Fatalf("ClassifyText: %v", err)
	}
	if chat.calls() != 1 {
		t.Fatalf("expected one call, got %d", chat.calls())
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %+v", res.Items)
	}
	if res.Items[1].RiskLevel != risk.Medium || res.Items[1].Status != risk.Risky {
		t.Errorf("moderate should map to MEDIUM/Risky: %+v", res.Items[1])
	}
	if res.RiskLevel != risk.High {
		t.Errorf("overall = %s", res.RiskLevel)
	}
	want := risk.Summary{Safe: 1, Risky: 1, Restricted: 1, Total: 3}
	if res.Summary != want {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.ModelVersion != "fake-1" {
		t.Errorf("model version = %q", res.ModelVersion)
	}
}

func TestClassifyTextRecommendations(t *testing.T) {
	chat := &fakeChat{replies: []string{`{"ingredients":[{"name":"talc","risk_level":"MEDIUM","reason":"Inhalation"}],"recommendations":["Avoid loose powder"]}`}}
	res, err := New(chat, Options{}).ClassifyText(context.Background(), "talc")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || len(res.Recommendations) != 1 {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestUnknownWordsDefaultConservative(t *testing.T) {
	chat := &fakeChat{replies: []string{`[{"name":"x","status":"purple"}]`}}
	res, err := New(chat, Options{}).ClassifyIngredients(context.Background(), []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Items[0].Status != risk.Safe || res.Items[0].RiskLevel != risk.Low {
		t.Fatalf("unknown word should map to Safe/LOW: %+v", res.Items[0])
	}
}

func TestRetryOnceOnParseFailure(t *testing.T) {
	chat := &fakeChat{replies: []string{
		"I think water is fine.",
		`[{"name":"water","status":"Safe","explanation":"Solvent"}]`,
	}}
	res, err := New(chat, Options{}).ClassifyIngredients(context.Background(), []string{"water"})
	if err != nil {
		t.Fatalf("ClassifyIngredients: %v", err)
	}
	if chat.calls() != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", chat.calls())
	}
	if !strings.Contains(chat.prompts[1], strictSuffix) {
		t.Error("retry should carry the JSON-only instruction")
	}
	if res.Items[0].Status != risk.Safe {
		t.Errorf("unexpected %+v", res.Items[0])
	}
}

func TestMalformedAfterRetry(t *testing.T) {
	chat := &fakeChat{replies: []string{"nope", "still nope", "never asked"}}
	_, err := New(chat, Options{}).ClassifyText(context.Background(), "water")
	if !errors.Is(err, internalerr.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if chat.calls() != 2 {
		t.Fatalf("maximum two attempts, got %d", chat.calls())
	}
}

func TestNoRetryOnTransportError(t *testing.T) {
	chat := &fakeChat{errs: []error{internalerr.ErrUnavailable}}
	_, err := New(chat, Options{}).ClassifyText(context.Background(), "water")
	if !errors.Is(err, internalerr.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if chat.calls() != 1 {
		t.Fatalf("network errors must not be retried, got %d calls", chat.calls())
	}
}

func TestTimeoutAbortsCall(t *testing.T) {
	chat := &fakeChat{block: true}
	c := New(chat, Options{TextTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.ClassifyText(context.Background(), "water")
	if !errors.Is(err, internalerr.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout not enforced")
	}
	if chat.calls() != 1 {
		t.Fatalf("timeouts must not be retried, got %d calls", chat.calls())
	}
}

func TestNotConfiguredAndInvalidInput(t *testing.T) {
	if _, err := New(nil, Options{}).ClassifyText(context.Background(), "water"); !errors.Is(err, internalerr.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	c := New(&fakeChat{}, Options{})
	if _, err := c.ClassifyText(context.Background(), "  "); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := c.ClassifyIngredients(context.Background(), []string{"", " "}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCacheMemoizesByShape(t *testing.T) {
	chat := &fakeChat{replies: []string{
		`[{"name":"water","risk_level":"LOW"}]`,
		`[{"name":"water","status":"Risky"}]`,
	}}
	c := New(chat, Options{CacheSize: 8})
	ctx := context.Background()

	first, err := c.ClassifyText(ctx, "water")
	if err != nil {
		t.Fatal(err)
	}
	first.Items[0].Name = "mutated"
	again, err := c.ClassifyText(ctx, "water")
	if err != nil {
		t.Fatal(err)
	}
	if chat.calls() != 1 || again.Items[0].Name != "water" {
		t.Fatalf("second text call should hit the cache: calls=%d items=%+v", chat.calls(), again.Items)
	}

	list, err := c.ClassifyIngredients(ctx, []string{"water"})
	if err != nil {
		t.Fatal(err)
	}
	if chat.calls() != 2 || list.Items[0].Status != risk.Risky {
		t.Fatalf("list shape has its own cache key: calls=%d", chat.calls())
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{`[1,2]`, `[1,2]`, true},
		{"prefix [not json] then [\"a]\", {\"b\": [1]}] tail", `["a]", {"b": [1]}]`, true},
		{"```json\n[]\n```", `[]`, true},
		{`no array`, ``, false},
		{`[unclosed`, ``, false},
	}
	for _, tc := range cases {
		got, at := extractJSON(tc.in, '[', ']')
		if got != tc.want || (at >= 0) != tc.ok {
			t.Errorf("extractJSON(%q) = %q, %d", tc.in, got, at)
		}
	}
}
