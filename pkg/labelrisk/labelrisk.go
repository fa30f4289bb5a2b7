package labelrisk

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cognicore/labelrisk/pkg/labelrisk/aiclassify"
	"github.com/cognicore/labelrisk/pkg/labelrisk/dataset"
	"github.com/cognicore/labelrisk/pkg/labelrisk/ingest"
	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/lexicon"
	"github.com/cognicore/labelrisk/pkg/labelrisk/ocr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/reference"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
	"github.com/cognicore/labelrisk/pkg/labelrisk/store"
)

// Disclaimer accompanies every verdict.
const Disclaimer = "Informational only, not medical advice. Classifications are best-effort; " +
	"consult a qualified professional about specific health concerns."

// Source names the tier that produced a verdict.
type Source string

const (
	SourceDataset Source = "dataset"
	SourceAI      Source = "ai"
	SourceRules   Source = "rules"
)

// Engine is the label analysis facade
type Engine struct {
	store     store.Store
	tokenizer *ingest.Tokenizer
	matcher   *reference.Matcher
	dataset   *dataset.Lookup
	ai        *aiclassify.Classifier
	ocr       ocr.Extractor
	logger    *zap.Logger
	now       func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine. Only Tokenizer and Matcher have defaults;
// a nil Store disables the dataset tier and scan history, a nil or
// unconfigured AI disables the AI tier.
type Options struct {
	Store     store.Store
	Tokenizer *ingest.Tokenizer
	Matcher   *reference.Matcher
	AI        *aiclassify.Classifier
	OCR       ocr.Extractor
	Logger    *zap.Logger
	Now       func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	e := &Engine{
		store:     opts.Store,
		tokenizer: opts.Tokenizer,
		matcher:   opts.Matcher,
		ai:        opts.AI,
		ocr:       opts.OCR,
		logger:    opts.Logger,
		now:       opts.Now,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
	if e.tokenizer == nil {
		e.tokenizer = ingest.NewTokenizer(ingest.DefaultStopTerms)
	}
	if e.matcher == nil {
		e.matcher = reference.NewMatcher(reference.Default(), lexicon.Default())
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.store != nil {
		e.dataset = dataset.New(e.store)
	}
	return e
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// AnalyzeRequest is one analysis call. UserID enables scan persistence;
// Origin records where the text came from ("text" when empty).
type AnalyzeRequest struct {
	Text   string
	UserID string
	Origin string
}

// Result is one classified ingredient in the unified shape.
type Result struct {
	Ingredient  string      `json:"ingredient"`
	Name        string      `json:"name,omitempty"`
	Status      risk.Status `json:"status"`
	Level       risk.Level  `json:"risk_level,omitempty"`
	Explanation string      `json:"explanation"`
	MatchSource risk.Source `json:"match_source"`
}

// Verdict is the unified analysis outcome across tiers.
type Verdict struct {
	ScanID          string       `json:"scan_id,omitempty"`
	Source          Source       `json:"source"`
	Tokens          []string     `json:"tokens"`
	Results         []Result     `json:"results"`
	Summary         risk.Summary `json:"summary"`
	OverallStatus   risk.Status  `json:"overall_status"`
	OverallLevel    risk.Level   `json:"overall_risk"`
	Explanations    []string     `json:"explanations,omitempty"`
	Recommendations []string     `json:"recommendations,omitempty"`
	ModelVersion    string       `json:"model_version,omitempty"`
	Disclaimer      string       `json:"disclaimer"`
}

// RulesResult is the rule-tier classification of a token list.
type RulesResult struct {
	Results []reference.Match `json:"results"`
	Summary risk.Summary      `json:"summary"`
}

// Tokenize extracts ingredient tokens from raw label text.
func (e *Engine) Tokenize(raw string) []string {
	return e.tokenizer.Tokenize(raw)
}

// ClassifyWithRules classifies every token against the reference table. It
// never fails and yields exactly one result per token.
func (e *Engine) ClassifyWithRules(tokens []string) RulesResult {
	matches := e.matcher.MatchAll(tokens)
	var sum risk.Summary
	for _, m := range matches {
		sum.Add(m.Status)
	}
	return RulesResult{Results: matches, Summary: sum}
}

// ClassifyWithDataset classifies tokens against the dataset store.
func (e *Engine) ClassifyWithDataset(ctx context.Context, tokens []string) (dataset.Result, error) {
	if e.dataset == nil {
		return dataset.Result{}, eris.Wrap(internalerr.ErrUnavailable, "dataset: no store")
	}
	return e.dataset.Classify(ctx, tokens)
}

// ClassifyWithAI classifies free text with the AI tier.
func (e *Engine) ClassifyWithAI(ctx context.Context, text string) (aiclassify.Result, error) {
	if !e.ai.Configured() {
		return aiclassify.Result{}, eris.Wrap(internalerr.ErrNotConfigured, "ai: not configured")
	}
	return e.ai.ClassifyText(ctx, text)
}

// ClassifyIngredientsWithAI classifies an explicit name list with the AI tier.
func (e *Engine) ClassifyIngredientsWithAI(ctx context.Context, names []string) (aiclassify.Result, error) {
	if !e.ai.Configured() {
		return aiclassify.Result{}, eris.Wrap(internalerr.ErrNotConfigured, "ai: not configured")
	}
	return e.ai.ClassifyIngredients(ctx, names)
}

// Analyze runs the tier fallback chain over req.Text. The only error it
// returns is ErrInvalidInput; tier failures become fallbacks and
// persistence failures are logged.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (Verdict, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Verdict{}, eris.Wrap(internalerr.ErrInvalidInput, "analyze: empty text")
	}

	tokens := e.tokenizer.Tokenize(text)
	v := e.run(ctx, text, tokens)
	v.Tokens = tokens
	v.Disclaimer = Disclaimer

	if req.UserID != "" && e.store != nil {
		origin := req.Origin
		if origin == "" {
			origin = "text"
		}
		id, err := e.persist(ctx, req.UserID, origin, text, v)
		if err != nil {
			e.logger.Warn("scan not saved",
				zap.String("user", req.UserID),
				zap.Error(err))
		} else {
			v.ScanID = id
		}
	}
	return v, nil
}

// AnalyzeImage extracts text with the OCR collaborator and analyzes it. An
// OCR failure counts as no text.
func (e *Engine) AnalyzeImage(ctx context.Context, image []byte, userID string) (Verdict, error) {
	var text string
	if e.ocr == nil {
		e.logger.Warn("ocr not configured")
	} else {
		var err error
		text, err = e.ocr.Extract(ctx, image)
		if err != nil {
			e.logger.Warn("ocr failed", zap.Error(err))
			text = ""
		}
	}
	return e.Analyze(ctx, AnalyzeRequest{Text: text, UserID: userID, Origin: "image"})
}

// Scan loads a persisted scan.
func (e *Engine) Scan(ctx context.Context, id string) (store.Scan, error) {
	if e.store == nil {
		return store.Scan{}, eris.Wrap(internalerr.ErrNotConfigured, "scans: no store")
	}
	sc, found, err := e.store.GetScan(ctx, id)
	if err != nil {
		return store.Scan{}, err
	}
	if !found {
		return store.Scan{}, eris.Wrapf(internalerr.ErrNotFound, "scan %s", id)
	}
	return sc, nil
}

// Scans lists a user's scans, newest first.
func (e *Engine) Scans(ctx context.Context, userID string, limit int) ([]store.Scan, error) {
	if e.store == nil {
		return nil, eris.Wrap(internalerr.ErrNotConfigured, "scans: no store")
	}
	if userID == "" {
		return nil, eris.Wrap(internalerr.ErrInvalidInput, "scans: user required")
	}
	return e.store.ListScans(ctx, userID, limit)
}

func (e *Engine) persist(ctx context.Context, userID, origin, text string, v Verdict) (string, error) {
	sc := store.Scan{
		ID:              e.newID(),
		UserID:          userID,
		Source:          origin,
		RawText:         text,
		OverallRisk:     v.OverallStatus.Stored(),
		SafeCount:       v.Summary.Safe,
		RiskyCount:      v.Summary.Risky,
		RestrictedCount: v.Summary.Restricted,
		UnknownCount:    v.Summary.Unknown,
		CreatedAt:       e.now(),
	}
	for i, r := range v.Results {
		name := r.Name
		if name == "" {
			name = r.Ingredient
		}
		sc.Ingredients = append(sc.Ingredients, store.ScanIngredient{
			Position:    i,
			Name:        name,
			Risk:        r.Status.Stored(),
			Explanation: r.Explanation,
			MatchSource: string(r.MatchSource),
		})
	}
	if err := e.store.SaveScan(ctx, sc); err != nil {
		return "", err
	}
	return sc.ID, nil
}

func (e *Engine) newID() string {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(e.now()), e.entropy).String()
}
