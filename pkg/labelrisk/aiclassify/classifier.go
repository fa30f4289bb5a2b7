// Package aiclassify delegates ingredient classification to a chat model and
// normalizes its reply into the shared risk vocabulary.
package aiclassify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cognicore/labelrisk/internal/llm"
	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
)

// Default call budgets.
const (
	DefaultTextTimeout = 10 * time.Second
	DefaultListTimeout = 20 * time.Second
	DefaultCacheSize   = 256
)

// Options tune a Classifier. Zero timeouts take the defaults; CacheSize 0
// disables memoization.
type Options struct {
	TextTimeout time.Duration
	ListTimeout time.Duration
	CacheSize   int
	Logger      *zap.Logger
}

// Item is one classified ingredient in both vocabularies.
type Item struct {
	Name      string      `json:"name"`
	RiskLevel risk.Level  `json:"risk_level"`
	Status    risk.Status `json:"status"`
	Reason    string      `json:"reason"`
}

// Result is the normalized reply of one classification call.
type Result struct {
	Items           []Item       `json:"matched_ingredients"`
	Explanations    []string     `json:"explanations"`
	RiskLevel       risk.Level   `json:"risk_level"`
	Summary         risk.Summary `json:"summary"`
	Recommendations []string     `json:"recommendations,omitempty"`
	ModelVersion    string       `json:"model_version,omitempty"`
}

func (r Result) clone() Result {
	cp := r
	cp.Items = append([]Item(nil), r.Items...)
	cp.Explanations = append([]string(nil), r.Explanations...)
	cp.Recommendations = append([]string(nil), r.Recommendations...)
	return cp
}

type shape int

const (
	shapeText shape = iota
	shapeList
)

func (s shape) String() string {
	if s == shapeList {
		return "list"
	}
	return "text"
}

// Classifier is safe for concurrent use.
type Classifier struct {
	chat   llm.ChatClient
	opts   Options
	cache  *lru.Cache[string, Result]
	logger *zap.Logger
}

// New creates a classifier over chat. A nil chat yields a classifier whose
// calls fail with ErrNotConfigured.
func New(chat llm.ChatClient, opts Options) *Classifier {
	if opts.TextTimeout <= 0 {
		opts.TextTimeout = DefaultTextTimeout
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = DefaultListTimeout
	}
	c := &Classifier{chat: chat, opts: opts, logger: opts.Logger}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Result](opts.CacheSize)
		if err == nil {
			c.cache = cache
		}
	}
	return c
}

// Configured reports whether a backend is attached.
func (c *Classifier) Configured() bool {
	return c != nil && c.chat != nil
}

// ClassifyText classifies free label text using the LOW/MEDIUM/HIGH
// vocabulary.
func (c *Classifier) ClassifyText(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, eris.Wrap(internalerr.ErrInvalidInput, "ai: empty text")
	}
	return c.classify(ctx, shapeText, text, c.opts.TextTimeout, textPrompt(text))
}

// ClassifyIngredients classifies an explicit name list using the
// Safe/Risky/Restricted vocabulary.
func (c *Classifier) ClassifyIngredients(ctx context.Context, names []string) (Result, error) {
	var clean []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	if len(clean) == 0 {
		return Result{}, eris.Wrap(internalerr.ErrInvalidInput, "ai: no ingredient names")
	}
	return c.classify(ctx, shapeList, strings.Join(clean, "\n"), c.opts.ListTimeout, listPrompt(clean))
}

func (c *Classifier) classify(ctx context.Context, sh shape, input string, timeout time.Duration, prompt string) (Result, error) {
	if !c.Configured() {
		return Result{}, eris.Wrap(internalerr.ErrNotConfigured, "ai: no backend")
	}

	key := sh.String() + "\x00" + input
	if c.cache != nil {
		if res, ok := c.cache.Get(key); ok {
			c.logger.Debug("ai cache hit", zap.String("shape", sh.String()))
			return res.clone(), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	items, recs, err := c.ask(ctx, sh, prompt)
	if err != nil {
		return Result{}, err
	}

	res := normalize(sh, items, recs)
	res.ModelVersion = c.chat.Model()
	if c.cache != nil {
		c.cache.Add(key, res.clone())
	}
	return res, nil
}

// ask makes at most two attempts; the second only after an unparseable
// reply.
func (c *Classifier) ask(ctx context.Context, sh shape, prompt string) ([]rawItem, []string, error) {
	reply, err := c.chat.Chat(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, nil, classifyErr(ctx, err)
	}
	items, recs, perr := parseReply(reply)
	if perr == nil {
		return items, recs, nil
	}

	c.logger.Debug("ai reply unparseable, retrying",
		zap.String("shape", sh.String()),
		zap.Error(perr))

	reply, err = c.chat.Chat(ctx, systemPrompt, prompt+"\n\n"+strictSuffix)
	if err != nil {
		return nil, nil, classifyErr(ctx, err)
	}
	items, recs, perr = parseReply(reply)
	if perr != nil {
		return nil, nil, eris.Wrap(perr, "ai: reply unparseable after retry")
	}
	return items, recs, nil
}

// classifyErr makes sure a blown deadline reads as a timeout even when the
// transport reported something else.
func classifyErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, internalerr.ErrTimeout) {
		return eris.Wrapf(internalerr.ErrTimeout, "ai: %v", err)
	}
	if errors.Is(err, internalerr.ErrNotConfigured) ||
		errors.Is(err, internalerr.ErrTimeout) ||
		errors.Is(err, internalerr.ErrUnavailable) ||
		errors.Is(err, internalerr.ErrMalformedResponse) {
		return err
	}
	return eris.Wrapf(internalerr.ErrUnavailable, "ai: %v", err)
}

func normalize(sh shape, items []rawItem, recs []string) Result {
	res := Result{RiskLevel: risk.Low}
	levels := make([]risk.Level, 0, len(items))
	seenReason := map[string]bool{}
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		var item Item
		if sh == shapeList {
			item.Status = risk.ParseStatus(it.riskWord())
			item.RiskLevel, _ = item.Status.Level()
		} else {
			item.RiskLevel = risk.ParseLevel(it.riskWord())
			item.Status = item.RiskLevel.Status()
		}
		item.Name = name
		item.Reason = strings.TrimSpace(it.why())

		res.Items = append(res.Items, item)
		res.Summary.AddLevel(item.RiskLevel)
		levels = append(levels, item.RiskLevel)
		if item.Reason != "" && !seenReason[item.Reason] {
			seenReason[item.Reason] = true
			res.Explanations = append(res.Explanations, item.Reason)
		}
	}
	res.RiskLevel = risk.HighestLevel(levels...)
	for _, r := range recs {
		if r = strings.TrimSpace(r); r != "" {
			res.Recommendations = append(res.Recommendations, r)
		}
	}
	return res
}

const systemPrompt = "You classify cosmetic and food ingredients by consumer risk. " +
	"You answer with JSON only and never add commentary."

const strictSuffix = "Return ONLY a JSON array. No markdown, no code fences, no prose."

func textPrompt(text string) string {
	return fmt.Sprintf(`Identify every ingredient in the label text below and classify each one.
Return a JSON array of objects with exactly these keys:
  "name": the ingredient name in lowercase,
  "risk_level": one of "LOW", "MEDIUM", "HIGH",
  "reason": one short sentence.
If you have advice for the shopper you may instead return an object
{"ingredients": <that array>, "recommendations": [<short strings>]}.

Label text:
%s`, text)
}

func listPrompt(names []string) string {
	var b strings.Builder
	b.WriteString(`Classify each ingredient in the list below.
Return a JSON array with one object per ingredient, in the same order, with exactly these keys:
  "name": the ingredient as given,
  "status": one of "Safe", "Risky", "Restricted",
  "explanation": one short sentence.

Ingredients:
`)
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return b.String()
}
