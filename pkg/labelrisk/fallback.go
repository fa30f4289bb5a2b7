package labelrisk

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cognicore/labelrisk/pkg/labelrisk/aiclassify"
	"github.com/cognicore/labelrisk/pkg/labelrisk/dataset"
	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
)

// tierState is a node of the fallback chain:
// checkDataset -> checkAI -> rules, stopping at the first tier that answers.
type tierState int

const (
	stateCheckDataset tierState = iota
	stateCheckAI
	stateRules
	stateDone
)

func (s tierState) String() string {
	switch s {
	case stateCheckDataset:
		return "check_dataset"
	case stateCheckAI:
		return "check_ai"
	case stateRules:
		return "rules"
	case stateDone:
		return "done"
	default:
		return "invalid"
	}
}

// tierOutcome is what a state hands back: the next state, and the verdict
// when next is stateDone.
type tierOutcome struct {
	next    tierState
	verdict Verdict
	reason  string
}

func (e *Engine) run(ctx context.Context, text string, tokens []string) Verdict {
	state := stateCheckDataset
	var out tierOutcome
	for state != stateDone {
		switch state {
		case stateCheckDataset:
			out = e.checkDataset(ctx, tokens)
		case stateCheckAI:
			out = e.checkAI(ctx, text)
		default:
			out = e.rulesMatch(tokens)
		}
		e.logger.Debug("tier transition",
			zap.String("from", state.String()),
			zap.String("to", out.next.String()),
			zap.String("reason", out.reason))
		state = out.next
	}
	return out.verdict
}

// afterDataset picks the state following a dataset miss.
func (e *Engine) afterDataset() tierState {
	if e.ai.Configured() {
		return stateCheckAI
	}
	return stateRules
}

func (e *Engine) checkDataset(ctx context.Context, tokens []string) tierOutcome {
	if e.dataset == nil || !e.dataset.Available(ctx) {
		return tierOutcome{next: e.afterDataset(), reason: "dataset unavailable"}
	}
	res, err := e.dataset.Classify(ctx, tokens)
	if err != nil {
		e.logger.Warn("dataset tier failed", zap.Error(err))
		return tierOutcome{next: e.afterDataset(), reason: fallbackReason("dataset", err)}
	}
	return tierOutcome{next: stateDone, verdict: fromDataset(res), reason: "dataset match"}
}

func (e *Engine) checkAI(ctx context.Context, text string) tierOutcome {
	res, err := e.ai.ClassifyText(ctx, text)
	if err != nil {
		e.logger.Warn("ai tier failed", zap.Error(err))
		return tierOutcome{next: stateRules, reason: fallbackReason("ai", err)}
	}
	return tierOutcome{next: stateDone, verdict: fromAI(res), reason: "ai match"}
}

// fallbackReason names the condition that made a tier give up.
func fallbackReason(tier string, err error) string {
	switch {
	case errors.Is(err, internalerr.ErrNotConfigured):
		return tier + " not configured"
	case errors.Is(err, internalerr.ErrTimeout):
		return tier + " timeout"
	case internalerr.IsUnavailable(err):
		return tier + " unavailable"
	case errors.Is(err, internalerr.ErrMalformedResponse):
		return tier + " malformed response"
	default:
		return tier + " error"
	}
}

func (e *Engine) rulesMatch(tokens []string) tierOutcome {
	return tierOutcome{next: stateDone, verdict: fromRules(e.ClassifyWithRules(tokens)), reason: "rules"}
}

func fromDataset(res dataset.Result) Verdict {
	v := Verdict{Source: SourceDataset, Explanations: res.Explanations}
	for _, m := range res.Matched {
		v.Results = append(v.Results, Result{
			Ingredient:  m.Input,
			Name:        m.Name,
			Status:      m.RiskLevel.Status(),
			Level:       m.RiskLevel,
			Explanation: m.Reason,
			MatchSource: m.Source,
		})
	}
	finish(&v)
	return v
}

func fromAI(res aiclassify.Result) Verdict {
	v := Verdict{
		Source:          SourceAI,
		Explanations:    res.Explanations,
		Recommendations: res.Recommendations,
		ModelVersion:    res.ModelVersion,
	}
	for _, it := range res.Items {
		v.Results = append(v.Results, Result{
			Ingredient:  it.Name,
			Name:        it.Name,
			Status:      it.Status,
			Level:       it.RiskLevel,
			Explanation: it.Reason,
			MatchSource: risk.SourceAI,
		})
	}
	finish(&v)
	return v
}

func fromRules(rr RulesResult) Verdict {
	v := Verdict{Source: SourceRules}
	for _, m := range rr.Results {
		lvl, _ := m.Status.Level()
		v.Results = append(v.Results, Result{
			Ingredient:  m.Token,
			Name:        m.MatchedKey,
			Status:      m.Status,
			Level:       lvl,
			Explanation: m.Explanation,
			MatchSource: m.Source,
		})
	}
	finish(&v)
	return v
}

// finish computes the summary and overall risk through the shared
// vocabulary table, identically for every tier.
func finish(v *Verdict) {
	v.Summary = risk.Summary{}
	statuses := make([]risk.Status, 0, len(v.Results))
	for _, r := range v.Results {
		v.Summary.Add(r.Status)
		statuses = append(statuses, r.Status)
	}
	v.OverallStatus = risk.HighestStatus(statuses...)
	v.OverallLevel, _ = v.OverallStatus.Level()
}
