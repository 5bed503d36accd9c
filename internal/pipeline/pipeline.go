// Package pipeline orchestrates analysis generation: it asks an LLM provider
// for a competitive-analysis payload, then validates, repairs, and transforms
// it according to the requested processing level. Shape problems never fail a
// request; only provider transport errors propagate.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/config"
	"github.com/sells-group/compintel/internal/cost"
	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/repair"
	"github.com/sells-group/compintel/internal/validate"
)

// Strategy selects how the raw analysis payload is produced.
type Strategy string

const (
	// StrategySingle asks for the full nested document in one call.
	StrategySingle Strategy = "single"
	// StrategyMulti asks for flat name lists and assembles the document
	// in-process.
	StrategyMulti Strategy = "multi"
)

// Level selects how much validation/repair/transformation is applied. The
// wire values keep their legacy OpenAI-era suffixes; existing dashboard
// clients still send them.
type Level string

const (
	LevelRaw         Level = "rawOpenAI"
	LevelValidated   Level = "validatedOpenAI"
	LevelRepaired    Level = "repairedOpenAI"
	LevelTransformed Level = "transformedOpenAI"
)

// ParseStrategy maps a wire value to a Strategy, defaulting to single.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == StrategyMulti {
		return StrategyMulti
	}
	return StrategySingle
}

// ParseLevel maps a wire value to a Level, defaulting to transformed.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelRaw, LevelValidated, LevelRepaired:
		return Level(s)
	default:
		return LevelTransformed
	}
}

// Options control a single analysis run.
type Options struct {
	Strategy       Strategy
	Level          Level
	SkipValidation bool
	Debug          bool
}

// TransformedResult is the default-level output: the repaired document plus
// the dashboard projection.
type TransformedResult struct {
	model.AnalysisResult
	Dashboard *Dashboard `json:"dashboard,omitempty"`
}

// Pipeline runs company analyses against an LLM provider.
type Pipeline struct {
	cfg      *config.Config
	provider Provider
	costCalc *cost.Calculator
}

// New creates a Pipeline.
func New(cfg *config.Config, provider Provider, costCalc *cost.Calculator) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		provider: provider,
		costCalc: costCalc,
	}
}

// Process generates and post-processes an analysis for a company. The
// returned document depends on the level:
//
//   - rawOpenAI: the decoded provider payload, unmodified
//   - validatedOpenAI: the payload with validation status and errors attached
//   - repairedOpenAI: *model.AnalysisResult
//   - transformedOpenAI: *TransformedResult
//
// Undecodable or empty payloads resolve to the default placeholder document
// so every level honors the entity.name_brand/entity.products contract.
func (p *Pipeline) Process(ctx context.Context, company string, opts Options) (any, error) {
	log := zap.L().With(
		zap.String("company", company),
		zap.String("strategy", string(opts.Strategy)),
		zap.String("level", string(opts.Level)),
	)
	log.Info("pipeline: starting analysis")

	raw, completion, err := p.generate(ctx, company, opts)
	if err != nil {
		return nil, err
	}

	costInfo := &model.CostInfo{}
	if completion != nil {
		costInfo = p.costCalc.CostInfo(
			p.provider.Name(), p.provider.Model(),
			completion.InputTokens, completion.OutputTokens,
		)
	}

	out := p.applyLevel(raw, costInfo, opts)

	log.Info("pipeline: analysis complete",
		zap.Int("total_tokens", costInfo.TotalTokens),
		zap.Float64("cost_usd", costInfo.CostUSD),
	)
	return out, nil
}

// applyLevel runs the post-generation branch for the requested level.
func (p *Pipeline) applyLevel(raw any, costInfo *model.CostInfo, opts Options) any {
	switch opts.Level {
	case LevelRaw:
		if raw == nil {
			return withMeta(model.DefaultResult(), costInfo, "", nil)
		}
		return attachRawCost(raw, costInfo)

	case LevelValidated:
		vres := validate.Validate(raw)
		status := model.ValidationPassed
		if !vres.Valid {
			status = model.ValidationFailed
		}
		if obj, ok := raw.(map[string]any); ok {
			return attachRawValidation(obj, costInfo, status, vres.Errors)
		}
		return withMeta(model.DefaultResult(), costInfo, status, vres.Errors)

	case LevelRepaired:
		vres := validate.Validate(raw)
		res := repair.Repair(raw, opts.Debug)
		status := model.ValidationRepaired
		if vres.Valid {
			status = model.ValidationValidAtSource
		}
		return withMeta(res, costInfo, status, nil)

	default: // LevelTransformed
		if opts.SkipValidation {
			if raw == nil {
				return withMeta(model.DefaultResult(), costInfo, "", nil)
			}
			return attachRawCost(raw, costInfo)
		}
		// Repair runs unconditionally here; it is idempotent on valid data.
		res := repair.Repair(raw, opts.Debug)
		res = withMeta(res, costInfo, model.ValidationRepaired, nil)
		return &TransformedResult{
			AnalysisResult: *res,
			Dashboard:      Transform(res),
		}
	}
}

// withMeta sets cost and validation metadata on a typed result, preserving a
// cost block the repair engine already carried through when the transport has
// nothing better.
func withMeta(res *model.AnalysisResult, costInfo *model.CostInfo, status model.ValidationStatus, errs []model.FieldError) *model.AnalysisResult {
	if res.Meta == nil {
		res.Meta = &model.Meta{}
	}
	if costInfo != nil && costInfo.TotalTokens > 0 {
		res.Meta.Cost = costInfo
	} else if res.Meta.Cost == nil {
		res.Meta.Cost = &model.CostInfo{}
	}
	if status != "" {
		res.Meta.Validation = status
	}
	if len(errs) > 0 {
		res.Meta.ValidationErrors = errs
	}
	return res
}

// attachRawCost injects the cost block into an untyped payload without
// touching anything else. Non-object payloads pass through as-is.
func attachRawCost(raw any, costInfo *model.CostInfo) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	meta, ok := obj["_meta"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		obj["_meta"] = meta
	}
	if _, present := meta["cost"]; !present && costInfo != nil {
		meta["cost"] = costInfo
	}
	return obj
}

// attachRawValidation tags an untyped payload with the validation outcome,
// leaving the data itself untouched for inspection.
func attachRawValidation(obj map[string]any, costInfo *model.CostInfo, status model.ValidationStatus, errs []model.FieldError) map[string]any {
	attachRawCost(obj, costInfo)
	meta := obj["_meta"].(map[string]any)
	meta["validation"] = string(status)
	if len(errs) > 0 {
		meta["validation_errors"] = errs
	}
	return obj
}
