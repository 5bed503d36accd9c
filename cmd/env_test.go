package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/pipeline"
)

func TestResultSummaryTransformed(t *testing.T) {
	t.Parallel()

	res := model.DefaultResult()
	res.Entity.NameBrand = "Acme"
	res.Meta.Cost = &model.CostInfo{TotalTokens: 1200, CostUSD: 0.015}

	out := &pipeline.TransformedResult{AnalysisResult: *res}
	result, tokens, costUSD := resultSummary(out)

	require.NotNil(t, result)
	assert.Equal(t, "Acme", result.Entity.NameBrand)
	assert.Equal(t, 1200, tokens)
	assert.InDelta(t, 0.015, costUSD, 1e-9)
}

func TestResultSummaryTypedResult(t *testing.T) {
	t.Parallel()

	res := model.DefaultResult()
	res.Meta.Cost = &model.CostInfo{TotalTokens: 700, CostUSD: 0.01}

	result, tokens, costUSD := resultSummary(res)
	assert.Same(t, res, result)
	assert.Equal(t, 700, tokens)
	assert.InDelta(t, 0.01, costUSD, 1e-9)
}

func TestResultSummaryRawMap(t *testing.T) {
	t.Parallel()

	t.Run("typed cost block", func(t *testing.T) {
		t.Parallel()
		raw := map[string]any{
			"entity": map[string]any{"name_brand": "Acme"},
			"_meta": map[string]any{
				"cost": &model.CostInfo{TotalTokens: 500, CostUSD: 0.005},
			},
		}
		result, tokens, costUSD := resultSummary(raw)
		assert.Nil(t, result, "loose payloads persist without a structured result")
		assert.Equal(t, 500, tokens)
		assert.InDelta(t, 0.005, costUSD, 1e-9)
	})

	t.Run("decoded cost block", func(t *testing.T) {
		t.Parallel()
		raw := map[string]any{
			"_meta": map[string]any{
				"cost": map[string]any{"totalTokens": 300.0, "costUSD": 0.003},
			},
		}
		_, tokens, costUSD := resultSummary(raw)
		assert.Equal(t, 300, tokens)
		assert.InDelta(t, 0.003, costUSD, 1e-9)
	})

	t.Run("no meta", func(t *testing.T) {
		t.Parallel()
		_, tokens, costUSD := resultSummary(map[string]any{"entity": map[string]any{}})
		assert.Zero(t, tokens)
		assert.Zero(t, costUSD)
	})
}

func TestResultSummaryNilMeta(t *testing.T) {
	t.Parallel()

	res := &model.AnalysisResult{Entity: model.Company{NameBrand: "Acme"}}
	result, tokens, costUSD := resultSummary(res)
	assert.NotNil(t, result)
	assert.Zero(t, tokens)
	assert.Zero(t, costUSD)
}

func TestResultSummaryUnknownShape(t *testing.T) {
	t.Parallel()

	result, tokens, costUSD := resultSummary("garbage")
	assert.Nil(t, result)
	assert.Zero(t, tokens)
	assert.Zero(t, costUSD)
}
