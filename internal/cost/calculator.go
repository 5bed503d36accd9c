package cost

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/compintel/internal/model"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity map[string]ModelRate `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes USD costs for LLM token usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of a Claude API call.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul
	return inCost + outCost + cwCost + crCost
}

// Perplexity computes the cost of a Perplexity chat completion.
func (c *Calculator) Perplexity(model string, input, output int) float64 {
	rate, ok := c.rates.Perplexity[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// CostInfo assembles the provenance cost block for an analysis.
func (c *Calculator) CostInfo(provider, modelID string, input, output int) *model.CostInfo {
	var usd float64
	switch provider {
	case "perplexity":
		usd = c.Perplexity(modelID, input, output)
	default:
		usd = c.Claude(modelID, input, output, 0, 0)
	}
	return &model.CostInfo{
		TotalTokens: input + output,
		CostUSD:     usd,
		Model:       modelID,
		Provider:    provider,
	}
}

// DefaultRates returns the built-in pricing table.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Perplexity: map[string]ModelRate{
			"sonar-pro": {Input: 3.00, Output: 15.00},
			"sonar":     {Input: 1.00, Output: 1.00},
		},
	}
}

// LoadRates reads a pricing override file. The YAML has a top-level
// "pricing" key.
func LoadRates(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rates{}, eris.Wrapf(err, "cost: read rates %s", path)
	}
	var wrapper struct {
		Pricing Rates `yaml:"pricing"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rates{}, eris.Wrap(err, "cost: parse rates")
	}
	return wrapper.Pricing, nil
}
