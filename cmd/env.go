package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/cost"
	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/pipeline"
	"github.com/sells-group/compintel/internal/store"
	anthropicpkg "github.com/sells-group/compintel/pkg/anthropic"
	"github.com/sells-group/compintel/pkg/perplexity"
)

// analysisEnv holds the store and pipeline needed by the analyze/batch/serve
// commands.
type analysisEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (ae *analysisEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "compintel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, the LLM provider, and the analysis pipeline.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*analysisEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rates := cost.DefaultRates()
	if cfg.LLM.PricingFile != "" {
		rates, err = cost.LoadRates(cfg.LLM.PricingFile)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load pricing file")
		}
		zap.L().Info("pricing overrides loaded", zap.String("file", cfg.LLM.PricingFile))
	}
	calc := cost.NewCalculator(rates)

	provider, err := initProvider()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &analysisEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, provider, calc),
	}, nil
}

func initProvider() (pipeline.Provider, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic API key is required (COMPINTEL_ANTHROPIC_KEY)")
		}
		return pipeline.NewAnthropicProvider(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic), nil
	case "perplexity":
		if cfg.Perplexity.Key == "" {
			return nil, eris.New("perplexity API key is required (COMPINTEL_PERPLEXITY_KEY)")
		}
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
			perplexity.WithRateLimit(cfg.Perplexity.RatePerSec),
		)
		return pipeline.NewPerplexityProvider(client, cfg.Perplexity), nil
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

// resultSummary pulls the structured result and cost figures out of whatever
// shape the pipeline returned for the requested level. Raw and validated
// levels may return loose maps; those persist with a nil structured result.
func resultSummary(out any) (*model.AnalysisResult, int, float64) {
	switch v := out.(type) {
	case *pipeline.TransformedResult:
		tokens, costUSD := metaFigures(v.Meta)
		return &v.AnalysisResult, tokens, costUSD
	case *model.AnalysisResult:
		tokens, costUSD := metaFigures(v.Meta)
		return v, tokens, costUSD
	case map[string]any:
		tokens, costUSD := mapFigures(v)
		return nil, tokens, costUSD
	default:
		return nil, 0, 0
	}
}

func metaFigures(meta *model.Meta) (int, float64) {
	if meta == nil || meta.Cost == nil {
		return 0, 0
	}
	return meta.Cost.TotalTokens, meta.Cost.CostUSD
}

func mapFigures(obj map[string]any) (int, float64) {
	meta, ok := obj["_meta"].(map[string]any)
	if !ok {
		return 0, 0
	}
	switch c := meta["cost"].(type) {
	case *model.CostInfo:
		return c.TotalTokens, c.CostUSD
	case map[string]any:
		var tokens int
		var costUSD float64
		if n, ok := c["totalTokens"].(float64); ok {
			tokens = int(n)
		}
		if f, ok := c["costUSD"].(float64); ok {
			costUSD = f
		}
		return tokens, costUSD
	default:
		return 0, 0
	}
}
