package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
)

const analysisSystemPrompt = `You are a competitive intelligence analyst. Respond with a single JSON object and nothing else. Do not wrap the JSON in markdown fences.`

// singlePrompt asks for the full nested analysis document in one shot.
func singlePrompt(company string) string {
	var types []string
	for _, dt := range model.DetailTypes() {
		types = append(types, string(dt))
	}

	return fmt.Sprintf(`Analyze the company %q and its competitive landscape.

Return JSON with exactly this structure:
{
  "entity": {
    "name_brand": "<company name>",
    "name_legal": "<legal name if known>",
    "date_year_established": <year or omit>,
    "details": [<detail objects>],
    "products": [
      {
        "name_brand": "<product name>",
        "details": [<detail objects>],
        "competitors": [
          {"name_brand": "<competitor name>", "details": [<detail objects>]}
        ]
      }
    ]
  }
}

Each detail object has:
  "type_research_detail": one of [%s]
  "data_confidence": one of [verified, high, medium, low, speculative]
  "source_type": one of [industry_report, company_filing, news_article, analyst_estimate, company_website, press_release, unknown]
  "as_of_date": "YYYY-MM-DD"
  and either "discrete_value" (number) or "text_value" (string).

Include 3-6 products and 2-4 competitors per product where known.`,
		company, strings.Join(types, ", "))
}

// basicInfoPrompt asks only for flat name lists; the orchestrator assembles
// the document itself.
func basicInfoPrompt(company string) string {
	return fmt.Sprintf(`For the company %q, return JSON with exactly this structure:
{
  "company_name": "<company name>",
  "products": ["<product name>", ...],
  "competitors": ["<competitor name>", ...]
}

List up to 6 main product lines and up to 6 main competitors.`, company)
}

// generate produces the raw analysis payload using the requested strategy.
// The returned value is an arbitrary decoded JSON document; validation and
// repair happen downstream. Only transport failures return an error.
func (p *Pipeline) generate(ctx context.Context, company string, opts Options) (any, *Completion, error) {
	switch opts.Strategy {
	case StrategyMulti:
		return p.generateMulti(ctx, company, opts)
	default:
		return p.generateSingle(ctx, company, opts)
	}
}

func (p *Pipeline) generateSingle(ctx context.Context, company string, opts Options) (any, *Completion, error) {
	completion, err := p.provider.Complete(ctx, analysisSystemPrompt, singlePrompt(company))
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: single-shot generation")
	}

	raw := decodePayload(completion.Text, opts.Debug)
	return raw, completion, nil
}

// generateMulti issues one basic-info call and assembles the nested document
// in-process, wrapping each product and competitor name into an entity
// skeleton with one synthetic detail. A failure assembling one product skips
// that product only.
func (p *Pipeline) generateMulti(ctx context.Context, company string, opts Options) (any, *Completion, error) {
	completion, err := p.provider.Complete(ctx, analysisSystemPrompt, basicInfoPrompt(company))
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: basic-info generation")
	}

	info, ok := decodePayload(completion.Text, opts.Debug).(map[string]any)
	if !ok {
		zap.L().Warn("pipeline: basic-info response is not an object",
			zap.String("company", company),
		)
		return nil, completion, nil
	}

	name, _ := info["company_name"].(string)
	if name == "" {
		name = company
	}

	competitorNames := stringList(info["competitors"])
	products := []any{}
	for i, productName := range stringList(info["products"]) {
		product, buildErr := assembleProduct(name, productName, competitorNames)
		if buildErr != nil {
			zap.L().Warn("pipeline: skipping product",
				zap.Int("index", i),
				zap.Error(buildErr),
			)
			continue
		}
		products = append(products, product)
	}

	raw := map[string]any{
		"entity": map[string]any{
			"name_brand": name,
			"details":    []any{},
			"products":   products,
		},
	}
	return raw, completion, nil
}

// assembleProduct builds one product skeleton. Panics during assembly are
// contained here so one bad product cannot abort the whole analysis.
func assembleProduct(company, productName string, competitorNames []string) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = eris.Errorf("pipeline: product assembly panic: %v", r)
		}
	}()

	if strings.TrimSpace(productName) == "" {
		return nil, eris.New("pipeline: empty product name")
	}

	competitors := []any{}
	for _, cn := range competitorNames {
		if strings.TrimSpace(cn) == "" {
			continue
		}
		competitors = append(competitors, map[string]any{
			"name_brand": cn,
			"details": []any{
				syntheticDetail(fmt.Sprintf("%s competes with %s", cn, company)),
			},
		})
	}

	return map[string]any{
		"name_brand": productName,
		"details": []any{
			syntheticDetail(fmt.Sprintf("%s is a product line of %s", productName, company)),
		},
		"competitors": competitors,
	}, nil
}

func syntheticDetail(text string) map[string]any {
	return map[string]any{
		"type_research_detail": string(model.DetailMarketShareEstimate),
		"data_confidence":      string(model.ConfidenceHigh),
		"source_type":          string(model.SourceAnalystEstimate),
		"text_value":           text,
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// decodePayload strips markdown wrapping and decodes the completion text.
// An undecodable payload yields nil; the repair engine owns that case.
func decodePayload(text string, debug bool) any {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil
	}

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		zap.L().Warn("pipeline: failed to decode completion JSON", zap.Error(err))
		return nil
	}
	if debug {
		zap.L().Debug("pipeline: decoded completion payload",
			zap.Int("bytes", len(cleaned)),
		)
	}
	return raw
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or prose wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
