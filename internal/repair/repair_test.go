package repair

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/model"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestRepairTotalOnGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"string", "oops"},
		{"number", 3.14},
		{"array", []any{1, 2}},
		{"empty object", map[string]any{}},
		{"unrecognized object", map[string]any{"foo": "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Repair(tt.in, false)
			require.NotNil(t, res)
			assert.Equal(t, model.DefaultCompanyName, res.Entity.NameBrand)
			assert.NotNil(t, res.Entity.Products)
			assert.Empty(t, res.Entity.Products)
			require.NotNil(t, res.Meta)
			require.NotNil(t, res.Meta.Cost)
		})
	}
}

func TestRepairModernShape(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {
			"name_brand": "Acme",
			"name_legal": "Acme Inc.",
			"date_year_established": 1998,
			"details": [
				{
					"type_research_detail": "company_description",
					"data_confidence": "high",
					"source_type": "company_website",
					"as_of_date": "2025-06-01",
					"text_value": "Makes widgets"
				}
			],
			"products": [
				{
					"name_brand": "Widget",
					"details": [{"type_research_detail": "market_share_estimate", "discrete_value": 40}],
					"competitors": [
						{"name_brand": "Rival", "details": []}
					]
				}
			]
		}
	}`)

	res := Repair(v, false)

	assert.Equal(t, "Acme", res.Entity.NameBrand)
	assert.Equal(t, "Acme Inc.", res.Entity.NameLegal)
	require.NotNil(t, res.Entity.DateYearEstablished)
	assert.Equal(t, 1998, *res.Entity.DateYearEstablished)

	require.Len(t, res.Entity.Details, 1)
	d := res.Entity.Details[0]
	assert.Equal(t, model.DetailCompanyDescription, d.Type)
	assert.Equal(t, model.ConfidenceHigh, d.Confidence)
	assert.Equal(t, model.SourceCompanyWebsite, d.Source)
	assert.Equal(t, "2025-06-01", d.AsOfDate)
	assert.Equal(t, "Makes widgets", d.TextValue)

	require.Len(t, res.Entity.Products, 1)
	p := res.Entity.Products[0]
	assert.Equal(t, "Widget", p.NameBrand)
	require.Len(t, p.Details, 1)
	require.NotNil(t, p.Details[0].DiscreteValue)
	assert.Equal(t, 40.0, *p.Details[0].DiscreteValue)
	require.Len(t, p.Competitors, 1)
	assert.Equal(t, "Rival", p.Competitors[0].NameBrand)
}

func TestRepairCamelCaseFallback(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {
			"nameBrand": "Acme",
			"nameLegal": "Acme Inc.",
			"dateYearEstablished": 2001,
			"details": [
				{"typeResearchDetail": "growth_rate", "dataConfidence": "low", "sourceType": "news_article", "asOfDate": "2024-12-31", "discreteValue": 7.5}
			],
			"products": []
		}
	}`)

	res := Repair(v, false)

	assert.Equal(t, "Acme", res.Entity.NameBrand)
	assert.Equal(t, "Acme Inc.", res.Entity.NameLegal)
	require.NotNil(t, res.Entity.DateYearEstablished)
	assert.Equal(t, 2001, *res.Entity.DateYearEstablished)

	require.Len(t, res.Entity.Details, 1)
	d := res.Entity.Details[0]
	assert.Equal(t, model.DetailGrowthRate, d.Type)
	assert.Equal(t, model.ConfidenceLow, d.Confidence)
	assert.Equal(t, model.SourceNewsArticle, d.Source)
	assert.Equal(t, "2024-12-31", d.AsOfDate)
	require.NotNil(t, d.DiscreteValue)
	assert.Equal(t, 7.5, *d.DiscreteValue)
}

func TestRepairSnakeCaseWinsOverCamel(t *testing.T) {
	t.Parallel()

	v := decode(t, `{"entity": {"name_brand": "Canonical", "nameBrand": "Alias"}}`)
	res := Repair(v, false)
	assert.Equal(t, "Canonical", res.Entity.NameBrand)
}

func TestRepairDefaultNames(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {
			"products": [
				{},
				"junk",
				{"competitors": [{}, 42]}
			]
		}
	}`)

	res := Repair(v, false)

	assert.Equal(t, model.DefaultCompanyName, res.Entity.NameBrand)
	require.Len(t, res.Entity.Products, 3)
	for _, p := range res.Entity.Products {
		assert.Equal(t, model.DefaultProductName, p.NameBrand)
		assert.NotNil(t, p.Details)
		assert.NotNil(t, p.Competitors)
	}

	competitors := res.Entity.Products[2].Competitors
	require.Len(t, competitors, 2)
	assert.Equal(t, model.DefaultCompetitorName, competitors[0].NameBrand)
	assert.Equal(t, model.DefaultCompetitorName, competitors[1].NameBrand)
}

func TestRepairDetailDefaults(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {
			"name_brand": "Acme",
			"details": [
				{"type_research_detail": "bogus_type", "data_confidence": "certain", "source_type": "wikipedia"},
				null,
				"junk"
			]
		}
	}`)

	res := Repair(v, false)
	require.Len(t, res.Entity.Details, 3)

	today := time.Now().UTC().Format("2006-01-02")
	for _, d := range res.Entity.Details {
		assert.Equal(t, model.DetailMarketShareEstimate, d.Type)
		assert.Equal(t, model.ConfidenceMedium, d.Confidence)
		assert.Equal(t, model.SourceAnalystEstimate, d.Source)
		assert.Equal(t, today, d.AsOfDate)
		assert.Nil(t, d.DiscreteValue)
		assert.Empty(t, d.TextValue)
	}
}

func TestRepairLegacyShape(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"company": {"name": "Old Acme"},
		"products": [
			{"name": "Classic Widget", "competitors": [{"name": "Old Rival"}, {}]},
			{}
		]
	}`)

	res := Repair(v, false)

	assert.Equal(t, "Old Acme", res.Entity.NameBrand)
	assert.Empty(t, res.Entity.Details)
	require.Len(t, res.Entity.Products, 2)

	first := res.Entity.Products[0]
	assert.Equal(t, "Classic Widget", first.NameBrand)
	require.Len(t, first.Competitors, 2)
	assert.Equal(t, "Old Rival", first.Competitors[0].NameBrand)
	assert.Equal(t, "Competitor 2", first.Competitors[1].NameBrand)

	assert.Equal(t, "Product 2", res.Entity.Products[1].NameBrand)
}

func TestRepairLegacyTopLevelName(t *testing.T) {
	t.Parallel()

	v := decode(t, `{"company_name": "Flat Acme", "products": []}`)
	res := Repair(v, false)
	assert.Equal(t, "Flat Acme", res.Entity.NameBrand)
	assert.Empty(t, res.Entity.Products)
}

func TestRepairLegacyRequiresProductsArray(t *testing.T) {
	t.Parallel()

	// a company key without a products array is not the legacy shape
	v := decode(t, `{"company_name": "Acme", "products": "none"}`)
	res := Repair(v, false)
	assert.Equal(t, model.DefaultCompanyName, res.Entity.NameBrand)
}

func TestRepairMetaPassthrough(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {"name_brand": "Acme"},
		"_meta": {
			"cost": {"totalTokens": 900, "costUSD": 0.02, "model": "sonar-pro", "provider": "perplexity"},
			"validation": "passed"
		}
	}`)

	res := Repair(v, false)
	require.NotNil(t, res.Meta)
	require.NotNil(t, res.Meta.Cost)
	assert.Equal(t, 900, res.Meta.Cost.TotalTokens)
	assert.Equal(t, 0.02, res.Meta.Cost.CostUSD)
	assert.Equal(t, "sonar-pro", res.Meta.Cost.Model)
	assert.Equal(t, "perplexity", res.Meta.Cost.Provider)
	assert.Equal(t, model.ValidationPassed, res.Meta.Validation)
}

func TestRepairMetaSnakeCaseCostKeys(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {"name_brand": "Acme"},
		"_meta": {"cost": {"total_tokens": 500, "cost_usd": 0.01}}
	}`)

	res := Repair(v, false)
	require.NotNil(t, res.Meta.Cost)
	assert.Equal(t, 500, res.Meta.Cost.TotalTokens)
	assert.Equal(t, 0.01, res.Meta.Cost.CostUSD)
}

func TestRepairIdempotent(t *testing.T) {
	t.Parallel()

	v := decode(t, `{
		"entity": {
			"name_brand": "Acme",
			"details": [],
			"products": [{"name_brand": "Widget", "details": [], "competitors": []}]
		}
	}`)

	first := Repair(v, false)

	data, err := json.Marshal(first)
	require.NoError(t, err)
	second := Repair(decode(t, string(data)), false)

	assert.Equal(t, first.Entity, second.Entity)
}
