package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/compintel/internal/model"
)

// Dashboard is the flattened projection the UI renders. It never carries
// errors; missing data becomes placeholder text or default figures.
type Dashboard struct {
	CompanyName string              `json:"companyName"`
	Description string              `json:"description"`
	Industry    string              `json:"industry"`
	Sector      string              `json:"sector"`
	Products    []ProductSummary    `json:"products"`
	Competitors []CompetitorSummary `json:"competitors"`
}

// ProductSummary is one slice of the product revenue breakdown.
type ProductSummary struct {
	Name              string  `json:"name"`
	RevenuePercentage float64 `json:"revenuePercentage"`
	Growth            string  `json:"growth"`
	Description       string  `json:"description"`
}

// CompetitorSummary is one entry in the deduplicated competitor list.
type CompetitorSummary struct {
	Name        string  `json:"name"`
	MarketShare float64 `json:"marketShare"`
}

// defaultCompetitorShare is assumed when a competitor carries no
// market-share detail.
const defaultCompetitorShare = 5

// Transform maps a canonical analysis into the dashboard projection.
func Transform(res *model.AnalysisResult) *Dashboard {
	entity := res.Entity

	d := &Dashboard{
		CompanyName: entity.NameBrand,
		Description: textDetail(entity.Details, "description", "No description available."),
		Industry:    textDetail(entity.Details, "industry", "Unknown"),
		Sector:      textDetail(entity.Details, "sector", "Unknown"),
		Products:    []ProductSummary{},
		Competitors: []CompetitorSummary{},
	}

	equalShare := 0.0
	if len(entity.Products) > 0 {
		equalShare = 100.0 / float64(len(entity.Products))
	}

	folder := cases.Fold()
	seen := map[string]int{} // folded competitor name -> index in d.Competitors

	for _, product := range entity.Products {
		revenue := equalShare
		if share, ok := discreteDetail(product.Details, "market_share"); ok {
			revenue = share
		}

		growth := "N/A"
		if g, ok := discreteDetail(product.Details, "growth"); ok {
			growth = fmt.Sprintf("%.1f%%", g)
		}

		description := textDetail(product.Details, "", "")
		if description == "" {
			description = fmt.Sprintf("%s product line", product.NameBrand)
		}

		d.Products = append(d.Products, ProductSummary{
			Name:              product.NameBrand,
			RevenuePercentage: revenue,
			Growth:            growth,
			Description:       description,
		})

		for _, competitor := range product.Competitors {
			key := folder.String(competitor.NameBrand)
			if _, dup := seen[key]; dup {
				continue
			}
			share := float64(defaultCompetitorShare)
			if s, ok := discreteDetail(competitor.Details, "market_share"); ok {
				share = s
			}
			seen[key] = len(d.Competitors)
			d.Competitors = append(d.Competitors, CompetitorSummary{
				Name:        competitor.NameBrand,
				MarketShare: share,
			})
		}
	}

	return d
}

// textDetail returns the text value of the first detail whose type contains
// substr. An empty substr matches any detail with a text value.
func textDetail(details []model.Detail, substr, fallback string) string {
	for _, detail := range details {
		if detail.TextValue == "" {
			continue
		}
		if substr == "" || strings.Contains(string(detail.Type), substr) {
			return detail.TextValue
		}
	}
	return fallback
}

// discreteDetail returns the numeric value of the first detail whose type
// contains substr.
func discreteDetail(details []model.Detail, substr string) (float64, bool) {
	for _, detail := range details {
		if detail.DiscreteValue == nil {
			continue
		}
		if strings.Contains(string(detail.Type), substr) {
			return *detail.DiscreteValue, true
		}
	}
	return 0, false
}
