// Package repair coerces arbitrary LLM output into a structurally valid
// AnalysisResult. Repair is total: whatever comes in, a well-formed document
// comes out. Two payload shapes are recognized, the modern nested form and a
// legacy flat form; anything else resolves to the default placeholder.
package repair

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
)

// Repair builds a schema-conforming AnalysisResult from an arbitrary decoded
// JSON value. It never returns nil and never panics outward; unexpected
// failures during extraction collapse to the default structure. debug gates
// verbose per-field traces only.
func Repair(v any, debug bool) (out *model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("repair: recovered from panic, using default structure",
				zap.Any("panic", r),
			)
			out = model.DefaultResult()
		}
	}()

	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		zap.L().Warn("repair: payload is not an object, using default structure")
		return model.DefaultResult()
	}

	if entity, ok := obj["entity"].(map[string]any); ok {
		return repairModern(obj, entity, debug)
	}

	if isLegacyShape(obj) {
		if debug {
			zap.L().Debug("repair: payload matched legacy flat shape")
		}
		return repairLegacy(obj)
	}

	zap.L().Warn("repair: unrecognized payload shape, using default structure")
	return model.DefaultResult()
}

// isLegacyShape reports whether obj looks like the flat pre-schema payload:
// a company identifier at the top level next to a products array.
func isLegacyShape(obj map[string]any) bool {
	_, hasProducts := obj["products"].([]any)
	if !hasProducts {
		return false
	}
	for _, k := range []string{"company", "company_name", "name"} {
		if _, present := obj[k]; present {
			return true
		}
	}
	return false
}

// repairModern rebuilds the document field by field from the nested shape.
func repairModern(obj, entity map[string]any, debug bool) *model.AnalysisResult {
	name, found := stringField(entity, "name_brand", "nameBrand")
	if !found {
		name = model.DefaultCompanyName
	}
	if debug {
		zap.L().Debug("repair: company name", zap.String("name", name), zap.Bool("extracted", found))
	}

	company := model.Company{
		NameBrand: name,
		Details:   repairDetails(entity),
		Products:  []model.Product{},
	}
	if legal, ok := stringField(entity, "name_legal", "nameLegal"); ok {
		company.NameLegal = legal
	}
	if year, ok := intField(entity, "date_year_established", "dateYearEstablished"); ok {
		company.DateYearEstablished = &year
	}

	if rawProducts, ok := entity["products"].([]any); ok {
		for _, rp := range rawProducts {
			company.Products = append(company.Products, repairProduct(rp))
		}
	}

	return &model.AnalysisResult{
		Entity: company,
		Meta:   repairMeta(obj),
	}
}

func repairProduct(v any) model.Product {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Product{
			NameBrand:   model.DefaultProductName,
			Details:     []model.Detail{},
			Competitors: []model.Competitor{},
		}
	}

	name, found := stringField(obj, "name_brand", "nameBrand")
	if !found {
		name = model.DefaultProductName
	}
	product := model.Product{
		NameBrand:   name,
		Details:     repairDetails(obj),
		Competitors: []model.Competitor{},
	}
	if legal, ok := stringField(obj, "name_legal", "nameLegal"); ok {
		product.NameLegal = legal
	}
	if year, ok := intField(obj, "date_year_established", "dateYearEstablished"); ok {
		product.DateYearEstablished = &year
	}

	if rawCompetitors, ok := obj["competitors"].([]any); ok {
		for _, rc := range rawCompetitors {
			product.Competitors = append(product.Competitors, repairCompetitor(rc))
		}
	}
	return product
}

func repairCompetitor(v any) model.Competitor {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Competitor{
			NameBrand: model.DefaultCompetitorName,
			Details:   []model.Detail{},
		}
	}

	name, found := stringField(obj, "name_brand", "nameBrand")
	if !found {
		name = model.DefaultCompetitorName
	}
	competitor := model.Competitor{
		NameBrand: name,
		Details:   repairDetails(obj),
	}
	if legal, ok := stringField(obj, "name_legal", "nameLegal"); ok {
		competitor.NameLegal = legal
	}
	if year, ok := intField(obj, "date_year_established", "dateYearEstablished"); ok {
		competitor.DateYearEstablished = &year
	}
	return competitor
}

// repairDetails rebuilds the details list of any entity-like object. A
// missing or non-array details field yields an empty list; non-object
// elements coerce to an all-defaults detail.
func repairDetails(obj map[string]any) []model.Detail {
	details := []model.Detail{}
	raw, ok := obj["details"].([]any)
	if !ok {
		return details
	}
	for _, rd := range raw {
		details = append(details, repairDetail(rd))
	}
	return details
}

func repairDetail(v any) model.Detail {
	obj, _ := v.(map[string]any)
	if obj == nil {
		obj = map[string]any{}
	}

	typeStr, _ := stringField(obj, "type_research_detail", "typeResearchDetail")
	confStr, _ := stringField(obj, "data_confidence", "dataConfidence")
	srcStr, _ := stringField(obj, "source_type", "sourceType")

	detail := model.Detail{
		Type:       model.ParseDetailType(typeStr),
		Confidence: model.ParseConfidence(confStr),
		Source:     model.ParseSourceType(srcStr),
	}

	if date, ok := stringField(obj, "as_of_date", "asOfDate"); ok {
		detail.AsOfDate = date
	} else {
		detail.AsOfDate = time.Now().UTC().Format("2006-01-02")
	}
	if dv, ok := floatField(obj, "discrete_value", "discreteValue"); ok {
		detail.DiscreteValue = &dv
	}
	if tv, ok := stringField(obj, "text_value", "textValue"); ok {
		detail.TextValue = tv
	}
	return detail
}

// repairLegacy rebuilds the document from the flat pre-schema payload. The
// legacy shape carries no detail granularity, so detail lists come out empty.
func repairLegacy(obj map[string]any) *model.AnalysisResult {
	name := model.DefaultCompanyName
	if companyObj, ok := obj["company"].(map[string]any); ok {
		if n, found := stringField(companyObj, "name", "company_name", "trade_name"); found {
			name = n
		}
	}
	if name == model.DefaultCompanyName {
		if n, found := stringField(obj, "company_name", "name", "trade_name"); found {
			name = n
		}
	}

	company := model.Company{
		NameBrand: name,
		Details:   []model.Detail{},
		Products:  []model.Product{},
	}

	rawProducts, _ := obj["products"].([]any)
	for i, rp := range rawProducts {
		company.Products = append(company.Products, legacyProduct(rp, i))
	}

	return &model.AnalysisResult{
		Entity: company,
		Meta:   repairMeta(obj),
	}
}

func legacyProduct(v any, index int) model.Product {
	fallback := fmt.Sprintf("Product %d", index+1)
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Product{
			NameBrand:   fallback,
			Details:     []model.Detail{},
			Competitors: []model.Competitor{},
		}
	}

	name, found := stringField(obj, "name", "product_name", "name_brand", "nameBrand")
	if !found {
		name = fallback
	}
	product := model.Product{
		NameBrand:   name,
		Details:     []model.Detail{},
		Competitors: []model.Competitor{},
	}

	if rawCompetitors, ok := obj["competitors"].([]any); ok {
		for j, rc := range rawCompetitors {
			product.Competitors = append(product.Competitors, legacyCompetitor(rc, j))
		}
	}
	return product
}

func legacyCompetitor(v any, index int) model.Competitor {
	fallback := fmt.Sprintf("Competitor %d", index+1)
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Competitor{NameBrand: fallback, Details: []model.Detail{}}
	}
	name, found := stringField(obj, "name", "product_name", "name_brand", "nameBrand")
	if !found {
		name = fallback
	}
	return model.Competitor{NameBrand: name, Details: []model.Detail{}}
}

// repairMeta carries the provenance block through when present, otherwise
// installs the default zeroed cost block.
func repairMeta(obj map[string]any) *model.Meta {
	raw, ok := obj["_meta"].(map[string]any)
	if !ok {
		return &model.Meta{Cost: &model.CostInfo{}}
	}

	meta := &model.Meta{Cost: &model.CostInfo{}}
	if costObj, ok := mapField(raw, "cost"); ok {
		if tokens, ok := intField(costObj, "totalTokens", "total_tokens"); ok {
			meta.Cost.TotalTokens = tokens
		}
		if usd, ok := floatField(costObj, "costUSD", "cost_usd"); ok {
			meta.Cost.CostUSD = usd
		}
		if m, ok := stringField(costObj, "model"); ok {
			meta.Cost.Model = m
		}
		if p, ok := stringField(costObj, "provider"); ok {
			meta.Cost.Provider = p
		}
	}
	if status, ok := stringField(raw, "validation"); ok {
		meta.Validation = model.ValidationStatus(status)
	}
	return meta
}
