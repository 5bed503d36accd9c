package model

// DetailType categorizes a research detail.
type DetailType string

const (
	DetailMarketShareEstimate   DetailType = "market_share_estimate"
	DetailMarketShareMin        DetailType = "market_share_min"
	DetailMarketShareMax        DetailType = "market_share_max"
	DetailEmployeeCount         DetailType = "employee_count"
	DetailEmployeeCountMin      DetailType = "employee_count_min"
	DetailEmployeeCountMax      DetailType = "employee_count_max"
	DetailCustomerCount         DetailType = "customer_count"
	DetailRevenueEstimate       DetailType = "revenue_estimate"
	DetailGrowthRate            DetailType = "growth_rate"
	DetailCompanyDescription    DetailType = "company_description"
	DetailIndustryClassifier    DetailType = "industry_classification"
	DetailSectorClassifier      DetailType = "sector_classification"
)

// Confidence grades how reliable a detail is.
type Confidence string

const (
	ConfidenceVerified    Confidence = "verified"
	ConfidenceHigh        Confidence = "high"
	ConfidenceMedium      Confidence = "medium"
	ConfidenceLow         Confidence = "low"
	ConfidenceSpeculative Confidence = "speculative"
)

// SourceType identifies where a detail came from.
type SourceType string

const (
	SourceIndustryReport  SourceType = "industry_report"
	SourceCompanyFiling   SourceType = "company_filing"
	SourceNewsArticle     SourceType = "news_article"
	SourceAnalystEstimate SourceType = "analyst_estimate"
	SourceCompanyWebsite  SourceType = "company_website"
	SourcePressRelease    SourceType = "press_release"
	SourceUnknown         SourceType = "unknown"
)

// allDetailTypes keeps a stable order for prompt construction.
var allDetailTypes = []DetailType{
	DetailMarketShareEstimate,
	DetailMarketShareMin,
	DetailMarketShareMax,
	DetailEmployeeCount,
	DetailEmployeeCountMin,
	DetailEmployeeCountMax,
	DetailCustomerCount,
	DetailRevenueEstimate,
	DetailGrowthRate,
	DetailCompanyDescription,
	DetailIndustryClassifier,
	DetailSectorClassifier,
}

var detailTypes = func() map[DetailType]bool {
	m := make(map[DetailType]bool, len(allDetailTypes))
	for _, dt := range allDetailTypes {
		m[dt] = true
	}
	return m
}()

var confidences = map[Confidence]bool{
	ConfidenceVerified:    true,
	ConfidenceHigh:        true,
	ConfidenceMedium:      true,
	ConfidenceLow:         true,
	ConfidenceSpeculative: true,
}

var sourceTypes = map[SourceType]bool{
	SourceIndustryReport:  true,
	SourceCompanyFiling:   true,
	SourceNewsArticle:     true,
	SourceAnalystEstimate: true,
	SourceCompanyWebsite:  true,
	SourcePressRelease:    true,
	SourceUnknown:         true,
}

// ParseDetailType returns the DetailType for s, or market_share_estimate when
// s is not a recognized value.
func ParseDetailType(s string) DetailType {
	if detailTypes[DetailType(s)] {
		return DetailType(s)
	}
	return DetailMarketShareEstimate
}

// ParseConfidence returns the Confidence for s, defaulting to medium.
func ParseConfidence(s string) Confidence {
	if confidences[Confidence(s)] {
		return Confidence(s)
	}
	return ConfidenceMedium
}

// ParseSourceType returns the SourceType for s, defaulting to analyst_estimate.
func ParseSourceType(s string) SourceType {
	if sourceTypes[SourceType(s)] {
		return SourceType(s)
	}
	return SourceAnalystEstimate
}

// DetailTypes lists every valid detail type in declaration order.
func DetailTypes() []DetailType {
	out := make([]DetailType, len(allDetailTypes))
	copy(out, allDetailTypes)
	return out
}
