package model

import "time"

// ValidationStatus tags an AnalysisResult with how far it got through the
// validation/repair pipeline.
type ValidationStatus string

const (
	ValidationPassed        ValidationStatus = "passed"
	ValidationFailed        ValidationStatus = "failed"
	ValidationRepaired      ValidationStatus = "repaired"
	ValidationValidAtSource ValidationStatus = "valid_at_source"
)

// Fallback display names used when a payload carries no usable name.
const (
	DefaultCompanyName    = "Unknown Company"
	DefaultProductName    = "Unknown Product"
	DefaultCompetitorName = "Unknown Competitor"
)

// Company is the root entity of an analysis. The same field set recurs on
// Product and Competitor; they are separate types so the nesting depth stays
// fixed at company -> products -> competitors.
type Company struct {
	ID                  *string   `json:"id"`
	NameBrand           string    `json:"name_brand"`
	NameLegal           string    `json:"name_legal,omitempty"`
	DateYearEstablished *int      `json:"date_year_established,omitempty"`
	Details             []Detail  `json:"details"`
	Products            []Product `json:"products"`
}

// Product is a product line of the root company.
type Product struct {
	ID                  *string      `json:"id"`
	NameBrand           string       `json:"name_brand"`
	NameLegal           string       `json:"name_legal,omitempty"`
	DateYearEstablished *int         `json:"date_year_established,omitempty"`
	Details             []Detail     `json:"details"`
	Competitors         []Competitor `json:"competitors"`
}

// Competitor is a rival of a specific product. It carries no nested
// competitors of its own.
type Competitor struct {
	ID                  *string  `json:"id"`
	NameBrand           string   `json:"name_brand"`
	NameLegal           string   `json:"name_legal,omitempty"`
	DateYearEstablished *int     `json:"date_year_established,omitempty"`
	Details             []Detail `json:"details"`
}

// Detail is a single typed, sourced, dated fact about an entity. It carries
// either a numeric value or a text value, not both.
type Detail struct {
	Type          DetailType `json:"type_research_detail"`
	Confidence    Confidence `json:"data_confidence"`
	Source        SourceType `json:"source_type"`
	AsOfDate      string     `json:"as_of_date"`
	DiscreteValue *float64   `json:"discrete_value,omitempty"`
	TextValue     string     `json:"text_value,omitempty"`
}

// CostInfo is the token/cost block passed through from the LLM transport.
// Key casing matches what the dashboard already consumes.
type CostInfo struct {
	TotalTokens int     `json:"totalTokens"`
	CostUSD     float64 `json:"costUSD"`
	Model       string  `json:"model,omitempty"`
	Provider    string  `json:"provider,omitempty"`
}

// FieldError is a path-qualified validation error.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of a structural validation pass.
type ValidationResult struct {
	Valid  bool         `json:"is_valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Meta is the provenance block attached to an AnalysisResult.
type Meta struct {
	Cost             *CostInfo        `json:"cost,omitempty"`
	Validation       ValidationStatus `json:"validation,omitempty"`
	ValidationErrors []FieldError     `json:"validation_errors,omitempty"`
}

// AnalysisResult is the root document returned by the pipeline.
type AnalysisResult struct {
	Entity Company `json:"entity"`
	Meta   *Meta   `json:"_meta,omitempty"`
}

// DefaultResult returns the placeholder document used whenever a payload is
// unrecognizable. Slices are non-nil so the JSON contract (products always an
// array) holds.
func DefaultResult() *AnalysisResult {
	return &AnalysisResult{
		Entity: Company{
			NameBrand: DefaultCompanyName,
			Details:   []Detail{},
			Products:  []Product{},
		},
		Meta: &Meta{
			Cost: &CostInfo{},
		},
	}
}

// AnalysisStatus tracks the lifecycle of a stored analysis run.
type AnalysisStatus string

const (
	AnalysisStatusRunning  AnalysisStatus = "running"
	AnalysisStatusComplete AnalysisStatus = "complete"
	AnalysisStatusFailed   AnalysisStatus = "failed"
)

// AnalysisRecord is a persisted analysis run.
type AnalysisRecord struct {
	ID          string          `json:"id"`
	Company     string          `json:"company"`
	Strategy    string          `json:"strategy"`
	Level       string          `json:"level"`
	Status      AnalysisStatus  `json:"status"`
	Result      *AnalysisResult `json:"result,omitempty"`
	TotalTokens int             `json:"total_tokens"`
	CostUSD     float64         `json:"cost_usd"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
