// Package store persists analysis runs. The pipeline itself never touches
// persistence; the CLI and API layers save results after the pipeline
// returns.
package store

import (
	"context"

	"github.com/sells-group/compintel/internal/model"
)

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Company string               `json:"company,omitempty"`
	Status  model.AnalysisStatus `json:"status,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis history.
type Store interface {
	CreateAnalysis(ctx context.Context, company, strategy, level string) (*model.AnalysisRecord, error)
	CompleteAnalysis(ctx context.Context, id string, result *model.AnalysisResult, tokens int, costUSD float64) error
	FailAnalysis(ctx context.Context, id string, reason string) error
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
