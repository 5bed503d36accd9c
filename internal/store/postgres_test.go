package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compintel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs(pgxmock.AnyArg(), "Acme", "single", "transformedOpenAI", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	record, err := s.CreateAnalysis(context.Background(), "Acme", "single", "transformedOpenAI")
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "Acme", record.Company)
	assert.Equal(t, model.AnalysisStatusRunning, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("complete", pgxmock.AnyArg(), 1500, 0.02, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteAnalysis(context.Background(), "run-1", model.DefaultResult(), 1500, 0.02)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("complete", pgxmock.AnyArg(), 0, 0.0, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteAnalysis(context.Background(), "missing", nil, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs("failed", "provider timeout", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailAnalysis(context.Background(), "run-1", "provider timeout")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "company", "strategy", "level", "status",
		"result", "total_tokens", "cost_usd", "error",
		"created_at", "updated_at",
	}).AddRow(
		"run-1", "Acme", "single", "transformedOpenAI", model.AnalysisStatusComplete,
		[]byte(`{"entity":{"id":null,"name_brand":"Acme","details":[],"products":[]}}`), 1500, 0.02, (*string)(nil),
		now, now,
	)

	mock.ExpectQuery(`SELECT id, company, strategy, level, status`).
		WithArgs("run-1").
		WillReturnRows(rows)

	record, err := s.GetAnalysis(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", record.Company)
	assert.Equal(t, 1500, record.TotalTokens)
	require.NotNil(t, record.Result)
	assert.Equal(t, "Acme", record.Result.Entity.NameBrand)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, company, strategy, level, status`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAnalyses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "company", "strategy", "level", "status",
		"result", "total_tokens", "cost_usd", "error",
		"created_at", "updated_at",
	}).
		AddRow("run-2", "Acme", "single", "transformedOpenAI", model.AnalysisStatusComplete,
			[]byte(nil), 900, 0.01, (*string)(nil), now, now).
		AddRow("run-1", "Acme", "multi", "repairedOpenAI", model.AnalysisStatusFailed,
			[]byte(nil), 0, 0.0, strPtr("boom"), now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT id, company, strategy, level, status.+ AND company = \$1 .*LIMIT \$2`).
		WithArgs("Acme", 50).
		WillReturnRows(rows)

	records, err := s.ListAnalyses(context.Background(), AnalysisFilter{Company: "Acme"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-2", records[0].ID)
	assert.Nil(t, records[0].Result)
	assert.Equal(t, "boom", records[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
