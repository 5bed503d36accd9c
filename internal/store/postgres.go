package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compintel/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store uses. Satisfied by
// pgxmock in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    pgPool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_analysis":   `INSERT INTO analyses (id, company, strategy, level, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"complete_analysis": `UPDATE analyses SET status = $1, result = $2, total_tokens = $3, cost_usd = $4, updated_at = $5 WHERE id = $6`,
	"fail_analysis":     `UPDATE analyses SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_analysis":      `SELECT id, company, strategy, level, status, result, total_tokens, cost_usd, error, created_at, updated_at FROM analyses WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company      TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	level        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	result       JSONB,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd     DOUBLE PRECISION NOT NULL DEFAULT 0,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_company ON analyses(company);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, company, strategy, level string) (*model.AnalysisRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, company, strategy, level, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, company, strategy, level, string(model.AnalysisStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert analysis")
	}

	return &model.AnalysisRecord{
		ID:        id,
		Company:   company,
		Strategy:  strategy,
		Level:     level,
		Status:    model.AnalysisStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteAnalysis(ctx context.Context, id string, result *model.AnalysisResult, tokens int, costUSD float64) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, result = $2, total_tokens = $3, cost_usd = $4, updated_at = $5 WHERE id = $6`,
		string(model.AnalysisStatusComplete), resultJSON, tokens, costUSD, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: analysis %s not found", id)
	}
	return nil
}

func (s *PostgresStore) FailAnalysis(ctx context.Context, id string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.AnalysisStatusFailed), reason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: analysis %s not found", id)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company, strategy, level, status, result, total_tokens, cost_usd, error, created_at, updated_at FROM analyses WHERE id = $1`,
		id,
	)
	record, err := scanPgAnalysis(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: analysis %s not found", id)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return record, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisRecord, error) {
	query := `SELECT id, company, strategy, level, status, result, total_tokens, cost_usd, error, created_at, updated_at FROM analyses WHERE 1=1`
	var args []any

	if filter.Company != "" {
		args = append(args, filter.Company)
		query += fmt.Sprintf(` AND company = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var records []model.AnalysisRecord
	for rows.Next() {
		record, err := scanPgAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		records = append(records, *record)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

func scanPgAnalysis(row pgx.Row) (*model.AnalysisRecord, error) {
	var record model.AnalysisRecord
	var resultJSON []byte
	var errText *string

	if err := row.Scan(
		&record.ID, &record.Company, &record.Strategy, &record.Level, &record.Status,
		&resultJSON, &record.TotalTokens, &record.CostUSD, &errText,
		&record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(resultJSON) > 0 {
		var result model.AnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
		record.Result = &result
	}
	if errText != nil {
		record.Error = *errText
	}
	return &record, nil
}
