package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/compintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY,
	company      TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	level        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	result       TEXT,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd     REAL NOT NULL DEFAULT 0,
	error        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_company ON analyses(company);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, company, strategy, level string) (*model.AnalysisRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, company, strategy, level, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, company, strategy, level, string(model.AnalysisStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert analysis")
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

func (s *SQLiteStore) CompleteAnalysis(ctx context.Context, id string, result *model.AnalysisResult, tokens int, costUSD float64) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, result = ?, total_tokens = ?, cost_usd = ?, updated_at = ? WHERE id = ?`,
		string(model.AnalysisStatusComplete), string(resultJSON), tokens, costUSD, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete analysis %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) FailAnalysis(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.AnalysisStatusFailed), reason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail analysis %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company, strategy, level, status, result, total_tokens, cost_usd, error, created_at, updated_at
		 FROM analyses WHERE id = ?`, id,
	)
	record, err := scanAnalysis(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: analysis %s not found", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return record, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.AnalysisRecord, error) {
	query := `SELECT id, company, strategy, level, status, result, total_tokens, cost_usd, error, created_at, updated_at FROM analyses WHERE 1=1`
	var args []any

	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var records []model.AnalysisRecord
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		records = append(records, *record)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*model.AnalysisRecord, error) {
	var record model.AnalysisRecord
	var resultJSON, errText sql.NullString

	if err := row.Scan(
		&record.ID, &record.Company, &record.Strategy, &record.Level, &record.Status,
		&resultJSON, &record.TotalTokens, &record.CostUSD, &errText,
		&record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if resultJSON.Valid && resultJSON.String != "" {
		var result model.AnalysisResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
		record.Result = &result
	}
	if errText.Valid {
		record.Error = errText.String
	}
	return &record, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: analysis %s not found", id)
	}
	return nil
}
