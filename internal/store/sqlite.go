package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/extraction-eval/internal/model"
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
CREATE TABLE IF NOT EXISTS evaluations (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'RUNNING',
	result      TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS attribute_results (
	evaluation_id        TEXT NOT NULL REFERENCES evaluations(id),
	document_id          TEXT NOT NULL,
	section_id           TEXT NOT NULL,
	attribute            TEXT NOT NULL,
	expected             TEXT NOT NULL,
	actual               TEXT NOT NULL,
	matched              INTEGER NOT NULL,
	score                REAL NOT NULL,
	method               TEXT NOT NULL,
	reason               TEXT NOT NULL DEFAULT '',
	discovered           INTEGER NOT NULL DEFAULT 0,
	confidence           REAL,
	confidence_threshold REAL,
	recorded_at          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(status);
CREATE INDEX IF NOT EXISTS idx_evaluations_document_id ON evaluations(document_id);
CREATE INDEX IF NOT EXISTS idx_attribute_results_evaluation_id ON attribute_results(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_attribute_results_attribute ON attribute_results(attribute);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateEvaluation(ctx context.Context, id, documentID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, document_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, documentID, string(model.StatusRunning), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert evaluation %s", id)
}

func (s *SQLiteStore) SaveResult(ctx context.Context, ev *model.DocumentEvaluation) error {
	resultJSON, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evaluation")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, document_id, status, result, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		ev.ID, ev.DocumentID, string(ev.Status), string(resultJSON), ev.Error, now, now,
	)
	return eris.Wrapf(err, "sqlite: save evaluation %s", ev.ID)
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (*model.DocumentEvaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, status, result, error FROM evaluations WHERE id = ?`,
		id,
	)
	return scanEvaluation(row)
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter EvalFilter) ([]EvaluationSummary, error) {
	query := `SELECT id, document_id, status, created_at, updated_at FROM evaluations WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	var summaries []EvaluationSummary
	for rows.Next() {
		var es EvaluationSummary
		if err := rows.Scan(&es.ID, &es.DocumentID, &es.Status, &es.CreatedAt, &es.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation summary")
		}
		summaries = append(summaries, es)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: list evaluations iterate")
}

func (s *SQLiteStore) InsertFlatRecords(ctx context.Context, recs []model.FlatRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attribute_results (
			evaluation_id, document_id, section_id, attribute, expected, actual,
			matched, score, method, reason, discovered,
			confidence, confidence_threshold, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	var n int64
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			r.EvaluationID, r.DocumentID, r.SectionID, r.Attribute, r.Expected, r.Actual,
			r.Matched, r.Score, r.Method, r.Reason, r.Discovered,
			r.Confidence, r.ConfidenceThreshold, r.Timestamp.UTC(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert attribute result %s/%s", r.SectionID, r.Attribute)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scannable) (*model.DocumentEvaluation, error) {
	var (
		id, documentID, status string
		resultJSON, errText    sql.NullString
	)

	err := row.Scan(&id, &documentID, &status, &resultJSON, &errText)
	if err == sql.ErrNoRows {
		return nil, eris.New("evaluation not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan evaluation")
	}

	if !resultJSON.Valid {
		// RUNNING placeholder: the engine has not written a payload yet.
		return &model.DocumentEvaluation{
			ID:         id,
			DocumentID: documentID,
			Status:     model.Status(status),
			Error:      errText.String,
		}, nil
	}

	var ev model.DocumentEvaluation
	if err := json.Unmarshal([]byte(resultJSON.String), &ev); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal evaluation")
	}
	return &ev, nil
}
