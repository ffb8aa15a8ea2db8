package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/extraction-eval/internal/db"
	"github.com/sells-group/extraction-eval/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
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
	"insert_evaluation": `INSERT INTO evaluations (id, document_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_evaluation":    `SELECT id, document_id, status, result, error FROM evaluations WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
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

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'RUNNING',
	result      JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS attribute_results (
	evaluation_id        TEXT NOT NULL REFERENCES evaluations(id),
	document_id          TEXT NOT NULL,
	section_id           TEXT NOT NULL,
	attribute            TEXT NOT NULL,
	expected             TEXT NOT NULL,
	actual               TEXT NOT NULL,
	matched              BOOLEAN NOT NULL,
	score                DOUBLE PRECISION NOT NULL,
	method               TEXT NOT NULL,
	reason               TEXT NOT NULL DEFAULT '',
	discovered           BOOLEAN NOT NULL DEFAULT false,
	confidence           DOUBLE PRECISION,
	confidence_threshold DOUBLE PRECISION,
	recorded_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(status);
CREATE INDEX IF NOT EXISTS idx_evaluations_document_id ON evaluations(document_id);
CREATE INDEX IF NOT EXISTS idx_attribute_results_evaluation_id ON attribute_results(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_attribute_results_attribute ON attribute_results(attribute);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

func (s *PostgresStore) CreateEvaluation(ctx context.Context, id, documentID string) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, document_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, documentID, string(model.StatusRunning), now, now,
	)
	return eris.Wrapf(err, "postgres: insert evaluation %s", id)
}

var evaluationColumns = []string{"id", "document_id", "status", "result", "error", "created_at", "updated_at"}

func (s *PostgresStore) SaveResult(ctx context.Context, ev *model.DocumentEvaluation) error {
	resultJSON, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evaluation")
	}

	now := time.Now().UTC()
	_, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "evaluations",
		Columns:      evaluationColumns,
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"status", "result", "error", "updated_at"},
	}, [][]any{
		{ev.ID, ev.DocumentID, string(ev.Status), resultJSON, ev.Error, now, now},
	})
	return eris.Wrapf(err, "postgres: save evaluation %s", ev.ID)
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id string) (*model.DocumentEvaluation, error) {
	var (
		evID, documentID, status string
		resultJSON               []byte
		errText                  *string
	)

	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, status, result, error FROM evaluations WHERE id = $1`,
		id,
	).Scan(&evID, &documentID, &status, &resultJSON, &errText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.New("evaluation not found")
		}
		return nil, eris.Wrapf(err, "postgres: get evaluation %s", id)
	}

	if resultJSON == nil {
		ev := &model.DocumentEvaluation{
			ID:         evID,
			DocumentID: documentID,
			Status:     model.Status(status),
		}
		if errText != nil {
			ev.Error = *errText
		}
		return ev, nil
	}

	var ev model.DocumentEvaluation
	if err := json.Unmarshal(resultJSON, &ev); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal evaluation")
	}
	return &ev, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter EvalFilter) ([]EvaluationSummary, error) {
	query := `SELECT id, document_id, status, created_at, updated_at FROM evaluations WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.DocumentID != "" {
		query += fmt.Sprintf(` AND document_id = $%d`, argIdx)
		args = append(args, filter.DocumentID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var summaries []EvaluationSummary
	for rows.Next() {
		var es EvaluationSummary
		if err := rows.Scan(&es.ID, &es.DocumentID, &es.Status, &es.CreatedAt, &es.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation summary")
		}
		summaries = append(summaries, es)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: list evaluations iterate")
}

var flatRecordColumns = []string{
	"evaluation_id", "document_id", "section_id", "attribute", "expected", "actual",
	"matched", "score", "method", "reason", "discovered",
	"confidence", "confidence_threshold", "recorded_at",
}

func (s *PostgresStore) InsertFlatRecords(ctx context.Context, recs []model.FlatRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	// Re-persisting the same run replaces its rows rather than duplicating
	// them.
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM attribute_results WHERE evaluation_id = $1`,
		recs[0].EvaluationID,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: clear attribute results")
	}

	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			r.EvaluationID, r.DocumentID, r.SectionID, r.Attribute, r.Expected, r.Actual,
			r.Matched, r.Score, r.Method, r.Reason, r.Discovered,
			r.Confidence, r.ConfidenceThreshold, r.Timestamp.UTC(),
		})
	}
	return db.CopyFrom(ctx, s.pool, "attribute_results", flatRecordColumns, rows)
}
