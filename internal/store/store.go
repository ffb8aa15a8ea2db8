// Package store persists evaluation runs and their flattened per-attribute
// rows. SQLite backs local single-binary use; Postgres backs shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/sells-group/extraction-eval/internal/model"
)

// EvalFilter specifies criteria for listing evaluation runs.
type EvalFilter struct {
	Status     model.Status `json:"status,omitempty"`
	DocumentID string       `json:"document_id,omitempty"`
	Limit      int          `json:"limit,omitempty"`
	Offset     int          `json:"offset,omitempty"`
}

// EvaluationSummary is the listing row for an evaluation run, without the
// full result payload.
type EvaluationSummary struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	Status     model.Status `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Store defines the persistence interface for evaluation results.
type Store interface {
	// CreateEvaluation registers a run in RUNNING state before the engine
	// starts, so asynchronous callers can poll it.
	CreateEvaluation(ctx context.Context, id, documentID string) error

	// SaveResult upserts the completed (or failed) evaluation, replacing any
	// RUNNING placeholder with the same id.
	SaveResult(ctx context.Context, ev *model.DocumentEvaluation) error

	GetEvaluation(ctx context.Context, id string) (*model.DocumentEvaluation, error)
	ListEvaluations(ctx context.Context, filter EvalFilter) ([]EvaluationSummary, error)

	// InsertFlatRecords appends the columnar per-attribute rows for later
	// analytics. Returns the number of rows written.
	InsertFlatRecords(ctx context.Context, recs []model.FlatRecord) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
