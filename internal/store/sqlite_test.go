package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extraction-eval/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func completedEvaluation(id, docID string) *model.DocumentEvaluation {
	p := func(v float64) *float64 { return &v }
	return &model.DocumentEvaluation{
		ID:         id,
		DocumentID: docID,
		Status:     model.StatusCompleted,
		Sections: []model.SectionEvaluation{
			{
				SectionID: "s-1",
				Class:     "invoice",
				Attributes: []model.AttributeEvaluation{
					{Name: "total", Expected: "100", Actual: "100", Matched: true, Score: 1.0, Method: model.MethodNumericExact},
				},
				Counts:  model.Counts{TruePositive: 1},
				Metrics: model.Metrics{Precision: p(1), Recall: p(1), F1: p(1), Accuracy: p(1)},
			},
		},
		Counts:      model.Counts{TruePositive: 1},
		Metrics:     model.Metrics{Precision: p(1), Recall: p(1), F1: p(1), Accuracy: p(1)},
		StartedAt:   time.Now().UTC().Add(-time.Second),
		CompletedAt: time.Now().UTC(),
	}
}

func TestSQLite_SaveAndGetEvaluation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ev := completedEvaluation("eval-1", "doc-1")
	require.NoError(t, s.SaveResult(ctx, ev))

	got, err := s.GetEvaluation(ctx, "eval-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.Len(t, got.Sections, 1)
	assert.Equal(t, 1, got.Counts.TruePositive)
	require.NotNil(t, got.Metrics.Precision)
	assert.Equal(t, 1.0, *got.Metrics.Precision)
}

func TestSQLite_GetEvaluation_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetEvaluation(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_CreateThenSaveReplacesPlaceholder(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEvaluation(ctx, "eval-2", "doc-2"))

	pending, err := s.GetEvaluation(ctx, "eval-2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, pending.Status)
	assert.Empty(t, pending.Sections)

	require.NoError(t, s.SaveResult(ctx, completedEvaluation("eval-2", "doc-2")))

	got, err := s.GetEvaluation(ctx, "eval-2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.Len(t, got.Sections, 1)
}

func TestSQLite_SaveResult_Upserts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ev := completedEvaluation("eval-3", "doc-3")
	require.NoError(t, s.SaveResult(ctx, ev))

	ev.Status = model.StatusFailed
	ev.Error = "duplicate section_id: s-1"
	require.NoError(t, s.SaveResult(ctx, ev))

	got, err := s.GetEvaluation(ctx, "eval-3")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "duplicate section_id: s-1", got.Error)

	list, err := s.ListEvaluations(ctx, EvalFilter{DocumentID: "doc-3"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_ListEvaluations_Filters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, completedEvaluation("eval-a", "doc-a")))
	require.NoError(t, s.SaveResult(ctx, completedEvaluation("eval-b", "doc-b")))
	require.NoError(t, s.CreateEvaluation(ctx, "eval-c", "doc-a"))

	all, err := s.ListEvaluations(ctx, EvalFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	running, err := s.ListEvaluations(ctx, EvalFilter{Status: model.StatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "eval-c", running[0].ID)

	byDoc, err := s.ListEvaluations(ctx, EvalFilter{DocumentID: "doc-a"})
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	limited, err := s.ListEvaluations(ctx, EvalFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_InsertFlatRecords(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ev := completedEvaluation("eval-4", "doc-4")
	require.NoError(t, s.SaveResult(ctx, ev))

	recs := model.Flatten(ev, time.Now().UTC())
	require.NotEmpty(t, recs)

	n, err := s.InsertFlatRecords(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, int64(len(recs)), n)

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attribute_results WHERE evaluation_id = ?`, "eval-4",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(recs), count)
}

func TestSQLite_InsertFlatRecords_Empty(t *testing.T) {
	s := newTestSQLite(t)

	n, err := s.InsertFlatRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
