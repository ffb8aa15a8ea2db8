package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extraction-eval/internal/eval"
	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterCtx(t, context.Background())
}

func newTestRouterCtx(t *testing.T, baseCtx context.Context) http.Handler {
	t.Helper()

	registry, err := model.NewSpecRegistry([]model.ClassSpec{
		{
			Class: "invoice",
			Attributes: []model.AttributeSpec{
				{Name: "total", Type: model.TypeSimple, Method: model.MethodNumericExact},
				{Name: "vendor", Type: model.TypeSimple, Method: model.MethodFuzzy},
			},
		},
	})
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	evaluator := eval.NewEvaluator(nil, nil, eval.Thresholds{})
	engine := eval.NewEngine(evaluator, registry, 2, 2)

	return newRouter(baseCtx, engine, st, []string{"http://localhost:3000"})
}

func TestServe_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_PostEvaluation_AcceptsAndCompletes(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"document_id": "doc-9",
		"sections": [{
			"section_id": "s-1",
			"class": "invoice",
			"actual": {"total": "100", "vendor": "Acme Corp"},
			"expected": {"total": "100.00", "vendor": "ACME Corp"}
		}]
	}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted["id"])
	assert.Equal(t, "doc-9", accepted["document_id"])
	assert.Equal(t, string(model.StatusRunning), accepted["status"])

	var got model.DocumentEvaluation
	require.Eventually(t, func() bool {
		r := httptest.NewRecorder()
		router.ServeHTTP(r, httptest.NewRequest(http.MethodGet, "/evaluations/"+accepted["id"], nil))
		if r.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(r.Body.Bytes(), &got); err != nil {
			return false
		}
		return got.Status == model.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, accepted["id"], got.ID)
	assert.Equal(t, 2, got.Counts.TruePositive)
	assert.Equal(t, 0, got.Counts.FalsePositive)
}

func TestServe_PostEvaluation_ShutdownStillPersistsPartialResult(t *testing.T) {
	baseCtx, cancel := context.WithCancel(context.Background())
	cancel()
	router := newTestRouterCtx(t, baseCtx)

	body := `{
		"document_id": "doc-10",
		"sections": [{
			"section_id": "s-1",
			"class": "invoice",
			"actual": {"total": "100"},
			"expected": {"total": "100"}
		}]
	}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	var got model.DocumentEvaluation
	require.Eventually(t, func() bool {
		r := httptest.NewRecorder()
		router.ServeHTTP(r, httptest.NewRequest(http.MethodGet, "/evaluations/"+accepted["id"], nil))
		if r.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(r.Body.Bytes(), &got); err != nil {
			return false
		}
		return got.Status == model.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, got.Error, "partial results")
}

func TestServe_PostEvaluation_BadBody(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(`{"sections": []}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "document_id")
}

func TestServe_GetEvaluation_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ListEvaluations_EmptyIsArray(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
