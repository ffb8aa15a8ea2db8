package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/provider"
)

func invoiceRegistry(t *testing.T) *model.SpecRegistry {
	t.Helper()
	reg, err := model.NewSpecRegistry([]model.ClassSpec{{
		Class: "invoice",
		Attributes: []model.AttributeSpec{
			{Name: "invoice_number", Type: model.TypeSimple, Method: model.MethodExact},
			{Name: "total_amount", Type: model.TypeSimple, Method: model.MethodNumericExact},
		},
	}})
	require.NoError(t, err)
	return reg
}

func invoiceDocument() *model.DocumentRecord {
	return &model.DocumentRecord{
		DocumentID: "doc-1",
		Sections: []model.SectionRecord{{
			SectionID: "s1",
			Class:     "invoice",
			Expected:  model.ExtractedRecord{"invoice_number": "INV-001", "total_amount": "$100.00"},
			Actual:    model.ExtractedRecord{"invoice_number": "INV-001", "total_amount": "100"},
		}},
	}
}

func TestEvaluateDocument_InvoiceEndToEnd(t *testing.T) {
	engine := NewEngine(newTestEvaluator(nil, nil), invoiceRegistry(t), 2, 4)

	out := engine.EvaluateDocument(context.Background(), invoiceDocument())
	assert.Equal(t, model.StatusCompleted, out.Status)
	assert.Equal(t, "doc-1", out.DocumentID)
	assert.NotEmpty(t, out.ID)
	require.Len(t, out.Sections, 1)

	sec := out.Sections[0]
	require.Len(t, sec.Attributes, 2)
	for _, a := range sec.Attributes {
		assert.True(t, a.Matched, "attribute %s", a.Name)
	}

	assert.Equal(t, model.Counts{TruePositive: 2}, sec.Counts)
	require.NotNil(t, sec.Metrics.Precision)
	assert.Equal(t, 1.0, *sec.Metrics.Precision)
	require.NotNil(t, sec.Metrics.Recall)
	assert.Equal(t, 1.0, *sec.Metrics.Recall)
	require.NotNil(t, sec.Metrics.F1)
	assert.Equal(t, 1.0, *sec.Metrics.F1)
	require.NotNil(t, sec.Metrics.Accuracy)
	assert.Equal(t, 1.0, *sec.Metrics.Accuracy)

	assert.Equal(t, sec.Counts, out.Counts)
	assert.False(t, out.CompletedAt.Before(out.StartedAt))
}

func TestEvaluateDocument_NoBaseline(t *testing.T) {
	engine := NewEngine(newTestEvaluator(nil, nil), invoiceRegistry(t), 2, 4)
	doc := &model.DocumentRecord{
		DocumentID: "doc-2",
		Sections: []model.SectionRecord{{
			SectionID: "s1",
			Class:     "invoice",
			Actual:    model.ExtractedRecord{"invoice_number": "INV-9"},
		}},
	}

	out := engine.EvaluateDocument(context.Background(), doc)
	assert.Equal(t, model.StatusNoBaseline, out.Status)
	assert.Empty(t, out.Sections)
}

func TestEvaluateDocument_MalformedRecordFails(t *testing.T) {
	engine := NewEngine(newTestEvaluator(nil, nil), invoiceRegistry(t), 2, 4)
	doc := &model.DocumentRecord{
		DocumentID: "doc-3",
		Sections: []model.SectionRecord{
			{SectionID: "dup", Class: "invoice", Expected: model.ExtractedRecord{"a": "1"}},
			{SectionID: "dup", Class: "invoice", Expected: model.ExtractedRecord{"a": "1"}},
		},
	}

	out := engine.EvaluateDocument(context.Background(), doc)
	assert.Equal(t, model.StatusFailed, out.Status)
	assert.Contains(t, out.Error, "duplicate section_id")
}

func TestEvaluateDocument_DiscoveredAttributeUsesLLM(t *testing.T) {
	judge := &fakeJudge{verdict: provider.Judgment{Matched: true, Score: 0.95, Reason: "equivalent"}}
	engine := NewEngine(newTestEvaluator(nil, judge), invoiceRegistry(t), 2, 4)

	doc := invoiceDocument()
	doc.Sections[0].Expected["payment_terms"] = "Net 30 days"
	doc.Sections[0].Actual["payment_terms"] = "payment due within 30 days"

	out := engine.EvaluateDocument(context.Background(), doc)
	require.Equal(t, model.StatusCompleted, out.Status)

	var found *model.AttributeEvaluation
	for i := range out.Sections[0].Attributes {
		if out.Sections[0].Attributes[i].Name == "payment_terms" {
			found = &out.Sections[0].Attributes[i]
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.Discovered)
	assert.Equal(t, model.MethodLLM, found.Method)
	assert.True(t, found.Matched)
	assert.Equal(t, 1, judge.calls)
}

func TestEvaluateDocument_AttributeFailureDoesNotBlockSiblings(t *testing.T) {
	reg, err := model.NewSpecRegistry([]model.ClassSpec{{
		Class: "invoice",
		Attributes: []model.AttributeSpec{
			{Name: "invoice_number", Type: model.TypeSimple, Method: model.MethodExact},
			{Name: "summary", Type: model.TypeSimple, Method: model.MethodSemantic},
		},
	}})
	require.NoError(t, err)

	// No embedder configured; the SEMANTIC attribute degrades in place.
	engine := NewEngine(newTestEvaluator(nil, nil), reg, 2, 4)
	doc := &model.DocumentRecord{
		DocumentID: "doc-4",
		Sections: []model.SectionRecord{{
			SectionID: "s1",
			Class:     "invoice",
			Expected:  model.ExtractedRecord{"invoice_number": "INV-001", "summary": "quarterly services"},
			Actual:    model.ExtractedRecord{"invoice_number": "INV-001", "summary": "services for the quarter"},
		}},
	}

	out := engine.EvaluateDocument(context.Background(), doc)
	require.Equal(t, model.StatusCompleted, out.Status)

	byName := map[string]model.AttributeEvaluation{}
	for _, a := range out.Sections[0].Attributes {
		byName[a.Name] = a
	}
	assert.True(t, byName["invoice_number"].Matched)
	assert.False(t, byName["summary"].Matched)
	assert.Contains(t, byName["summary"].Reason, "comparator failure")
}

func TestEvaluateDocument_ConfidencePassthrough(t *testing.T) {
	engine := NewEngine(newTestEvaluator(nil, nil), invoiceRegistry(t), 2, 4)
	doc := invoiceDocument()
	doc.Sections[0].Confidence = map[string]float64{"invoice_number": 0.97}
	ct := 0.9
	doc.Sections[0].ConfidenceThreshold = &ct

	out := engine.EvaluateDocument(context.Background(), doc)
	for _, a := range out.Sections[0].Attributes {
		if a.Name == "invoice_number" {
			require.NotNil(t, a.Confidence)
			assert.Equal(t, 0.97, *a.Confidence)
		}
		require.NotNil(t, a.ConfidenceThreshold)
		assert.Equal(t, 0.9, *a.ConfidenceThreshold)
	}
}

func TestEvaluateDocument_Idempotent(t *testing.T) {
	engine := NewEngine(newTestEvaluator(nil, nil), invoiceRegistry(t), 2, 4)

	a := engine.EvaluateDocument(context.Background(), invoiceDocument())
	b := engine.EvaluateDocument(context.Background(), invoiceDocument())

	assert.Equal(t, a.Sections, b.Sections)
	assert.Equal(t, a.Counts, b.Counts)
	assert.Equal(t, a.Metrics, b.Metrics)
	assert.NotEqual(t, a.ID, b.ID, "each run gets a fresh evaluation id")
}

func TestEvaluateDocument_CancelledContextStillReports(t *testing.T) {
	engine := NewEngine(newTestEvaluator(nil, nil), invoiceRegistry(t), 2, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := engine.EvaluateDocument(ctx, invoiceDocument())
	assert.Equal(t, model.StatusCompleted, out.Status)
	assert.Contains(t, out.Error, "partial results")
	assert.Len(t, out.Sections, 1)
}
