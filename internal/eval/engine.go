package eval

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/extraction-eval/internal/model"
)

// Engine runs document evaluations: sections in parallel within a document
// and attributes in parallel within a section. Workers share no mutable
// state; each writes its own slot and counts merge after the fold.
type Engine struct {
	evaluator   *Evaluator
	registry    *model.SpecRegistry
	maxSections int
	maxAttrs    int
}

// NewEngine builds an engine over an evaluator and a class spec registry.
// Non-positive limits fall back to 4 concurrent sections and 8 concurrent
// attributes.
func NewEngine(evaluator *Evaluator, registry *model.SpecRegistry, maxSections, maxAttrs int) *Engine {
	if maxSections <= 0 {
		maxSections = 4
	}
	if maxAttrs <= 0 {
		maxAttrs = 8
	}
	return &Engine{
		evaluator:   evaluator,
		registry:    registry,
		maxSections: maxSections,
		maxAttrs:    maxAttrs,
	}
}

// EvaluateDocument compares a document's extracted records against its
// baseline and returns a fresh DocumentEvaluation. Attribute-level failures
// degrade to non-matches inside the result; only a missing baseline or a
// structurally invalid record is terminal. Cancellation mid-run still
// yields a best-effort partial report.
func (g *Engine) EvaluateDocument(ctx context.Context, doc *model.DocumentRecord) *model.DocumentEvaluation {
	out := &model.DocumentEvaluation{
		ID:         uuid.NewString(),
		DocumentID: doc.DocumentID,
		Status:     model.StatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	if err := doc.Validate(); err != nil {
		out.Status = model.StatusFailed
		out.Error = err.Error()
		out.CompletedAt = time.Now().UTC()
		return out
	}
	if !doc.HasBaseline() {
		out.Status = model.StatusNoBaseline
		out.CompletedAt = time.Now().UTC()
		zap.L().Info("no baseline for document", zap.String("document_id", doc.DocumentID))
		return out
	}

	sections := make([]model.SectionEvaluation, len(doc.Sections))
	var grp errgroup.Group
	grp.SetLimit(g.maxSections)
	for i := range doc.Sections {
		grp.Go(func() error {
			sections[i] = g.evaluateSection(ctx, doc.Sections[i])
			return nil
		})
	}
	_ = grp.Wait()

	out.Sections = sections
	for _, s := range sections {
		out.Counts.Merge(s.Counts)
	}
	out.Metrics = DeriveMetrics(out.Counts)
	out.Status = model.StatusCompleted
	if err := ctx.Err(); err != nil {
		out.Error = "evaluation interrupted, partial results: " + err.Error()
	}
	out.CompletedAt = time.Now().UTC()

	zap.L().Info("document evaluation completed",
		zap.String("evaluation_id", out.ID),
		zap.String("document_id", doc.DocumentID),
		zap.Int("sections", len(sections)),
		zap.Int("true_positive", out.Counts.TruePositive),
		zap.Int("false_positive", out.Counts.FalsePositive),
		zap.Int("false_negative", out.Counts.FalseNegative),
		zap.Duration("elapsed", out.CompletedAt.Sub(out.StartedAt)),
	)
	return out
}

func (g *Engine) evaluateSection(ctx context.Context, rec model.SectionRecord) model.SectionEvaluation {
	se := model.SectionEvaluation{SectionID: rec.SectionID, Class: rec.Class}

	var declared []model.AttributeSpec
	if cs := g.registry.ByClass(rec.Class); cs != nil {
		declared = cs.Attributes
	} else if rec.Class != "" {
		zap.L().Warn("no spec for section class, all attributes treated as discovered",
			zap.String("section_id", rec.SectionID),
			zap.String("class", rec.Class))
	}

	expected := rec.Expected
	if expected == nil {
		expected = model.ExtractedRecord{}
	}
	actual := rec.Actual
	if actual == nil {
		actual = model.ExtractedRecord{}
	}

	specs := reconcileChildren(declared, expected, actual, false)
	attrs := make([]model.AttributeEvaluation, len(specs))

	var grp errgroup.Group
	grp.SetLimit(g.maxAttrs)
	for i := range specs {
		grp.Go(func() error {
			a := g.evaluator.EvaluateAttribute(ctx, specs[i], expected[specs[i].Name], actual[specs[i].Name])
			if c, ok := rec.Confidence[a.Name]; ok {
				a.Confidence = &c
			}
			a.ConfidenceThreshold = rec.ConfidenceThreshold
			attrs[i] = a
			return nil
		})
	}
	_ = grp.Wait()

	se.Attributes = attrs
	se.Counts = FoldCounts(attrs)
	se.Metrics = DeriveMetrics(se.Counts)
	return se
}
