package eval

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/provider"
)

// compareLLM asks the reasoning capability for a functional-equivalence
// judgment. Values that are already equal after normalization match without
// a call. Matched is derived from the judged score against the threshold so
// spec-level thresholds apply uniformly across methods.
func (e *Evaluator) compareLLM(ctx context.Context, spec model.AttributeSpec, expected, actual string, threshold float64) (Comparison, error) {
	if c := compareExact(expected, actual, e.norm); c.Matched {
		return c, nil
	}
	if e.judge == nil {
		return Comparison{}, eris.New("eval: no reasoning capability configured")
	}

	verdict, err := e.judge.Judge(ctx, provider.JudgeRequest{
		Attribute:   spec.Name,
		Description: spec.Description,
		Expected:    expected,
		Actual:      actual,
	})
	if err != nil {
		return Comparison{}, eris.Wrap(err, "eval: equivalence judgment")
	}

	return Comparison{
		Matched: verdict.Score >= threshold,
		Score:   verdict.Score,
		Reason:  verdict.Reason,
	}, nil
}
