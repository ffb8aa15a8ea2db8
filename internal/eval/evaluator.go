// Package eval implements the comparison engine: value normalization, the
// comparator strategies, optimal list matching, schema reconciliation, and
// confusion-count aggregation.
package eval

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/provider"
)

// Thresholds are the method-default match thresholds. A zero field falls
// back to the model package default for that method.
type Thresholds struct {
	Fuzzy    float64
	Semantic float64
	LLM      float64
	ListItem float64
}

// Evaluator compares attribute values against their baseline under a spec
// tree. It holds the injected external capabilities and carries no per-run
// state, so one instance serves concurrent evaluations.
type Evaluator struct {
	embedder   provider.EmbeddingProvider
	judge      provider.ReasoningProvider
	norm       NormalizeOptions
	thresholds Thresholds
}

// NewEvaluator builds an evaluator. embedder and judge may be nil when the
// spec tree uses no SEMANTIC or LLM methods; invoking those methods without
// a capability is a contained comparator failure, not a panic.
func NewEvaluator(embedder provider.EmbeddingProvider, judge provider.ReasoningProvider, th Thresholds) *Evaluator {
	return &Evaluator{
		embedder:   embedder,
		judge:      judge,
		norm:       DefaultNormalize,
		thresholds: th,
	}
}

// threshold resolves the match threshold for a spec: explicit spec value,
// then configured method default, then the model package default.
func (e *Evaluator) threshold(spec model.AttributeSpec) float64 {
	if spec.Threshold != nil {
		return *spec.Threshold
	}
	var cfg float64
	switch spec.Method {
	case model.MethodFuzzy:
		cfg = e.thresholds.Fuzzy
	case model.MethodSemantic:
		cfg = e.thresholds.Semantic
	case model.MethodLLM:
		cfg = e.thresholds.LLM
	case model.MethodHungarian:
		cfg = e.thresholds.ListItem
	}
	if cfg > 0 {
		return cfg
	}
	return model.DefaultThreshold(spec.Method)
}

// EvaluateAttribute produces the evaluation record for one attribute.
// Missing-side cases short-circuit before any comparator is invoked, so
// absent values never trigger external calls.
func (e *Evaluator) EvaluateAttribute(ctx context.Context, spec model.AttributeSpec, expected, actual any) model.AttributeEvaluation {
	res := model.AttributeEvaluation{
		Name:       spec.Name,
		Expected:   expected,
		Actual:     actual,
		Method:     spec.Method,
		Discovered: spec.Discovered,
	}

	expEmpty, actEmpty := isEmpty(expected), isEmpty(actual)
	switch {
	case expEmpty && actEmpty:
		res.Matched = true
		res.Score = 1.0
		res.Reason = "both values absent"
		return res
	case actEmpty:
		res.Reason = "missing extracted value"
		return res
	case expEmpty:
		res.Reason = "no baseline value"
		return res
	}

	switch spec.Type {
	case model.TypeGroup:
		return e.evaluateGroup(ctx, spec, res)
	case model.TypeList:
		return e.evaluateList(ctx, spec, res)
	default:
		return e.evaluateSimple(ctx, spec, res)
	}
}

func (e *Evaluator) evaluateSimple(ctx context.Context, spec model.AttributeSpec, res model.AttributeEvaluation) model.AttributeEvaluation {
	es, eok := scalarString(res.Expected)
	as, aok := scalarString(res.Actual)
	if !eok || !aok {
		res.Reason = "type mismatch"
		return res
	}

	th := e.threshold(spec)
	var c Comparison
	var err error
	switch spec.Method {
	case model.MethodExact:
		c = compareExact(es, as, e.norm)
	case model.MethodNumericExact:
		c = compareNumeric(es, as)
	case model.MethodFuzzy:
		c = compareFuzzy(es, as, th, e.norm)
	case model.MethodSemantic:
		c, err = e.compareSemantic(ctx, es, as, th)
	case model.MethodLLM:
		c, err = e.compareLLM(ctx, spec, es, as, th)
	default:
		res.Reason = "type mismatch: list assignment method on scalar value"
		return res
	}
	if err != nil {
		// Contained comparator failure. Siblings proceed unaffected.
		res.Reason = fmt.Sprintf("comparator failure: %v", err)
		return res
	}

	res.Matched = c.Matched
	res.Score = c.Score
	res.Reason = c.Reason
	return res
}

func (e *Evaluator) evaluateGroup(ctx context.Context, spec model.AttributeSpec, res model.AttributeEvaluation) model.AttributeEvaluation {
	em, eok := asMap(res.Expected)
	am, aok := asMap(res.Actual)
	if !eok || !aok {
		res.Reason = "type mismatch"
		return res
	}

	specs := reconcileChildren(spec.Children, em, am, spec.Discovered)
	children := make([]model.AttributeEvaluation, 0, len(specs))
	for _, cs := range specs {
		children = append(children, e.EvaluateAttribute(ctx, cs, em[cs.Name], am[cs.Name]))
	}

	// A group carries no score of its own; match status is a rollup of its
	// leaves for reporting only.
	res.Rollup = true
	res.Children = children
	res.Matched = allLeavesMatched(children)
	res.Score = meanScore(children)
	return res
}

// allLeavesMatched descends through rollups and reports whether every leaf
// matched.
func allLeavesMatched(attrs []model.AttributeEvaluation) bool {
	for _, a := range attrs {
		if a.Rollup {
			if !allLeavesMatched(a.Children) {
				return false
			}
			continue
		}
		if !a.Matched {
			return false
		}
	}
	return true
}

func meanScore(attrs []model.AttributeEvaluation) float64 {
	if len(attrs) == 0 {
		return 0
	}
	var sum float64
	for _, a := range attrs {
		sum += a.Score
	}
	return sum / float64(len(attrs))
}

// isEmpty reports whether a value counts as null/absent: nil, a blank
// string, or an empty map or list.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case model.ExtractedRecord:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// scalarString renders a scalar value for comparison. Maps and lists are
// not scalars.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case map[string]any, model.ExtractedRecord, []any:
		return "", false
	default:
		return fmt.Sprintf("%v", t), true
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case model.ExtractedRecord:
		return t, true
	default:
		return nil, false
	}
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}
