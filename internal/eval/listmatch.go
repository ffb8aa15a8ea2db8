package eval

import (
	"context"
	"fmt"

	"github.com/sells-group/extraction-eval/internal/model"
)

// evaluateList resolves a list-typed attribute: score every expected/actual
// item pair, solve the optimal one-to-one assignment, then recurse into the
// item specs for each accepted pair. Unmatched expected items are misses,
// unmatched actual items are false alarms, and an assignment scoring below
// the item threshold is a substitution (both at once).
func (e *Evaluator) evaluateList(ctx context.Context, spec model.AttributeSpec, res model.AttributeEvaluation) model.AttributeEvaluation {
	el, eok := asList(res.Expected)
	al, aok := asList(res.Actual)
	if !eok || !aok {
		res.Reason = "type mismatch"
		return res
	}

	th := e.threshold(spec)
	scores := e.pairScores(spec, el, al)

	// Pad with zero scores so surplus items pair with nothing real, then
	// minimize total (1 - score).
	k := len(el)
	if len(al) > k {
		k = len(al)
	}
	padded := padSquare(scores, len(el), len(al))
	cost := make([][]float64, k)
	for i := range cost {
		cost[i] = make([]float64, k)
		for j := range cost[i] {
			cost[i][j] = 1 - padded[i][j]
		}
	}
	assign := solveAssignment(cost)

	// Accept only assignments at or above the item threshold. A rejected
	// assignment decomposes into a miss on the expected side and a false
	// alarm on the actual side, same as the surplus items padding absorbed.
	usedActual := make([]bool, len(al))
	pairedWith := make([]int, len(el))
	bestScore := make([]float64, len(el))
	for i := range pairedWith {
		pairedWith[i] = -1
	}
	for i, j := range assign {
		if i >= len(el) || j >= len(al) {
			continue
		}
		bestScore[i] = scores[i][j]
		if scores[i][j] >= th {
			pairedWith[i] = j
			usedActual[j] = true
		}
	}

	var matches, total int
	children := make([]model.AttributeEvaluation, 0, k)
	for i, exp := range el {
		name := fmt.Sprintf("[%d]", i)
		j := pairedWith[i]
		if j < 0 {
			reason := "unmatched expected item"
			if bestScore[i] > 0 {
				reason = fmt.Sprintf("unmatched expected item (best assignment scored %.3f, below threshold %.2f)", bestScore[i], th)
			}
			children = append(children, model.AttributeEvaluation{
				Name:       name,
				Expected:   exp,
				Method:     spec.Method,
				Reason:     reason,
				Discovered: spec.Discovered,
			})
		} else {
			children = append(children, e.evaluateItem(ctx, spec, name, exp, al[j], scores[i][j]))
			matches++
		}
		total++
	}
	for j, act := range al {
		if usedActual[j] {
			continue
		}
		children = append(children, model.AttributeEvaluation{
			Name:       fmt.Sprintf("[+%d]", j),
			Actual:     act,
			Method:     spec.Method,
			Reason:     "unmatched extracted item",
			Discovered: spec.Discovered,
		})
		total++
	}

	res.Rollup = true
	res.Children = children
	res.Matched = allLeavesMatched(children)
	if total > 0 {
		res.Score = float64(matches) / float64(total)
	}
	res.Reason = fmt.Sprintf("%d of %d expected items matched", matches, len(el))
	return res
}

// evaluateItem produces the result for one accepted item pair. Structured
// items recurse into the list's child specs; scalar items are leaves scored
// by the assignment itself.
func (e *Evaluator) evaluateItem(ctx context.Context, spec model.AttributeSpec, name string, exp, act any, pairScore float64) model.AttributeEvaluation {
	em, eok := asMap(exp)
	am, aok := asMap(act)
	if !eok || !aok {
		return model.AttributeEvaluation{
			Name:       name,
			Expected:   exp,
			Actual:     act,
			Matched:    true,
			Score:      pairScore,
			Method:     spec.Method,
			Reason:     fmt.Sprintf("matched with score %.3f", pairScore),
			Discovered: spec.Discovered,
		}
	}

	specs := reconcileChildren(spec.Children, em, am, spec.Discovered)
	children := make([]model.AttributeEvaluation, 0, len(specs))
	for _, cs := range specs {
		children = append(children, e.EvaluateAttribute(ctx, cs, em[cs.Name], am[cs.Name]))
	}

	return model.AttributeEvaluation{
		Name:       name,
		Expected:   exp,
		Actual:     act,
		Matched:    allLeavesMatched(children),
		Score:      meanScore(children),
		Method:     spec.Method,
		Children:   children,
		Rollup:     true,
		Discovered: spec.Discovered,
	}
}

// pairScores builds the N×M assignment matrix. Only local comparators feed
// the matrix; fields configured for SEMANTIC or LLM fall back to fuzzy
// similarity here so candidate pairing never makes external calls. The
// accepted pairs still get their configured comparators during field-level
// recursion.
func (e *Evaluator) pairScores(spec model.AttributeSpec, el, al []any) [][]float64 {
	scores := make([][]float64, len(el))
	for i := range el {
		scores[i] = make([]float64, len(al))
		for j := range al {
			scores[i][j] = e.itemPairScore(spec, el[i], al[j])
		}
	}
	return scores
}

func (e *Evaluator) itemPairScore(spec model.AttributeSpec, exp, act any) float64 {
	em, eok := asMap(exp)
	am, aok := asMap(act)
	if !eok || !aok {
		es, sok := scalarString(exp)
		as, aok2 := scalarString(act)
		if !sok || !aok2 {
			return 0
		}
		return compareFuzzy(es, as, 0, e.norm).Score
	}

	if spec.MatchField != "" {
		return e.fieldScore(em[spec.MatchField], am[spec.MatchField], spec.Child(spec.MatchField))
	}

	// No designated key field: average across declared simple children, or
	// across the union of item keys when nothing is declared.
	var sum float64
	var n int
	if len(spec.Children) > 0 {
		for i := range spec.Children {
			cs := &spec.Children[i]
			if cs.Type != model.TypeSimple {
				continue
			}
			sum += e.fieldScore(em[cs.Name], am[cs.Name], cs)
			n++
		}
	} else {
		seen := make(map[string]bool)
		for _, m := range []map[string]any{em, am} {
			for k := range m {
				if seen[k] {
					continue
				}
				seen[k] = true
				sum += e.fieldScore(em[k], am[k], nil)
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (e *Evaluator) fieldScore(ev, av any, cs *model.AttributeSpec) float64 {
	if isEmpty(ev) && isEmpty(av) {
		return 1
	}
	if isEmpty(ev) || isEmpty(av) {
		return 0
	}
	es, eok := scalarString(ev)
	as, aok := scalarString(av)
	if !eok || !aok {
		return 0
	}

	method := model.MethodExact
	if cs != nil {
		method = cs.Method
	}
	switch method {
	case model.MethodNumericExact:
		return compareNumeric(es, as).Score
	case model.MethodExact:
		return compareExact(es, as, e.norm).Score
	default:
		return compareFuzzy(es, as, 0, e.norm).Score
	}
}
