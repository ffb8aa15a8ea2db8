package eval

import "github.com/sells-group/extraction-eval/internal/model"

// FoldCounts tallies confusion counts over evaluation leaves. Rollup nodes
// (groups, matched list items) contribute their leaves, never themselves.
// The fold is associative and commutative, so partial counts from parallel
// workers merge in any order.
func FoldCounts(attrs []model.AttributeEvaluation) model.Counts {
	var c model.Counts
	for _, a := range attrs {
		if a.Rollup {
			c.Merge(FoldCounts(a.Children))
			continue
		}
		c.Merge(outcomeOf(a))
	}
	return c
}

// outcomeOf classifies one leaf. Presence is re-derived from the recorded
// values rather than trusted from the matched flag, so a substitution (both
// sides present, no match) counts as one false positive and one false
// negative, the stricter convention.
func outcomeOf(a model.AttributeEvaluation) model.Counts {
	expEmpty, actEmpty := isEmpty(a.Expected), isEmpty(a.Actual)
	switch {
	case expEmpty && actEmpty:
		return model.Counts{TrueNegative: 1}
	case actEmpty:
		return model.Counts{FalseNegative: 1}
	case expEmpty:
		return model.Counts{FalsePositive: 1}
	case a.Matched:
		return model.Counts{TruePositive: 1}
	default:
		return model.Counts{FalsePositive: 1, FalseNegative: 1}
	}
}

// DeriveMetrics computes the standard statistics from confusion counts.
// Zero-denominator metrics stay nil. F1 is 0 when precision and recall are
// both defined but sum to zero.
func DeriveMetrics(c model.Counts) model.Metrics {
	m := model.Metrics{
		Precision:          ratio(c.TruePositive, c.TruePositive+c.FalsePositive),
		Recall:             ratio(c.TruePositive, c.TruePositive+c.FalseNegative),
		Accuracy:           ratio(c.TruePositive+c.TrueNegative, c.Total()),
		FalseAlarmRate:     ratio(c.FalsePositive, c.FalsePositive+c.TrueNegative),
		FalseDiscoveryRate: ratio(c.FalsePositive, c.FalsePositive+c.TruePositive),
	}
	if m.Precision != nil && m.Recall != nil {
		f1 := 0.0
		if *m.Precision+*m.Recall > 0 {
			f1 = 2 * *m.Precision * *m.Recall / (*m.Precision + *m.Recall)
		}
		m.F1 = &f1
	}
	return m
}

func ratio(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}
