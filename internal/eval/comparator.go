package eval

import (
	"fmt"
	"math"

	"github.com/agext/levenshtein"
)

// numericEpsilon absorbs floating rounding when comparing parsed numbers.
const numericEpsilon = 1e-9

// Comparison is the outcome of one comparator invocation.
type Comparison struct {
	Matched bool
	Score   float64
	Reason  string
}

// compareExact normalizes both sides and compares for byte equality.
// Score is binary.
func compareExact(expected, actual string, opts NormalizeOptions) Comparison {
	if NormalizeText(expected, opts) == NormalizeText(actual, opts) {
		return Comparison{Matched: true, Score: 1.0, Reason: "exact match"}
	}
	return Comparison{Score: 0.0, Reason: "values differ"}
}

// compareNumeric parses both sides as numbers after stripping currency and
// format characters. Non-parseable values fail closed.
func compareNumeric(expected, actual string) Comparison {
	ev, err := NormalizeNumber(expected)
	if err != nil {
		return Comparison{Score: 0.0, Reason: fmt.Sprintf("expected value not numeric: %v", err)}
	}
	av, err := NormalizeNumber(actual)
	if err != nil {
		return Comparison{Score: 0.0, Reason: fmt.Sprintf("actual value not numeric: %v", err)}
	}
	if math.Abs(ev-av) <= numericEpsilon {
		return Comparison{Matched: true, Score: 1.0, Reason: "numeric match"}
	}
	return Comparison{Score: 0.0, Reason: fmt.Sprintf("numeric mismatch: %g vs %g", ev, av)}
}

// compareFuzzy computes a normalized edit-distance similarity after the same
// canonicalization as EXACT. Matched when score >= threshold.
func compareFuzzy(expected, actual string, threshold float64, opts NormalizeOptions) Comparison {
	ne := NormalizeText(expected, opts)
	na := NormalizeText(actual, opts)
	if ne == "" && na == "" {
		return Comparison{Matched: true, Score: 1.0, Reason: "both empty after normalization"}
	}

	score := levenshtein.Similarity(ne, na, nil)
	c := Comparison{
		Score:  score,
		Reason: fmt.Sprintf("similarity %.3f (threshold %.2f)", score, threshold),
	}
	c.Matched = score >= threshold
	return c
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// clamped to [0,1]. Zero-length or mismatched vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
