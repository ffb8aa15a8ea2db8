package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Flatten converts a DocumentEvaluation into per-attribute rows for a
// columnar reporting store. Nested evaluations are emitted with
// dot/bracket-joined attribute paths (e.g. "line_items[0].amount").
// Rollup entries are skipped; their leaves carry the information.
func Flatten(eval *DocumentEvaluation, ts time.Time) []FlatRecord {
	var rows []FlatRecord
	for _, sec := range eval.Sections {
		for _, attr := range sec.Attributes {
			rows = appendFlat(rows, eval, sec.SectionID, "", attr, ts)
		}
	}
	return rows
}

func appendFlat(rows []FlatRecord, eval *DocumentEvaluation, sectionID, prefix string, attr AttributeEvaluation, ts time.Time) []FlatRecord {
	name := attr.Name
	if prefix != "" {
		// List-item names carry their own brackets and attach directly
		// ("line_items[0]"); everything else joins with a dot.
		if strings.HasPrefix(attr.Name, "[") {
			name = prefix + attr.Name
		} else {
			name = prefix + "." + attr.Name
		}
	}

	if !attr.Rollup {
		rows = append(rows, FlatRecord{
			EvaluationID:        eval.ID,
			DocumentID:          eval.DocumentID,
			SectionID:           sectionID,
			Attribute:           name,
			Expected:            stringifyValue(attr.Expected),
			Actual:              stringifyValue(attr.Actual),
			Matched:             attr.Matched,
			Score:               attr.Score,
			Method:              string(attr.Method),
			Reason:              attr.Reason,
			Discovered:          attr.Discovered,
			Confidence:          attr.Confidence,
			ConfidenceThreshold: attr.ConfidenceThreshold,
			Timestamp:           ts,
		})
	}

	for _, child := range attr.Children {
		rows = appendFlat(rows, eval, sectionID, name, child, ts)
	}
	return rows
}

// stringifyValue renders an attribute value for a flat text column. Maps and
// lists are JSON-encoded so the column stays parseable.
func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return trimFloat(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func trimFloat(f float64) string {
	// Integer render only inside int64 range; the conversion is undefined
	// beyond it.
	if math.Abs(f) < 1<<63 && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
