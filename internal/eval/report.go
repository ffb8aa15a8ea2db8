package eval

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/extraction-eval/internal/model"
)

// RenderMarkdown produces the human-readable discrepancy report for a
// completed evaluation. It is a pure rendering of the structured result:
// one row per leaf attribute plus a metrics summary per section and for the
// document.
func RenderMarkdown(ev *model.DocumentEvaluation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Evaluation Report: %s\n\n", ev.DocumentID)
	fmt.Fprintf(&b, "- Status: %s\n", ev.Status)
	fmt.Fprintf(&b, "- Evaluation ID: %s\n", ev.ID)
	if ev.Error != "" {
		fmt.Fprintf(&b, "- Note: %s\n", ev.Error)
	}
	b.WriteString("\n")

	if ev.Status == model.StatusNoBaseline || ev.Status == model.StatusFailed {
		return b.String()
	}

	for _, s := range ev.Sections {
		fmt.Fprintf(&b, "## Section %s (%s)\n\n", s.SectionID, s.Class)
		b.WriteString("| Attribute | Expected | Actual | Match | Score | Method | Reason |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		writeRows(&b, s.Attributes, "")
		b.WriteString("\n")
		writeMetrics(&b, s.Counts, s.Metrics)
	}

	b.WriteString("## Document Summary\n\n")
	writeMetrics(&b, ev.Counts, ev.Metrics)
	return b.String()
}

func writeRows(b *strings.Builder, attrs []model.AttributeEvaluation, prefix string) {
	for _, a := range attrs {
		name := joinPath(prefix, a.Name)
		if a.Rollup {
			writeRows(b, a.Children, name)
			continue
		}

		indicator := "✗"
		if a.Matched {
			indicator = "✓"
		}
		if a.Discovered {
			name += " *"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %.2f | %s | %s |\n",
			cell(name),
			cell(displayValue(a.Expected)),
			cell(displayValue(a.Actual)),
			indicator,
			a.Score,
			a.Method,
			cell(a.Reason),
		)
	}
}

func writeMetrics(b *strings.Builder, c model.Counts, m model.Metrics) {
	fmt.Fprintf(b, "- Counts: TP=%d FP=%d FN=%d TN=%d\n",
		c.TruePositive, c.FalsePositive, c.FalseNegative, c.TrueNegative)
	fmt.Fprintf(b, "- Precision: %s\n", fmtMetric(m.Precision))
	fmt.Fprintf(b, "- Recall: %s\n", fmtMetric(m.Recall))
	fmt.Fprintf(b, "- F1: %s\n", fmtMetric(m.F1))
	fmt.Fprintf(b, "- Accuracy: %s", fmtMetric(m.Accuracy))
	if m.Accuracy != nil {
		fmt.Fprintf(b, " (%s)", qualityBand(*m.Accuracy))
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "- False alarm rate: %s\n", fmtMetric(m.FalseAlarmRate))
	fmt.Fprintf(b, "- False discovery rate: %s\n\n", fmtMetric(m.FalseDiscoveryRate))
}

// qualityBand maps accuracy to the qualitative rating shown in summaries.
func qualityBand(accuracy float64) string {
	switch {
	case accuracy >= 0.95:
		return "excellent"
	case accuracy >= 0.85:
		return "good"
	case accuracy >= 0.70:
		return "fair"
	default:
		return "poor"
	}
}

func fmtMetric(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, model.ExtractedRecord, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	default:
		s, _ := scalarString(v)
		return s
	}
}

// joinPath builds a dot path; list-item names carry their own brackets and
// attach to the parent directly ("line_items[0]").
func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if strings.HasPrefix(name, "[") {
		return prefix + name
	}
	return prefix + "." + name
}

// cell escapes characters that would break a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
