package model

import "time"

// Status is the externally visible state of a document evaluation.
type Status string

const (
	// StatusNoBaseline means no expected record exists for the document.
	// Terminal; no attribute evaluation is performed.
	StatusNoBaseline Status = "NO_BASELINE"
	// StatusRunning marks an asynchronous evaluation still in progress.
	StatusRunning Status = "RUNNING"
	// StatusCompleted marks a finished evaluation. Individual attributes may
	// still carry failure reasons; completion is document-level.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks an unrecoverable error before any attribute
	// evaluation began, e.g. a malformed expected record.
	StatusFailed Status = "FAILED"
)

// AttributeEvaluation is the leaf result of comparing one attribute.
type AttributeEvaluation struct {
	Name     string `json:"name"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Matched  bool   `json:"matched"`
	// Score is always in [0,1]. Matched is derived from Score against the
	// spec's effective threshold.
	Score  float64 `json:"score"`
	Method Method  `json:"method"`
	Reason string  `json:"reason,omitempty"`
	// Discovered is true when the attribute was not declared in the
	// AttributeSpec tree.
	Discovered bool `json:"discovered,omitempty"`

	// Pass-through from the upstream extractor, never interpreted here.
	Confidence          *float64 `json:"confidence,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`

	// Children holds nested results for group attributes and for field-level
	// evaluation inside matched list items.
	Children []AttributeEvaluation `json:"children,omitempty"`

	// Rollup marks evaluations whose match status is derived from Children.
	// Rollups (group parents, matched list-item wrappers) do not contribute
	// to confusion counts; their leaves do.
	Rollup bool `json:"rollup,omitempty"`
}

// Counts is the 2x2 confusion tally underlying all derived metrics.
// A substitution (wrong value present on both sides) counts as one FP and
// one FN, the stricter convention.
type Counts struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	FalseNegative int `json:"false_negative"`
	TrueNegative  int `json:"true_negative"`
}

// Merge adds other into c. Count merging is associative and commutative, so
// partial results from parallel workers can be combined in any order.
func (c *Counts) Merge(other Counts) {
	c.TruePositive += other.TruePositive
	c.FalsePositive += other.FalsePositive
	c.FalseNegative += other.FalseNegative
	c.TrueNegative += other.TrueNegative
}

// Total returns the number of counted outcomes.
func (c Counts) Total() int {
	return c.TruePositive + c.FalsePositive + c.FalseNegative + c.TrueNegative
}

// Metrics holds the standard derived statistics. Fields are nil when their
// denominator is zero; a zero denominator is reported, never raised.
type Metrics struct {
	Precision          *float64 `json:"precision"`
	Recall             *float64 `json:"recall"`
	F1                 *float64 `json:"f1"`
	Accuracy           *float64 `json:"accuracy"`
	FalseAlarmRate     *float64 `json:"false_alarm_rate"`
	FalseDiscoveryRate *float64 `json:"false_discovery_rate"`
}

// SectionEvaluation is one section's attribute results plus its own metrics.
type SectionEvaluation struct {
	SectionID  string                `json:"section_id"`
	Class      string                `json:"class"`
	Attributes []AttributeEvaluation `json:"attributes"`
	Counts     Counts                `json:"counts"`
	Metrics    Metrics               `json:"metrics"`
}

// DocumentEvaluation is the complete result of one comparison run. It is
// created fresh per run and never partially updated.
type DocumentEvaluation struct {
	ID          string              `json:"id"`
	DocumentID  string              `json:"document_id"`
	Status      Status              `json:"status"`
	Sections    []SectionEvaluation `json:"sections"`
	Counts      Counts              `json:"counts"`
	Metrics     Metrics             `json:"metrics"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
}

// FlatRecord is one per-attribute row in the shape a downstream columnar
// reporting store expects. Persistence itself lives in internal/store.
type FlatRecord struct {
	EvaluationID        string    `json:"evaluation_id"`
	DocumentID          string    `json:"document_id"`
	SectionID           string    `json:"section_id"`
	Attribute           string    `json:"attribute"`
	Expected            string    `json:"expected"`
	Actual              string    `json:"actual"`
	Matched             bool      `json:"matched"`
	Score               float64   `json:"score"`
	Method              string    `json:"method"`
	Reason              string    `json:"reason"`
	Discovered          bool      `json:"discovered"`
	Confidence          *float64  `json:"confidence,omitempty"`
	ConfidenceThreshold *float64  `json:"confidence_threshold,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}
