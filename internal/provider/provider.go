// Package provider defines the external capability interfaces the engine
// depends on (vector embeddings and free-text reasoning judgments) and the
// production adapters over their API clients. The engine never talks to a
// network client directly; everything goes through these interfaces so tests
// can substitute deterministic fakes.
package provider

import "context"

// EmbeddingProvider returns a fixed-dimension vector for a text string.
// Used only by the SEMANTIC comparator.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// JudgeRequest carries both sides of a comparison plus the attribute
// description to the reasoning capability.
type JudgeRequest struct {
	Attribute   string
	Description string
	Expected    string
	Actual      string
	// Options optionally constrains the judgment to candidate answers.
	Options []string
}

// Judgment is the structured functional-equivalence verdict.
type Judgment struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// ReasoningProvider produces a functional-equivalence judgment for a value
// pair. Used by the LLM comparator and as the default for discovered
// attributes.
type ReasoningProvider interface {
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}
