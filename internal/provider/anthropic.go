package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extraction-eval/pkg/anthropic"
)

const judgeSystemPrompt = `You are a strict data-quality judge. You compare an extracted value
against a trusted expected value for a named attribute and decide whether they
are functionally equivalent. Formatting, casing, abbreviations, and synonymous
phrasings that preserve meaning count as equivalent. Different facts do not.

Respond with ONLY a JSON object:
{"matched": true|false, "score": 0.0-1.0, "reason": "one sentence"}

The score reflects equivalence confidence, not string similarity.`

// AnthropicJudge adapts the Anthropic messages client to ReasoningProvider,
// routing every call through a Gate.
type AnthropicJudge struct {
	client    anthropic.Client
	gate      *Gate
	model     string
	maxTokens int64
}

// NewAnthropicJudge wraps an Anthropic client with gated access.
func NewAnthropicJudge(client anthropic.Client, gate *Gate, model string, maxTokens int64) *AnthropicJudge {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicJudge{client: client, gate: gate, model: model, maxTokens: maxTokens}
}

// Judge asks the model for a functional-equivalence verdict on a value pair.
func (j *AnthropicJudge) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	temp := 0.0
	resp, err := Call(ctx, j.gate, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return j.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       j.model,
			MaxTokens:   j.maxTokens,
			System:      judgeSystemPrompt,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: buildJudgePrompt(req)},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "provider: judgment call")
	}
	resp.Usage.LogCost(j.model, "judge")

	verdict, err := parseJudgment(resp.Text())
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

func buildJudgePrompt(req JudgeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attribute: %s\n", req.Attribute)
	if req.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.Description)
	}
	if len(req.Options) > 0 {
		fmt.Fprintf(&b, "Allowed values: %s\n", strings.Join(req.Options, ", "))
	}
	fmt.Fprintf(&b, "\nExpected value:\n%s\n", req.Expected)
	fmt.Fprintf(&b, "\nExtracted value:\n%s\n", req.Actual)
	b.WriteString("\nAre these functionally equivalent?")
	return b.String()
}

func parseJudgment(text string) (*Judgment, error) {
	cleaned := cleanJSON(text)

	var verdict Judgment
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return nil, eris.Wrapf(err, "provider: parse judgment %q", truncate(text, 120))
	}
	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 1 {
		verdict.Score = 1
	}
	return &verdict, nil
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
