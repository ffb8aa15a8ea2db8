package eval

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// compareSemantic embeds both values and scores them by cosine similarity
// clamped to [0,1]. The embedding calls go through the provider gate; a
// failure here surfaces to the caller for containment.
func (e *Evaluator) compareSemantic(ctx context.Context, expected, actual string, threshold float64) (Comparison, error) {
	if e.embedder == nil {
		return Comparison{}, eris.New("eval: no embedding capability configured")
	}

	ne := NormalizeText(expected, e.norm)
	na := NormalizeText(actual, e.norm)
	if ne == na {
		return Comparison{Matched: true, Score: 1.0, Reason: "exact match"}, nil
	}

	ev, err := e.embedder.Embed(ctx, ne)
	if err != nil {
		return Comparison{}, eris.Wrap(err, "eval: embed expected value")
	}
	av, err := e.embedder.Embed(ctx, na)
	if err != nil {
		return Comparison{}, eris.Wrap(err, "eval: embed actual value")
	}

	score := cosineSimilarity(ev, av)
	return Comparison{
		Matched: score >= threshold,
		Score:   score,
		Reason:  fmt.Sprintf("cosine similarity %.3f (threshold %.2f)", score, threshold),
	}, nil
}
