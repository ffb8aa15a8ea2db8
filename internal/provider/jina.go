package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extraction-eval/pkg/jina"
)

// JinaEmbedder adapts the Jina embeddings client to EmbeddingProvider,
// routing every call through a Gate.
type JinaEmbedder struct {
	client jina.Client
	gate   *Gate
}

// NewJinaEmbedder wraps a Jina client with gated access.
func NewJinaEmbedder(client jina.Client, gate *Gate) *JinaEmbedder {
	return &JinaEmbedder{client: client, gate: gate}
}

// Embed returns the vector for a single text.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := Call(ctx, e.gate, func(ctx context.Context) (*jina.EmbedResponse, error) {
		return e.client.Embed(ctx, []string{text})
	})
	if err != nil {
		return nil, eris.Wrap(err, "provider: embed text")
	}
	if len(resp.Data) == 0 {
		return nil, eris.New("provider: embeddings response has no vectors")
	}
	return resp.Data[0].Embedding, nil
}
