package vectorstore

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// NewEmbeddingFunc adapts a Genkit ai.Embedder to the chromem-go
// EmbeddingFunc signature used by both indexes.
//
// chromem-go normalizes vectors itself, so no manual normalization is
// needed here.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{
				ai.DocumentFromText(text, nil),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		return resp.Embeddings[0].Embedding, nil
	}
}
