// Package testutil provides deterministic fakes shared by package
// tests: an offline embedding function and a scripted language model.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	chromem "github.com/philippgille/chromem-go"
)

// HashEmbeddingFunc returns a deterministic, offline EmbeddingFunc.
// Each lowercase token is hashed into a fixed-dimension bag-of-words
// vector, so texts sharing words score higher cosine similarity than
// unrelated texts. Good enough to exercise ranking and filtering
// without a real embedding provider.
func HashEmbeddingFunc(dim int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			tok = strings.Trim(tok, ".,:;!?'\"()[]")
			if tok == "" {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[h.Sum32()%uint32(dim)]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			// Avoid a zero vector for blank input.
			vec[0] = 1
			norm = 1
		}
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
		return vec, nil
	}
}

// HashEmbedder wraps HashEmbeddingFunc in the Genkit ai.Embedder
// interface for code paths that take the embedder rather than the
// chromem adapter.
type HashEmbedder struct {
	Dim int
}

func (e *HashEmbedder) Name() string { return "testutil/hash-embedder" }

func (e *HashEmbedder) Register(r api.Registry) {}

func (e *HashEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	dim := e.Dim
	if dim == 0 {
		dim = 64
	}
	fn := HashEmbeddingFunc(dim)

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var b strings.Builder
		for _, part := range doc.Content {
			b.WriteString(part.Text)
		}
		vec, err := fn(ctx, b.String())
		if err != nil {
			return nil, err
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}
