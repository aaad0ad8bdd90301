package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

// HashEmbedderClient is a bag-of-words embedder: every lowercase word adds
// weight to one hashed dimension. Equal texts always get equal vectors.
type HashEmbedderClient struct {
	Dim   int
	calls atomic.Int64
}

func (c *HashEmbedderClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	dim := c.Dim
	if dim <= 0 {
		dim = 64
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dim)
		// constant component keeps empty texts away from the zero vector
		vec[0] = 0.01
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[1+int(h.Sum32()%uint32(dim-1))]++
		}
		out[i] = vec
	}
	return out, nil
}

// Calls reports how many CreateEmbedding requests were made
func (c *HashEmbedderClient) Calls() int64 { return c.calls.Load() }

// NewEmbedder wraps a HashEmbedderClient in the langchaingo embedder
func NewEmbedder(t testing.TB) (*embeddings.EmbedderImpl, *HashEmbedderClient) {
	t.Helper()
	client := &HashEmbedderClient{Dim: 64}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		t.Fatalf("embedder: %v", err)
	}
	return embedder, client
}
