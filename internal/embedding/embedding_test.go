package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/models"
	"groundwater-rag/internal/testutil"
)

func TestGenerateEmbedding(t *testing.T) {
	embedder, client := testutil.NewEmbedder(t)
	chunks := []models.Chunk{
		{ID: "a-p1-c1", Content: "groundwater recharge"},
		{ID: "a-p1-c2", Content: "aquifer depletion"},
	}

	out, err := GenerateEmbedding(context.Background(), embedder, chunks)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a-p1-c1", out[0].ID)
	assert.Len(t, out[0].Embedding, 64)
	assert.NotEqual(t, out[0].Embedding, out[1].Embedding)
	assert.EqualValues(t, 1, client.Calls(), "chunks are embedded in one batch")
}

func TestGenerateEmbedding_NoChunks(t *testing.T) {
	embedder, client := testutil.NewEmbedder(t)
	out, err := GenerateEmbedding(context.Background(), embedder, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, client.Calls())
}

func TestEmbeddingFunc_MatchesQueryEmbedding(t *testing.T) {
	embedder, _ := testutil.NewEmbedder(t)
	ctx := context.Background()

	fromFunc, err := EmbeddingFunc(embedder)(ctx, "What is groundwater?")
	require.NoError(t, err)
	direct, err := embedder.EmbedQuery(ctx, "What is groundwater?")
	require.NoError(t, err)
	assert.Equal(t, direct, fromFunc)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(&config.LLMConfig{Provider: "faiss", Model: "x"})
	assert.Error(t, err)
}

func TestNewEmbedder_Providers(t *testing.T) {
	e, err := NewEmbedder(&config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "all-minilm"})
	require.NoError(t, err)
	assert.NotNil(t, e)

	e, err = NewEmbedder(&config.LLMConfig{Provider: "openai", BaseURL: "http://localhost:1234/v1", Model: "text-embedding-3-small", Key: "Bearer sk-test", TimeoutSecs: 5})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestIdentity(t *testing.T) {
	p, m := Identity(&config.LLMConfig{Model: "all-minilm"})
	assert.Equal(t, "ollama", p)
	assert.Equal(t, "all-minilm", m)

	p, _ = Identity(&config.LLMConfig{Provider: "OpenAI", Model: "x"})
	assert.Equal(t, "openai", p)
}
