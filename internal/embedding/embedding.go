package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/models"
)

const defaultBatchSize = 64

// NewEmbedder builds the sentence embedder named by the config. The same
// embedder must be used at build and at query time.
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded embedder config")

	var client embeddings.EmbedderClient
	switch strings.ToLower(llmConfig.Provider) {
	case "ollama", "":
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		client = llm
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		if llmConfig.TimeoutSecs > 0 {
			opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: time.Duration(llmConfig.TimeoutSecs) * time.Second}))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", llmConfig.Provider)
	}

	batchSize := llmConfig.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return embeddings.NewEmbedder(client, embeddings.WithBatchSize(batchSize))
}

// Identity names the vector space produced by the configured model
func Identity(llmConfig *config.LLMConfig) (provider, model string) {
	provider = strings.ToLower(llmConfig.Provider)
	if provider == "" {
		provider = "ollama"
	}
	return provider, llmConfig.Model
}

// GenerateEmbedding embeds every chunk in batches
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	chunkEmbeddings := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty embedding for chunk %s", chunk.ID)
		}
		chunkEmbeddings[i] = models.ChunkEmbedding{Chunk: chunk, Embedding: vectors[i]}
	}
	return chunkEmbeddings, nil
}

// EmbeddingFunc adapts the embedder to chromem collections
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}
