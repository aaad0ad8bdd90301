package index

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/embedding"
	"groundwater-rag/internal/models"
	"groundwater-rag/internal/parser"
)

// Options describe the build the caller expects to find or produce
type Options struct {
	EmbeddingProvider string
	EmbeddingModel    string
	ChunkSize         int
	ChunkOverlap      int
}

func OptionsFromConfig(cfg *config.Config) Options {
	provider, model := embedding.Identity(&cfg.EmbedLLM)
	return Options{
		EmbeddingProvider: provider,
		EmbeddingModel:    model,
		ChunkSize:         cfg.RAG.ChunkSize,
		ChunkOverlap:      cfg.RAG.ChunkOverlap,
	}
}

func (o Options) identity() string {
	return o.EmbeddingProvider + "/" + o.EmbeddingModel
}

// VectorIndex answers similarity queries over a completed build. It is not
// modified after EnsureIndex returns, so concurrent searches need no locking.
type VectorIndex struct {
	store    Store
	embedder embeddings.Embedder
	manifest Manifest
}

// Search embeds query and returns up to k nearest chunks, most similar first
func (v *VectorIndex) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	k = min(k, v.manifest.Chunks)
	if k <= 0 {
		return nil, nil
	}
	vec, err := v.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return v.store.Search(ctx, vec, k)
}

func (v *VectorIndex) Manifest() Manifest { return v.manifest }

func (v *VectorIndex) Count() int { return v.manifest.Chunks }

// EnsureIndex loads the build recorded in store, or builds one from the PDFs
// in sourceDir when there is none. A build for another embedding model or a
// store that disagrees with its manifest is an error, never rebuilt silently.
func EnsureIndex(ctx context.Context, sourceDir string, store Store, embedder embeddings.Embedder, opts Options) (*VectorIndex, error) {
	m, err := store.LoadManifest(ctx)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return loadIndex(ctx, store, embedder, m, opts)
	}
	return buildIndex(ctx, sourceDir, store, embedder, opts)
}

func loadIndex(ctx context.Context, store Store, embedder embeddings.Embedder, m *Manifest, opts Options) (*VectorIndex, error) {
	if m.EmbeddingIdentity() != opts.identity() {
		return nil, fmt.Errorf("%w: built with %s, configured %s", ErrEmbeddingModelMismatch, m.EmbeddingIdentity(), opts.identity())
	}
	count, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if count != m.Chunks {
		return nil, fmt.Errorf("%w: store holds %d chunks, manifest says %d", ErrCorruptIndex, count, m.Chunks)
	}
	if m.ChunkSize != opts.ChunkSize || m.ChunkOverlap != opts.ChunkOverlap {
		log.Warn().
			Int("built_chunk_size", m.ChunkSize).
			Int("built_chunk_overlap", m.ChunkOverlap).
			Int("chunk_size", opts.ChunkSize).
			Int("chunk_overlap", opts.ChunkOverlap).
			Msg("Index was chunked with different parameters, keeping it")
	}

	log.Info().
		Int("chunks", m.Chunks).
		Int("documents", m.Documents).
		Str("embedding_model", m.EmbeddingIdentity()).
		Time("built_at", m.BuiltAt).
		Msg("Loaded vector index")
	return &VectorIndex{store: store, embedder: embedder, manifest: *m}, nil
}

func buildIndex(ctx context.Context, sourceDir string, store Store, embedder embeddings.Embedder, opts Options) (*VectorIndex, error) {
	start := time.Now()
	if err := store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear partial index: %w", err)
	}

	docs, err := parser.LoadDirectory(sourceDir)
	if err != nil {
		return nil, err
	}
	var pages []models.Page
	for _, doc := range docs {
		pages = append(pages, doc.Pages...)
	}
	chunks, err := parser.SplitPages(pages, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Chunked source documents")

	chunkEmbeddings, err := embedding.GenerateEmbedding(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}
	if err := store.Add(ctx, chunkEmbeddings); err != nil {
		return nil, fmt.Errorf("failed to store embeddings: %w", err)
	}

	m := &Manifest{
		Version:           ManifestVersion,
		EmbeddingProvider: opts.EmbeddingProvider,
		EmbeddingModel:    opts.EmbeddingModel,
		ChunkSize:         opts.ChunkSize,
		ChunkOverlap:      opts.ChunkOverlap,
		Documents:         len(docs),
		Chunks:            len(chunkEmbeddings),
		BuiltAt:           time.Now().UTC(),
	}
	if len(chunkEmbeddings) > 0 {
		m.Dimension = len(chunkEmbeddings[0].Embedding)
	}
	if err := store.SaveManifest(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	log.Info().
		Int("chunks", m.Chunks).
		Str("embedding_model", m.EmbeddingIdentity()).
		Dur("took", time.Since(start)).
		Msg("Built vector index")
	return &VectorIndex{store: store, embedder: embedder, manifest: *m}, nil
}
