package index

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/models"
)

// Store persists chunk vectors together with the build manifest
type Store interface {
	// LoadManifest returns nil without error when no complete build exists
	LoadManifest(ctx context.Context) (*Manifest, error)
	SaveManifest(ctx context.Context, m *Manifest) error
	// Reset removes every vector and the manifest
	Reset(ctx context.Context) error
	Add(ctx context.Context, chunks []models.ChunkEmbedding) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// OpenStore opens the backend selected by index.backend
func OpenStore(ctx context.Context, cfg *config.Config, ef chromem.EmbeddingFunc) (Store, error) {
	switch cfg.Index.Backend {
	case "chromem", "":
		return NewChromemStore(&cfg.Index, ef)
	case "pgvector":
		return NewPgvectorStore(ctx, &cfg.Database, cfg.Index.Collection)
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Index.Backend)
	}
}
