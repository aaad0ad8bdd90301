package index

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/db"
	"groundwater-rag/internal/models"
)

// PgvectorStore keeps vectors in Postgres through bun and pgvector
type PgvectorStore struct {
	db         *bun.DB
	collection string
}

func NewPgvectorStore(ctx context.Context, cfg *config.DatabaseConfig, collection string) (*PgvectorStore, error) {
	sqldb, err := db.ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	bunDB := db.NewDB(sqldb, cfg.Debug)
	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("%w: database unreachable: %v", ErrCorruptIndex, err)
	}
	if err := db.InitDB(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	return &PgvectorStore{db: bunDB, collection: collection}, nil
}

func (s *PgvectorStore) LoadManifest(ctx context.Context) (*Manifest, error) {
	body, ok, err := db.LoadManifest(ctx, s.db, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if !ok {
		return nil, nil
	}
	return decodeManifest([]byte(body))
}

func (s *PgvectorStore) SaveManifest(ctx context.Context, m *Manifest) error {
	body, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return db.SaveManifest(ctx, s.db, s.collection, string(body))
}

func (s *PgvectorStore) Reset(ctx context.Context) error {
	return db.DeleteCollection(ctx, s.db, s.collection)
}

func (s *PgvectorStore) Add(ctx context.Context, chunks []models.ChunkEmbedding) error {
	rows := make([]db.Chunk, len(chunks))
	for i, ch := range chunks {
		rows[i] = db.Chunk{
			Collection: s.collection,
			ID:         ch.ID,
			Content:    ch.Content,
			Title:      ch.Title,
			Source:     ch.Source,
			PageNumber: ch.PageNumber,
			ChunkID:    ch.ChunkID,
			Embedding:  pgvector.NewVector(ch.Embedding),
		}
	}
	return db.StoreChunks(ctx, s.db, rows)
}

func (s *PgvectorStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := db.SearchChunks(ctx, s.db, s.collection, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	hits := make([]models.ScoredChunk, len(rows))
	for i, r := range rows {
		hits[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				ID:         r.ID,
				Content:    r.Content,
				Title:      r.Title,
				Source:     r.Source,
				PageNumber: r.PageNumber,
				ChunkID:    r.ChunkID,
			},
			Score: float32(r.Score),
		}
	}
	return hits, nil
}

func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	return db.CountChunks(ctx, s.db, s.collection)
}

func (s *PgvectorStore) Close() error {
	return s.db.Close()
}
