package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"groundwater-rag/internal/chromemdb"
	"groundwater-rag/internal/config"
	"groundwater-rag/internal/models"
)

const (
	chromemSubdir = "chromem"
	manifestFile  = "manifest.yaml"

	metaTitle   = "title"
	metaSource  = "source"
	metaPage    = "page"
	metaChunkID = "chunk_id"
)

// ChromemStore keeps vectors in a chromem-go collection and the manifest
// in a yaml file next to it. Without a persist dir everything stays in memory.
type ChromemStore struct {
	mgr        *chromemdb.VectorDBManager
	dir        string
	collection string
	ef         chromem.EmbeddingFunc

	manifest *Manifest
}

// NewChromemStore opens or creates the collection under cfg.PersistDir
func NewChromemStore(cfg *config.IndexConfig, ef chromem.EmbeddingFunc) (*ChromemStore, error) {
	inMemory := cfg.PersistDir == ""
	dbPath := ""
	if !inMemory {
		dbPath = filepath.Join(cfg.PersistDir, chromemSubdir)
	}
	mgr, err := chromemdb.NewVectorDBManager(dbPath, inMemory, cfg.Compress, cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}

	s := &ChromemStore{mgr: mgr, dir: cfg.PersistDir, collection: cfg.Collection, ef: ef}
	if !mgr.GetCollection(s.collection, ef) {
		if _, err := mgr.GetOrCreateCollection(s.collection, ef); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewMemoryStore is a non-persistent store
func NewMemoryStore(collection string, ef chromem.EmbeddingFunc) (*ChromemStore, error) {
	return NewChromemStore(&config.IndexConfig{Collection: collection}, ef)
}

func (s *ChromemStore) manifestPath() string {
	return filepath.Join(s.dir, manifestFile)
}

func (s *ChromemStore) LoadManifest(ctx context.Context) (*Manifest, error) {
	if s.dir == "" {
		return s.manifest, nil
	}
	return readManifestFile(s.manifestPath())
}

func (s *ChromemStore) SaveManifest(ctx context.Context, m *Manifest) error {
	if s.dir == "" {
		cp := *m
		s.manifest = &cp
		return nil
	}
	return writeManifestFile(s.manifestPath(), m)
}

func (s *ChromemStore) Reset(ctx context.Context) error {
	// manifest first, a crash after this point leaves an incomplete build
	s.manifest = nil
	if s.dir != "" {
		if err := os.Remove(s.manifestPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove manifest: %w", err)
		}
	}
	if err := s.mgr.DeleteCollection(s.collection); err != nil {
		return err
	}
	_, err := s.mgr.GetOrCreateCollection(s.collection, s.ef)
	return err
}

func (s *ChromemStore) Add(ctx context.Context, chunks []models.ChunkEmbedding) error {
	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:      ch.ID,
			Content: ch.Content,
			Metadata: map[string]string{
				metaTitle:   ch.Title,
				metaSource:  ch.Source,
				metaPage:    strconv.Itoa(ch.PageNumber),
				metaChunkID: strconv.Itoa(ch.ChunkID),
			},
			Embedding: ch.Embedding,
		}
	}
	return s.mgr.CreateDocs(ctx, docs)
}

func (s *ChromemStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	results, err := s.mgr.SearchByEmbedding(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	hits := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[metaPage])
		chunkID, _ := strconv.Atoi(r.Metadata[metaChunkID])
		hits = append(hits, models.ScoredChunk{
			Chunk: models.Chunk{
				ID:         r.ID,
				Content:    r.Content,
				Title:      r.Metadata[metaTitle],
				Source:     r.Metadata[metaSource],
				PageNumber: page,
				ChunkID:    chunkID,
			},
			Score: r.Similarity,
		})
	}
	return hits, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.mgr.Count(), nil
}

func (s *ChromemStore) Close() error { return nil }

func snapshotManifestPath(file string) string {
	return file + ".manifest.yaml"
}

// Export writes the collection to file and the manifest to a sidecar file
func (s *ChromemStore) Export(ctx context.Context, file string) error {
	m, err := s.LoadManifest(ctx)
	if err != nil {
		return err
	}
	if m == nil {
		return errors.New("index has no completed build to export")
	}
	if err := s.mgr.Export(ctx, file); err != nil {
		return err
	}
	if err := writeManifestFile(snapshotManifestPath(file), m); err != nil {
		return err
	}
	log.Info().Str("file", file).Int("chunks", m.Chunks).Msg("Exported index snapshot")
	return nil
}

// Import replaces the collection with the snapshot in file
func (s *ChromemStore) Import(ctx context.Context, file string) error {
	m, err := readManifestFile(snapshotManifestPath(file))
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("snapshot manifest %s not found", snapshotManifestPath(file))
	}
	if err := s.Reset(ctx); err != nil {
		return err
	}
	if err := s.mgr.Import(ctx, file, s.collection, s.ef); err != nil {
		return err
	}
	if n := s.mgr.Count(); n != m.Chunks {
		return fmt.Errorf("%w: snapshot holds %d chunks, manifest says %d", ErrCorruptIndex, n, m.Chunks)
	}
	if err := s.SaveManifest(ctx, m); err != nil {
		return err
	}
	log.Info().Str("file", file).Int("chunks", m.Chunks).Msg("Imported index snapshot")
	return nil
}
