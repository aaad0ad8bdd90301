package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
}

var ErrNoCollection = errors.New("collection is not open")

// NewVectorDBManager opens the database at dbPath, or an in-memory one.
// Existing collections under dbPath are read eagerly, so a damaged store
// fails here.
func NewVectorDBManager(dbPath string, inMemory, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string, ef chromem.EmbeddingFunc) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// GetCollection opens an existing collection, it reports false when absent
func (m *VectorDBManager) GetCollection(collectionName string, ef chromem.EmbeddingFunc) bool {
	c := m.db.GetCollection(collectionName, ef)
	if c == nil {
		return false
	}
	m.collection = c
	return true
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return ErrNoCollection
	}
	if len(documents) == 0 {
		return nil
	}
	if err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Count returns the number of documents in the open collection
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// SearchByEmbedding returns up to nResults nearest documents. chromem
// rejects nResults above the collection size, so it is clamped here.
func (m *VectorDBManager) SearchByEmbedding(ctx context.Context, embedding []float32, nResults int) ([]chromem.Result, error) {
	if m.collection == nil {
		return nil, ErrNoCollection
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	nResults = min(nResults, m.collection.Count())
	if nResults <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       nResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection(collectionName string) error {
	if err := m.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if m.collection != nil && m.collection.Name == collectionName {
		m.collection = nil
	}
	return nil
}

// export to file
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	if m.collection == nil {
		return ErrNoCollection
	}
	if filePath == "" {
		return fmt.Errorf("export file path is required")
	}

	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", filePath).
		Bool("compress", m.compress).
		Bool("encrypted", m.encryptionKey != "").
		Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file, replacing collections of the same name
func (m *VectorDBManager) Import(ctx context.Context, filePath, collectionName string, ef chromem.EmbeddingFunc) error {
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	if !m.GetCollection(collectionName, ef) {
		return fmt.Errorf("snapshot %s has no collection %q", filePath, collectionName)
	}
	return nil
}
