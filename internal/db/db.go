package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"groundwater-rag/internal/config"
)

const insertBatchSize = 500

// Chunk is one embedded chunk row
type Chunk struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	Collection    string          `bun:"collection,pk"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Title         string          `bun:"title"`
	Source        string          `bun:"source"`
	PageNumber    int             `bun:"page_number"`
	ChunkID       int             `bun:"chunk_id"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Score         float64         `bun:"score,scanonly"`
}

// IndexManifest holds the serialized build manifest of one collection
type IndexManifest struct {
	bun.BaseModel `bun:"table:index_manifests,alias:m"`
	Collection    string    `bun:"collection,pk"`
	Body          string    `bun:"body,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the configured driver, "pgdriver" (default) or "pq"
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is required")
	}
	switch cfg.Driver {
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	case "pq", "postgres":
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Chunk)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*IndexManifest)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create manifest table: %w", err)
	}
	return nil
}

func StoreChunks(ctx context.Context, db *bun.DB, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += insertBatchSize {
		batch := chunks[start:min(start+insertBatchSize, len(chunks))]
		if _, err := db.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}
	return nil
}

// SearchChunks orders by cosine distance, Score is the cosine similarity
func SearchChunks(ctx context.Context, db *bun.DB, collection string, queryEmbedding []float32, limit int) ([]Chunk, error) {
	var chunks []Chunk
	vec := pgvector.NewVector(queryEmbedding)
	err := db.NewSelect().
		Model(&chunks).
		Column("collection", "id", "content", "title", "source", "page_number", "chunk_id").
		ColumnExpr("1 - (embedding <=> ?) AS score", vec).
		Where("collection = ?", collection).
		OrderExpr("embedding <=> ?", vec).
		OrderExpr("id").
		Limit(limit).
		Scan(ctx)
	return chunks, err
}

func CountChunks(ctx context.Context, db *bun.DB, collection string) (int, error) {
	return db.NewSelect().Model((*Chunk)(nil)).Where("collection = ?", collection).Count(ctx)
}

// drop every chunk and the manifest of a collection
func DeleteCollection(ctx context.Context, db *bun.DB, collection string) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*IndexManifest)(nil)).Where("collection = ?", collection).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*Chunk)(nil)).Where("collection = ?", collection).Exec(ctx)
		return err
	})
}

// LoadManifest returns the stored manifest body, ok is false when none exists
func LoadManifest(ctx context.Context, db *bun.DB, collection string) (body string, ok bool, err error) {
	m := new(IndexManifest)
	err = db.NewSelect().Model(m).Where("collection = ?", collection).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Body, true, nil
}

func SaveManifest(ctx context.Context, db *bun.DB, collection, body string) error {
	m := &IndexManifest{Collection: collection, Body: body, UpdatedAt: time.Now().UTC()}
	_, err := db.NewInsert().
		Model(m).
		On("CONFLICT (collection) DO UPDATE").
		Set("body = EXCLUDED.body").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
