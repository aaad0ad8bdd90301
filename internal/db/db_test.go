package db

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"groundwater-rag/internal/config"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := os.Getenv("GROUNDWATER_TEST_DSN")
	if dsn == "" {
		t.Skip("GROUNDWATER_TEST_DSN not set")
	}
	sqldb, err := ConnectDB(&config.DatabaseConfig{DSN: dsn})
	require.NoError(t, err)
	db := NewDB(sqldb, false)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitDB(context.Background(), db))
	return db
}

func TestConnectDB_Validation(t *testing.T) {
	_, err := ConnectDB(&config.DatabaseConfig{})
	assert.Error(t, err)
	_, err = ConnectDB(&config.DatabaseConfig{DSN: "postgres://localhost/x", Driver: "mysql"})
	assert.Error(t, err)
}

func TestChunksRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	collection := fmt.Sprintf("test_%s", t.Name())
	t.Cleanup(func() { _ = DeleteCollection(context.Background(), db, collection) })
	require.NoError(t, DeleteCollection(ctx, db, collection))

	require.NoError(t, StoreChunks(ctx, db, []Chunk{
		{Collection: collection, ID: "a", Content: "groundwater aquifer", Embedding: pgvector.NewVector([]float32{1, 0, 0})},
		{Collection: collection, ID: "b", Content: "rainfall", Embedding: pgvector.NewVector([]float32{0, 1, 0})},
	}))

	n, err := CountChunks(ctx, db, collection)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := SearchChunks(ctx, db, collection, []float32{1, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.9)

	_, ok, err := LoadManifest(ctx, db, collection)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveManifest(ctx, db, collection, "version: 1"))
	require.NoError(t, SaveManifest(ctx, db, collection, "version: 2"))
	body, ok, err := LoadManifest(ctx, db, collection)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "version: 2", body)

	require.NoError(t, DeleteCollection(ctx, db, collection))
	n, err = CountChunks(ctx, db, collection)
	require.NoError(t, err)
	assert.Zero(t, n)
}
