package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/embedding"
	"groundwater-rag/internal/models"
	"groundwater-rag/internal/testutil"
)

var testOpts = Options{
	EmbeddingProvider: "fake",
	EmbeddingModel:    "hash-64",
	ChunkSize:         1500,
	ChunkOverlap:      200,
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WritePDF(t, filepath.Join(dir, "aquifers.pdf"), "Aquifer Primer",
		"Groundwater is water stored beneath the surface in aquifers.",
		"Recharge of groundwater happens through infiltration.")
	testutil.WritePDF(t, filepath.Join(dir, "rain.pdf"), "Rainfall Report",
		"Monsoon rainfall statistics for the coastal region.")
	return dir
}

func openStore(t *testing.T, persistDir string, embedder embeddings.Embedder) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(&config.IndexConfig{PersistDir: persistDir, Collection: "groundwater"}, embedding.EmbeddingFunc(embedder))
	require.NoError(t, err)
	return store
}

func ids(hits []models.ScoredChunk) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestEnsureIndex_BuildThenLoad(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	persist := t.TempDir()
	embedder, client := testutil.NewEmbedder(t)

	built, err := EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, testOpts)
	require.NoError(t, err)
	assert.Equal(t, 3, built.Count())
	assert.Equal(t, 2, built.Manifest().Documents)
	assert.Equal(t, 64, built.Manifest().Dimension)
	assert.Equal(t, "fake/hash-64", built.Manifest().EmbeddingIdentity())

	first, err := built.Search(ctx, "What is groundwater?", 5)
	require.NoError(t, err)
	require.Len(t, first, 3, "k is clamped to the chunk count")
	assert.Equal(t, "Aquifer Primer", first[0].Title)
	assert.Equal(t, "Rainfall Report", first[2].Title)
	assert.GreaterOrEqual(t, first[0].Score, first[1].Score)

	callsAfterBuild := client.Calls()
	_, err = os.Stat(filepath.Join(persist, manifestFile))
	require.NoError(t, err)

	loaded, err := EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, testOpts)
	require.NoError(t, err)
	assert.Equal(t, callsAfterBuild, client.Calls(), "loading does not re-embed the corpus")
	assert.Equal(t, built.Manifest().BuiltAt.Unix(), loaded.Manifest().BuiltAt.Unix())

	second, err := loaded.Search(ctx, "What is groundwater?", 5)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, first[0].PageNumber, second[0].PageNumber)
	assert.Equal(t, 1, second[0].ChunkID)
	assert.Equal(t, filepath.Join(corpus, "aquifers.pdf"), second[0].Source)
}

func TestSearch_Deterministic(t *testing.T) {
	ctx := context.Background()
	embedder, _ := testutil.NewEmbedder(t)
	idx, err := EnsureIndex(ctx, writeCorpus(t), openStore(t, "", embedder), embedder, testOpts)
	require.NoError(t, err)

	a, err := idx.Search(ctx, "groundwater recharge", 2)
	require.NoError(t, err)
	b, err := idx.Search(ctx, "groundwater recharge", 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 2)
}

func TestEnsureIndex_ModelMismatch(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	persist := t.TempDir()
	embedder, _ := testutil.NewEmbedder(t)

	_, err := EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, testOpts)
	require.NoError(t, err)

	other := testOpts
	other.EmbeddingModel = "nomic-embed-text"
	_, err = EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, other)
	assert.ErrorIs(t, err, ErrEmbeddingModelMismatch)
}

func TestEnsureIndex_ChunkParamsOnlyWarn(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	persist := t.TempDir()
	embedder, _ := testutil.NewEmbedder(t)

	_, err := EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, testOpts)
	require.NoError(t, err)

	other := testOpts
	other.ChunkSize, other.ChunkOverlap = 1000, 100
	idx, err := EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, other)
	require.NoError(t, err)
	assert.Equal(t, 1500, idx.Manifest().ChunkSize)
}

func TestEnsureIndex_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	embedder, client := testutil.NewEmbedder(t)

	idx, err := EnsureIndex(ctx, filepath.Join(t.TempDir(), "missing"), openStore(t, "", embedder), embedder, testOpts)
	require.NoError(t, err)
	assert.Zero(t, idx.Count())

	hits, err := idx.Search(ctx, "What is groundwater?", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, client.Calls())
}

func TestEnsureIndex_CorruptManifest(t *testing.T) {
	persist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(persist, manifestFile), []byte("version: [broken"), 0o644))
	embedder, _ := testutil.NewEmbedder(t)

	_, err := EnsureIndex(context.Background(), writeCorpus(t), openStore(t, persist, embedder), embedder, testOpts)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestEnsureIndex_CountMismatch(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	persist := t.TempDir()
	embedder, _ := testutil.NewEmbedder(t)

	idx, err := EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, testOpts)
	require.NoError(t, err)

	m := idx.Manifest()
	m.Chunks += 4
	require.NoError(t, writeManifestFile(filepath.Join(persist, manifestFile), &m))

	_, err = EnsureIndex(ctx, corpus, openStore(t, persist, embedder), embedder, testOpts)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestEnsureIndex_RebuildsPartialBuild(t *testing.T) {
	ctx := context.Background()
	persist := t.TempDir()
	embedder, _ := testutil.NewEmbedder(t)

	// vectors without a manifest are left over from an interrupted build
	store := openStore(t, persist, embedder)
	require.NoError(t, store.Add(ctx, []models.ChunkEmbedding{{
		Chunk:     models.Chunk{ID: "stale", Content: "stale groundwater text"},
		Embedding: []float32{1, 0, 0},
	}}))

	idx, err := EnsureIndex(ctx, writeCorpus(t), openStore(t, persist, embedder), embedder, testOpts)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(ctx, "stale groundwater text", 5)
	require.NoError(t, err)
	assert.NotContains(t, ids(hits), "stale")
}

func TestChromemStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	corpus := writeCorpus(t)
	embedder, _ := testutil.NewEmbedder(t)

	src := openStore(t, t.TempDir(), embedder)
	built, err := EnsureIndex(ctx, corpus, src, embedder, testOpts)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "groundwater.gob")
	require.NoError(t, src.Export(ctx, file))

	dstDir := t.TempDir()
	dst := openStore(t, dstDir, embedder)
	require.NoError(t, dst.Import(ctx, file))

	imported, err := EnsureIndex(ctx, filepath.Join(t.TempDir(), "no-corpus"), openStore(t, dstDir, embedder), embedder, testOpts)
	require.NoError(t, err)
	assert.Equal(t, built.Count(), imported.Count())

	want, err := built.Search(ctx, "groundwater aquifers", 3)
	require.NoError(t, err)
	got, err := imported.Search(ctx, "groundwater aquifers", 3)
	require.NoError(t, err)
	assert.Equal(t, ids(want), ids(got))
}

func TestChromemStore_ExportWithoutBuild(t *testing.T) {
	embedder, _ := testutil.NewEmbedder(t)
	store := openStore(t, t.TempDir(), embedder)
	assert.Error(t, store.Export(context.Background(), filepath.Join(t.TempDir(), "x.gob")))
}
