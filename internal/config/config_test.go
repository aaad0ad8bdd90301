package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1500, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "groundwater", cfg.RAG.DomainKeyword)
	assert.Equal(t, "chromem", cfg.Index.Backend)
	assert.Equal(t, "llama3-8b-8192", cfg.InferenceLLM.Model)
	assert.Zero(t, cfg.InferenceLLM.RequestsPerSecond, "completions are not throttled by default")
	assert.Equal(t, 8, cfg.InferenceLLM.MaxConns)
	assert.Equal(t, []string{"http://127.0.0.1:5501"}, cfg.Server.CORSOrigins)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunk_size: 1000
  chunk_overlap: 100
index:
  persist_dir: /tmp/gw-index
embed_llm:
  provider: openai
  model: text-embedding-3-small
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK, "unset keys keep their defaults")
	assert.Equal(t, "/tmp/gw-index", cfg.Index.PersistDir)
	assert.Equal(t, "openai", cfg.EmbedLLM.Provider)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("RAG_TOP_K", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gsk_test", cfg.InferenceLLM.Key)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.NoError(t, cfg.RequireInferenceKey())
}

func TestRequireInferenceKey(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.RequireInferenceKey(), ErrMissingAPIKey)

	cfg.InferenceLLM.Key = "   "
	assert.ErrorIs(t, cfg.RequireInferenceKey(), ErrMissingAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }},
		{"negative overlap", func(c *Config) { c.RAG.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }},
		{"blank keyword", func(c *Config) { c.RAG.DomainKeyword = " " }},
		{"unknown backend", func(c *Config) { c.Index.Backend = "faiss" }},
		{"pgvector without dsn", func(c *Config) { c.Index.Backend = "pgvector" }},
		{"missing embedding model", func(c *Config) { c.EmbedLLM.Model = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "rag: [unterminated")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
