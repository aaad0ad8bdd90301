package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingAPIKey = errors.New("inference api key is required - set GROQ_API_KEY or inference_llm.key")

type Config struct {
	Server       ServerConfig    `yaml:"server"`
	Corpus       CorpusConfig    `yaml:"corpus"`
	Index        IndexConfig     `yaml:"index"`
	RAG          RAGConfig       `yaml:"rag"`
	EmbedLLM     LLMConfig       `yaml:"embed_llm"`
	InferenceLLM LLMConfig       `yaml:"inference_llm"`
	Database     DatabaseConfig  `yaml:"database"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Log          LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type CorpusConfig struct {
	Dir string `yaml:"dir"`
}

// IndexConfig selects the vector index backend and where it is persisted
type IndexConfig struct {
	Backend       string `yaml:"backend"` // "chromem" or "pgvector"
	PersistDir    string `yaml:"persist_dir"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	TopK          int    `yaml:"top_k"`
	DomainKeyword string `yaml:"domain_keyword"`
	PersonaFile   string `yaml:"persona_file"`
}

type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Key               string  `yaml:"key"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxConns          int     `yaml:"max_conns"`
	BatchSize         int     `yaml:"batch_size"`
}

type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"` // "pgdriver" or "pq"
	Debug  bool   `yaml:"debug"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

const (
	defaultChunkSize    = 1500
	defaultChunkOverlap = 200
	defaultTopK         = 5
)

// Default returns the configuration used when no config file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			GinMode:     "release",
			CORSOrigins: []string{"http://127.0.0.1:5501"},
		},
		Corpus: CorpusConfig{Dir: "data"},
		Index: IndexConfig{
			Backend:    "chromem",
			PersistDir: "vectorstore",
			Collection: "groundwater",
		},
		RAG: RAGConfig{
			ChunkSize:     defaultChunkSize,
			ChunkOverlap:  defaultChunkOverlap,
			TopK:          defaultTopK,
			DomainKeyword: "groundwater",
		},
		EmbedLLM: LLMConfig{
			Provider:  "ollama",
			BaseURL:   "http://localhost:11434",
			Model:     "all-minilm",
			BatchSize: 64,
		},
		InferenceLLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama3-8b-8192",
			TimeoutSecs: 60,
			MaxConns:    8,
		},
		Database: DatabaseConfig{Driver: "pgdriver"},
		Telemetry: TelemetryConfig{
			ServiceName: "groundwater-rag",
			SampleRatio: 1,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads the yaml file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.InferenceLLM.Key = getEnv("GROQ_API_KEY", cfg.InferenceLLM.Key)
	cfg.EmbedLLM.Key = getEnv("EMBEDDING_API_KEY", cfg.EmbedLLM.Key)
	cfg.EmbedLLM.Model = getEnv("EMBEDDING_MODEL", cfg.EmbedLLM.Model)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	cfg.Corpus.Dir = getEnv("CORPUS_DIR", cfg.Corpus.Dir)
	cfg.Index.PersistDir = getEnv("VECTORSTORE_DIR", cfg.Index.PersistDir)
	cfg.RAG.TopK = getEnvInt("RAG_TOP_K", cfg.RAG.TopK)
	cfg.Database.DSN = getEnv("DATABASE_DSN", cfg.Database.DSN)
	cfg.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

// Validate checks the settings that do not depend on the run mode
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if strings.TrimSpace(c.RAG.DomainKeyword) == "" {
		return errors.New("rag.domain_keyword is required")
	}
	switch c.Index.Backend {
	case "chromem":
	case "pgvector":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("unknown index backend: %s", c.Index.Backend)
	}
	if c.EmbedLLM.Model == "" {
		return errors.New("embed_llm.model is required")
	}
	return nil
}

// RequireInferenceKey fails when the completion API cannot be authenticated
func (c *Config) RequireInferenceKey() error {
	if strings.TrimSpace(c.InferenceLLM.Key) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
