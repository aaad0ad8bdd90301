package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const ManifestVersion = 1

var (
	// ErrEmbeddingModelMismatch means the persisted vectors come from another model
	ErrEmbeddingModelMismatch = errors.New("index was built with a different embedding model")
	// ErrCorruptIndex means the persisted index cannot be trusted
	ErrCorruptIndex = errors.New("persisted index is corrupt")
)

// Manifest records how an index was built. It is written after the last
// vector, so its presence marks a complete build.
type Manifest struct {
	Version           int       `yaml:"version"`
	EmbeddingProvider string    `yaml:"embedding_provider"`
	EmbeddingModel    string    `yaml:"embedding_model"`
	Dimension         int       `yaml:"dimension"`
	ChunkSize         int       `yaml:"chunk_size"`
	ChunkOverlap      int       `yaml:"chunk_overlap"`
	Documents         int       `yaml:"documents"`
	Chunks            int       `yaml:"chunks"`
	BuiltAt           time.Time `yaml:"built_at"`
}

// EmbeddingIdentity is the provider/model pair the vectors belong to
func (m Manifest) EmbeddingIdentity() string {
	return m.EmbeddingProvider + "/" + m.EmbeddingModel
}

func decodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: unreadable manifest: %v", ErrCorruptIndex, err)
	}
	if m.Version == 0 || m.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: manifest is missing version or embedding model", ErrCorruptIndex)
	}
	return &m, nil
}

// readManifestFile returns nil without error when the file does not exist
func readManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	return decodeManifest(data)
}

// writeManifestFile replaces path through a rename so readers never see a partial file
func writeManifestFile(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}
