package models

import "fmt"

// Page is the extracted text of one PDF page
type Page struct {
	Source     string
	Title      string
	PageNumber int
	Content    string
}

// Document is one source PDF with its pages in order
type Document struct {
	Path  string
	Title string
	Pages []Page
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	ID         string
	Content    string
	Title      string
	Source     string
	PageNumber int
	ChunkID    int
}

// ChunkEmbedding pairs a chunk with its vector
type ChunkEmbedding struct {
	Chunk
	Embedding []float32
}

// ScoredChunk is a retrieval hit, higher score is more similar
type ScoredChunk struct {
	Chunk
	Score float32
}

// Reply is the outcome of one question. Exactly one of Answer or Message is set.
type Reply struct {
	Question string
	Answer   string
	Message  string
	Sources  []string
}

// HasAnswer reports whether the reply carries a generated answer
func (r *Reply) HasAnswer() bool {
	return r != nil && r.Message == "" && r.Answer != ""
}

// ChunkRecordID builds the stable identifier of a chunk within the index
func ChunkRecordID(sourceBase string, pageNumber, chunkID int) string {
	return fmt.Sprintf("%s-p%d-c%d", sourceBase, pageNumber, chunkID)
}
