package rag

import (
	"context"
	"strings"

	"groundwater-rag/internal/models"
)

// Searcher is the read side of the vector index
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// Retriever fetches the top k chunks and keeps those about the domain
type Retriever struct {
	index   Searcher
	topK    int
	keyword string
}

func NewRetriever(index Searcher, topK int, keyword string) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if keyword == "" {
		keyword = models.DomainKeyword
	}
	return &Retriever{index: index, topK: topK, keyword: keyword}
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	hits, err := r.index.Search(ctx, query, r.topK)
	if err != nil {
		return nil, err
	}
	return FilterByKeyword(hits, r.keyword), nil
}

// FilterByKeyword keeps, in order, the chunks whose text contains keyword
// regardless of case
func FilterByKeyword(chunks []models.ScoredChunk, keyword string) []models.ScoredChunk {
	keyword = strings.ToLower(keyword)
	var kept []models.ScoredChunk
	for _, ch := range chunks {
		if strings.Contains(strings.ToLower(ch.Content), keyword) {
			kept = append(kept, ch)
		}
	}
	return kept
}

// BuildContext joins "title: text" for each chunk with a single space
func BuildContext(chunks []models.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		title := ch.Title
		if title == "" {
			title = models.DefaultTitle
		}
		parts[i] = title + ": " + ch.Content
	}
	return strings.Join(parts, models.ContextSeparator)
}
