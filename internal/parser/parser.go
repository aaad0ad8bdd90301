package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"groundwater-rag/internal/config"
	"groundwater-rag/internal/models"
)

const (
	defaultChunkSize    = 1500 // characters
	defaultChunkOverlap = 200  // characters
)

// ParseToChunks loads every PDF under dir and splits the pages with the
// chunk settings from cfg. A nil cfg or unset values fall back to defaults.
func ParseToChunks(dir string, cfg *config.Config) ([]models.Document, []models.Chunk, error) {
	size, overlap := defaultChunkSize, defaultChunkOverlap
	if cfg != nil && cfg.RAG.ChunkSize > 0 {
		size, overlap = cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap
	}

	docs, err := LoadDirectory(dir)
	if err != nil {
		return nil, nil, err
	}

	var pages []models.Page
	for _, doc := range docs {
		pages = append(pages, doc.Pages...)
	}
	chunks, err := SplitPages(pages, size, overlap)
	if err != nil {
		return nil, nil, err
	}
	return docs, chunks, nil
}

// LoadDirectory reads all PDF files directly under dir, in name order.
// Other files are ignored. A missing directory yields no documents.
func LoadDirectory(dir string) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("dir", dir).Msg("Corpus directory not found, index will be empty")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []models.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		doc, err := ParsePDF(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Skipping unreadable PDF")
			continue
		}
		log.Debug().Str("file", path).Int("pages", len(doc.Pages)).Msg("Loaded PDF")
		docs = append(docs, doc)
	}
	return docs, nil
}

// ParsePDF extracts the plain text of every non-empty page of the PDF at path
func ParsePDF(filePath string) (doc models.Document, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf %s: %v", filePath, r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return models.Document{}, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return models.Document{}, err
	}

	doc = models.Document{
		Path:  filePath,
		Title: pdfTitle(reader, filePath),
	}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return models.Document{}, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, models.Page{
			Source:     filePath,
			Title:      doc.Title,
			PageNumber: i,
			Content:    pageText,
		})
	}
	return doc, nil
}

// title from the document info dictionary, else the file name
func pdfTitle(reader *pdf.Reader, filePath string) string {
	if title := strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()); title != "" {
		return title
	}
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SplitPages cuts each page into overlapping windows of at most size
// characters. Chunks keep the title, source and page of their page.
func SplitPages(pages []models.Page, size, overlap int) ([]models.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)

	var chunks []models.Chunk
	for _, page := range pages {
		texts, err := splitter.SplitText(page.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s page %d: %w", page.Source, page.PageNumber, err)
		}
		sourceBase := filepath.Base(page.Source)
		n := 0
		for _, text := range texts {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			n++
			chunks = append(chunks, models.Chunk{
				ID:         models.ChunkRecordID(sourceBase, page.PageNumber, n),
				Content:    text,
				Title:      page.Title,
				Source:     page.Source,
				PageNumber: page.PageNumber,
				ChunkID:    n,
			})
		}
	}
	return chunks, nil
}
