package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"groundwater-rag/internal/models"
	"groundwater-rag/internal/prompt"
)

var tracer = otel.Tracer("groundwater-rag/internal/rag")

// Completer sends a rendered prompt to the language model
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type RAG struct {
	retriever *Retriever
	persona   *prompt.Persona
	llm       Completer
}

func NewRAG(retriever *Retriever, persona *prompt.Persona, llm Completer) *RAG {
	return &RAG{retriever: retriever, persona: persona, llm: llm}
}

// Ask answers question from the indexed documents. A blank question or a
// question without domain matches is answered with a message and never
// reaches the model.
func (r *RAG) Ask(ctx context.Context, question string) (*models.Reply, error) {
	if strings.TrimSpace(question) == "" {
		return &models.Reply{Question: question, Message: models.EmptyQuestionMessage}, nil
	}

	rctx, span := tracer.Start(ctx, "rag.retrieve")
	hits, err := r.retriever.Retrieve(rctx, question)
	span.SetAttributes(attribute.Int("rag.hits", len(hits)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	span.End()

	if len(hits) == 0 {
		log.Debug().Str("question", question).Msg("No domain documents retrieved")
		return &models.Reply{Question: question, Message: models.NoDocumentsMessage}, nil
	}

	ctx, span = tracer.Start(ctx, "rag.complete")
	span.SetAttributes(attribute.Int("rag.context_chunks", len(hits)))
	defer span.End()
	answer, err := r.llm.Complete(ctx, r.persona.Render(question, BuildContext(hits)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &models.Reply{Question: question, Answer: answer, Sources: sources(hits)}, nil
}

// distinct "title (page n)" labels in retrieval order
func sources(hits []models.ScoredChunk) []string {
	seen := make(map[string]bool, len(hits))
	var out []string
	for _, h := range hits {
		title := h.Title
		if title == "" {
			title = models.DefaultTitle
		}
		label := fmt.Sprintf("%s (page %d)", title, h.PageNumber)
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}
