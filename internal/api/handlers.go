package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"groundwater-rag/internal/helper"
	"groundwater-rag/internal/index"
	"groundwater-rag/internal/models"
	"groundwater-rag/internal/prompt"
)

// Asker answers one question
type Asker interface {
	Ask(ctx context.Context, question string) (*models.Reply, error)
}

// IndexStatus reports on the loaded vector index
type IndexStatus interface {
	Count() int
	Manifest() index.Manifest
}

type AskRequest struct {
	Question string `json:"question"`
	// Format "html" adds answer_html rendered from the Markdown answer
	Format string `json:"format"`
}

type AskResponse struct {
	Question   string   `json:"question,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	AnswerHTML string   `json:"answer_html,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Message    string   `json:"message,omitempty"`
}

type Handler struct {
	asker   Asker
	persona *prompt.Persona
	status  IndexStatus
}

func NewHandler(asker Asker, persona *prompt.Persona, status IndexStatus) *Handler {
	return &Handler{asker: asker, persona: persona, status: status}
}

func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithBadRequest(c, "invalid request body", err.Error())
		return
	}

	reply, err := h.asker.Ask(c.Request.Context(), req.Question)
	if err != nil {
		respondWithAskError(c, err)
		return
	}
	if !reply.HasAnswer() {
		c.JSON(http.StatusOK, AskResponse{Message: reply.Message})
		return
	}

	resp := AskResponse{Question: reply.Question, Answer: reply.Answer, Sources: reply.Sources}
	if req.Format == "html" {
		html, err := helper.RenderMarkdown(reply.Answer)
		if err != nil {
			log.Warn().Err(err).Str("request_id", GetRequestID(c)).Msg("Failed to render answer")
		} else {
			resp.AnswerHTML = html
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": h.persona.Welcome,
		"prompt":  h.persona.Summary,
	})
}

func (h *Handler) GetNOC(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": models.NOCGuidance})
}

func (h *Handler) GetGroundwaterData(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": models.DataNotice})
}

func (h *Handler) Definitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":     models.DefinitionsMessage,
		"definitions": models.Definitions(),
	})
}

func (h *Handler) TrainingOpportunities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":       models.TrainingMessage,
		"opportunities": models.TrainingOpportunities(),
	})
}

func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "healthy"}
	if h.status != nil {
		m := h.status.Manifest()
		resp["chunks"] = h.status.Count()
		resp["documents"] = m.Documents
		resp["embedding_model"] = m.EmbeddingIdentity()
	}
	c.JSON(http.StatusOK, resp)
}
