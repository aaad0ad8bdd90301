package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"groundwater-rag/internal/llmservice"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details any) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

func RespondWithBadRequest(c *gin.Context, message string, details any) {
	RespondWithError(c, http.StatusBadRequest, "invalid_input", message, details)
}

func RespondWithInternalError(c *gin.Context, message string, details any) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// respondWithAskError maps a failed question to a 500. Completion API
// failures keep the upstream text, anything else stays generic.
func respondWithAskError(c *gin.Context, err error) {
	var upstream *llmservice.UpstreamError
	switch {
	case errors.As(err, &upstream):
		log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("Completion API failed")
		RespondWithError(c, http.StatusInternalServerError, "upstream_error", upstream.Error(), nil)
	case errors.Is(err, llmservice.ErrEmptyCompletion):
		log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("Completion API returned no choices")
		RespondWithError(c, http.StatusInternalServerError, "upstream_error", "No valid choices returned.", nil)
	default:
		log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("Failed to answer question")
		RespondWithInternalError(c, "internal server error", nil)
	}
}
