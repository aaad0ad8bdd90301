package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"groundwater-rag/internal/config"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultMaxConns = 8
)

// ErrEmptyCompletion is returned when the API answers without any choice text
var ErrEmptyCompletion = errors.New("no valid choices returned")

// UpstreamError wraps a failed call to the completion API
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return "error querying completion model: " + e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client sends single-message prompts to an OpenAI-compatible chat endpoint.
// It is built once and shared by all requests.
type Client struct {
	llm     llms.Model
	model   string
	limiter *rate.Limiter
}

// NewClient builds the completion client from the inference config
func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Float64("rps", llmConfig.RequestsPerSecond).
		Msg("Creating completion client")

	timeout := defaultTimeout
	if llmConfig.TimeoutSecs > 0 {
		timeout = time.Duration(llmConfig.TimeoutSecs) * time.Second
	}
	maxConns := llmConfig.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConns
	transport.MaxIdleConnsPerHost = maxConns

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout, Transport: transport}),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(llmConfig.BaseURL, "/")))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}

	limit := rate.Inf
	if llmConfig.RequestsPerSecond > 0 {
		limit = rate.Limit(llmConfig.RequestsPerSecond)
	}
	return &Client{
		llm:     llm,
		model:   llmConfig.Model,
		limiter: rate.NewLimiter(limit, max(1, maxConns)),
	}, nil
}

// Complete sends prompt as one user message and returns the first choice.
// Once started the call is not cancelled by ctx; only the HTTP timeout ends it.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &UpstreamError{Message: err.Error(), Err: err}
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithModel(c.model))
	if isEmptyResponse(err) {
		return "", ErrEmptyCompletion
	}
	if err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("Completion request failed")
		return "", &UpstreamError{Message: err.Error(), Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyCompletion
	}

	log.Debug().Dur("took", time.Since(start)).Int("chars", len(resp.Choices[0].Content)).Msg("Completion received")
	return resp.Choices[0].Content, nil
}

// the openai wrapper returns ErrEmptyResponse, but its internal client
// rejects an empty choices array first with an unexported "empty response"
func isEmptyResponse(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, openai.ErrEmptyResponse) || strings.Contains(err.Error(), "empty response")
}
