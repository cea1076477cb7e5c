package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Client against any OpenAI-compatible chat-completion
// endpoint. The default deployment points it at a local Ollama server's
// /v1 API, but it works unchanged against hosted endpoints.
type OpenAI struct {
	client         *openai.Client
	baseURL        string
	model          string
	embeddingModel string
	maxTokens      int
	retry          RetryConfig
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAI)

// WithEmbeddingModel sets the model used by Embed.
func WithEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAI) { c.embeddingModel = model }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) OpenAIOption {
	return func(c *OpenAI) { c.maxTokens = n }
}

// WithRetry overrides the retry policy. The default is the initial attempt
// plus two retries.
func WithRetry(cfg RetryConfig) OpenAIOption {
	return func(c *OpenAI) { c.retry = cfg }
}

// NewOpenAI creates a client for an OpenAI-compatible endpoint.
// baseURL may be empty to use the official API endpoint.
func NewOpenAI(baseURL, apiKey, model string, opts ...OpenAIOption) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
		model:   model,
		retry:   DefaultRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	resp, err := withRetry(ctx, c.retry, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: float32(req.Temperature),
			MaxTokens:   maxTokens,
		})
	})
	if err != nil {
		return nil, &BackendError{Endpoint: c.baseURL, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &BackendError{Endpoint: c.baseURL, Err: fmt.Errorf("no choices returned")}
	}

	choice := resp.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Duration:     time.Since(start),
	}, nil
}

// Embed returns the embedding vector for a text using the configured
// embedding model. Used by the retrieval store's embedding function.
func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := withRetry(ctx, c.retry, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
	})
	if err != nil {
		return nil, &BackendError{Endpoint: c.baseURL, Err: err}
	}

	if len(resp.Data) == 0 {
		return nil, &BackendError{Endpoint: c.baseURL, Err: fmt.Errorf("no embeddings returned")}
	}

	return resp.Data[0].Embedding, nil
}

// isTransient reports whether an error is worth retrying.
// Rate limits and server-side failures are transient; request errors are
// not. Transport-level failures (connection refused, resets) surface as
// non-API errors and are retried up to the attempt budget before being
// reported as a backend-unreachable failure.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	return true
}
