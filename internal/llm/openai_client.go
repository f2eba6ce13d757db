// ABOUTME: OpenAI client for embeddings and structured chat completions
// ABOUTME: Wraps go-openai with retry, per-call timeouts, and JSON-schema response formats
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/harper/emergency-intake/internal/config"
	"github.com/harper/emergency-intake/internal/util"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3

	embedBatchSize = 100
)

var (
	// ErrUnavailable means the model could not be reached after all retries
	ErrUnavailable = errors.New("language model unavailable")
	// ErrMalformed means the model answered but the output could not be decoded
	ErrMalformed = errors.New("malformed model output")
)

// CompletionRequest is one system+user exchange. When Schema is set the
// model is asked for JSON matching it.
type CompletionRequest struct {
	System      string
	Prompt      string
	Schema      *jsonschema.Definition
	SchemaName  string
	Temperature float32
	MaxTokens   int
}

// Completer produces a single completion
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder turns text into vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel openai.EmbeddingModel
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		RetryDelay:     time.Second,
	}
}

// ConfigFrom maps application configuration onto client settings
func ConfigFrom(cfg *config.Config) *ClientConfig {
	cc := DefaultConfig(cfg.OpenAIKey)
	cc.BaseURL = cfg.OpenAIBaseURL
	if cfg.ChatModel != "" {
		cc.ChatModel = cfg.ChatModel
	}
	if cfg.EmbeddingModel != "" {
		cc.EmbeddingModel = openai.EmbeddingModel(cfg.EmbeddingModel)
	}
	if cfg.Timeout > 0 {
		cc.Timeout = cfg.Timeout
	}
	cc.MaxRetries = cfg.MaxRetries
	cc.RetryDelay = cfg.RetryDelay
	return cc
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

// NewOpenAIClient creates a client from the given configuration
func NewOpenAIClient(cfg *ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
	}, nil
}

// retry runs call until it succeeds, ctx ends, or attempts run out
func (c *OpenAIClient) retry(ctx context.Context, what string, call func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, c.retryDelay, attempt); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrUnavailable, what, err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := call(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("%w: %s failed after %d attempts: %v", ErrUnavailable, what, c.maxRetries+1, lastErr)
}

// Complete sends one chat completion and returns the first choice's content
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: req.Schema,
				Strict: false,
			},
		}
	}

	var content string
	err := c.retry(ctx, "chat completion", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Embed generates an embedding vector for one text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings in request-sized batches, preserving input order
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch := texts[start:end]

		var data []openai.Embedding
		err := c.retry(ctx, "embedding", func(ctx context.Context) error {
			resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
				Input: batch,
				Model: c.embeddingModel,
			})
			if err != nil {
				return err
			}
			if len(resp.Data) != len(batch) {
				return fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data))
			}
			data = resp.Data
			return nil
		})
		if err != nil {
			return nil, err
		}

		sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, d := range data {
			out = append(out, toFloat64(d.Embedding))
		}
	}

	return out, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// DecodeJSON unmarshals model output into v, tolerating markdown code fences
func DecodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return fmt.Errorf("%w: empty response", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
