// Package llm wraps chat-completion and embedding calls behind a small
// client. Uses the OpenAI SDK so any OpenAI-compatible endpoint works.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	DefaultTemperature    = 0.3
	DefaultTimeout        = 90 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBackoffBase    = 2 * time.Second
)

// Config holds the configuration for the generation client.
type Config struct {
	APIKey         string
	Endpoint       string // empty means the default OpenAI endpoint
	Model          string
	EmbeddingModel string
	Timeout        time.Duration // per-call bound, applied on top of ctx
	MaxAttempts    int           // retry budget per call
	BackoffBase    time.Duration // exponential backoff base delay
}

// Client issues generation and embedding requests. It is stateless and safe
// for concurrent use.
type Client struct {
	api *openai.Client
	cfg Config
}

// NewClient creates a generation client. Zero config fields fall back to
// package defaults.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		apiCfg.BaseURL = cfg.Endpoint
	}

	return &Client{api: openai.NewClientWithConfig(apiCfg), cfg: cfg}
}

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Generate sends a chat completion request and returns the generated text.
// Transient failures are retried with exponential backoff up to the
// configured attempt budget; after that a GenerationError is returned.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.cfg.BackoffBase << (attempt - 2)
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying generation call")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &GenerationError{Reason: "context cancelled", Err: ctx.Err()}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, chatReq)
		cancel()

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = errors.New("empty completion")
			continue
		}

		log.Debug().
			Str("model", c.cfg.Model).
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens).
			Msg("Generation call completed")

		return resp.Choices[0].Message.Content, nil
	}

	return "", &GenerationError{
		Reason: fmt.Sprintf("chat completion failed after %d attempts", c.cfg.MaxAttempts),
		Err:    lastErr,
	}
}

// Embed converts text into a vector representation for similarity search.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, &GenerationError{Reason: "embedding failed", Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &GenerationError{Reason: "embedding response empty"}
	}
	return resp.Data[0].Embedding, nil
}

// GenerationError reports a failed backend call after the client's retry
// budget is exhausted.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation: %s: %v", e.Reason, e.Err)
	}
	return "generation: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }
