package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// Client produces structured JSON completions.
type Client interface {
	// Chat sends a single system/user exchange and asks for JSON matching req.Schema.
	// When result is non-nil the reply is unmarshalled into it.
	// The raw JSON reply is always returned in Response.Content.
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	// Strict asks the provider to enforce the schema. Leave false for schemas
	// with optional fields, which OpenAI strict mode does not support.
	Strict      bool
	MaxTokens   int
	Temperature *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// New creates a Client for cfg.Provider. Defaults to OpenAI.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// GenerateRecursiveSchema reflects T inline at the root and places nested
// types under $defs, which self-referencing types require.
func GenerateRecursiveSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

func decodeResult(content string, result any) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(content), result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// IsRetryable reports whether err is a transient provider failure
// (rate limit, 5xx, network) worth retrying.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	status := 0
	var openaiErr *openai.Error
	var anthropicErr *anthropic.Error
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &anthropicErr):
		status = anthropicErr.StatusCode
	default:
		if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrNotConfigured) {
			return false
		}
		slog.WarnContext(ctx, "llm network error, will retry", "error", err)
		return true
	}

	switch {
	case status == 429:
		slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", status)
		return true
	case status >= 500:
		slog.WarnContext(ctx, "llm server error, will retry", "status_code", status)
		return true
	default:
		slog.ErrorContext(ctx, "llm client error, not retryable", "status_code", status)
		return false
	}
}

// ErrEmptyResponse is returned when the provider answers without any content.
var ErrEmptyResponse = errors.New("llm returned no content")

// ErrNotConfigured is returned by the client from NewUnconfigured.
var ErrNotConfigured = errors.New("llm provider is not configured")

// NewUnconfigured returns a Client whose Chat always fails with
// ErrNotConfigured. It lets a server run the routes that never reach the
// model while no provider key is set.
func NewUnconfigured(model string) Client {
	return unconfiguredClient{model: model}
}

type unconfiguredClient struct {
	model string
}

func (c unconfiguredClient) Chat(context.Context, Request, any) (*Response, error) {
	return nil, ErrNotConfigured
}

func (c unconfiguredClient) Model() string {
	return c.model
}
