package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// maxPromptLength caps prompts before dispatch so oversized page content
// cannot blow the model's context window.
const maxPromptLength = 15000

const systemPrompt = "You are an AI search visibility analyst. Respond with valid JSON only, no prose around it."

// Config contains OpenAI client configuration.
type Config struct {
	APIKey      string
	Model       string  // Defaults to gpt-4o-mini
	BaseURL     string  // Optional override for OpenAI-compatible endpoints
	MaxTokens   int     // Defaults to 1024
	Temperature float32 // Defaults to 0.3
}

// OpenAIClient implements Client over the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates an OpenAI-backed client. The HTTP transport is
// wrapped for trace propagation.
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Generate submits one prompt and returns the raw completion text. A
// successful transport with an empty body is reported as an error so callers
// treat it like any other failure.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("visibility/ai").Start(ctx, "ai.generate")
	defer span.End()

	if len(prompt) > maxPromptLength {
		prompt = prompt[:maxPromptLength]
	}
	span.SetAttributes(
		attribute.String("ai.model", c.config.Model),
		attribute.Int("ai.prompt_chars", len(prompt)),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned an empty message")
	}
	return content, nil
}
