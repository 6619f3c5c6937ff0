package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = float32(0.2)
)

type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GenAIClient calls a Gemini model through the GenAI SDK.
type GenAIClient struct {
	generate    generateContentFunc
	model       string
	temperature float32
	logger      *zap.Logger // optional
}

// Option configures a GenAIClient.
type Option func(*GenAIClient)

// WithLogger sets a logger for call timings and failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *GenAIClient) { c.logger = l }
}

// WithTemperature overrides the default sampling temperature of 0.2.
func WithTemperature(t float32) Option {
	return func(c *GenAIClient) { c.temperature = t }
}

// NewGenAIClient creates a client for model using the Gemini API backend.
func NewGenAIClient(ctx context.Context, apiKey, model string, opts ...Option) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenAIClient(client.Models.GenerateContent, model, opts...), nil
}

func newGenAIClient(fn generateContentFunc, model string, opts ...Option) *GenAIClient {
	if model == "" {
		model = DefaultModel
	}
	c := &GenAIClient{generate: fn, model: model, temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name requests are sent to.
func (c *GenAIClient) Model() string { return c.model }

// Generate sends prompt as a single user turn. Transport failures and empty
// responses are returned as *ModelInvocationError.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.generate(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("model call failed", zap.String("model", c.model), zap.Error(err))
		}
		return "", &ModelInvocationError{Model: c.model, Err: err}
	}
	if resp == nil {
		return "", &ModelInvocationError{Model: c.model, Err: ErrEmptyResponse}
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &ModelInvocationError{Model: c.model, Err: ErrEmptyResponse}
	}
	if c.logger != nil {
		c.logger.Debug("model call",
			zap.String("model", c.model),
			zap.Int("prompt_chars", len(prompt)),
			zap.Int("response_chars", len(text)),
			zap.Duration("took", time.Since(start)))
	}
	return text, nil
}
