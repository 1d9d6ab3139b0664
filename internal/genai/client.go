package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/processing"
)

// ErrContractViolation marks a model answer that is not the JSON shape the
// caller asked for.
var ErrContractViolation = errors.New("model output violates contract")

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client calls an OpenAI-compatible chat endpoint through langchaingo.
type Client struct {
	model       llms.Model
	log         *slog.Logger
	temperature float64
}

// Options selects the model and endpoint.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
}

// New builds a Client from options.
func New(opts Options, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("generative api key is empty")
	}
	llmOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
	}
	model, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create llm: %w", err)
	}
	return NewWithModel(model, opts.Temperature, log), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, temperature float64, log *slog.Logger) *Client {
	return &Client{model: model, log: logger.OrDiscard(log), temperature: temperature}
}

// Generate issues a single completion request. There is no retry.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var opts []llms.CallOption
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	c.log.Debug("llm completion", slog.Int("prompt_len", len(prompt)), slog.Int("answer_len", len(out)))
	return out, nil
}

// DecodeJSON parses a model answer into v after stripping optional code
// fences. Any decode failure is reported as ErrContractViolation.
func DecodeJSON(raw string, v any) error {
	body := processing.StripCodeFence(raw)
	if body == "" {
		return fmt.Errorf("%w: empty answer", ErrContractViolation)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	return nil
}

// GenerateJSON runs prompt through gen and decodes the answer into v.
func GenerateJSON(ctx context.Context, gen Generator, prompt string, v any) error {
	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return DecodeJSON(raw, v)
}
