package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"ytrag/internal/domain"
)

const (
	DefaultChatModel   = "gpt-4o"
	DefaultTemperature = 0.2
)

// Generator produces answers with the chat completions endpoint.
type Generator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ domain.Generator = (*Generator)(nil)

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMaxTokens caps the completion length. Zero leaves it to the model.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) { g.maxTokens = n }
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a chat generator for model at the given temperature.
func NewGenerator(cfg Config, model string, temperature float64, opts ...GeneratorOption) (*Generator, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultChatModel
	}
	g := &Generator{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Model returns the chat model name.
func (g *Generator) Model() string { return g.model }

// Generate sends prompt as a single user message and returns the reply unmodified.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.temperature),
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		g.logger.Warn("completion request failed", slog.String("model", g.model), slog.Any("err", err))
		return "", generationError(err)
	}
	if len(completion.Choices) == 0 {
		return "", generationError(errors.New("no completion choices returned"))
	}
	g.logger.Debug("completion received",
		slog.String("model", g.model),
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens))
	return completion.Choices[0].Message.Content, nil
}
