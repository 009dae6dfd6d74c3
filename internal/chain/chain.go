// Package chain runs one question through retrieve, format, render and
// generate.
package chain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ytrag/internal/domain"
)

// ContextSeparator joins chunk texts in the rendered context.
const ContextSeparator = "\n\n"

// Retriever returns the chunks relevant to a question, best first.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]domain.Chunk, error)
}

// TokenCounter measures prompt size for logging.
type TokenCounter interface {
	Count(text string) int
}

// Chain is immutable once built and safe for concurrent use.
type Chain struct {
	retriever Retriever
	template  *Template
	generator domain.Generator
	counter   TokenCounter
	logger    *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenCounter logs the prompt token count before each generation.
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *Chain) { c.counter = tc }
}

// New wires the steps. A nil template means DefaultTemplate.
func New(retriever Retriever, template *Template, generator domain.Generator, opts ...Option) *Chain {
	if template == nil {
		template = DefaultTemplate()
	}
	c := &Chain{
		retriever: retriever,
		template:  template,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Invoke answers question and returns the generator output unmodified.
func (c *Chain) Invoke(ctx context.Context, question string) (string, error) {
	started := time.Now()
	chunks, err := c.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	prompt := c.template.Render(FormatContext(chunks), question)

	attrs := []any{slog.Int("chunks", len(chunks)), slog.Int("prompt_chars", len(prompt))}
	if c.counter != nil {
		attrs = append(attrs, slog.Int("prompt_tokens", c.counter.Count(prompt)))
	}
	c.logger.Debug("prompt rendered", attrs...)

	answer, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.logger.Info("question answered",
		slog.Int("chunks", len(chunks)),
		slog.Duration("took", time.Since(started)))
	return answer, nil
}

// Retrieve runs the retriever. Its errors keep their own kind.
func (c *Chain) Retrieve(ctx context.Context, question string) ([]domain.Chunk, error) {
	chunks, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, domain.AsKind("retrieve", domain.ErrEmbedding, err)
	}
	return chunks, nil
}

// Generate runs the generator on a rendered prompt.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", domain.AsKind("generate", domain.ErrGeneration, err)
	}
	return answer, nil
}

// FormatContext joins chunk texts with ContextSeparator, keeping order.
func FormatContext(chunks []domain.Chunk) string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return strings.Join(texts, ContextSeparator)
}
