package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"

	"ytrag/internal/domain"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultBatchSize      = 64
	maxBatchSize          = 2048
)

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
	batchSize  int
	limiter    *rate.Limiter
	logger     *slog.Logger
	observed   atomic.Int64
}

var _ domain.Embedder = (*Embedder)(nil)

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithBatchSize sets how many texts go into one request.
func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = min(n, maxBatchSize)
		}
	}
}

// WithDimensions asks the model for shortened vectors. Zero keeps the model default.
func WithDimensions(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.dimensions = n
		}
	}
}

// WithRequestsPerSecond paces embedding requests. Zero or less means unlimited.
func WithRequestsPerSecond(rps float64) EmbedderOption {
	return func(e *Embedder) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			e.limiter = nil
		}
	}
}

// WithEmbedderLogger sets the logger.
func WithEmbedderLogger(l *slog.Logger) EmbedderOption {
	return func(e *Embedder) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEmbedder creates an OpenAI embedder for model.
func NewEmbedder(cfg Config, model string, opts ...EmbedderOption) (*Embedder, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	e := &Embedder{
		client:    client,
		model:     model,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *Embedder) Name() string { return "openai:" + e.model }

// Prepare returns the receiver; remote embeddings need no corpus statistics.
func (e *Embedder) Prepare([]string) (domain.Embedder, error) { return e, nil }

// Dimension returns the requested dimension, or the one observed in the last
// response, or zero before any call.
func (e *Embedder) Dimension() int {
	if e.dimensions > 0 {
		return e.dimensions
	}
	return int(e.observed.Load())
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request batches, returning vectors in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, domain.NewServiceError("embed", domain.ErrEmbedding, domain.FailureOther, errors.New("no texts provided"))
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedOnce(ctx context.Context, texts []string) ([][]float64, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, embeddingError(err)
		}
	}
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		e.logger.Warn("embedding request failed",
			slog.String("model", e.model),
			slog.Int("texts", len(texts)),
			slog.Any("err", err))
		return nil, embeddingError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.Internal("embed", "got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vecs := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) || vecs[d.Index] != nil {
			return nil, domain.Internal("embed", "unexpected embedding index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	if n := len(vecs[0]); n > 0 {
		e.observed.Store(int64(n))
	}
	e.logger.Debug("embedded batch",
		slog.String("model", e.model),
		slog.Int("texts", len(texts)),
		slog.Int64("tokens", resp.Usage.TotalTokens))
	return vecs, nil
}
