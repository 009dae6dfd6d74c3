package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ytrag/internal/chain"
	"ytrag/internal/chunker"
	"ytrag/internal/domain"
	"ytrag/internal/retrieval"
	"ytrag/internal/summarizer"
	"ytrag/internal/transcript"
	"ytrag/internal/youtube"
)

// Config is the full set of pipeline settings for a Chatbot.
type Config struct {
	Languages        []string
	ChunkSize        int
	ChunkOverlap     int
	RetrievalK       int
	SummarySentences int
	// PromptTemplate overrides chain.DefaultPrompt when set.
	PromptTemplate string
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		Languages:        []string{"en"},
		ChunkSize:        chunker.DefaultChunkSize,
		ChunkOverlap:     chunker.DefaultChunkOverlap,
		RetrievalK:       retrieval.DefaultK,
		SummarySentences: summarizer.DefaultMaxSentences,
	}
}

// session is everything derived from one processed video. It is never
// mutated once published.
type session struct {
	videoID string
	index   *retrieval.Index
	chain   *chain.Chain
	summary string
}

// Chatbot answers questions about the most recently processed video.
type Chatbot struct {
	fetcher    *transcript.Fetcher
	embedder   domain.Embedder
	generator  domain.Generator
	splitter   *chunker.RecursiveSplitter
	summarizer domain.Summarizer
	template   *chain.Template
	counter    chain.TokenCounter
	cfg        Config
	logger     *slog.Logger

	// processMu serializes rebuilds; mu guards state.
	processMu sync.Mutex
	mu        sync.RWMutex
	state     *session
}

// Option configures a Chatbot.
type Option func(*Chatbot)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chatbot) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSummarizer replaces the frequency summarizer.
func WithSummarizer(s domain.Summarizer) Option {
	return func(c *Chatbot) {
		if s != nil {
			c.summarizer = s
		}
	}
}

// WithTokenCounter enables prompt token logging.
func WithTokenCounter(tc chain.TokenCounter) Option {
	return func(c *Chatbot) { c.counter = tc }
}

// NewChatbot wires the pipeline. Invalid chunking settings fail with
// domain.ErrChunkingFailed.
func NewChatbot(source domain.TranscriptSource, embedder domain.Embedder, generator domain.Generator, cfg Config, opts ...Option) (*Chatbot, error) {
	if source == nil || embedder == nil || generator == nil {
		return nil, errors.New("transcript source, embedder and generator are required")
	}
	splitter, err := chunker.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	template := chain.DefaultTemplate()
	if cfg.PromptTemplate != "" {
		if template, err = chain.ParseTemplate(cfg.PromptTemplate); err != nil {
			return nil, err
		}
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = retrieval.DefaultK
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = transcript.DefaultLanguages
	}

	c := &Chatbot{
		embedder:   embedder,
		generator:  generator,
		splitter:   splitter,
		summarizer: summarizer.NewFrequencySummarizer(),
		template:   template,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.fetcher = transcript.NewFetcher(source, transcript.WithLogger(c.logger))
	return c, nil
}

// ProcessVideo makes ref the current video. Reprocessing the current video is
// a no-op. On failure the previous video stays current.
func (c *Chatbot) ProcessVideo(ctx context.Context, ref string) (bool, error) {
	videoID, err := youtube.ExtractID(ref)
	if err != nil {
		return false, err
	}

	c.processMu.Lock()
	defer c.processMu.Unlock()

	if c.VideoID() == videoID {
		c.logger.Info("video already processed", slog.String("video_id", videoID))
		return true, nil
	}

	started := time.Now()
	next, err := c.build(ctx, videoID)
	if err != nil {
		c.logger.Warn("processing video failed", slog.String("video_id", videoID), slog.Any("err", err))
		return false, err
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	c.logger.Info("video processed",
		slog.String("video_id", videoID),
		slog.String("index_id", next.index.ID()),
		slog.Int("chunks", next.index.Len()),
		slog.Duration("took", time.Since(started)))
	return true, nil
}

func (c *Chatbot) build(ctx context.Context, videoID string) (*session, error) {
	text, err := c.fetcher.Fetch(ctx, videoID, c.cfg.Languages)
	if err != nil {
		return nil, err
	}
	summary, err := c.summarizer.Summarize(text, c.cfg.SummarySentences)
	if err != nil {
		return nil, domain.Internal("summarize", "%v", err)
	}
	chunks, err := c.splitter.Chunk(domain.Document{VideoID: videoID, Content: text})
	if err != nil {
		return nil, err
	}
	index, err := retrieval.Build(ctx, c.embedder, chunks, retrieval.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	ch := chain.New(index.Retriever(c.cfg.RetrievalK), c.template, c.generator,
		chain.WithLogger(c.logger), chain.WithTokenCounter(c.counter))
	return &session{videoID: videoID, index: index, chain: ch, summary: summary}, nil
}

// Ask answers question from the current video's transcript. The answer is
// returned exactly as generated.
func (c *Chatbot) Ask(ctx context.Context, question string) (string, error) {
	st := c.current()
	if st == nil {
		return "", domain.ErrNotReady
	}
	return st.chain.Invoke(ctx, question)
}

func (c *Chatbot) current() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ready reports whether a video has been processed.
func (c *Chatbot) Ready() bool { return c.current() != nil }

// VideoID returns the current video ID, or "" before the first success.
func (c *Chatbot) VideoID() string {
	if st := c.current(); st != nil {
		return st.videoID
	}
	return ""
}

// IndexID returns the ID of the current index, or "".
func (c *Chatbot) IndexID() string {
	if st := c.current(); st != nil {
		return st.index.ID()
	}
	return ""
}

// Summary returns the extractive summary of the current transcript, or "".
func (c *Chatbot) Summary() string {
	if st := c.current(); st != nil {
		return st.summary
	}
	return ""
}
