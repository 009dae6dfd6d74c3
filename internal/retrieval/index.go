// Package retrieval builds the per-video vector index and answers nearest
// chunk queries against it.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"ytrag/internal/domain"
	"ytrag/internal/textutil"
	"ytrag/internal/vectorstore"
	"ytrag/internal/vectorstore/memory"
)

// DefaultK is the number of chunks returned when k is not positive.
const DefaultK = 4

// Index owns the chunks and embeddings of one transcript. It is read-only after Build.
type Index struct {
	id       uuid.UUID
	videoID  string
	embedder domain.Embedder
	store    vectorstore.Storage
	chunks   []domain.Chunk
	logger   *slog.Logger
}

type buildOptions struct {
	logger     *slog.Logger
	newStorage func() vectorstore.Storage
}

// Option configures Build.
type Option func(*buildOptions)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStorage replaces the in-memory store.
func WithStorage(newStorage func() vectorstore.Storage) Option {
	return func(o *buildOptions) {
		if newStorage != nil {
			o.newStorage = newStorage
		}
	}
}

// Build prepares embedder on the chunk corpus, embeds every chunk and stores
// the vectors in a fresh store.
func Build(ctx context.Context, embedder domain.Embedder, chunks []domain.Chunk, opts ...Option) (*Index, error) {
	o := buildOptions{
		logger:     slog.Default(),
		newStorage: func() vectorstore.Storage { return memory.NewStorage() },
	}
	for _, fn := range opts {
		fn(&o)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: nothing to index", domain.ErrChunkingFailed)
	}

	started := time.Now()
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	prepared, err := embedder.Prepare(texts)
	if err != nil {
		return nil, domain.AsKind("prepare embedder", domain.ErrEmbedding, err)
	}
	vectors, err := prepared.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, domain.AsKind("embed chunks", domain.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.Internal("build index", "got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	store := o.newStorage()
	if err := store.Init(len(vectors[0])); err != nil {
		return nil, domain.Internal("build index", "init store: %v", err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, domain.Internal("build index", "upsert: %v", err)
	}

	idx := &Index{
		id:       uuid.New(),
		videoID:  chunks[0].VideoID,
		embedder: prepared,
		store:    store,
		chunks:   chunks,
		logger:   o.logger,
	}
	o.logger.Info("index built",
		slog.String("index_id", idx.ID()),
		slog.String("video_id", idx.videoID),
		slog.String("embedder", prepared.Name()),
		slog.Int("chunks", len(chunks)),
		slog.Int("dimension", len(vectors[0])),
		slog.Duration("took", time.Since(started)))
	return idx, nil
}

// ID identifies this build. A rebuilt index always has a new ID.
func (idx *Index) ID() string { return idx.id.String() }

func (idx *Index) VideoID() string { return idx.videoID }

func (idx *Index) Len() int { return len(idx.chunks) }

// Query returns up to k chunks nearest to question, best first.
func (idx *Index) Query(ctx context.Context, question string, k int) ([]domain.Chunk, error) {
	results, err := idx.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Chunk, len(results))
	for i, r := range results {
		out[i] = r.Chunk
	}
	return out, nil
}

// Search is Query with scores. Ties keep chunk order. A question that embeds
// to the zero vector, or matches nothing, is ranked by word overlap instead.
func (idx *Index) Search(ctx context.Context, question string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultK
	}
	vec, err := idx.embedder.Embed(ctx, question)
	if err != nil {
		return nil, domain.AsKind("embed question", domain.ErrEmbedding, err)
	}
	if isZero(vec) {
		idx.logger.Debug("question vector is zero, using lexical ranking")
		return idx.lexicalSearch(question, k), nil
	}
	res, err := idx.store.Search(vec, k)
	if err != nil {
		return nil, domain.Internal("search", "%v", err)
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return idx.lexicalSearch(question, k), nil
	}
	return res, nil
}

// Retriever binds the index to a fixed k.
func (idx *Index) Retriever(k int) *Retriever {
	return &Retriever{index: idx, k: k}
}

// Retriever returns the k nearest chunks for a question.
type Retriever struct {
	index *Index
	k     int
}

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.Chunk, error) {
	return r.index.Query(ctx, question, r.k)
}

func (idx *Index) lexicalSearch(question string, k int) []domain.SearchResult {
	qset := textutil.TokenSet(question)
	scores := make([]domain.SearchResult, len(idx.chunks))
	for i, ch := range idx.chunks {
		scores[i] = domain.SearchResult{Chunk: ch, Score: textutil.Ochiai(qset, ch.Text)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores[:min(k, len(scores))]
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
