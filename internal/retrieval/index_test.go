package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/domain"
	"ytrag/internal/embedding/tfidf"
	"ytrag/internal/vectorstore"
	"ytrag/internal/vectorstore/memory"
)

var vocab = []string{"cats", "dogs", "birds"}

// keywordEmbedder counts vocabulary words; unknown text maps to the zero vector.
type keywordEmbedder struct {
	calls     atomic.Int32
	embedErr  error
	batchErr  error
	shortBy   int
	zeroQuery bool
}

func (e *keywordEmbedder) Name() string                              { return "keyword" }
func (e *keywordEmbedder) Prepare([]string) (domain.Embedder, error) { return e, nil }
func (e *keywordEmbedder) Dimension() int                            { return len(vocab) }

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls.Add(1)
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	if e.zeroQuery {
		return make([]float64, len(vocab)), nil
	}
	return vectorFor(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	e.calls.Add(1)
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts[:len(texts)-e.shortBy] {
		out = append(out, vectorFor(t))
	}
	return out, nil
}

func vectorFor(text string) []float64 {
	vec := make([]float64, len(vocab))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, v := range vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec
}

func makeChunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{VideoID: "dQw4w9WgXcQ", Index: i, Text: t}
	}
	return out
}

func TestQueryNearestFirst(t *testing.T) {
	idx, err := Build(context.Background(), &keywordEmbedder{},
		makeChunks("cats cats", "dogs", "birds birds", "cats dogs"))
	require.NoError(t, err)

	got, err := idx.Query(context.Background(), "dogs", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 3, got[1].Index)
}

func TestQueryTiesKeepChunkOrder(t *testing.T) {
	idx, err := Build(context.Background(), &keywordEmbedder{},
		makeChunks("birds", "cats", "cats cats", "cats"))
	require.NoError(t, err)

	got, err := idx.Query(context.Background(), "cats", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, indexes(got))
}

func TestQueryBoundedByKAndSize(t *testing.T) {
	idx, err := Build(context.Background(), &keywordEmbedder{},
		makeChunks("cats", "dogs", "birds", "cats dogs", "dogs birds", "birds cats"))
	require.NoError(t, err)
	require.Equal(t, 6, idx.Len())

	for k, want := range map[int]int{1: 1, 3: 3, 6: 6, 50: 6, 0: DefaultK, -2: DefaultK} {
		got, err := idx.Query(context.Background(), "cats", k)
		require.NoError(t, err)
		assert.Len(t, got, want, "k=%d", k)
	}

	small, err := Build(context.Background(), &keywordEmbedder{}, makeChunks("cats", "dogs"))
	require.NoError(t, err)
	got, err := small.Query(context.Background(), "cats", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestZeroQueryFallsBackToWordOverlap(t *testing.T) {
	idx, err := Build(context.Background(), &keywordEmbedder{zeroQuery: true},
		makeChunks("red apples", "green pears", "red pears"))
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), "pears green", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []int{1, 2, 0}, indexes(chunksOf(res)))
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.InDelta(t, 0.5, res[1].Score, 1e-9)
	assert.Zero(t, res[2].Score)
}

func TestTFIDFUnknownQuestionUsesLexicalRanking(t *testing.T) {
	idx, err := Build(context.Background(), tfidf.NewEmbedder(),
		makeChunks("neural networks learn weights", "what is this about", "gradient descent"))
	require.NoError(t, err)

	got, err := idx.Query(context.Background(), "what about this", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
}

func TestBuildEmbeddingFailureKeepsSubKind(t *testing.T) {
	cause := domain.NewServiceError("embed", domain.ErrEmbedding, domain.FailureRateLimit, errors.New("429"))
	_, err := Build(context.Background(), &keywordEmbedder{batchErr: cause}, makeChunks("cats"))
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, domain.FailureRateLimit, domain.FailureOf(err))

	_, err = Build(context.Background(), &keywordEmbedder{batchErr: errors.New("local failure")}, makeChunks("cats"))
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, domain.FailureOther, domain.FailureOf(err))
}

func TestBuildVectorCountMismatchIsInternal(t *testing.T) {
	_, err := Build(context.Background(), &keywordEmbedder{shortBy: 1}, makeChunks("cats", "dogs"))
	assert.ErrorIs(t, err, domain.ErrInternal)

	// An embedder reporting its own invariant violation keeps a single kind.
	cause := domain.Internal("embed", "got %d vectors for %d inputs", 1, 2)
	_, err = Build(context.Background(), &keywordEmbedder{batchErr: cause}, makeChunks("cats"))
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.NotErrorIs(t, err, domain.ErrEmbedding)
}

func TestBuildRejectsNoChunks(t *testing.T) {
	_, err := Build(context.Background(), &keywordEmbedder{}, nil)
	assert.ErrorIs(t, err, domain.ErrChunkingFailed)
}

func TestQueryEmbeddingFailure(t *testing.T) {
	emb := &keywordEmbedder{}
	idx, err := Build(context.Background(), emb, makeChunks("cats"))
	require.NoError(t, err)

	emb.embedErr = domain.NewServiceError("embed", domain.ErrEmbedding, domain.FailureAuth, errors.New("401"))
	_, err = idx.Query(context.Background(), "cats", 1)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, domain.FailureAuth, domain.FailureOf(err))
}

func TestRebuildHasNewIdentity(t *testing.T) {
	a, err := Build(context.Background(), &keywordEmbedder{}, makeChunks("cats"))
	require.NoError(t, err)
	b, err := Build(context.Background(), &keywordEmbedder{}, makeChunks("cats"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "dQw4w9WgXcQ", a.VideoID())
}

func TestRetrieverUsesFixedK(t *testing.T) {
	idx, err := Build(context.Background(), &keywordEmbedder{}, makeChunks("cats", "dogs", "birds"))
	require.NoError(t, err)

	got, err := idx.Retriever(2).Retrieve(context.Background(), "birds")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
}

func indexes(chunks []domain.Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.Index
	}
	return out
}

func chunksOf(res []domain.SearchResult) []domain.Chunk {
	out := make([]domain.Chunk, len(res))
	for i, r := range res {
		out[i] = r.Chunk
	}
	return out
}

// countingStorage records how the index drives its store.
type countingStorage struct {
	*memory.Storage
	dimension int
	upserts   int
	searches  int
}

func (s *countingStorage) Init(dimension int) error {
	s.dimension = dimension
	return s.Storage.Init(dimension)
}

func (s *countingStorage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	s.upserts++
	return s.Storage.Upsert(chunks, vectors)
}

func (s *countingStorage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.searches++
	return s.Storage.Search(vector, topK)
}

func TestBuildWithStorage(t *testing.T) {
	var stores []*countingStorage
	newStore := func() vectorstore.Storage {
		s := &countingStorage{Storage: memory.NewStorage()}
		stores = append(stores, s)
		return s
	}

	idx, err := Build(context.Background(), &keywordEmbedder{}, makeChunks("cats", "dogs"), WithStorage(newStore))
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, len(vocab), stores[0].dimension)
	assert.Equal(t, 1, stores[0].upserts)
	assert.Equal(t, 2, stores[0].Len())

	got, err := idx.Query(context.Background(), "dogs", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dogs", got[0].Text)
	assert.Equal(t, 1, stores[0].searches)

	_, err = Build(context.Background(), &keywordEmbedder{}, makeChunks("birds"), WithStorage(newStore))
	require.NoError(t, err)
	assert.Len(t, stores, 2, "every build gets a fresh store")
}
