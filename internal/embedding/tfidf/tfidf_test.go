package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"Gradient descent updates the weights step by step.",
	"The transformer uses attention over all tokens.",
	"Attention heads learn different token relations.",
}

func TestPrepareReturnsBoundEmbedder(t *testing.T) {
	base := NewEmbedder()
	prepared, err := base.Prepare(corpus)
	require.NoError(t, err)

	assert.Equal(t, "tfidf", prepared.Name())
	assert.Positive(t, prepared.Dimension())
	assert.Zero(t, base.Dimension())

	_, err = base.Embed(context.Background(), "attention")
	assert.Error(t, err)
}

func TestEmbedIsNormalized(t *testing.T) {
	e, err := NewEmbedder().Prepare(corpus)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "attention tokens")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimension())

	sum := 0.0
	for _, v := range vec {
		sum += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-9)
}

func TestEmbedUnknownWordsIsZero(t *testing.T) {
	e, err := NewEmbedder().Prepare(corpus)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "the of and quasar")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedBatchKeepsOrder(t *testing.T) {
	e, err := NewEmbedder().Prepare(corpus)
	require.NoError(t, err)

	batch, err := e.EmbedBatch(context.Background(), corpus)
	require.NoError(t, err)
	require.Len(t, batch, len(corpus))
	for i, text := range corpus {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestPrepareErrors(t *testing.T) {
	_, err := NewEmbedder().Prepare(nil)
	assert.Error(t, err)

	_, err = NewEmbedder().Prepare([]string{"the and of", "123 456"})
	assert.Error(t, err)
}
