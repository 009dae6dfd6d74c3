package textutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"it's", "a", "café", "day"}, Tokens("It's a Café-day, 2024!"))
	assert.Empty(t, Tokens("123 !!"))
}

func TestOchiai(t *testing.T) {
	q := TokenSet("vector search")
	assert.InDelta(t, 1/math.Sqrt(2*3), Ochiai(q, "Search the index"), 1e-12)
	assert.InDelta(t, 1.0, Ochiai(q, "search vector SEARCH"), 1e-12)
	assert.Zero(t, Ochiai(q, "unrelated words"))
	assert.Zero(t, Ochiai(map[string]struct{}{}, "anything"))
	assert.Zero(t, Ochiai(q, "..."))
}

func TestStopwordsFresh(t *testing.T) {
	a := Stopwords()
	delete(a, "the")
	_, ok := Stopwords()["the"]
	assert.True(t, ok)
}
