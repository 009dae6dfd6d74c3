package chunker

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/domain"
)

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestSplitSmallChunksWithOverlap(t *testing.T) {
	s, err := NewRecursiveSplitter(9, 3)
	require.NoError(t, err)

	chunks, err := s.Split("AAAA BBBB CCCC DDDD")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAAA BBBB", "BBB CCCC", "CCC DDDD"}, texts(chunks))
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 9)
		assert.Equal(t, i, c.Index)
	}
	assert.Contains(t, chunks[1].Text, "BBB")
	assert.Contains(t, chunks[2].Text, "CCC")
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s, err := NewRecursiveSplitter(100, 10)
	require.NoError(t, err)

	chunks, err := s.Split("  just a short transcript \n")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a short transcript", chunks[0].Text)
	assert.Equal(t, 2, chunks[0].Start)
	assert.Equal(t, 25, chunks[0].End)
}

func TestSplitPrefersParagraphs(t *testing.T) {
	s, err := NewRecursiveSplitter(12, 0)
	require.NoError(t, err)

	chunks, err := s.Split("para one.\n\npara two.")
	require.NoError(t, err)
	assert.Equal(t, []string{"para one.", "para two."}, texts(chunks))
}

func TestSplitPrefersSentenceEnds(t *testing.T) {
	s, err := NewRecursiveSplitter(20, 0)
	require.NoError(t, err)

	chunks, err := s.Split("We start here. Then we go on. Done now!")
	require.NoError(t, err)
	assert.Equal(t, []string{"We start here.", "Then we go on.", "Done now!"}, texts(chunks))
}

func TestSplitFallsBackToCharacters(t *testing.T) {
	s, err := NewRecursiveSplitter(5, 2)
	require.NoError(t, err)

	chunks, err := s.Split("abcdefghijklmnop")
	require.NoError(t, err)
	assert.Equal(t, []string{"abcde", "defgh", "ghijk", "jklmn", "mnop"}, texts(chunks))
}

func TestSplitIsDeterministic(t *testing.T) {
	s, err := NewRecursiveSplitter(120, 30)
	require.NoError(t, err)
	text := sampleTranscript()

	first, err := s.Split(text)
	require.NoError(t, err)
	second, err := s.Split(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitBounds(t *testing.T) {
	text := sampleTranscript()
	runes := []rune(text)

	for _, cfg := range []struct{ size, overlap int }{
		{50, 0}, {120, 30}, {200, 199}, {1000, 200}, {7, 3},
	} {
		s, err := NewRecursiveSplitter(cfg.size, cfg.overlap)
		require.NoError(t, err)
		chunks, err := s.Split(text)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		covered := make([]bool, len(runes))
		for i, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c.Text)), cfg.size)
			assert.Equal(t, string(runes[c.Start:c.End]), c.Text)
			for p := c.Start; p < c.End; p++ {
				covered[p] = true
			}
			if i > 0 {
				prev := chunks[i-1]
				assert.Greater(t, c.End, prev.End)
				assert.LessOrEqual(t, prev.End-c.Start, cfg.overlap, "overlap between %d and %d", i-1, i)
			}
		}
		for p, r := range runes {
			if !unicode.IsSpace(r) {
				assert.True(t, covered[p], "rune %d (%q) not covered with size %d", p, r, cfg.size)
			}
		}
	}
}

func TestSplitCountsRunes(t *testing.T) {
	s, err := NewRecursiveSplitter(6, 0)
	require.NoError(t, err)

	chunks, err := s.Split("héllo wörld ça")
	require.NoError(t, err)
	assert.Equal(t, []string{"héllo", "wörld", "ça"}, texts(chunks))
}

func TestSplitInvalidConfig(t *testing.T) {
	for _, cfg := range []struct{ size, overlap int }{
		{0, 0}, {-1, 0}, {10, -1}, {10, 10}, {10, 11},
	} {
		_, err := NewRecursiveSplitter(cfg.size, cfg.overlap)
		assert.ErrorIs(t, err, domain.ErrChunkingFailed)

		_, err = (&RecursiveSplitter{ChunkSize: cfg.size, ChunkOverlap: cfg.overlap}).Split("text")
		assert.ErrorIs(t, err, domain.ErrChunkingFailed)
	}
}

func TestSplitBlankInputFails(t *testing.T) {
	s, err := NewRecursiveSplitter(10, 2)
	require.NoError(t, err)

	for _, text := range []string{"", "   \n\n  "} {
		_, err := s.Split(text)
		assert.ErrorIs(t, err, domain.ErrChunkingFailed)
	}
}

func TestChunkStampsVideoID(t *testing.T) {
	s, err := NewRecursiveSplitter(9, 3)
	require.NoError(t, err)

	chunks, err := s.Chunk(domain.Document{VideoID: "dQw4w9WgXcQ", Content: "AAAA BBBB CCCC DDDD"})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, "dQw4w9WgXcQ", c.VideoID)
		assert.Equal(t, "dQw4w9WgXcQ:"+string(rune('0'+i)), c.ChunkID)
	}
}

func sampleTranscript() string {
	var sb strings.Builder
	words := []string{"so", "today", "we", "are", "going", "to", "talk", "about", "vector", "search",
		"embeddings", "and", "why", "retrieval", "matters", "for", "grounded", "answers"}
	for i := 0; i < 400; i++ {
		sb.WriteString(words[i%len(words)])
		switch {
		case i%97 == 96:
			sb.WriteString(".\n\n")
		case i%31 == 30:
			sb.WriteString("\n")
		case i%13 == 12:
			sb.WriteString(". ")
		default:
			sb.WriteString(" ")
		}
	}
	sb.WriteString("supercalifragilisticexpialidocious-and-then-some-more-unbroken-text")
	return sb.String()
}
