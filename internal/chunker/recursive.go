package chunker

import (
	"fmt"
	"sort"
	"strconv"
	"unicode"

	"ytrag/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separator is one level of the split hierarchy. A boundary falls cut runes
// after the start of each pattern match; a level without patterns splits
// between every rune.
type separator struct {
	patterns [][]rune
	cut      int
}

func sep(cut int, patterns ...string) separator {
	s := separator{cut: cut}
	for _, p := range patterns {
		s.patterns = append(s.patterns, []rune(p))
	}
	return s
}

// Paragraphs, lines, sentence ends, words, characters.
var defaultSeparators = []separator{
	sep(0, "\n\n"),
	sep(0, "\n"),
	sep(1, ". ", "? ", "! "),
	sep(0, " "),
	sep(0),
}

type span struct{ start, end int }

func (s span) len() int { return s.end - s.start }

// RecursiveSplitter cuts text at the coarsest boundary that yields pieces no
// longer than ChunkSize, then packs pieces greedily into chunks, carrying up
// to ChunkOverlap characters of trailing context into the next chunk.
// Lengths and offsets are counted in characters (runes).
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewRecursiveSplitter validates the sizes and returns a splitter.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) (*RecursiveSplitter, error) {
	s := &RecursiveSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RecursiveSplitter) validate() error {
	switch {
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrChunkingFailed, s.ChunkSize)
	case s.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrChunkingFailed, s.ChunkOverlap)
	case s.ChunkOverlap >= s.ChunkSize:
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrChunkingFailed, s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}

// Chunk splits the document content and stamps each chunk with the video ID.
func (s *RecursiveSplitter) Chunk(document domain.Document) ([]domain.Chunk, error) {
	chunks, err := s.Split(document.Content)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].VideoID = document.VideoID
		chunks[i].ChunkID = document.VideoID + ":" + strconv.Itoa(chunks[i].Index)
	}
	return chunks, nil
}

// Split returns the chunks of text in order. The same input always yields the same chunks.
func (s *RecursiveSplitter) Split(text string) ([]domain.Chunk, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	var chunks []domain.Chunk
	if len(runes) > 0 {
		chunks = s.merge(runes, s.split(runes, span{0, len(runes)}, defaultSeparators))
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced from %d characters", domain.ErrChunkingFailed, len(runes))
	}
	return chunks, nil
}

// split breaks whole into contiguous spans of at most ChunkSize runes.
func (s *RecursiveSplitter) split(runes []rune, whole span, seps []separator) []span {
	if whole.len() <= s.ChunkSize {
		return []span{whole}
	}
	level, rest := pickSeparator(runes, whole, seps)

	var out []span
	start := whole.start
	for _, b := range append(boundaries(runes, whole, level), whole.end) {
		piece := span{start, b}
		start = b
		switch {
		case piece.len() == 0:
		case piece.len() <= s.ChunkSize:
			out = append(out, piece)
		default:
			out = append(out, s.split(runes, piece, rest)...)
		}
	}
	return out
}

// pickSeparator returns the first level that occurs in whole and the finer levels after it.
func pickSeparator(runes []rune, whole span, seps []separator) (separator, []separator) {
	for i, sp := range seps {
		if len(sp.patterns) == 0 || len(boundaries(runes, whole, sp)) > 0 {
			return sp, seps[i+1:]
		}
	}
	return separator{}, nil
}

// boundaries lists the cut points strictly inside whole, ascending.
func boundaries(runes []rune, whole span, level separator) []int {
	if len(level.patterns) == 0 {
		out := make([]int, 0, whole.len())
		for p := whole.start + 1; p < whole.end; p++ {
			out = append(out, p)
		}
		return out
	}
	seen := make(map[int]struct{})
	var out []int
	for _, pat := range level.patterns {
		for i := whole.start; i+len(pat) <= whole.end; {
			if !hasPrefixAt(runes, i, pat) {
				i++
				continue
			}
			if p := i + level.cut; p > whole.start && p < whole.end {
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					out = append(out, p)
				}
			}
			i += len(pat)
		}
	}
	sort.Ints(out)
	return out
}

func hasPrefixAt(runes []rune, i int, pat []rune) bool {
	for k, r := range pat {
		if runes[i+k] != r {
			return false
		}
	}
	return true
}

// merge packs contiguous spans into chunks of at most ChunkSize runes.
func (s *RecursiveSplitter) merge(runes []rune, spans []span) []domain.Chunk {
	var chunks []domain.Chunk
	start := spans[0].start
	for i := 0; i < len(spans); {
		end, j := start, i
		for j < len(spans) && spans[j].end-start <= s.ChunkSize {
			end = spans[j].end
			j++
		}
		// A chunk that adds nothing past the previous one is dropped.
		if a, b, ok := trimSpace(runes, start, end); ok && (len(chunks) == 0 || b > chunks[len(chunks)-1].End) {
			chunks = append(chunks, domain.Chunk{
				Text:  string(runes[a:b]),
				Index: len(chunks),
				Start: a,
				End:   b,
			})
		}
		if j == len(spans) {
			break
		}
		next := s.overlapStart(runes, spans, end)
		if spans[j].end-next > s.ChunkSize {
			next = spans[j].end - s.ChunkSize
		}
		start, i = next, j
	}
	return chunks
}

// overlapStart picks where the chunk following end begins: the earliest span
// boundary inside the overlap window, else the earliest word start, else the
// window start itself.
func (s *RecursiveSplitter) overlapStart(runes []rune, spans []span, end int) int {
	if s.ChunkOverlap == 0 {
		return end
	}
	lo := max(end-s.ChunkOverlap, 0)
	k := sort.Search(len(spans), func(k int) bool { return spans[k].start >= lo })
	if k < len(spans) && spans[k].start < end {
		return spans[k].start
	}
	for p := lo; p < end; p++ {
		if p > 0 && unicode.IsSpace(runes[p-1]) && !unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return lo
}

func trimSpace(runes []rune, a, b int) (int, int, bool) {
	for a < b && unicode.IsSpace(runes[a]) {
		a++
	}
	for b > a && unicode.IsSpace(runes[b-1]) {
		b--
	}
	return a, b, a < b
}
