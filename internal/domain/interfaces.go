package domain

import "context"

// Document is a fetched transcript ready for chunking.
type Document struct {
	VideoID  string
	Language string
	Content  string
}

// Segment is a single caption line as delivered by the transcript source.
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

// Chunk is a contiguous piece of a transcript used for indexing.
// Start and End are character offsets into the transcript text.
type Chunk struct {
	VideoID string
	ChunkID string
	Text    string
	Index   int
	Start   int
	End     int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// TranscriptSource fetches caption segments for a video.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string, languages []string) ([]Segment, error)
}

// Embedder converts free text into a numeric vector representation.
// Prepare returns an embedder bound to the given corpus; implementations that
// need no corpus statistics return themselves.
type Embedder interface {
	Name() string
	Prepare(corpus []string) (Embedder, error)
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
