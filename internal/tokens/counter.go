package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding of the text-embedding-3 models.
const DefaultEncoding = "cl100k_base"

// Counter counts BPE tokens.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter loads the named encoding. The BPE ranks are fetched on first use
// and cached by tiktoken-go, so this can fail offline.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %s: %w", encoding, err)
	}
	return &Counter{encoding: enc}, nil
}

// ForModel picks the encoding registered for model, falling back to DefaultEncoding.
func ForModel(model string) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return NewCounter(DefaultEncoding)
	}
	return &Counter{encoding: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c == nil || c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
