// Package transcript turns caption segments into the plain transcript text the
// rest of the pipeline works on.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ytrag/internal/domain"
)

// DefaultLanguages is used when no language preference is configured.
var DefaultLanguages = []string{"en"}

// Fetcher wraps a TranscriptSource.
type Fetcher struct {
	source domain.TranscriptSource
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher over source.
func NewFetcher(source domain.TranscriptSource, opts ...Option) *Fetcher {
	f := &Fetcher{source: source, logger: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch returns the transcript of videoID as one string, segments joined by single spaces.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, languages []string) (string, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	segments, err := f.source.Fetch(ctx, videoID, languages)
	if err != nil {
		return "", classify(err)
	}
	text := Join(segments)
	if text == "" {
		return "", fmt.Errorf("%w: video %s", domain.ErrEmptyTranscript, videoID)
	}
	f.logger.Info("transcript fetched",
		slog.String("video_id", videoID),
		slog.Int("segments", len(segments)),
		slog.Int("chars", len(text)))
	return text, nil
}

// Join concatenates non-blank segment texts with single spaces.
func Join(segments []domain.Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// classify keeps known transcript kinds and reports everything else as ErrFetch.
func classify(err error) error {
	for _, kind := range []error{
		domain.ErrCaptionsDisabled,
		domain.ErrNoTranscriptInLanguage,
		domain.ErrEmptyTranscript,
		domain.ErrFetch,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrFetch, err)
}
