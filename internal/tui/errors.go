package tui

import (
	"errors"

	"ytrag/internal/domain"
)

// DescribeError turns a chatbot failure into a message for the user.
func DescribeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidReference):
		return "That is not a YouTube URL or video ID."
	case errors.Is(err, domain.ErrCaptionsDisabled):
		return "Captions are disabled for this video."
	case errors.Is(err, domain.ErrNoTranscriptInLanguage):
		return "No transcript is available in the configured languages."
	case errors.Is(err, domain.ErrEmptyTranscript):
		return "The transcript of this video is empty."
	case errors.Is(err, domain.ErrFetch):
		return "Could not fetch the transcript: " + err.Error()
	case errors.Is(err, domain.ErrNotReady):
		return "Process a video first."
	case errors.Is(err, domain.ErrChunkingFailed):
		return "Could not split the transcript: " + err.Error()
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrGeneration):
		switch domain.FailureOf(err) {
		case domain.FailureAuth:
			return "The API key was rejected. Check OPENAI_API_KEY."
		case domain.FailureRateLimit:
			return "The provider is rate limiting requests. Try again later."
		case domain.FailureConnectivity:
			return "Could not reach the provider. Check your network."
		}
	}
	return "Error: " + err.Error()
}
