package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/openai/openai-go/v3"

	"ytrag/internal/domain"
)

// classify maps an SDK or transport error to a failure sub-kind.
func classify(err error) domain.FailureKind {
	if err == nil {
		return domain.FailureOther
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.FailureAuth
		case http.StatusTooManyRequests:
			return domain.FailureRateLimit
		default:
			return domain.FailureOther
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureConnectivity
	}
	if errors.Is(err, context.Canceled) {
		return domain.FailureOther
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.FailureConnectivity
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.FailureConnectivity
	}
	return domain.FailureOther
}

func embeddingError(err error) error {
	return domain.NewServiceError("embed", domain.ErrEmbedding, classify(err), err)
}

func generationError(err error) error {
	return domain.NewServiceError("generate", domain.ErrGeneration, classify(err), err)
}
