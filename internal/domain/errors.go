package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded signals that the daily cap for the caller's tier is reached.
	ErrQuotaExceeded = errors.New("daily limit reached")
	// ErrFeatureNotAvailable signals that the caller's tier does not include the feature.
	ErrFeatureNotAvailable = errors.New("feature not available on this plan")
	// ErrUsageTracking signals a fault while reading or writing usage counters.
	ErrUsageTracking = errors.New("usage tracking error")

	// ErrInvalidRequest signals malformed client input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupportedMedia signals an upload of the wrong media type.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrLLMRateLimited signals that the model provider throttled the request.
	ErrLLMRateLimited = errors.New("assistant is busy")
	// ErrLLMProviderError signals a model provider failure.
	ErrLLMProviderError = errors.New("assistant provider error")
)

// QuotaError wraps ErrQuotaExceeded with the cap and current count.
type QuotaError struct {
	Limit   int
	Current int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %d of %d used", ErrQuotaExceeded.Error(), e.Current, e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota error.
func NewQuotaExceeded(limit, current int) error {
	return &QuotaError{Limit: limit, Current: current}
}
