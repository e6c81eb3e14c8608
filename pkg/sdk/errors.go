package silverline

import "github.com/kailas-cloud/silverline/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrQuotaExceeded       = domain.ErrQuotaExceeded
	ErrFeatureNotAvailable = domain.ErrFeatureNotAvailable
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrLLMRateLimited      = domain.ErrLLMRateLimited
	ErrLLMProviderError    = domain.ErrLLMProviderError
)

// QuotaError carries the cap and the current count. Use errors.As() to read it.
type QuotaError = domain.QuotaError
