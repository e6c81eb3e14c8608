package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	logpkg "github.com/kailas-cloud/silverline/internal/logger"
)

// Error codes returned in the "code" field.
const (
	codeBadRequest          = "bad_request"
	codeUnauthorized        = "unauthorized"
	codeQuotaExceeded       = "quota_exceeded"
	codeFeatureNotAvailable = "feature_not_available"
	codeUnsupportedMedia    = "unsupported_media"
	codePayloadTooLarge     = "payload_too_large"
	codeAssistantBusy       = "assistant_busy"
	codeProviderError       = "provider_error"
	codeInternalError       = "internal_error"
)

// Client-facing messages for rejections.
const (
	msgQuotaExceeded       = "You have reached today's free message limit. Upgrade to Premium for unlimited messages."
	msgFeatureNotAvailable = "This feature is available on the Premium plan."
	msgAssistantBusy       = "The assistant is busy right now. Please try again in a moment."
	msgProviderError       = "The assistant is having trouble right now. Please try again later."
)

// errorResponse is the JSON body of every error.
type errorResponse struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	UpgradePrompt   bool   `json:"upgradePrompt,omitempty"`
	RequiresPremium bool   `json:"requiresPremium,omitempty"`
	Limit           *int   `json:"limit,omitempty"`
	Current         *int   `json:"current,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		quotaHandler,
		featureHandler,
		payloadTooLargeHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeBadRequest, ""),
		sentinelHandler(domain.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, codeUnsupportedMedia, ""),
		sentinelHandler(domain.ErrLLMRateLimited, http.StatusTooManyRequests, codeAssistantBusy, msgAssistantBusy),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, codeProviderError, msgProviderError),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// sentinelHandler matches a single sentinel. An empty message sends err's text.
func sentinelHandler(sentinel error, status int, code, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := message
		if msg == "" {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// quotaHandler renders 429 with the upgrade prompt and the cap that was hit.
func quotaHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return false
	}
	resp := errorResponse{Error: msgQuotaExceeded, Code: codeQuotaExceeded, UpgradePrompt: true}
	var qe *domain.QuotaError
	if errors.As(err, &qe) {
		resp.Limit = &qe.Limit
		resp.Current = &qe.Current
	}
	writeJSON(w, http.StatusTooManyRequests, resp)
	return true
}

func featureHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrFeatureNotAvailable) {
		return false
	}
	writeJSON(w, http.StatusForbidden, errorResponse{
		Error:           msgFeatureNotAvailable,
		Code:            codeFeatureNotAvailable,
		RequiresPremium: true,
	})
	return true
}

func payloadTooLargeHandler(w http.ResponseWriter, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "upload is too large")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
