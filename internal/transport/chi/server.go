package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	logpkg "github.com/kailas-cloud/silverline/internal/logger"
	healthuc "github.com/kailas-cloud/silverline/internal/usecase/health"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxJSONBodyBytes      = 64 << 10
)

// Config holds transport limits.
type Config struct {
	MaxUploadBytes int64
}

// Server serves the silverline HTTP API.
type Server struct {
	assistant     Assistant
	gate          QuotaGate
	usage         UsageReporter
	health        HealthChecker
	policy        tier.Policy
	cfg           Config
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	assistant Assistant,
	gate QuotaGate,
	usage UsageReporter,
	health HealthChecker,
	policy tier.Policy,
	cfg Config,
) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		assistant:     assistant,
		gate:          gate,
		usage:         usage,
		health:        health,
		policy:        policy,
		cfg:           cfg,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Post("/chat", s.Chat)
		r.Post("/voice", s.Voice)
		r.Post("/screenshot", s.Screenshot)
		r.Post("/scam-check", s.ScamCheck)
		r.Get("/usage", s.GetUsage)
		r.Get("/features", s.GetFeatures)
	})
}

type chatRequest struct {
	Message string           `json:"message"`
	History []domain.Message `json:"history"`
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.handleDomainError(w, r, fmt.Errorf("message is required: %w", domain.ErrInvalidRequest))
		return
	}

	caller := domain.CallerFromContext(r.Context())
	if !s.admit(w, r, caller, domusage.KindText) {
		return
	}

	res, err := s.assistant.Chat(r.Context(), caller, req.Message, req.History)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, r, caller, res)
}

// Voice handles POST /api/voice (multipart: audio, optional history JSON).
func (s *Server) Voice(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.cfg.MaxUploadBytes); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	audio, ok, err := readUpload(r, "audio", mediaAudio)
	if err == nil && !ok {
		err = fmt.Errorf("audio is required: %w", domain.ErrInvalidRequest)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	history, err := parseHistory(r.FormValue("history"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	caller := domain.CallerFromContext(r.Context())
	if !s.admit(w, r, caller, domusage.KindVoice) {
		return
	}

	res, err := s.assistant.Voice(r.Context(), caller, domain.Audio{
		Data:     audio.Data,
		Filename: audio.Filename,
		MIMEType: audio.MIMEType,
	}, history)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, r, caller, res)
}

// Screenshot handles POST /api/screenshot (multipart: image, optional question).
func (s *Server) Screenshot(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.cfg.MaxUploadBytes); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	img, ok, err := readUpload(r, "image", mediaImage)
	if err == nil && !ok {
		err = fmt.Errorf("image is required: %w", domain.ErrInvalidRequest)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	caller := domain.CallerFromContext(r.Context())
	if !s.admit(w, r, caller, domusage.KindScreenshot) {
		return
	}

	res, err := s.assistant.AnalyzeScreenshot(r.Context(), caller,
		domain.Image{Data: img.Data, MIMEType: img.MIMEType}, r.FormValue("question"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, r, caller, res)
}

type scamRequest struct {
	Text string `json:"text"`
}

// ScamCheck handles POST /api/scam-check (JSON {text} or multipart: text and/or image).
func (s *Server) ScamCheck(w http.ResponseWriter, r *http.Request) {
	var (
		text string
		img  *domain.Image
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := parseMultipart(w, r, s.cfg.MaxUploadBytes); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		up, ok, err := readUpload(r, "image", mediaImage)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if ok {
			img = &domain.Image{Data: up.Data, MIMEType: up.MIMEType}
		}
		text = r.FormValue("text")
	} else {
		var req scamRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		text = req.Text
	}
	if strings.TrimSpace(text) == "" && img == nil {
		s.handleDomainError(w, r, fmt.Errorf("text or image is required: %w", domain.ErrInvalidRequest))
		return
	}

	caller := domain.CallerFromContext(r.Context())
	if !s.admit(w, r, caller, domusage.KindScam) {
		return
	}

	res, err := s.assistant.CheckScam(r.Context(), caller, text, img)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respond(w, r, caller, res)
}

// GetUsage handles GET /api/usage?date=YYYY-MM-DD.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var date *openapi_types.Date
	if err := runtime.BindQueryParameter("form", true, false, "date", r.URL.Query(), &date); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var day domusage.Day
	if date != nil {
		day = domusage.DayOf(date.Time)
	}

	caller := domain.CallerFromContext(r.Context())
	report, err := s.usage.Report(r.Context(), caller.UserID, caller.Tier, day)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type featuresResponse struct {
	Tier     tier.Tier     `json:"tier"`
	Features tier.Features `json:"features"`
	Limits   tier.Limits   `json:"limits"`
}

// GetFeatures handles GET /api/features.
func (s *Server) GetFeatures(w http.ResponseWriter, r *http.Request) {
	caller := domain.CallerFromContext(r.Context())
	writeJSON(w, http.StatusOK, featuresResponse{
		Tier:     caller.Tier,
		Features: s.policy.Features(caller.Tier),
		Limits:   s.policy.Limits(caller.Tier),
	})
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
// Degraded still answers 200: requests are served while usage tracking is down.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// admit runs the quota gate. It writes the rejection and returns false when the request must stop.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, caller domain.Caller, kind domusage.Kind) bool {
	dec, err := s.gate.Admit(r.Context(), caller.UserID, caller.Tier, kind)
	if err != nil {
		s.handleDomainError(w, r, err)
		return false
	}
	if dec.FailOpen {
		logpkg.FromContext(r.Context()).Debug("request admitted without usage tracking",
			zap.String("kind", string(kind)),
		)
	}
	return true
}

// respond decorates a use case result with the caller's usage and writes it.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, caller domain.Caller, result any) {
	payload, err := toPayload(result)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.usage.Decorate(r.Context(), payload, caller.UserID, caller.Tier))
}

func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("decode body: %w", err)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrInvalidRequest)
	}
	return nil
}

func parseHistory(raw string) ([]domain.Message, error) {
	if raw == "" {
		return nil, nil
	}
	var history []domain.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("history must be a JSON array of messages: %w", domain.ErrInvalidRequest)
	}
	return history, nil
}
