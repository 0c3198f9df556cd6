package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/domain"
	"github.com/kailas-cloud/tubeask/internal/metrics"
	answeruc "github.com/kailas-cloud/tubeask/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/tubeask/internal/usecase/health"
	registryuc "github.com/kailas-cloud/tubeask/internal/usecase/registry"
)

// maxQuestionLength bounds request bodies; anything longer is not a
// question, it's an abuse vector.
const maxQuestionLength = 2000

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
	defaultLatestCount = 5
	maxLatestCount     = 50
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnknownChannel   = "unknown_channel"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the question-answering API over HTTP.
type Server struct {
	registry      *registryuc.Registry
	answers       *answeruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	registry *registryuc.Registry,
	answers *answeruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		registry: registry,
		answers:  answers,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownChannel, http.StatusNotFound, codeUnknownChannel),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// RegisterRoutes mounts all API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/channels", func(r chi.Router) {
		r.Get("/", s.ListChannels)
		r.Route("/{channel}", func(r chi.Router) {
			r.Post("/ask", s.Ask)
			r.Get("/search", s.SearchChannel)
			r.Get("/latest", s.Latest)
		})
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /v1/channels/{channel}/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}
	if len(question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"question must be at most "+strconv.Itoa(maxQuestionLength)+" characters")
		return
	}

	cfg, store, err := s.registry.Resolve(channelID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	answer, err := s.answers.Answer(r.Context(), question, cfg, store)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	outcome := "answered"
	switch {
	case answer.FallbackUsed:
		outcome = "fallback"
	case len(answer.References) == 0:
		outcome = "no_match"
	}
	metrics.AnswersTotal.WithLabelValues(channelID, outcome).Inc()

	writeJSON(w, http.StatusOK, answer)
}

type searchResultItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	PublishedAt  time.Time `json:"published_at"`
	Score        float64   `json:"score"`
	MatchedTerms []string  `json:"matched_terms,omitempty"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// SearchChannel handles GET /v1/channels/{channel}/search. It runs the
// retrieval half only; no model call, no cache.
func (s *Server) SearchChannel(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query parameter q is required")
		return
	}

	limit, err := boundedIntParam(r, "limit", defaultSearchLimit, maxSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	cfg, store, err := s.registry.Resolve(channelID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	cfg.MaxResults = limit

	scored, err := s.answers.Search(r.Context(), query, cfg, store)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(scored))
	for i, sr := range scored {
		items[i] = searchResultItem{
			ID:           sr.Record.ID,
			Title:        sr.Record.Title,
			PublishedAt:  sr.Record.PublishedAt,
			Score:        sr.Score,
			MatchedTerms: sr.MatchedTerms,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

type latestItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary,omitempty"`
}

type latestResponse struct {
	Items []latestItem `json:"items"`
}

// Latest handles GET /v1/channels/{channel}/latest.
func (s *Server) Latest(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channel")

	n, err := boundedIntParam(r, "n", defaultLatestCount, maxLatestCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	_, store, err := s.registry.Resolve(channelID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	records, err := store.Latest(r.Context(), n)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]latestItem, len(records))
	for i, rec := range records {
		items[i] = latestItem{
			ID:          rec.ID,
			Title:       rec.Title,
			PublishedAt: rec.PublishedAt,
			Summary:     rec.Summary,
		}
	}

	writeJSON(w, http.StatusOK, latestResponse{Items: items})
}

type channelItem struct {
	ID          string `json:"id"`
	Model       string `json:"model"`
	MaxResults  int    `json:"max_results"`
	RecordCount *int   `json:"record_count,omitempty"`
}

type channelListResponse struct {
	Items []channelItem `json:"items"`
}

// ListChannels handles GET /v1/channels.
func (s *Server) ListChannels(w http.ResponseWriter, r *http.Request) {
	configs := s.registry.Channels()

	items := make([]channelItem, len(configs))
	for i, cfg := range configs {
		items[i] = channelItem{
			ID:         cfg.ID,
			Model:      cfg.Model,
			MaxResults: cfg.MaxResults,
		}

		// Count is best effort; a flaky archive should not break listing.
		if _, store, err := s.registry.Resolve(cfg.ID); err == nil {
			if count, err := store.Count(r.Context()); err == nil {
				items[i].RecordCount = &count
			}
		}
	}

	writeJSON(w, http.StatusOK, channelListResponse{Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// boundedIntParam parses a positive query parameter with a default and cap.
func boundedIntParam(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > max {
		return 0, errors.New(name + " must be between 1 and " + strconv.Itoa(max))
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnknownChannel,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
