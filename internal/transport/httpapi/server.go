// Package httpapi binds the assistant services to a chi HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/domain"
	"github.com/campusbrain/campusbrain/internal/intent"
	"github.com/campusbrain/campusbrain/internal/metrics"
	"github.com/campusbrain/campusbrain/internal/rag"
	"github.com/campusbrain/campusbrain/internal/search"
	"github.com/campusbrain/campusbrain/internal/version"
)

// ErrorResponse is the JSON error body for every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used by the transport layer.
const (
	codeBadRequest      = "bad_request"
	codeInvalidArgument = "invalid_argument"
	codeUnauthorized    = "unauthorized"
	codeRateLimited     = "rate_limited"
	codeUpstreamError   = "upstream_error"
	codeInternalError   = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Pinger checks database connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the indexing, answering and board search operations.
type Server struct {
	indexer       *rag.Indexer
	answerer      *rag.Answerer
	search        *search.Service
	db            Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	indexer *rag.Indexer,
	answerer *rag.Answerer,
	searchSvc *search.Service,
	db Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		indexer:  indexer,
		answerer: answerer,
		search:   searchSvc,
		db:       db,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeInvalidArgument),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrChatProviderError, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrBoardUnavailable, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes mounts all endpoints on a fresh chi router. apiKeys guards the
// /v1 surface; health and metrics stay open.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(s.logger))
	r.Use(wideEventMiddleware(s.logger))
	r.Use(APIKeyMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/index", s.Index)
		r.Post("/answer", s.Answer)
		r.Post("/search", s.Search)
		r.Post("/intent", s.Intent)
	})

	return r
}

// IndexRequest is the body of POST /v1/index.
type IndexRequest struct {
	Chunks []ChunkPayload `json:"chunks"`
}

// ChunkPayload is one piece of course material to index. Payload is an
// opaque metadata map stored with the point.
type ChunkPayload struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Title   string         `json:"title,omitempty"`
	Section string         `json:"section,omitempty"`
	URL     string         `json:"url,omitempty"`
	Course  string         `json:"course,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Index handles POST /v1/index.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	chunks := make([]domain.Chunk, len(req.Chunks))
	for i, c := range req.Chunks {
		chunks[i] = domain.Chunk{
			ID:      c.ID,
			Text:    c.Text,
			Title:   c.Title,
			Section: c.Section,
			URL:     c.URL,
			Course:  c.Course,
			Extra:   c.Payload,
		}
	}

	res, err := s.indexer.Index(r.Context(), chunks)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Answer handles POST /v1/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	ans, err := s.answerer.Answer(r.Context(), req.Question, req.TopK, req.Model)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ans)
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Search handles POST /v1/search. Expected failures come back tagged
// inside the 200 body; only transport-level problems get an HTTP error.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	res := s.search.Search(r.Context(), req.Query, req.Limit)
	writeJSON(w, http.StatusOK, res)
}

// IntentRequest is the body of POST /v1/intent.
type IntentRequest struct {
	Text string `json:"text"`
}

// IntentResponse reports the detected intent, with extracted file details
// when the intent is a file fetch.
type IntentResponse struct {
	Detected bool             `json:"detected"`
	IntentID string           `json:"intentId,omitempty"`
	FileInfo *intent.FileInfo `json:"fileInfo,omitempty"`
}

// Intent handles POST /v1/intent.
func (s *Server) Intent(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	configs := append(intent.PostIntentConfigs(), intent.FetchFileIntentConfigs()...)
	res := intent.Detect(req.Text, configs)

	resp := IntentResponse{Detected: res.Detected, IntentID: res.IntentID}
	if res.Detected && res.IntentID == intent.IntentFetchFile {
		info := intent.ExtractFileInfo(req.Text)
		resp.FileInfo = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{
		"status":  status,
		"version": version.Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrUnauthorized,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrChatProviderError,
		domain.ErrBoardUnavailable,
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
