package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/logger"
	healthuc "github.com/kailas-cloud/cafematch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/cafematch/internal/usecase/search"
)

// SessionHeader carries the display client session id in both directions.
const SessionHeader = "X-Session-ID"

// defaultSubmitWait bounds how long Submit with ?wait=true holds the request.
const defaultSubmitWait = 20 * time.Second

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SessionRegistry hands out per-client search engines.
type SessionRegistry interface {
	Acquire(id string) (string, *searchuc.Engine, error)
	Close(id string) error
}

// CatalogReader reads the café catalog.
type CatalogReader interface {
	All() []cafe.Cafe
	Get(id int) (cafe.Cafe, error)
}

// PreferenceStore reads and replaces the current preferences.
type PreferenceStore interface {
	Get() preference.Set
	Set(p preference.Set) error
}

// FallbackToggle switches fallback-only relevance scoring at runtime.
type FallbackToggle interface {
	SetForceFallback(force bool)
	ForceFallback() bool
}

// Server implements the HTTP display API.
type Server struct {
	sessions      SessionRegistry
	catalog       CatalogReader
	prefs         PreferenceStore
	fallback      FallbackToggle
	health        *healthuc.Service
	logger        *zap.Logger
	submitWait    time.Duration
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions SessionRegistry,
	catalog CatalogReader,
	prefs PreferenceStore,
	fallback FallbackToggle,
	health *healthuc.Service,
	l *zap.Logger,
) *Server {
	s := &Server{
		sessions:   sessions,
		catalog:    catalog,
		prefs:      prefs,
		fallback:   fallback,
		health:     health,
		logger:     logger.OrNop(l),
		submitWait: defaultSubmitWait,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidPreferences, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrTooManySessions, http.StatusTooManyRequests, ErrorCodeTooManySessions),
		sentinelHandler(domain.ErrMissingCredential, http.StatusServiceUnavailable, ErrorCodeMissingCredential),
		sentinelHandler(domain.ErrServiceUnavailable, http.StatusBadGateway, ErrorCodeRelevanceUnavailable),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, ErrorCodeMalformedResponse),
	}
	return s
}

// SetQuery handles POST /search/query.
func (s *Server) SetQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decodeQuery(w, r, &req) {
		return
	}

	eng, ok := s.engine(w, r)
	if !ok {
		return
	}
	eng.SetQuery(req.Text)

	writeJSON(w, http.StatusAccepted, StatusResponse{Status: string(eng.Status())})
}

// Submit handles POST /search/submit. With ?wait=true the response carries the
// results, unless the request ends or the wait limit passes first; then it
// answers 202 with the current status.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	params, err := bindSubmitParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	var req QueryRequest
	if !s.decodeQuery(w, r, &req) {
		return
	}

	eng, ok := s.engine(w, r)
	if !ok {
		return
	}
	eng.Submit(req.Text)

	if params.Wait {
		ctx, cancel := context.WithTimeout(r.Context(), s.submitWait)
		defer cancel()
		if err := eng.WaitContext(ctx); err == nil {
			writeJSON(w, http.StatusOK, searchToResponse(eng.Snapshot()))
			return
		}
		logger.FromContext(r.Context(), s.logger).Debug("Submit wait ended before the search finished")
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: string(eng.Status())})
}

// ClearSearch handles DELETE /search.
func (s *Server) ClearSearch(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w, r)
	if !ok {
		return
	}
	eng.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// GetSearch handles GET /search.
func (s *Server) GetSearch(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(eng.Snapshot()))
}

// GetScore handles GET /search/scores/{cafeId}.
func (s *Server) GetScore(w http.ResponseWriter, r *http.Request) {
	id, err := bindCafeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid cafeId: "+err.Error())
		return
	}

	eng, ok := s.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ScoreResponse{CafeID: id, Score: eng.Score(id)})
}

// GetStatus handles GET /search/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w, r)
	if !ok {
		return
	}
	snap := eng.Snapshot()
	writeJSON(w, http.StatusOK, StatusResponse{Status: string(snap.Status), Error: string(snap.Err)})
}

// CloseSession handles DELETE /session.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, SessionHeader+" header is required")
		return
	}
	if err := s.sessions.Close(id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences handles GET /preferences.
func (s *Server) GetPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Get())
}

// PutPreferences handles PUT /preferences.
func (s *Server) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var p preference.Set
	if !decodeBody(w, r, &p) {
		return
	}
	if err := s.prefs.Set(p); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.prefs.Get())
}

// PutFallback handles PUT /settings/fallback.
func (s *Server) PutFallback(w http.ResponseWriter, r *http.Request) {
	var req FallbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Force == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "force is required")
		return
	}
	s.fallback.SetForceFallback(*req.Force)
	logger.FromContext(r.Context(), s.logger).Info("Fallback mode changed", zap.Bool("force", *req.Force))
	writeJSON(w, http.StatusOK, FallbackResponse{Force: s.fallback.ForceFallback()})
}

// GetFallback handles GET /settings/fallback.
func (s *Server) GetFallback(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FallbackResponse{Force: s.fallback.ForceFallback()})
}

// ListCafes handles GET /cafes.
func (s *Server) ListCafes(w http.ResponseWriter, r *http.Request) {
	page, err := bindPageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameters: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, paginateCafes(s.catalog.All(), page))
}

// ListRecommended handles GET /cafes/recommended.
func (s *Server) ListRecommended(w http.ResponseWriter, r *http.Request) {
	page, err := bindPageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	prefs := s.prefs.Get()
	all := s.catalog.All()
	admitted := make([]cafe.Cafe, 0, len(all))
	for i := range all {
		if prefs.Admits(&all[i]) {
			admitted = append(admitted, all[i])
		}
	}
	writeJSON(w, http.StatusOK, paginateCafes(admitted, page))
}

// GetCafe handles GET /cafes/{cafeId}.
func (s *Server) GetCafe(w http.ResponseWriter, r *http.Request) {
	id, err := bindCafeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid cafeId: "+err.Error())
		return
	}
	c, err := s.catalog.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// engine resolves the caller's session, minting one when needed, and echoes its id.
func (s *Server) engine(w http.ResponseWriter, r *http.Request) (*searchuc.Engine, bool) {
	id, eng, err := s.sessions.Acquire(r.Header.Get(SessionHeader))
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	w.Header().Set(SessionHeader, id)
	return eng, true
}

// decodeQuery decodes a QueryRequest and rejects oversized text. Blank text passes
// through since it clears the search.
func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request, req *QueryRequest) bool {
	if !decodeBody(w, r, req) {
		return false
	}
	if err := request.Validate(req.Text); err != nil && !errors.Is(err, domain.ErrEmptyQuery) {
		s.handleDomainError(w, r, err)
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidQuery,
		domain.ErrInvalidPreferences,
		domain.ErrTooManySessions,
		domain.ErrMissingCredential,
		domain.ErrServiceUnavailable,
		domain.ErrMalformedResponse,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	l := logger.FromContext(r.Context(), s.logger)
	l.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	l.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
