package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	searchuc "github.com/kailas-cloud/cafematch/internal/usecase/search"
)

// ErrorCode is a machine-readable error classification.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeTooManySessions      ErrorCode = "too_many_sessions"
	ErrorCodeMissingCredential    ErrorCode = "missing_credential"
	ErrorCodeRelevanceUnavailable ErrorCode = "relevance_unavailable"
	ErrorCodeMalformedResponse    ErrorCode = "malformed_response"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest carries query text.
type QueryRequest struct {
	Text string `json:"text"`
}

// StatusResponse reports the engine phase and the current error kind.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SearchItem is one ranked café with its display score.
type SearchItem struct {
	Cafe  cafe.Cafe `json:"cafe"`
	Score float64   `json:"score"`
}

// SearchResponse is the current search state of a session.
type SearchResponse struct {
	Status   string       `json:"status"`
	Error    string       `json:"error,omitempty"`
	Query    string       `json:"query"`
	Sequence uint64       `json:"sequence"`
	Source   string       `json:"source,omitempty"`
	Items    []SearchItem `json:"items"`
}

// ScoreResponse is the display score of one café.
type ScoreResponse struct {
	CafeID int     `json:"cafe_id"`
	Score  float64 `json:"score"`
}

// FallbackRequest toggles fallback-only scoring.
type FallbackRequest struct {
	Force *bool `json:"force"`
}

// FallbackResponse reports whether fallback-only scoring is active.
type FallbackResponse struct {
	Force bool `json:"force"`
}

// CafeListResponse is a page of catalog records.
type CafeListResponse struct {
	Items   []cafe.Cafe `json:"items"`
	Total   int         `json:"total"`
	HasMore bool        `json:"has_more"`
}

// HealthResponse is the aggregated health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SubmitParams are the query parameters of POST /search/submit.
type SubmitParams struct {
	Wait bool
}

// PageParams are the query parameters of the café listings.
type PageParams struct {
	Limit  *int
	Offset *int
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	BaseRouter  chi.Router
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter mounts every API route of s on a chi router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := opts.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	for _, mw := range opts.Middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/search", func(r chi.Router) {
		r.Get("/", s.GetSearch)
		r.Delete("/", s.ClearSearch)
		r.Post("/query", s.SetQuery)
		r.Post("/submit", s.Submit)
		r.Get("/status", s.GetStatus)
		r.Get("/scores/{cafeId}", s.GetScore)
	})
	r.Delete("/session", s.CloseSession)

	r.Get("/preferences", s.GetPreferences)
	r.Put("/preferences", s.PutPreferences)
	r.Get("/settings/fallback", s.GetFallback)
	r.Put("/settings/fallback", s.PutFallback)

	r.Route("/cafes", func(r chi.Router) {
		r.Get("/", s.ListCafes)
		r.Get("/recommended", s.ListRecommended)
		r.Get("/{cafeId}", s.GetCafe)
	})

	return r
}

func bindCafeID(r *http.Request) (int, error) {
	var id int
	err := runtime.BindStyledParameterWithOptions("simple", "cafeId", chi.URLParam(r, "cafeId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return id, err
}

func bindSubmitParams(r *http.Request) (SubmitParams, error) {
	var p SubmitParams
	var wait *bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		return p, err
	}
	if wait != nil {
		p.Wait = *wait
	}
	return p, nil
}

func bindPageParams(r *http.Request) (PageParams, error) {
	var p PageParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &p.Limit); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &p.Offset); err != nil {
		return p, err
	}
	return p, nil
}

func paginateCafes(all []cafe.Cafe, p PageParams) CafeListResponse {
	limit := defaultPageLimit
	if p.Limit != nil && *p.Limit > 0 {
		limit = min(*p.Limit, maxPageLimit)
	}
	offset := 0
	if p.Offset != nil && *p.Offset > 0 {
		offset = *p.Offset
	}

	total := len(all)
	if offset >= total {
		return CafeListResponse{Items: []cafe.Cafe{}, Total: total}
	}
	end := min(offset+limit, total)
	return CafeListResponse{
		Items:   all[offset:end],
		Total:   total,
		HasMore: end < total,
	}
}

func searchToResponse(snap searchuc.Snapshot) SearchResponse {
	cafes := snap.Results.Cafes()
	items := make([]SearchItem, len(cafes))
	for i := range cafes {
		items[i] = SearchItem{Cafe: cafes[i], Score: snap.Results.Score(cafes[i].ID)}
	}
	return SearchResponse{
		Status:   string(snap.Status),
		Error:    string(snap.Err),
		Query:    snap.Query,
		Sequence: snap.Results.Sequence(),
		Source:   string(snap.Results.Source()),
		Items:    items,
	}
}
