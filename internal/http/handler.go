package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/observability"
	"github.com/davidbz/placefinder/internal/session"
)

// SearchParams are the query parameters of a search request.
type SearchParams struct {
	Query string `validate:"max=256"`
	Scope string `validate:"max=64"`
	Limit int    `validate:"omitempty,min=1,max=50"`
}

// SearchResponse is the body returned by the search endpoint.
type SearchResponse struct {
	Query       string              `json:"query"`
	Suggestions []domain.Suggestion `json:"suggestions"`
	Degraded    bool                `json:"degraded"`
}

// BreakerStatus describes the provider breaker.
type BreakerStatus struct {
	State          string     `json:"state"`
	Healthy        bool       `json:"healthy"`
	UnhealthySince *time.Time `json:"unhealthy_since,omitempty"`
}

// StatusResponse is the body returned by the status and retry endpoints.
type StatusResponse struct {
	Provider string        `json:"provider"`
	Degraded bool          `json:"degraded"`
	Breaker  BreakerStatus `json:"breaker"`
}

var errInvalidLimit = errors.New("limit must be an integer")

// Handler handles HTTP requests.
type Handler struct {
	sessions      *session.Pool
	sessionHeader string
	validate      *validator.Validate
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(sessions *session.Pool, cfg *session.Config) *Handler {
	header := "X-Session-Id"
	if cfg != nil && cfg.Header != "" {
		header = cfg.Header
	}

	return &Handler{
		sessions:      sessions,
		sessionHeader: header,
		validate:      validator.New(),
	}
}

// HandleSearch returns suggestions for the q parameter.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, client := h.sessionClient(w, r)
	logger := observability.FromContext(ctx)

	suggestions := client.Search(ctx, params.Query, domain.SearchOptions{
		Scope: params.Scope,
		Limit: params.Limit,
	})

	degraded := client.Degraded()
	logger.Debug("search served",
		observability.String("query", params.Query),
		observability.Int("results", len(suggestions)),
		observability.Bool("degraded", degraded),
	)

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:       params.Query,
		Suggestions: suggestions,
		Degraded:    degraded,
	})
}

// HandleStatus reports provider availability.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_, client := h.sessionClient(w, r)
	writeJSON(w, http.StatusOK, statusOf(client))
}

// HandleRetry closes the breaker so the next search tries the provider.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	ctx, client := h.sessionClient(w, r)

	client.Retry(ctx)
	observability.FromContext(ctx).Info("provider retry requested")

	writeJSON(w, http.StatusOK, statusOf(client))
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) parseSearchParams(r *http.Request) (SearchParams, error) {
	q := r.URL.Query()

	params := SearchParams{
		Query: q.Get("q"),
		Scope: q.Get("scope"),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, errInvalidLimit
		}
		params.Limit = limit
	}

	if err := h.validate.Struct(params); err != nil {
		return params, validationError(err)
	}

	return params, nil
}

func (h *Handler) sessionClient(w http.ResponseWriter, r *http.Request) (context.Context, *domain.LookupClient) {
	var client *domain.LookupClient

	// Minted ids are only pooled once the caller sends them back.
	id := r.Header.Get(h.sessionHeader)
	if id == "" {
		id = observability.GenerateSessionID()
		client = h.sessions.Transient()
	} else {
		client = h.sessions.Get(id)
	}
	w.Header().Set(h.sessionHeader, id)

	ctx := observability.WithSessionID(r.Context(), id)
	if name := client.ProviderName(); name != "" {
		ctx = observability.WithProvider(ctx, name)
	}

	return ctx, client
}

func statusOf(client *domain.LookupClient) StatusResponse {
	snap := client.Breaker().Snapshot()

	status := StatusResponse{
		Provider: client.ProviderName(),
		Degraded: client.Degraded(),
		Breaker: BreakerStatus{
			State:   snap.State.String(),
			Healthy: snap.Healthy,
		},
	}
	if !snap.UnhealthySince.IsZero() {
		since := snap.UnhealthySince
		status.Breaker.UnhealthySince = &since
	}

	return status
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	if fe.Param() == "" {
		return fmt.Errorf("invalid %s: %s", fieldName(fe.Field()), fe.Tag())
	}
	return fmt.Errorf("invalid %s: %s=%s", fieldName(fe.Field()), fe.Tag(), fe.Param())
}

func fieldName(field string) string {
	switch field {
	case "Query":
		return "q"
	case "Scope":
		return "scope"
	case "Limit":
		return "limit"
	default:
		return field
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
