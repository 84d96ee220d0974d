// Package rest serves the gateway operations as a REST/JSON API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/morezero/fred-gateway/pkg/catalog"
	"github.com/morezero/fred-gateway/pkg/dispatcher"
	"github.com/morezero/fred-gateway/pkg/envelope"
	"github.com/morezero/fred-gateway/pkg/outcome"
	"github.com/morezero/fred-gateway/pkg/params"
)

const logPrefix = "rest:handler"

// DocumentationURL is linked from the info document.
const DocumentationURL = "https://fred.stlouisfed.org/docs/api/fred/"

// AvailableEndpoints is listed in every 404 body.
var AvailableEndpoints = []string{
	"GET /",
	"GET /health",
	"POST /api/browse",
	"POST /api/search",
	"GET /api/series/:seriesId",
	"POST /api/series",
}

// Info describes the service in GET / and GET /health.
type Info struct {
	Name        string
	Description string
	Version     string
}

// Options configures the REST handler.
type Options struct {
	Info        Info
	CORSOrigins []string
	// Metrics is served at GET /metrics when set.
	Metrics http.Handler
	// Ready backs GET /ready. Nil reports ready unconditionally.
	Ready func(ctx context.Context) error
}

// Handler routes REST requests to the dispatcher.
type Handler struct {
	dispatcher *dispatcher.Dispatcher
	opts       Options
	now        func() time.Time
}

// NewHandler builds the REST http.Handler with its middleware chain.
func NewHandler(d *dispatcher.Dispatcher, opts Options) http.Handler {
	h := &Handler{dispatcher: d, opts: opts, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleInfo)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.HandleFunc("GET /docs", h.handleDocs(d))
	mux.HandleFunc("POST /api/browse", h.handleOperation(catalog.OpBrowse, nil))
	mux.HandleFunc("POST /api/search", h.handleOperation(catalog.OpSearch, nil))
	mux.HandleFunc("POST /api/series", h.handleOperation(catalog.OpGetSeries, nil))
	mux.HandleFunc("GET /api/series/{seriesId}", h.handleOperation(catalog.OpGetSeries, seriesFromPath))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.HandleFunc("/", h.handleNotFound)

	return Chain(mux, RequestID, Recover, CORS(opts.CORSOrigins))
}

// extractFunc fills route-specific fields into the raw parameters.
type extractFunc func(r *http.Request, raw params.Raw)

func seriesFromPath(r *http.Request, raw params.Raw) {
	raw["series_id"] = r.PathValue("seriesId")
}

func (h *Handler) handleOperation(operation string, extract extractFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, fail := ReadParams(r)
		if fail != nil {
			WriteJSON(w, envelope.ToREST(outcome.Fail(fail)))
			return
		}
		if extract != nil {
			extract(r, raw)
		}

		out := h.dispatcher.Dispatch(r.Context(), &dispatcher.Request{
			ID:        RequestIDFromContext(r.Context()),
			Transport: dispatcher.TransportREST,
			Operation: operation,
			Params:    raw,
		})
		WriteJSON(w, envelope.ToREST(out))
	}
}

func (h *Handler) handleInfo(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, envelope.RESTResponse{
		Status: http.StatusOK,
		Body: map[string]any{
			"name":        h.opts.Info.Name,
			"description": h.opts.Info.Description,
			"version":     h.opts.Info.Version,
			"endpoints": map[string]string{
				"browse": "/api/browse",
				"search": "/api/search",
				"series": "/api/series/:seriesId",
			},
			"documentation": DocumentationURL,
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, HealthResponse(h.opts.Info.Name, h.now()))
}

// TimestampFormat renders UTC instants with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the liveness body shared by the REST and MCP listeners.
func HealthResponse(service string, now time.Time) envelope.RESTResponse {
	return envelope.RESTResponse{
		Status: http.StatusOK,
		Body: map[string]string{
			"status":    "healthy",
			"service":   service,
			"timestamp": now.UTC().Format(TimestampFormat),
		},
	}
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready != nil {
		if err := h.opts.Ready(r.Context()); err != nil {
			slog.Warn(fmt.Sprintf("%s - readiness check failed: %v", logPrefix, err))
			WriteJSON(w, envelope.RESTResponse{
				Status: http.StatusServiceUnavailable,
				Body:   map[string]string{"status": "not ready", "error": err.Error()},
			})
			return
		}
	}
	WriteJSON(w, envelope.RESTResponse{Status: http.StatusOK, Body: map[string]string{"status": "ready"}})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, envelope.NotFound(r.URL.Path, AvailableEndpoints))
}

// WriteJSON writes a REST response as JSON.
func WriteJSON(w http.ResponseWriter, resp envelope.RESTResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)

	if raw, ok := resp.Body.(json.RawMessage); ok {
		if _, err := w.Write(raw); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to write response: %v", logPrefix, err))
		}
		return
	}
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to write response: %v", logPrefix, err))
	}
}
