// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/containertiming/internal/adapters/overlay"
	"github.com/okian/containertiming/internal/adapters/repository"
	"github.com/okian/containertiming/internal/domain/dedupe"
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultListLimit = 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DOMDependencies
	BatchDependencies
	ContainerDependencies
	OverlayDependencies
}

// DOMDependencies applies page tree mutations.
type DOMDependencies interface {
	ApplyMutations(ctx context.Context, muts []dom.Mutation) (dom.ApplyResult, error)
}

// BatchDependencies accepts paint batches for async processing.
type BatchDependencies interface {
	dedupe.Deduper

	// Enqueue pushes a batch for async processing.
	Enqueue(ctx context.Context, b model.Batch) error
}

// ContainerDependencies exposes recorded container reports.
type ContainerDependencies interface {
	List(ctx context.Context, limit int) ([]repository.Report, error)
	Latest(ctx context.Context, identifier string) (repository.Report, error)
	History(ctx context.Context, identifier string, limit int) ([]repository.Report, error)
}

// OverlayDependencies exposes the debug overlay state.
type OverlayDependencies interface {
	Overlays() []overlay.Overlay
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	domHandler       *DOMHandler
	batchesHandler   *BatchesHandler
	containerHandler *ContainerHandler
	overlayHandler   *OverlayHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		domHandler:       NewDOMHandler(deps),
		batchesHandler:   NewBatchesHandler(deps),
		containerHandler: NewContainerHandler(deps, maxLimit),
		overlayHandler:   NewOverlayHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /v1/dom", MetricsMiddleware(s.domHandler.HandleApply, "dom"))
	mux.HandleFunc("POST /v1/batches", MetricsMiddleware(s.batchesHandler.HandlePostBatch, "batches"))
	mux.HandleFunc("GET /v1/containers", MetricsMiddleware(s.containerHandler.HandleList, "containers"))
	mux.HandleFunc("GET /v1/containers/{identifier}", MetricsMiddleware(s.containerHandler.HandleLatest, "container"))
	mux.HandleFunc("GET /v1/containers/{identifier}/history",
		MetricsMiddleware(s.containerHandler.HandleHistory, "container_history"))
	mux.HandleFunc("GET /v1/overlays", MetricsMiddleware(s.overlayHandler.HandleList, "overlays"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseLimit reads ?limit=, defaulting when absent.
func parseLimit(r *http.Request, def, maxLimit int) (int, string, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(def, maxLimit), "", true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "bad_request", false
	}
	if n > maxLimit {
		return 0, "limit_exceeded", false
	}
	return n, "", true
}
