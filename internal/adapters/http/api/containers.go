package api

import (
	"errors"
	"net/http"

	"github.com/okian/containertiming/internal/adapters/repository"
)

// ContainerHandler serves recorded container reports.
type ContainerHandler struct {
	deps     ContainerDependencies
	maxLimit int
}

// NewContainerHandler creates a new container handler.
func NewContainerHandler(deps ContainerDependencies, maxLimit int) *ContainerHandler {
	if maxLimit < 1 {
		maxLimit = 100
	}
	return &ContainerHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /v1/containers?limit=N requests.
func (h *ContainerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_containers"
	n, code, ok := parseLimit(r, defaultListLimit, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	reports, err := h.deps.List(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if reports == nil {
		reports = []repository.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// HandleLatest handles GET /v1/containers/{identifier} requests.
func (h *ContainerHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_container"
	report, err := h.deps.Latest(r.Context(), r.PathValue("identifier"))
	if err != nil {
		h.writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleHistory handles GET /v1/containers/{identifier}/history?limit=N requests.
func (h *ContainerHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_container_history"
	n, code, ok := parseLimit(r, h.maxLimit, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, code, NewKind(op, ErrBadRequest))
		return
	}
	reports, err := h.deps.History(r.Context(), r.PathValue("identifier"), n)
	if err != nil {
		h.writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *ContainerHandler) writeLookupError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}
