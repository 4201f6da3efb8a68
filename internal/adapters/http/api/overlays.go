package api

import (
	"net/http"

	"github.com/okian/containertiming/internal/adapters/overlay"
)

// OverlayHandler serves the debug overlay regions currently on screen.
type OverlayHandler struct {
	deps OverlayDependencies
}

// NewOverlayHandler creates a new overlay handler.
func NewOverlayHandler(deps OverlayDependencies) *OverlayHandler {
	return &OverlayHandler{deps: deps}
}

// HandleList handles GET /v1/overlays requests. An empty list is returned
// when the overlay is disabled.
func (h *OverlayHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	active := h.deps.Overlays()
	if active == nil {
		active = []overlay.Overlay{}
	}
	writeJSON(w, http.StatusOK, active)
}
