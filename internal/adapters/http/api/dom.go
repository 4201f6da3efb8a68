package api

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/okian/containertiming/internal/domain/dom"
)

type domRequest struct {
	Mutations []dom.Mutation `json:"mutations"`
}

type domResponse struct {
	Applied      int      `json:"applied"`
	Internal     int      `json:"internal"`
	UserSupplied int      `json:"user_supplied"`
	Errors       []string `json:"errors,omitempty"`
}

// DOMHandler handles page tree mutations.
type DOMHandler struct {
	deps DOMDependencies
}

// NewDOMHandler creates a new DOM handler.
func NewDOMHandler(deps DOMDependencies) *DOMHandler {
	return &DOMHandler{deps: deps}
}

// HandleApply handles POST /v1/dom requests. Partially applied batches
// answer 200 with the failures listed; a batch where nothing applied is 400.
func (h *DOMHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	const op = "api.apply_dom"
	var req domRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Mutations) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.ApplyMutations(r.Context(), req.Mutations)
	resp := domResponse{
		Applied:      res.Applied,
		Internal:     res.Tagged.Internal,
		UserSupplied: res.Tagged.UserSupplied,
	}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	if err != nil && res.Applied == 0 {
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
