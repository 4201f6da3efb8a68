package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/containertiming/internal/adapters/mq/queue"
	"github.com/okian/containertiming/internal/domain/model"
	"github.com/okian/containertiming/pkg/metrics"
)

// batchRequest is the body of POST /v1/batches.
type batchRequest struct {
	BatchID string           `json:"batch_id"`
	Seq     uint64           `json:"seq"`
	Entries []model.RawEntry `json:"entries"`
}

func (b batchRequest) validate() error {
	if len(b.Entries) == 0 {
		return errors.New("missing entries")
	}
	for i := range b.Entries {
		if strings.TrimSpace(b.Entries[i].EntryType) == "" {
			return errors.New("entry missing entryType")
		}
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Duplicate bool   `json:"duplicate"`
}

// BatchesHandler handles paint batch submissions.
type BatchesHandler struct {
	deps BatchDependencies
	now  func() time.Time
}

// NewBatchesHandler creates a new batches handler.
func NewBatchesHandler(deps BatchDependencies) *BatchesHandler {
	return &BatchesHandler{deps: deps, now: time.Now}
}

// HandlePostBatch handles POST /v1/batches requests.
func (h *BatchesHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.BatchID) == "" {
		req.BatchID = uuid.NewString()
	}
	metrics.RecordBatchReceived()

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.BatchID) {
		metrics.RecordBatchDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", BatchID: req.BatchID, Duplicate: true})
		return
	}

	b := model.Batch{
		BatchID:  req.BatchID,
		Seq:      req.Seq,
		Entries:  req.Entries,
		Received: h.now(),
	}
	if err := h.deps.Enqueue(r.Context(), b); err != nil {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.BatchID)
		switch {
		case errors.Is(err, queue.ErrFull):
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		default:
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", BatchID: req.BatchID})
}
