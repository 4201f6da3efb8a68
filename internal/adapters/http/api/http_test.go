package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/multierr"

	"github.com/okian/containertiming/internal/adapters/http/api"
	"github.com/okian/containertiming/internal/adapters/mq/queue"
	"github.com/okian/containertiming/internal/adapters/overlay"
	"github.com/okian/containertiming/internal/adapters/repository"
	"github.com/okian/containertiming/internal/domain/dom"
	"github.com/okian/containertiming/internal/domain/model"
)

// Mock implementations for testing
type mockDeps struct {
	seen       map[string]bool
	enqueueErr error
	enqueued   []model.Batch

	applied   dom.ApplyResult
	applyErr  error
	mutations []dom.Mutation

	reports map[string][]repository.Report
	listErr error

	overlays []overlay.Overlay
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: map[string]bool{}, reports: map[string][]repository.Report{}}
}

func (m *mockDeps) SeenAndRecord(_ context.Context, id string) bool {
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(_ context.Context, id string) { delete(m.seen, id) }

func (m *mockDeps) Size() int64 { return int64(len(m.seen)) }

func (m *mockDeps) Enqueue(_ context.Context, b model.Batch) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, b)
	return nil
}

func (m *mockDeps) ApplyMutations(_ context.Context, muts []dom.Mutation) (dom.ApplyResult, error) {
	m.mutations = append(m.mutations, muts...)
	return m.applied, m.applyErr
}

func (m *mockDeps) List(_ context.Context, limit int) ([]repository.Report, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []repository.Report
	for _, rs := range m.reports {
		out = append(out, rs[0])
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockDeps) Latest(_ context.Context, id string) (repository.Report, error) {
	rs, ok := m.reports[id]
	if !ok {
		return repository.Report{}, repository.ErrNotFound
	}
	return rs[0], nil
}

func (m *mockDeps) History(_ context.Context, id string, limit int) ([]repository.Report, error) {
	rs, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return rs, nil
}

func (m *mockDeps) Overlays() []overlay.Overlay { return m.overlays }

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps *mockDeps) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"queue_size": 3}}, 5)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

const oneEntryBatch = `{"batch_id":"b-1","seq":1,"entries":[
  {"entryType":"element","name":"text-paint","element":"p1","identifier":"","renderTime":12,
   "intersectionRect":{"left":0,"top":0,"right":10,"bottom":10}}]}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["queue_size"], ShouldEqual, 3.0)
		})

		Convey("Then unknown paths are 404", func() {
			w := do(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are rejected", func() {
			w := do(mux, http.MethodGet, "/v1/batches", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then a nil mux panics", func() {
			server := api.NewServer(deps, &mockStatsProvider{}, 5)
			So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestBatchesHandler(t *testing.T) {
	Convey("Given the batches endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a valid batch is posted", func() {
			w := do(mux, http.MethodPost, "/v1/batches", oneEntryBatch)

			Convey("Then it is accepted and enqueued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["batch_id"], ShouldEqual, "b-1")
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].Entries[0].ElementID, ShouldEqual, "p1")
				So(deps.enqueued[0].Received.IsZero(), ShouldBeFalse)
			})

			Convey("Then a resubmission is a duplicate", func() {
				w := do(mux, http.MethodPost, "/v1/batches", oneEntryBatch)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
				So(deps.enqueued, ShouldHaveLength, 1)
			})
		})

		Convey("When the batch id is omitted", func() {
			w := do(mux, http.MethodPost, "/v1/batches", `{"entries":[{"entryType":"mark","name":"m"}]}`)

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				id, _ := decode(w)["batch_id"].(string)
				So(id, ShouldNotBeEmpty)
				So(deps.enqueued[0].BatchID, ShouldEqual, id)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = fmt.Errorf("enqueue: %w", queue.ErrFull)
			w := do(mux, http.MethodPost, "/v1/batches", oneEntryBatch)

			Convey("Then backpressure is reported and the id is released", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "backpressure")
				So(deps.seen["b-1"], ShouldBeFalse)
			})
		})

		Convey("When the queue is closed", func() {
			deps.enqueueErr = queue.ErrClosed
			w := do(mux, http.MethodPost, "/v1/batches", oneEntryBatch)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(deps.seen["b-1"], ShouldBeFalse)
		})

		Convey("When the body is invalid", func() {
			So(do(mux, http.MethodPost, "/v1/batches", `{`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/v1/batches", `{"entries":[]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/v1/batches", `{"entries":[{"name":"x"}]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(deps.enqueued, ShouldBeEmpty)
		})
	})
}

func TestDOMHandler(t *testing.T) {
	Convey("Given the DOM endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)
		body := `{"mutations":[{"op":"insert","target":"c1","parent":"document","tag":"div","attrs":{"containertiming":"hero"}}]}`

		Convey("When mutations apply cleanly", func() {
			deps.applied = dom.ApplyResult{Applied: 1, Tagged: dom.TagCounts{Internal: 1}}
			w := do(mux, http.MethodPost, "/v1/dom", body)

			Convey("Then counts are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				resp := decode(w)
				So(resp["applied"], ShouldEqual, 1.0)
				So(resp["internal"], ShouldEqual, 1.0)
				So(resp, ShouldNotContainKey, "errors")
				So(deps.mutations, ShouldHaveLength, 1)
				So(deps.mutations[0].Attrs["containertiming"], ShouldEqual, "hero")
			})
		})

		Convey("When some mutations fail", func() {
			deps.applied = dom.ApplyResult{Applied: 1}
			deps.applyErr = multierr.Combine(errors.New("first"), errors.New("second"))
			w := do(mux, http.MethodPost, "/v1/dom", body)

			Convey("Then failures are listed with 200", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["errors"], ShouldHaveLength, 2)
			})
		})

		Convey("When every mutation fails", func() {
			deps.applyErr = dom.ErrUnknownElement
			w := do(mux, http.MethodPost, "/v1/dom", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body has no mutations", func() {
			So(do(mux, http.MethodPost, "/v1/dom", `{"mutations":[]}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/v1/dom", `nope`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestContainerHandler(t *testing.T) {
	Convey("Given recorded container reports", t, func() {
		deps := newMockDeps()
		rt := 42.0
		deps.reports["hero"] = []repository.Report{
			{Seq: 2, Identifier: "hero", Strategy: "aggregatedPaints", Entry: &model.ContainerEntry{Identifier: "hero", RenderTime: &rt}},
			{Seq: 1, Identifier: "hero", Strategy: "aggregatedPaints", Entry: &model.ContainerEntry{Identifier: "hero"}},
		}
		mux := newMux(deps)

		Convey("When listing containers", func() {
			w := do(mux, http.MethodGet, "/v1/containers", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var list []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(list, ShouldHaveLength, 1)
			So(list[0]["identifier"], ShouldEqual, "hero")
		})

		Convey("When listing with bad limits", func() {
			So(do(mux, http.MethodGet, "/v1/containers?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/v1/containers?limit=6", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the store fails", func() {
			deps.listErr = errors.New("boom")
			So(do(mux, http.MethodGet, "/v1/containers", "").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When fetching the latest report", func() {
			w := do(mux, http.MethodGet, "/v1/containers/hero", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decode(w)
			So(resp["seq"], ShouldEqual, 2.0)
			entry, ok := resp["entry"].(map[string]any)
			So(ok, ShouldBeTrue)
			So(entry["entryType"], ShouldEqual, "container")
			So(entry["renderTime"], ShouldEqual, 42.0)
		})

		Convey("When fetching history", func() {
			w := do(mux, http.MethodGet, "/v1/containers/hero/history?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var list []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(list, ShouldHaveLength, 1)
		})

		Convey("When the container is unknown", func() {
			So(do(mux, http.MethodGet, "/v1/containers/nope", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/v1/containers/nope/history", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOverlayHandler(t *testing.T) {
	Convey("Given the overlay endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the overlay is disabled", func() {
			w := do(mux, http.MethodGet, "/v1/overlays", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When regions are on screen", func() {
			deps.overlays = []overlay.Overlay{{ID: 1, Identifier: "hero", Phase: overlay.PhaseVisible}}
			w := do(mux, http.MethodGet, "/v1/overlays", "")
			var list []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(list, ShouldHaveLength, 1)
		})
	})
}
