package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/graphdb/graphtest"
	"github.com/WessleyAI/fleetgraph/pkg/config"
	"github.com/WessleyAI/fleetgraph/pkg/metrics"
)

type fakeGraph struct {
	err   error
	state graphdb.State
}

func (f *fakeGraph) Ping(context.Context) error { return f.err }
func (f *fakeGraph) State() graphdb.State       { return f.state }

type fixture struct {
	h     http.Handler
	g     *graphtest.Graph
	store *fleet.Store
	ping  *fakeGraph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := graphtest.New()
	store := fleet.NewStore(g, logger)
	ping := &fakeGraph{state: graphdb.Connected}
	h := newHandler(store, ping, metrics.New(), config.Default(), logger)
	return &fixture{h: h, g: g, store: store, ping: ping}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok", "graph": "connected"}, decode[map[string]string](t, w))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	f.ping.err = domain.NewConnectionError("ping", domain.ErrUnreachable)
	f.ping.state = graphdb.Disconnected
	w = f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode[map[string]string](t, w)["status"])
}

func TestEntityLifecycle(t *testing.T) {
	f := newFixture(t)
	const ac = `{"aircraft_id":"AC-9","tail_number":"N9FG","model":"A320"}`

	w := f.do(t, http.MethodPost, "/api/aircraft", ac)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "N9FG", decode[map[string]any](t, w)["tail_number"])

	w = f.do(t, http.MethodGet, "/api/aircraft/AC-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A320", decode[map[string]any](t, w)["model"])

	w = f.do(t, http.MethodGet, "/api/Aircraft?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = f.do(t, http.MethodPut, "/api/aircraft/AC-9", `{"aircraft_id":"AC-9","tail_number":"N9FG","model":"A321"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "A321", decode[map[string]any](t, w)["model"])

	w = f.do(t, http.MethodDelete, "/api/aircraft/AC-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"deleted": true}, decode[map[string]bool](t, w))

	w = f.do(t, http.MethodDelete, "/api/aircraft/AC-9", "")
	assert.Equal(t, map[string]bool{"deleted": false}, decode[map[string]bool](t, w))

	w = f.do(t, http.MethodGet, "/api/aircraft/AC-9", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, w).Kind)

	w = f.do(t, http.MethodGet, "/api/aircraft", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestUpdateMissing(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPut, "/api/aircraft/AC-404", `{"aircraft_id":"AC-404","tail_number":"N404"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name, method, path, body string
	}{
		{"unknown kind", http.MethodGet, "/api/spaceship", ""},
		{"bad limit", http.MethodGet, "/api/aircraft?limit=many", ""},
		{"negative limit", http.MethodGet, "/api/aircraft?limit=-1", ""},
		{"limit too large", http.MethodGet, "/api/aircraft?limit=10001", ""},
		{"missing tail number", http.MethodPost, "/api/aircraft", `{"aircraft_id":"AC-1"}`},
		{"unknown field", http.MethodPost, "/api/aircraft", `{"aircraft_id":"AC-1","tail_number":"N1","wings":2}`},
		{"latitude out of range", http.MethodPost, "/api/airport", `{"airport_id":"APT-X","lat":91}`},
		{"key mismatch", http.MethodPut, "/api/aircraft/AC-1", `{"aircraft_id":"AC-2","tail_number":"N2"}`},
		{"unknown traversal", http.MethodGet, "/api/aircraft/AC-1/wings", ""},
		{"unknown relation", http.MethodPost, "/api/links/OWNS", `{"from":"a","to":"b"}`},
		{"bad link body", http.MethodPost, "/api/links/HAS_SYSTEM", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "validation", decode[errorResponse](t, w).Kind)
		})
	}
	assert.Zero(t, f.g.NodeCount("Aircraft"))
}

func TestTraverseAndLink(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Seed(context.Background())
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/aircraft/AC-1001/systems", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]map[string]any](t, w), 4)

	w = f.do(t, http.MethodGet, "/api/aircraft/AC-1001/systems?limit=2", "")
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = f.do(t, http.MethodPost, "/api/aircraft", `{"aircraft_id":"AC-9","tail_number":"N9FG"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/system", `{"system_id":"SYS-9","aircraft_id":"AC-9","name":"Hydraulics","type":"hydraulic"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/links/HAS_SYSTEM", `{"from":"AC-9","to":"SYS-9"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]bool{"linked": true}, decode[map[string]bool](t, w))

	w = f.do(t, http.MethodGet, "/api/aircraft/AC-9/systems", "")
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = f.do(t, http.MethodPost, "/api/links/HAS_SYSTEM", `{"from":"AC-9","to":"SYS-missing"}`)
	assert.Equal(t, map[string]bool{"linked": false}, decode[map[string]bool](t, w))

	w = f.do(t, http.MethodDelete, "/api/links/HAS_SYSTEM", `{"from":"AC-9","to":"SYS-9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"unlinked": true}, decode[map[string]bool](t, w))

	w = f.do(t, http.MethodGet, "/api/flight/FL-3/departure_airport", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ORD", decode[map[string]any](t, w)["iata"])

	w = f.do(t, http.MethodGet, "/api/flight/FL-404/departure_airport", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[fleet.Stats](t, w)
	assert.Equal(t, int64(8), stats.Relationships["HAS_SYSTEM"])
}

func TestConnectionFailureIs503(t *testing.T) {
	f := newFixture(t)
	f.g.FailSessions(domain.NewConnectionError("session", domain.ErrNotConnected))

	w := f.do(t, http.MethodGet, "/api/aircraft", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "connection", decode[errorResponse](t, w).Kind)
}

func TestQueryFailureIs500(t *testing.T) {
	f := newFixture(t)
	f.g.FailRuns(domain.NewQueryError("find", "Aircraft", domain.ErrNoResult))

	w := f.do(t, http.MethodGet, "/api/aircraft/AC-1", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Equal(t, "internal error", resp.Error)
	assert.Equal(t, "query", resp.Kind)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/aircraft", "")

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fleetgraph_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="GET /api/{kind}"`)
}

func TestWatchHealth(t *testing.T) {
	hs := health.NewServer()
	g := &fakeGraph{err: domain.NewConnectionError("ping", domain.ErrUnreachable)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchHealth(ctx, g, hs, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
