package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
)

func TestQueryDone(t *testing.T) {
	m := New()
	m.QueryDone(cypher.OpUpsert, "Aircraft", 3*time.Millisecond, nil)
	m.QueryDone(cypher.OpUpsert, "Aircraft", 5*time.Millisecond, nil)
	m.QueryDone(cypher.OpList, "Flight", time.Millisecond, domain.NewConnectionError("run", domain.ErrUnreachable))
	m.QueryDone(cypher.OpList, "Flight", time.Millisecond, errors.New("plain"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("upsert", "Aircraft", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("list", "Flight", "connection")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("list", "Flight", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.queryDuration))
}

func TestSessions(t *testing.T) {
	m := New()
	m.SessionOpened(graphdb.Write)
	m.SessionOpened(graphdb.Write)
	m.SessionOpened(graphdb.Read)
	m.SessionClosed(graphdb.Write)

	w := graphdb.Write.String()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsOpen.WithLabelValues(w)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions.WithLabelValues(w)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsOpen.WithLabelValues(graphdb.Read.String())))
}

func TestStateChanged(t *testing.T) {
	m := New()
	m.StateChanged(graphdb.Connected)
	assert.Equal(t, float64(graphdb.Connected), testutil.ToFloat64(m.state))
	m.StateChanged(graphdb.Closed)
	assert.Equal(t, float64(graphdb.Closed), testutil.ToFloat64(m.state))
}

func TestObserveRequestAndIngest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "GET /api/{kind}", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "GET /api/{kind}", 404, 10*time.Millisecond)
	m.IngestHandled("upsert", domain.KindAircraft, nil)
	m.IngestHandled("upsert", domain.KindAircraft, domain.NewValidationError("tail_number", "", domain.ErrRequired))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /api/{kind}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingest.WithLabelValues("upsert", "Aircraft", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingest.WithLabelValues("upsert", "Aircraft", "ok")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.QueryDone(cypher.OpLookup, "Airport", time.Millisecond, nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.True(t, strings.Contains(text, `fleetgraph_graph_queries_total{label="Airport",op="lookup",outcome="ok"} 1`), text)
	assert.Contains(t, text, "go_goroutines")
}
