package observability_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/flow/internal/testutils"
	"github.com/aretw0/flow/pkg/observability"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertActive(t *testing.T, m *observability.Metrics, n int) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP flow_active_scopes Number of initialized scopes not yet shut down
# TYPE flow_active_scopes gauge
flow_active_scopes %d
`, n)
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "flow_active_scopes"))
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	var log []string

	g := runtime.NewGraph("observed",
		testutils.Source(1),
		testutils.Record("a", 1, &log),
	)
	s := runtime.NewScope(runtime.WithHooks(m.Hooks()))
	require.NoError(t, g.Initialize(s))

	// 1. Two compiled-in installs and one active scope
	assertActive(t, m, 1)
	installs, err := testutil.GatherAndCount(m.Registry(), "flow_node_installs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, installs)

	// 2. Signals are counted
	require.NoError(t, s.Trigger(1))
	require.NoError(t, s.Trigger(1))
	assert.Equal(t, []string{"a", "a"}, log)

	// 3. Shutdown releases the scope
	require.NoError(t, g.Shutdown(s))
	assertActive(t, m, 0)

	expected := `
# HELP flow_signals_total Total number of control emissions by result
# TYPE flow_signals_total counter
flow_signals_total{result="ok"} 2
# HELP flow_graph_initializations_total Total number of graph initializations by result
# TYPE flow_graph_initializations_total counter
flow_graph_initializations_total{graph="observed",result="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"flow_signals_total", "flow_graph_initializations_total"))
}

func TestMetrics_FailedInitialize(t *testing.T) {
	m := observability.NewMetrics()

	// Two producers on one ref never pass validation
	g := runtime.NewGraph("broken", testutils.Const(1, 1), testutils.Const(1, 2))
	s := runtime.NewScope(runtime.WithHooks(m.Hooks()))
	require.Error(t, g.Initialize(s))

	expected := `
# HELP flow_graph_initializations_total Total number of graph initializations by result
# TYPE flow_graph_initializations_total counter
flow_graph_initializations_total{graph="broken",result="error"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"flow_graph_initializations_total"))
	assertActive(t, m, 0)
}

func TestMetrics_ObserveTrigger(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveTrigger("g", time.Now(), nil)
	m.ObserveTrigger("g", time.Now(), errors.New("boom"))

	n, err := testutil.GatherAndCount(m.Registry(), "flow_trigger_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := observability.NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/graphs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/graphs/123", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `flow_http_requests_total{method="GET",route="/graphs/{id}",status="404"} 1`)
	assert.NotContains(t, string(body), "/graphs/123")
}
