package observability_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	var seen []string
	hooks := observability.Combine(m.Hooks(), domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { seen = append(seen, e.NodeID) },
	})

	hooks.OnRunStart(ctx, &domain.RunEvent{Status: domain.RunRunning})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "a"})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{NodeID: "a", Duration: time.Millisecond})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "b"})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{NodeID: "b", Err: errors.New("boom")})
	hooks.OnRunFinish(ctx, &domain.RunEvent{Status: domain.RunFailed, Steps: 2})

	assert.Equal(t, []string{"a", "b"}, seen)

	body := scrape(t, reg)
	assert.Contains(t, body, `stepflow_runs_total{status="failed"} 1`)
	assert.Contains(t, body, `stepflow_node_visits_total{node_id="a"} 1`)
	assert.Contains(t, body, `stepflow_node_failures_total{node_id="b"} 1`)
	assert.Contains(t, body, `stepflow_node_duration_seconds_count{node_id="a"} 1`)
	assert.Contains(t, body, "stepflow_runs_active 0")
	assert.Contains(t, body, "stepflow_run_steps_sum 2")
}

func TestNewMetrics_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.ErrorContains(t, err, "failed to register metrics")
}

func TestCombine_SkipsNilHooks(t *testing.T) {
	calls := 0
	hooks := observability.Combine(domain.LifecycleHooks{}, domain.LifecycleHooks{
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) { calls++ },
	})

	ctx := context.Background()
	hooks.OnRunStart(ctx, &domain.RunEvent{})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{})
	hooks.OnRunFinish(ctx, &domain.RunEvent{})
	assert.Equal(t, 1, calls)
}
