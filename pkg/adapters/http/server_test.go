package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepflow"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/observability"
	"github.com/aretw0/stepflow/pkg/summarize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine *stepflow.Engine
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	engine := stepflow.New(stepflow.WithLifecycleHooks(metrics.Hooks()))
	srv := httptest.NewServer(NewHandler(engine, WithGatherer(reg)))
	t.Cleanup(srv.Close)
	return &testEnv{engine: engine, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			rdr = strings.NewReader(s)
		} else {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) createGraph(t *testing.T) string {
	t.Helper()
	resp, raw := e.do(t, "POST", "/graph/create", CreateGraphRequest{Type: summarize.KindOptionB})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var out CreateGraphResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.GraphID)
	return out.GraphID
}

func TestServer_Meta(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Server is running!"}`, string(raw))

	resp, raw = env.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	resp, raw = env.do(t, "GET", "/info", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]string
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, "stepflow-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, strings.TrimSpace(stepflow.Version), info["version"])

	resp, raw = env.do(t, "GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "openapi: 3.0.3")

	resp, _ = env.do(t, "OPTIONS", "/graph/run", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/graph/run"))
	assert.NotNil(t, doc.Paths.Find("/graph/state/{run_id}"))
	assert.NotNil(t, doc.Paths.Find("/graph/runs"))
}

func TestServer_CreateGraph(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGraph(t)

	resp, raw := env.do(t, "POST", "/graph/create", CreateGraphRequest{Type: "option_a"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "unsupported graph kind")

	resp, _ = env.do(t, "POST", "/graph/create", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = env.do(t, "GET", "/graphs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var graphs []GraphInfo
	require.NoError(t, json.Unmarshal(raw, &graphs))
	require.Len(t, graphs, 1)
	assert.Equal(t, id, graphs[0].GraphID)
	assert.Equal(t, summarize.NodeSplitText, graphs[0].Start)
	assert.Equal(t, summarize.NodeRefineSummary, graphs[0].Edges[summarize.NodeCheckLength])
}

func TestServer_RunGraph(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGraph(t)

	resp, raw := env.do(t, "POST", "/graph/run", map[string]any{
		"graph_id":   id,
		"input_text": "alpha beta gamma\n\ndelta epsilon",
		"max_length": 3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out RunGraphResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "alpha beta gamma", out.FinalState.RefinedSummary)
	assert.True(t, out.FinalState.Done)
	require.Len(t, out.Log, 5)
	assert.Equal(t, summarize.NodeCheckLength, out.Log[4].Node)

	resp, raw = env.do(t, "GET", "/graph/state/"+out.RunID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st domain.State
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, out.FinalState.RefinedSummary, st.RefinedSummary)
	assert.Equal(t, []string{"alpha beta gamma", "delta epsilon"}, st.Chunks)

	resp, raw = env.do(t, "GET", "/graph/runs/"+out.RunID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run domain.Run
	require.NoError(t, json.Unmarshal(raw, &run))
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, id, run.GraphID)

	resp, raw = env.do(t, "GET", "/graph/runs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var runs RunListResponse
	require.NoError(t, json.Unmarshal(raw, &runs))
	assert.Equal(t, []string{out.RunID}, runs.RunIDs)

	resp, raw = env.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `stepflow_runs_total{status="completed"} 1`)
}

func TestServer_RunGraph_DefaultMaxLength(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGraph(t)

	resp, raw := env.do(t, "POST", "/graph/run", map[string]any{
		"graph_id":   id,
		"input_text": "one two three",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out RunGraphResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, domain.DefaultMaxLength, out.FinalState.MaxLength)

	resp, raw = env.do(t, "POST", "/graph/run", map[string]any{
		"graph_id":   id,
		"input_text": "one two three",
		"max_length": 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, summarize.MinDefaultMaxLength, out.FinalState.MaxLength)
}

func TestServer_RunGraph_Errors(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, "POST", "/graph/run", map[string]any{"graph_id": "nope", "input_text": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Graph not found"}`, string(raw))

	resp, _ = env.do(t, "POST", "/graph/run", "[]")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	g, err := domain.NewGraph(map[string]domain.Step{
		"explode": domain.StepFunc(func(ctx context.Context, s *domain.State) (*domain.State, error) {
			return nil, errors.New("kaboom")
		}),
	}, nil, "explode")
	require.NoError(t, err)
	id, err := env.engine.Register(context.Background(), "broken", g)
	require.NoError(t, err)

	resp, raw = env.do(t, "POST", "/graph/run", map[string]any{"graph_id": id, "input_text": "x"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(raw), "Server error while running graph: node \\\"explode\\\" failed: kaboom")

	resp, raw = env.do(t, "GET", "/graph/state/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Run not found"}`, string(raw))

	resp, _ = env.do(t, "GET", "/graph/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", Preview(""))
	assert.Equal(t, "short", Preview("short"))

	long := strings.Repeat("é", 301)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("é", 300)+"...", got)
}

// waitForStatus polls the run record until it reaches want.
func (e *testEnv) waitForStatus(t *testing.T, runID string, want domain.RunStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		run, err := e.engine.Inspect(context.Background(), runID)
		return err == nil && run.Status == want
	}, 2*time.Second, 10*time.Millisecond)
}
