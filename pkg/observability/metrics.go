package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	nodeVisits   *prometheus.CounterVec
	nodeFailures *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	runsActive   prometheus.Gauge
	runsFinished *prometheus.CounterVec
	runSteps     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// Registering twice against the same registry fails.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepflow_node_visits_total",
				Help: "Total number of node executions",
			},
			[]string{"node_id"},
		),
		nodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepflow_node_failures_total",
				Help: "Total number of node executions that returned an error",
			},
			[]string{"node_id"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepflow_node_duration_seconds",
				Help:    "Duration of node executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node_id"},
		),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepflow_runs_active",
			Help: "Runs currently executing",
		}),
		runsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepflow_runs_total",
				Help: "Finished runs by outcome",
			},
			[]string{"status"},
		),
		runSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stepflow_run_steps",
			Help:    "Node executions per finished run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.nodeVisits, m.nodeFailures, m.nodeDuration, m.runsActive, m.runsFinished, m.runSteps,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			m.runsActive.Inc()
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.nodeFailures.WithLabelValues(e.NodeID).Inc()
			}
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			m.runsActive.Dec()
			m.runsFinished.WithLabelValues(string(e.Status)).Inc()
			m.runSteps.Observe(float64(e.Steps))
		},
	}
}
