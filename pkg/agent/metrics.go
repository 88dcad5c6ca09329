package agent

import "github.com/prometheus/client_golang/prometheus"

// executions and executionDuration are the per-agent-type counters and
// histogram spec.md §4.7's run_with_tracing wrapper must update on
// every call, success or failure.
var (
	executions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evoengine",
		Subsystem: "agent",
		Name:      "executions_total",
		Help:      "Agent executions by agent type and outcome.",
	}, []string{"agent_type", "outcome"})

	executionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "evoengine",
		Subsystem: "agent",
		Name:      "execution_duration_seconds",
		Help:      "Agent execution duration by agent type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"agent_type"})
)

func init() {
	prometheus.MustRegister(executions, executionDuration)
}
