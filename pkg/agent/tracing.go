// Package agent implements the five-stage agent pipeline (C7): Planner,
// VariantGenerator, Scorer, PolicyMaker, and Reporter, sharing a common
// tracing/audit wrapper over the AgentContext defined in pkg/tracecontext.
package agent

import (
	"context"
	"time"

	"github.com/evoengine/core/pkg/tracecontext"
)

// RunWithTracing opens the span "agent.<agentType>.execute", records
// duration, and increments the success/failure counters for agentType,
// per spec.md §4.7's shared agent contract. fn receives the Go context
// carrying the active span and the minted span id for decision logging.
func RunWithTracing(ctx context.Context, agentType string, fn func(ctx context.Context, spanID string) error) error {
	start := time.Now()
	ctx, span, spanID := tracecontext.StartSpan(ctx, "agent."+agentType+".execute")
	defer span.End()

	err := fn(ctx, spanID)

	executionDuration.WithLabelValues(agentType).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	executions.WithLabelValues(agentType, outcome).Inc()

	return err
}
