// Package audit implements the two append-only audit streams (C3):
// agent decisions and tool access logs, both keyed by trace id.
package audit

import (
	"context"
	"fmt"

	"github.com/evoengine/core/ent/toolaccesslog"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// Logger writes the two audit streams. Every agent execution must
// write at least one AgentDecision before returning, success or
// failure; every tool call must write exactly one ToolAccessLog row,
// success or failure (spec.md §4.3, NON-NEGOTIABLE).
type Logger struct {
	decisions *store.AgentDecisionStore
	toolLogs  *store.ToolAccessLogStore
}

// New builds a Logger over the given Store's audit sub-stores.
func New(s *store.Store) *Logger {
	return &Logger{decisions: s.AgentDecisions, toolLogs: s.ToolAccessLogs}
}

// Decision is the input to LogDecision: everything an agent call needs
// to record about one logical decision.
type Decision struct {
	AgentType       string
	DecisionType    string
	SpanID          string
	InputData       map[string]interface{}
	OutputData      map[string]interface{}
	Reasoning       string
	ConfidenceScore *float64
	LLMConfig       map[string]interface{}
	TokenUsage      map[string]interface{}
	DurationMs      *int
}

// LogDecision writes an AgentDecision row scoped by ctx (trace id plus
// whichever of campaign/round/variant/policy ids are set). Reasoning
// must be non-empty; this is enforced by the underlying store.
func (l *Logger) LogDecision(ctx context.Context, tc tracecontext.Context, d Decision) error {
	in := store.CreateAgentDecisionInput{
		TraceID:         tc.TraceID,
		SpanID:          d.SpanID,
		AgentType:       d.AgentType,
		DecisionType:    d.DecisionType,
		InputData:       d.InputData,
		OutputData:      d.OutputData,
		Reasoning:       d.Reasoning,
		ConfidenceScore: d.ConfidenceScore,
		LLMConfig:       d.LLMConfig,
		TokenUsage:      d.TokenUsage,
		DurationMs:      d.DurationMs,
	}
	if tc.CampaignID != "" {
		in.CampaignID = &tc.CampaignID
	}
	if tc.RoundID != "" {
		in.RoundID = &tc.RoundID
	}
	if tc.VariantID != "" {
		in.VariantID = &tc.VariantID
	}
	if tc.PolicyID != "" {
		in.PolicyID = &tc.PolicyID
	}

	if _, err := l.decisions.Create(ctx, in); err != nil {
		return fmt.Errorf("log agent decision: %w", err)
	}
	return nil
}

// ToolCall is the input to LogToolCall.
type ToolCall struct {
	ServerName    string
	ServerVersion string
	ToolName      string
	InputParams   map[string]interface{}
	OutputData    map[string]interface{}
	Err           error
	DurationMs    int
}

// LogToolCall writes a ToolAccessLog row for a single tool invocation,
// success or failure. Per spec.md §4.2 step 5, failure to write this
// log must itself be treated as an orchestration error — callers
// should abort the stage if this returns an error, not merely log it.
func (l *Logger) LogToolCall(ctx context.Context, tc tracecontext.Context, c ToolCall) error {
	in := store.CreateToolAccessLogInput{
		TraceID:       tc.TraceID,
		ServerName:    c.ServerName,
		ServerVersion: c.ServerVersion,
		ToolName:      c.ToolName,
		InputParams:   c.InputParams,
		OutputData:    c.OutputData,
		DurationMs:    c.DurationMs,
	}
	if c.Err != nil {
		in.Status = toolaccesslog.StatusError
		msg := c.Err.Error()
		in.ErrorMessage = &msg
	} else {
		in.Status = toolaccesslog.StatusSuccess
	}

	if _, err := l.toolLogs.Create(ctx, in); err != nil {
		return fmt.Errorf("log tool access: %w", err)
	}
	return nil
}
