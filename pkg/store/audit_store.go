package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/agentdecision"
	"github.com/evoengine/core/ent/toolaccesslog"
	"github.com/google/uuid"
)

// AgentDecisionStore is append-only persistence for AgentDecision rows.
// pkg/audit is the intended caller; rows are never updated or deleted.
type AgentDecisionStore struct {
	client *ent.Client
}

// CreateAgentDecisionInput mirrors the AgentDecision fields in spec.md §3.
type CreateAgentDecisionInput struct {
	TraceID         string
	SpanID          string
	AgentType       string
	DecisionType    string
	CampaignID      *string
	RoundID         *string
	VariantID       *string
	PolicyID        *string
	InputData       map[string]interface{}
	OutputData      map[string]interface{}
	Reasoning       string
	ConfidenceScore *float64
	LLMConfig       map[string]interface{}
	TokenUsage      map[string]interface{}
	DurationMs      *int
}

// ErrEmptyReasoning guards the non-negotiable invariant that every
// AgentDecision row carries non-empty reasoning (spec.md §3).
var ErrEmptyReasoning = errors.New("agent decision reasoning must not be empty")

// Create inserts an append-only AgentDecision row.
func (s *AgentDecisionStore) Create(ctx context.Context, in CreateAgentDecisionInput) (*ent.AgentDecision, error) {
	if in.Reasoning == "" {
		return nil, ErrEmptyReasoning
	}

	b := s.client.AgentDecision.Create().
		SetID(uuid.NewString()).
		SetTraceID(in.TraceID).
		SetSpanID(in.SpanID).
		SetAgentType(in.AgentType).
		SetDecisionType(in.DecisionType).
		SetReasoning(in.Reasoning)

	if in.CampaignID != nil {
		b.SetCampaignID(*in.CampaignID)
	}
	if in.RoundID != nil {
		b.SetRoundID(*in.RoundID)
	}
	if in.VariantID != nil {
		b.SetVariantID(*in.VariantID)
	}
	if in.PolicyID != nil {
		b.SetPolicyID(*in.PolicyID)
	}
	if in.InputData != nil {
		b.SetInputData(in.InputData)
	}
	if in.OutputData != nil {
		b.SetOutputData(in.OutputData)
	}
	if in.ConfidenceScore != nil {
		b.SetConfidenceScore(*in.ConfidenceScore)
	}
	if in.LLMConfig != nil {
		b.SetLlmConfig(in.LLMConfig)
	}
	if in.TokenUsage != nil {
		b.SetTokenUsage(in.TokenUsage)
	}
	if in.DurationMs != nil {
		b.SetDurationMs(*in.DurationMs)
	}

	d, err := b.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create agent decision: %w", err)
	}
	return d, nil
}

// ByTrace returns every decision written under a trace id, in write order.
func (s *AgentDecisionStore) ByTrace(ctx context.Context, traceID string) ([]*ent.AgentDecision, error) {
	return s.client.AgentDecision.Query().
		Where(agentdecision.TraceIDEQ(traceID)).
		Order(ent.Asc(agentdecision.FieldCreatedAt)).
		All(ctx)
}

// ToolAccessLogStore is append-only persistence for ToolAccessLog rows.
type ToolAccessLogStore struct {
	client *ent.Client
}

// CreateToolAccessLogInput mirrors the ToolAccessLog fields in spec.md §3.
type CreateToolAccessLogInput struct {
	TraceID       string
	ServerName    string
	ServerVersion string
	ToolName      string
	InputParams   map[string]interface{}
	OutputData    map[string]interface{}
	Status        toolaccesslog.Status
	ErrorMessage  *string
	DurationMs    int
}

// Create inserts an append-only ToolAccessLog row. It is written for
// every tool invocation attempted, success or failure (spec.md §4.2
// step 5, NON-NEGOTIABLE).
func (s *ToolAccessLogStore) Create(ctx context.Context, in CreateToolAccessLogInput) (*ent.ToolAccessLog, error) {
	b := s.client.ToolAccessLog.Create().
		SetID(uuid.NewString()).
		SetTraceID(in.TraceID).
		SetServerName(in.ServerName).
		SetServerVersion(in.ServerVersion).
		SetToolName(in.ToolName).
		SetStatus(in.Status).
		SetDurationMs(in.DurationMs)

	if in.InputParams != nil {
		b.SetInputParams(in.InputParams)
	}
	if in.OutputData != nil {
		b.SetOutputData(in.OutputData)
	}
	if in.ErrorMessage != nil {
		b.SetErrorMessage(*in.ErrorMessage)
	}

	row, err := b.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create tool access log: %w", err)
	}
	return row, nil
}

// ByTrace returns every tool call logged under a trace id.
func (s *ToolAccessLogStore) ByTrace(ctx context.Context, traceID string) ([]*ent.ToolAccessLog, error) {
	return s.client.ToolAccessLog.Query().
		Where(toolaccesslog.TraceIDEQ(traceID)).
		Order(ent.Asc(toolaccesslog.FieldCreatedAt)).
		All(ctx)
}
