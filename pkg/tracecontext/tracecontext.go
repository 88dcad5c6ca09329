// Package tracecontext generates and threads the identifiers used to
// correlate audit rows, tool-access logs, and OpenTelemetry spans
// across a single campaign run (C10).
package tracecontext

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/evoengine/core/pkg/tracecontext"

// NewTraceID generates a 128-bit trace id as a 32-char lowercase hex
// string. One is minted at the top of a campaign run and propagated
// unchanged into every round, agent call, and tool call within it.
func NewTraceID() string {
	return randomHex(16)
}

// NewSpanID generates a 16-hex-char span id, minted fresh per span
// opened by StartSpan.
func NewSpanID() string {
	return randomHex(8)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable; the process has no
		// usable entropy source.
		panic(fmt.Sprintf("tracecontext: crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Context carries a trace id and the entity ids a decision or tool
// call is scoped to. It is the AgentContext described in spec.md §4.7,
// passed by value through every agent and tool call.
type Context struct {
	TraceID    string
	CampaignID string
	RoundID    string
	VariantID  string
	PolicyID   string
	Metadata   map[string]interface{}
}

// WithRound returns a copy of c scoped to roundID.
func (c Context) WithRound(roundID string) Context {
	c.RoundID = roundID
	return c
}

// WithVariant returns a copy of c scoped to variantID.
func (c Context) WithVariant(variantID string) Context {
	c.VariantID = variantID
	return c
}

// WithPolicy returns a copy of c scoped to policyID.
func (c Context) WithPolicy(policyID string) Context {
	c.PolicyID = policyID
	return c
}

// New starts a Context for a fresh campaign run.
func New(campaignID string) Context {
	return Context{TraceID: NewTraceID(), CampaignID: campaignID}
}

// StartSpan opens an OpenTelemetry span with the given name (agent runs
// use "agent.<agentType>.execute"; tool registry calls open no span),
// mints a fresh span id for the
// audit row, and returns the updated Go context, the span, and the
// minted span id. Callers must call span.End().
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span, string) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, name)
	return ctx, span, NewSpanID()
}
