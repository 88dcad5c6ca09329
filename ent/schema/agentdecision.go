package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AgentDecision holds the schema definition for the AgentDecision entity.
// Append-only audit row written by every agent execution (pkg/audit).
// Rows are never updated or deleted once written.
type AgentDecision struct {
	ent.Schema
}

// Fields of the AgentDecision.
func (AgentDecision) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("decision_id").
			Unique().
			Immutable(),
		field.String("trace_id").
			Immutable().
			Comment("128-bit trace id, shared across a whole campaign run"),
		field.String("span_id").
			Immutable().
			Comment("16 hex chars, minted per agent invocation"),

		field.String("agent_type").
			Immutable().
			Comment("planner | variant_generator | scorer | policy_maker | reporter"),
		field.String("decision_type").
			Immutable(),

		field.String("campaign_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("round_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("variant_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("policy_id").
			Optional().
			Nillable().
			Immutable(),

		field.JSON("input_data", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("output_data", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.Text("reasoning").
			Immutable().
			Comment("Never empty, even on failure (carries the failure message)"),
		field.Float("confidence_score").
			Optional().
			Nillable().
			Immutable(),
		field.JSON("llm_config", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("token_usage", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.Int("duration_ms").
			Optional().
			Nillable().
			Immutable(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the AgentDecision. None: this is an append-only, denormalized
// audit row keyed by trace_id, not a graph node.
func (AgentDecision) Edges() []ent.Edge {
	return nil
}

// Indexes of the AgentDecision.
func (AgentDecision) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("trace_id"),
		index.Fields("agent_type", "created_at"),
	}
}
