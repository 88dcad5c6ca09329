package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Round holds the schema definition for the Round entity.
// Represents one iteration of the plan -> generate -> evaluate ->
// select -> report pipeline within a Campaign.
type Round struct {
	ent.Schema
}

// Fields of the Round.
func (Round) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("round_id").
			Unique().
			Immutable(),
		field.String("campaign_id").
			Immutable(),
		field.Int("round_number").
			Immutable().
			Comment("Position within the campaign, 1-based"),

		field.Enum("status").
			Values("pending", "planning", "generating", "evaluating", "selecting", "reporting", "completed", "failed").
			Default("pending"),

		field.JSON("plan", map[string]interface{}{}).
			Optional().
			Comment("RoundPlan produced by the Planner agent"),
		field.JSON("metrics", map[string]interface{}{}).
			Optional().
			Comment("average_score, best_score, selected_count, ..."),

		field.Time("started_at").
			Optional().
			Nillable().
			Comment("Set on entering 'planning'"),
		field.Time("completed_at").
			Optional().
			Nillable().
			Comment("Set on entering 'completed'"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Time("deleted_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Round.
func (Round) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("campaign", Campaign.Type).
			Ref("rounds").
			Field("campaign_id").
			Unique().
			Required().
			Immutable(),
		edge.To("variants", Variant.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("evaluations", Evaluation.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("reports", Report.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Round.
func (Round) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("campaign_id", "round_number").
			Unique(),
		index.Fields("campaign_id", "status", "deleted_at"),
	}
}
