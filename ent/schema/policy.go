package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Policy holds the schema definition for the Policy entity.
// A versioned specification of how the PolicyMaker agent selects
// variants for the next round (pkg/policy).
type Policy struct {
	ent.Schema
}

// Fields of the Policy.
func (Policy) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("policy_id").
			Unique().
			Immutable(),
		field.String("campaign_id").
			Immutable(),
		field.String("name"),
		field.Enum("policy_type").
			Values("selection", "mutation", "termination"),
		field.Int("version").
			Immutable(),
		field.JSON("config", map[string]interface{}{}).
			Comment("strategy, selection_pressure, min_lineages, criteria_weights"),
		field.Bool("is_active").
			Default(true),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("deleted_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Policy.
func (Policy) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("campaign", Campaign.Type).
			Ref("policies").
			Field("campaign_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Policy.
func (Policy) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("campaign_id", "policy_type", "version").
			Unique(),
		index.Fields("campaign_id", "is_active", "deleted_at"),
	}
}
