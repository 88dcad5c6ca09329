package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Report holds the schema definition for the Report entity.
// Produced by the Reporter agent at the end of every round
// (round_summary) and, for campaigns that finish, once more
// (final_report).
type Report struct {
	ent.Schema
}

// Fields of the Report.
func (Report) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("report_id").
			Unique().
			Immutable(),
		field.String("round_id").
			Immutable(),

		field.String("report_type").
			Immutable().
			Comment("round_summary | campaign_progress | lineage_analysis | final_report"),
		field.String("format").
			Default("json").
			Immutable(),
		field.Text("content").
			Optional().
			Nillable().
			Comment("Inline JSON payload, empty when spilled to storage_path"),
		field.String("storage_path").
			Optional().
			Nillable().
			Comment("Set when content exceeds the inline size threshold"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Report.
func (Report) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("round", Round.Type).
			Ref("reports").
			Field("round_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Report.
func (Report) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("round_id"),
		index.Fields("report_type"),
	}
}
