package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Evaluation holds the schema definition for the Evaluation entity.
// Produced by the Evaluator Dispatcher (pkg/evaluator) for a single
// variant under a single evaluator_type / config fingerprint.
type Evaluation struct {
	ent.Schema
}

// Fields of the Evaluation.
func (Evaluation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("evaluation_id").
			Unique().
			Immutable(),
		field.String("variant_id").
			Immutable(),
		field.String("round_id").
			Immutable(),

		field.String("evaluator_type").
			Comment("llm_judge | unit_test | benchmark | ensemble"),
		field.Enum("status").
			Values("pending", "running", "completed", "failed").
			Default("pending"),
		field.Float("score").
			Optional().
			Nillable().
			Comment("null until completed, clamped to [0,1]"),

		field.JSON("result_data", map[string]interface{}{}).
			Optional().
			Comment("feedback, criteria_scores, ensemble breakdown"),
		field.JSON("evaluation_config", map[string]interface{}{}).
			Optional().
			Comment("budget fields and criteria weights, fingerprinted for caching"),
		field.String("config_fingerprint").
			Comment("sha256 of the canonical evaluation_config, used for cache lookups"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Evaluation.
func (Evaluation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("variant", Variant.Type).
			Ref("evaluations").
			Field("variant_id").
			Unique().
			Required().
			Immutable(),
		edge.From("round", Round.Type).
			Ref("evaluations").
			Field("round_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Evaluation.
func (Evaluation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("round_id", "score"),
		index.Fields("variant_id"),
		index.Fields("variant_id", "evaluator_type", "config_fingerprint"),
	}
}
