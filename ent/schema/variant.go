package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Variant holds the schema definition for the Variant entity.
// Variants form a forest rooted at generation-0 founders; the
// self-referential parent_id edge is the backbone of the lineage
// engine (pkg/lineage).
type Variant struct {
	ent.Schema
}

// Fields of the Variant.
func (Variant) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("variant_id").
			Unique().
			Immutable(),
		field.String("round_id").
			Immutable(),
		field.String("parent_id").
			Optional().
			Nillable().
			Immutable().
			Comment("null iff generation=0"),
		field.Int("generation").
			Immutable().
			Comment("0 for founders, parent.generation+1 otherwise"),

		field.Text("content").
			Immutable(),
		field.String("content_hash").
			Immutable().
			Comment("sha256(content), hex-encoded"),

		field.String("mutation_type").
			Optional().
			Nillable(),
		field.JSON("mutation_metadata", map[string]interface{}{}).
			Optional(),

		field.Bool("is_selected").
			Default(false),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("deleted_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Variant.
func (Variant) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("round", Round.Type).
			Ref("variants").
			Field("round_id").
			Unique().
			Required().
			Immutable(),
		edge.To("children", Variant.Type).
			From("parent").
			Field("parent_id").
			Unique().
			Annotations(entsql.OnDelete(entsql.SetNull)),
		edge.To("evaluations", Evaluation.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Variant.
func (Variant) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("round_id", "deleted_at"),
		index.Fields("parent_id", "deleted_at"),
		index.Fields("content_hash"),
		index.Fields("round_id", "is_selected"),
	}
}
