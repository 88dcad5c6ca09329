package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ToolAccessLog holds the schema definition for the ToolAccessLog entity.
// Append-only row written for every call dispatched through the Tool
// Registry (pkg/toolregistry), success or failure, never deleted.
type ToolAccessLog struct {
	ent.Schema
}

// Fields of the ToolAccessLog.
func (ToolAccessLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("tool_access_log_id").
			Unique().
			Immutable(),
		field.String("trace_id").
			Immutable(),

		field.String("server_name").
			Immutable(),
		field.String("server_version").
			Immutable().
			Comment("Resolved semver of the server that handled the call"),
		field.String("tool_name").
			Immutable(),

		field.JSON("input_params", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("output_data", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.Enum("status").
			Values("success", "error").
			Immutable(),
		field.String("error_message").
			Optional().
			Nillable().
			Immutable(),
		field.Int("duration_ms").
			Immutable(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (ToolAccessLog) Edges() []ent.Edge { return nil }

// Indexes of the ToolAccessLog.
func (ToolAccessLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("trace_id"),
		index.Fields("server_name", "created_at"),
	}
}
