package generator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/evoengine/core/pkg/toolregistry"
	"github.com/evoengine/core/pkg/tracecontext"
)

// ToolRegistryMutator sources a mutation template from the filesystem
// tool server rather than baking the transform into the binary,
// exercising a VariantGenerator's tool use through the registry the
// way every other external call an agent makes is required to. A
// missing template or a tool-call failure falls back to
// AnnotatingMutator's marker-only behavior rather than failing the
// round outright — a template is an optimization, not a correctness
// requirement for the mutation itself.
type ToolRegistryMutator struct {
	Registry    *toolregistry.Registry
	TemplateDir string
	fallback    AnnotatingMutator
}

// NewToolRegistryMutator builds a ToolRegistryMutator that reads
// "<mutationType>.txt" template files out of templateDir through reg's
// filesystem server.
func NewToolRegistryMutator(reg *toolregistry.Registry, templateDir string) *ToolRegistryMutator {
	return &ToolRegistryMutator{Registry: reg, TemplateDir: templateDir}
}

func (m *ToolRegistryMutator) Mutate(ctx context.Context, tc tracecontext.Context, parentContent, mutationType string, config map[string]interface{}) (string, error) {
	if m.Registry == nil {
		return m.fallback.Mutate(ctx, tc, parentContent, mutationType, config)
	}

	path := filepath.Join(m.TemplateDir, mutationType+".txt")
	output, err := m.Registry.Call(ctx, tc, "filesystem", "", "read_file", map[string]interface{}{"path": path})
	if err != nil {
		slog.Warn("tool registry mutation template unavailable, falling back to marker mutation",
			"mutation_type", mutationType, "path", path, "error", err)
		return m.fallback.Mutate(ctx, tc, parentContent, mutationType, config)
	}

	template, _ := output["content"].(string)
	if template == "" {
		return m.fallback.Mutate(ctx, tc, parentContent, mutationType, config)
	}

	return fmt.Sprintf("%s\n%s", parentContent, template), nil
}
