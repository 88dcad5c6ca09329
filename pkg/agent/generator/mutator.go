package generator

import (
	"context"
	"fmt"

	"github.com/evoengine/core/pkg/tracecontext"
)

// Mutator applies a named mutation to a parent's content and returns
// the child content. The concrete code-transform backend is
// deliberately pluggable: this package supplies a deterministic
// default (AnnotatingMutator) so the pipeline is exercisable end to
// end, and a tool-registry-backed alternative (ToolRegistryMutator)
// for deployments that want mutation templates served by an external
// tool rather than baked into the binary.
type Mutator interface {
	Mutate(ctx context.Context, tc tracecontext.Context, parentContent, mutationType string, config map[string]interface{}) (string, error)
}

// AnnotatingMutator appends a marker comment naming the mutation
// applied. It stands in for a real sandboxed code-transform backend
// (e.g. an LLM-driven rewrite), which is out of scope as a concrete
// sandbox implementation.
type AnnotatingMutator struct{}

func (AnnotatingMutator) Mutate(ctx context.Context, tc tracecontext.Context, parentContent, mutationType string, config map[string]interface{}) (string, error) {
	return fmt.Sprintf("%s\n# mutation: %s", parentContent, mutationType), nil
}
