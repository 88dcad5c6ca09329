package generator_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoengine/core/pkg/agent/generator"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/toolregistry"
	"github.com/evoengine/core/pkg/tracecontext"
	testdb "github.com/evoengine/core/test/database"
)

func TestToolRegistryMutatorFallsBackWithNilRegistry(t *testing.T) {
	m := &generator.ToolRegistryMutator{}
	out, err := m.Mutate(context.Background(), tracecontext.New("campaign-1"), "original", "refactor", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "original")
	assert.Contains(t, out, "refactor")
}

func newTestMutatorRegistry(t *testing.T, dir string) *toolregistry.Registry {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client, nil)
	reg := toolregistry.New(audit.New(st))
	reg.Register(toolregistry.NewFilesystemServer("1.0.0", []string{dir}))
	return reg
}

func TestToolRegistryMutatorFallsBackWhenTemplateMissing(t *testing.T) {
	dir := t.TempDir()
	reg := newTestMutatorRegistry(t, dir)

	m := generator.NewToolRegistryMutator(reg, dir)
	out, err := m.Mutate(context.Background(), tracecontext.New("campaign-1"), "original", "refactor", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "original")
	assert.Contains(t, out, "mutation: refactor")
}

func TestToolRegistryMutatorUsesTemplateWhenPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/refactor.txt", []byte("# apply refactor template"), 0o644))
	reg := newTestMutatorRegistry(t, dir)

	m := generator.NewToolRegistryMutator(reg, dir)
	out, err := m.Mutate(context.Background(), tracecontext.New("campaign-1"), "original", "refactor", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "original")
	assert.Contains(t, out, "apply refactor template")
}
