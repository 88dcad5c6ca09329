package toolregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoengine/core/ent/toolaccesslog"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/toolregistry"
	"github.com/evoengine/core/pkg/tracecontext"
	testdb "github.com/evoengine/core/test/database"
)

func newTestRegistry(t *testing.T) (*toolregistry.Registry, *store.Store) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client, nil)
	return toolregistry.New(audit.New(st)), st
}

func TestRegistryResolvesHighestSemverWhenVersionUnspecified(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.0.0", map[string]map[string]interface{}{
		"ping": {"ok": true},
	}))
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.2.0", map[string]map[string]interface{}{
		"ping": {"ok": true, "version": "1.2.0"},
	}))
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.1.0", map[string]map[string]interface{}{
		"ping": {"ok": true, "version": "1.1.0"},
	}))

	tc := tracecontext.New("campaign-1")
	out, err := reg.Call(context.Background(), tc, "fixtures", "", "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", out["version"])
}

func TestRegistryCallHonorsPinnedVersion(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.0.0", map[string]map[string]interface{}{
		"ping": {"version": "1.0.0"},
	}))
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "2.0.0", map[string]map[string]interface{}{
		"ping": {"version": "2.0.0"},
	}))

	tc := tracecontext.New("campaign-1")
	out, err := reg.Call(context.Background(), tc, "fixtures", "1.0.0", "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", out["version"])
}

func TestRegistryCallWritesAuditLogOnSuccess(t *testing.T) {
	reg, st := newTestRegistry(t)
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.0.0", map[string]map[string]interface{}{
		"ping": {"ok": true},
	}))

	tc := tracecontext.New("campaign-1")
	_, err := reg.Call(context.Background(), tc, "fixtures", "1.0.0", "ping", map[string]interface{}{"x": 1})
	require.NoError(t, err)

	logs, err := st.ToolAccessLogs.ByTrace(context.Background(), tc.TraceID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, toolaccesslog.StatusSuccess, logs[0].Status)
	assert.Equal(t, "fixtures", logs[0].ServerName)
	assert.Equal(t, "ping", logs[0].ToolName)
}

func TestRegistryCallWritesAuditLogOnToolExecutionError(t *testing.T) {
	reg, st := newTestRegistry(t)

	// EchoToolServer never errors, so use a filesystem server with a
	// path outside its allowlist to exercise the failure path.
	reg.Register(toolregistry.NewFilesystemServer("1.0.0", []string{"/tmp/evoengine-allowed"}))

	tc := tracecontext.New("campaign-1")
	_, err := reg.Call(context.Background(), tc, "filesystem", "1.0.0", "read_file", map[string]interface{}{"path": "/etc/passwd"})
	require.Error(t, err)

	var execErr *orcherrors.ToolExecutionError
	require.ErrorAs(t, err, &execErr)

	logs, err := st.ToolAccessLogs.ByTrace(context.Background(), tc.TraceID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, toolaccesslog.StatusError, logs[0].Status)
	require.NotNil(t, logs[0].ErrorMessage)
}

func TestRegistryCallUnknownServerReturnsToolServerNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	tc := tracecontext.New("campaign-1")
	_, err := reg.Call(context.Background(), tc, "nope", "", "ping", nil)
	require.Error(t, err)

	var notFound *orcherrors.ToolServerNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistryCallUnknownToolReturnsToolNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.0.0", map[string]map[string]interface{}{
		"ping": {"ok": true},
	}))

	tc := tracecontext.New("campaign-1")
	_, err := reg.Call(context.Background(), tc, "fixtures", "1.0.0", "missing_tool", nil)
	require.Error(t, err)

	var notFound *orcherrors.ToolNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistryCallPinnedUnknownVersionReturnsToolServerNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Register(toolregistry.NewStaticFixtureToolServer("fixtures", "1.0.0", map[string]map[string]interface{}{
		"ping": {"ok": true},
	}))

	tc := tracecontext.New("campaign-1")
	_, err := reg.Call(context.Background(), tc, "fixtures", "9.9.9", "ping", nil)
	require.Error(t, err)

	var notFound *orcherrors.ToolServerNotFound
	assert.ErrorAs(t, err, &notFound)
}
