// Package toolregistry implements the versioned, audit-logged gateway
// to every external tool server (C2). The registry is effectively
// immutable after bootstrap; only its access-log writes are shared.
package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/evoengine/core/pkg/tracecontext"
	"golang.org/x/mod/semver"
)

// ToolServer is a named, versioned handle exposing a set of tools. The
// three concrete servers in deploy/config/tool_registry.yaml
// (filesystem, web, database) and the two test doubles (EchoToolServer,
// StaticFixtureToolServer) all implement this.
type ToolServer interface {
	Name() string
	Version() string
	Tools() []string
	Call(ctx context.Context, tool string, params map[string]interface{}) (map[string]interface{}, error)
}

// Registry holds a map from (server_name, semver) to a ToolServer
// handle, and resolves+audits every call made through it.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]map[string]ToolServer // server_name -> version -> handle
	logger  *audit.Logger
}

// New builds an empty Registry. Register servers with Register before
// serving traffic; per spec.md §9 design notes, construct once at
// process boot with a declarative bootstrap list (see bootstrap.go).
func New(logger *audit.Logger) *Registry {
	return &Registry{
		servers: make(map[string]map[string]ToolServer),
		logger:  logger,
	}
}

// Register adds a server handle under (handle.Name(), handle.Version()).
func (r *Registry) Register(handle ToolServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.servers[handle.Name()]; !ok {
		r.servers[handle.Name()] = make(map[string]ToolServer)
	}
	r.servers[handle.Name()][normalizeVersion(handle.Version())] = handle
}

func normalizeVersion(v string) string {
	if len(v) == 0 || v[0] != 'v' {
		return "v" + v
	}
	return v
}

// resolve implements the server/version lookup in spec.md §4.2 steps 1-2.
func (r *Registry) resolve(serverName, version string) (ToolServer, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.servers[serverName]
	if !ok || len(versions) == 0 {
		return nil, "", &orcherrors.ToolServerNotFound{ServerName: serverName, Version: version}
	}

	if version != "" {
		handle, ok := versions[normalizeVersion(version)]
		if !ok {
			return nil, "", &orcherrors.ToolServerNotFound{ServerName: serverName, Version: version}
		}
		return handle, handle.Version(), nil
	}

	keys := make([]string, 0, len(versions))
	for v := range versions {
		keys = append(keys, v)
	}
	sort.Slice(keys, func(i, j int) bool { return semver.Compare(keys[i], keys[j]) < 0 })
	highest := keys[len(keys)-1]
	return versions[highest], versions[highest].Version(), nil
}

// Call resolves (serverName, version?), validates tool exists, invokes
// it, and emits a ToolAccessLog row unconditionally — success or
// failure — per spec.md §4.2 step 5 (NON-NEGOTIABLE). If the audit
// write itself fails, that is surfaced as the error regardless of the
// tool call's own outcome, per the same step.
func (r *Registry) Call(ctx context.Context, tc tracecontext.Context, serverName, version, tool string, params map[string]interface{}) (map[string]interface{}, error) {
	handle, resolvedVersion, err := r.resolve(serverName, version)
	if err != nil {
		if auditErr := r.logger.LogToolCall(ctx, tc, audit.ToolCall{
			ServerName:    serverName,
			ServerVersion: version,
			ToolName:      tool,
			InputParams:   params,
			Err:           err,
		}); auditErr != nil {
			return nil, fmt.Errorf("tool call audit log write failed (treated as orchestration error): %w", auditErr)
		}
		return nil, err
	}

	if !contains(handle.Tools(), tool) {
		notFound := &orcherrors.ToolNotFound{ServerName: serverName, ToolName: tool, AvailableTools: handle.Tools()}
		if auditErr := r.logger.LogToolCall(ctx, tc, audit.ToolCall{
			ServerName:    serverName,
			ServerVersion: resolvedVersion,
			ToolName:      tool,
			InputParams:   params,
			Err:           notFound,
		}); auditErr != nil {
			return nil, fmt.Errorf("tool call audit log write failed (treated as orchestration error): %w", auditErr)
		}
		return nil, notFound
	}

	start := time.Now()
	output, callErr := handle.Call(ctx, tool, params)
	duration := time.Since(start)

	var loggedErr error
	if callErr != nil {
		loggedErr = &orcherrors.ToolExecutionError{ServerName: serverName, ToolName: tool, Cause: callErr}
	}

	if auditErr := r.logger.LogToolCall(ctx, tc, audit.ToolCall{
		ServerName:    serverName,
		ServerVersion: resolvedVersion,
		ToolName:      tool,
		InputParams:   params,
		OutputData:    output,
		Err:           loggedErr,
		DurationMs:    int(duration.Milliseconds()),
	}); auditErr != nil {
		return nil, fmt.Errorf("tool call audit log write failed (treated as orchestration error): %w", auditErr)
	}

	if callErr != nil {
		return nil, loggedErr
	}
	return output, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
