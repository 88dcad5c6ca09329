package toolregistry

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemServer exposes sandboxed local file access, restricted to
// a directory whitelist. Grounded in the original implementation's
// filesystem MCP server.
type FilesystemServer struct {
	name         string
	version      string
	allowedPaths []string
}

// NewFilesystemServer returns a FilesystemServer scoped to allowedPaths.
func NewFilesystemServer(version string, allowedPaths []string) *FilesystemServer {
	resolved := make([]string, len(allowedPaths))
	for i, p := range allowedPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		resolved[i] = abs
	}
	return &FilesystemServer{name: "filesystem", version: version, allowedPaths: resolved}
}

func (s *FilesystemServer) Name() string    { return s.name }
func (s *FilesystemServer) Version() string { return s.version }
func (s *FilesystemServer) Tools() []string {
	return []string{"read_file", "list_directory", "search_files", "file_exists"}
}

func (s *FilesystemServer) isAllowed(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, allowed := range s.allowedPaths {
		if abs == allowed || strings.HasPrefix(abs, allowed+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *FilesystemServer) Call(ctx context.Context, tool string, params map[string]interface{}) (map[string]interface{}, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("%s: missing required param %q", tool, "path")
	}
	if !s.isAllowed(path) {
		return nil, fmt.Errorf("path %q is outside allowed directories: %v", path, s.allowedPaths)
	}

	switch tool {
	case "read_file":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"content": string(data)}, nil
	case "list_directory":
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return map[string]interface{}{"entries": names}, nil
	case "search_files":
		pattern, _ := params["pattern"].(string)
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"matches": matches}, nil
	case "file_exists":
		_, err := os.Stat(path)
		return map[string]interface{}{"exists": err == nil}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

// WebServer exposes outbound HTTP fetches restricted to a host whitelist.
type WebServer struct {
	name          string
	version       string
	allowedHosts  []string
	fetch         func(ctx context.Context, url string) (status int, body string, err error)
}

// NewWebServer returns a WebServer scoped to allowedHosts. An empty
// list allows any host, matching the original implementation's
// "allowed_domains: None means all allowed" default.
func NewWebServer(version string, allowedHosts []string, fetch func(ctx context.Context, url string) (int, string, error)) *WebServer {
	return &WebServer{name: "web", version: version, allowedHosts: allowedHosts, fetch: fetch}
}

func (s *WebServer) Name() string    { return s.name }
func (s *WebServer) Version() string { return s.version }
func (s *WebServer) Tools() []string { return []string{"fetch"} }

func (s *WebServer) isAllowed(host string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range s.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (s *WebServer) Call(ctx context.Context, tool string, params map[string]interface{}) (map[string]interface{}, error) {
	if tool != "fetch" {
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
	raw, _ := params["url"].(string)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !s.isAllowed(u.Hostname()) {
		return nil, fmt.Errorf("domain %q not allowed, allowed domains: %v", u.Hostname(), s.allowedHosts)
	}
	status, body, err := s.fetch(ctx, raw)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"status": status, "body": body}, nil
}

// DatabaseServer exposes read-only SQL against a table whitelist.
// Grounded directly in the original implementation's database MCP
// server: only SELECT statements are accepted, a fixed set of
// dangerous keywords is rejected, and the statement must reference an
// allowed table.
type DatabaseServer struct {
	name          string
	version       string
	allowedTables []string
	query         func(ctx context.Context, sql string) ([]map[string]interface{}, error)
}

var dangerousKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE"}

// NewDatabaseServer returns a DatabaseServer scoped to allowedTables,
// running accepted queries through query.
func NewDatabaseServer(version string, allowedTables []string, query func(ctx context.Context, sql string) ([]map[string]interface{}, error)) *DatabaseServer {
	return &DatabaseServer{name: "database", version: version, allowedTables: allowedTables, query: query}
}

func (s *DatabaseServer) Name() string    { return s.name }
func (s *DatabaseServer) Version() string { return s.version }
func (s *DatabaseServer) Tools() []string { return []string{"query"} }

func (s *DatabaseServer) validate(sql string) error {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	for _, kw := range dangerousKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("query contains forbidden keyword %q", kw)
		}
	}
	for _, table := range s.allowedTables {
		if strings.Contains(upper, strings.ToUpper(table)) {
			return nil
		}
	}
	return fmt.Errorf("query must reference an allowed table: %v", s.allowedTables)
}

func (s *DatabaseServer) Call(ctx context.Context, tool string, params map[string]interface{}) (map[string]interface{}, error) {
	if tool != "query" {
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
	sql, _ := params["sql"].(string)
	if err := s.validate(sql); err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"rows": rows}, nil
}
