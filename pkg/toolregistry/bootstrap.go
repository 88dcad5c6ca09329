package toolregistry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapEntry is one declarative server entry in the
// TOOL_REGISTRY_BOOTSTRAP_PATH YAML file (deploy/config/tool_registry.yaml).
type BootstrapEntry struct {
	ServerName    string   `yaml:"server_name"`
	Version       string   `yaml:"version"`
	Kind          string   `yaml:"kind"` // filesystem | web | database | fixtures
	Tools         []string `yaml:"tools"`
	AllowedPaths  []string `yaml:"allowed_paths,omitempty"`
	AllowedHosts  []string `yaml:"allowed_hosts,omitempty"`
	AllowedTables []string `yaml:"allowed_tables,omitempty"`
}

type bootstrapFile struct {
	Servers []BootstrapEntry `yaml:"servers"`
}

// QueryFunc runs a read-only query for the database server kind; the
// concrete implementation lives with the store package's client.
type QueryFunc func(ctx context.Context, sql string) ([]map[string]interface{}, error)

// LoadBootstrap reads the declarative server list at path and
// registers a handle for each entry into reg. queryFn backs any
// "database"-kind entries; it may be nil if none are present.
func LoadBootstrap(reg *Registry, path string, queryFn QueryFunc) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tool registry bootstrap file: %w", err)
	}

	var parsed bootstrapFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse tool registry bootstrap file: %w", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	for _, e := range parsed.Servers {
		switch e.Kind {
		case "filesystem":
			reg.Register(NewFilesystemServer(e.Version, e.AllowedPaths))
		case "web":
			reg.Register(NewWebServer(e.Version, e.AllowedHosts, func(ctx context.Context, url string) (int, string, error) {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					return 0, "", err
				}
				resp, err := httpClient.Do(req)
				if err != nil {
					return 0, "", err
				}
				defer resp.Body.Close()
				return resp.StatusCode, "", nil
			}))
		case "database":
			if queryFn == nil {
				return fmt.Errorf("tool registry bootstrap entry %q requires a database query function", e.ServerName)
			}
			reg.Register(NewDatabaseServer(e.Version, e.AllowedTables, queryFn))
		case "fixtures":
			reg.Register(NewEchoToolServer(e.Version, e.Tools))
		default:
			return fmt.Errorf("tool registry bootstrap entry %q: unknown kind %q", e.ServerName, e.Kind)
		}
	}

	return nil
}
