// Command evoengine runs the evolutionary campaign orchestration
// server: HTTP API, the round/campaign state machine, and the
// in-process job tracker and event broadcaster backing it.
package main

import (
	"context"
	stdsql "database/sql"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/evoengine/core/pkg/agent/generator"
	"github.com/evoengine/core/pkg/api"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/config"
	"github.com/evoengine/core/pkg/database"
	"github.com/evoengine/core/pkg/events"
	"github.com/evoengine/core/pkg/evaluator"
	"github.com/evoengine/core/pkg/jobs"
	"github.com/evoengine/core/pkg/orchestrator"
	"github.com/evoengine/core/pkg/policy"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/toolregistry"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// loadDatabaseConfigFromEnv reads the database settings from the PG*
// environment variables. STORE_URL and the DB_* keys parsed by
// database.LoadConfigFromEnv are not consulted.
func loadDatabaseConfigFromEnv() database.Config {
	return database.Config{
		Host:            getEnv("PGHOST", "localhost"),
		Port:            getEnvInt("PGPORT", 5432),
		User:            getEnv("PGUSER", "evoengine"),
		Password:        getEnv("PGPASSWORD", ""),
		Database:        getEnv("PGDATABASE", "evoengine"),
		SSLMode:         getEnv("PGSSLMODE", "disable"),
		MaxOpenConns:    getEnvInt("PG_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    getEnvInt("PG_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(getEnvInt("PG_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
		ConnMaxIdleTime: time.Duration(getEnvInt("PG_CONN_MAX_IDLE_MINUTES", 5)) * time.Minute,
	}
}

// buildDispatcher wires the LLM provider named by LLM_JUDGE_PROVIDER
// (default "anthropic"), when it is configured, as the backend for the
// llm_judge runner and registers the in-process StubRunner for the
// unit_test and benchmark types; an evaluator_type with no registered
// runner surfaces at call time as a dispatcher error rather than a panic.
func buildDispatcher(cfg *config.Config, st *store.Store) (*evaluator.Dispatcher, error) {
	runners := map[string]evaluator.Runner{
		"unit_test": &evaluator.StubRunner{},
		"benchmark": &evaluator.StubRunner{},
	}

	providerName := getEnv("LLM_JUDGE_PROVIDER", "anthropic")
	if _, err := cfg.LLMProviderRegistry.Get(providerName); err == nil {
		judge, err := evaluator.NewLLMJudgeRunner(cfg.LLMProviderRegistry, providerName)
		if err != nil {
			return nil, err
		}
		runners["llm_judge"] = judge
	} else {
		slog.Warn("llm_judge provider not configured, llm_judge evaluations will fail at dispatch", "provider", providerName, "error", err)
	}

	return evaluator.New(st, runners, cfg.Defaults.EvaluatorCoefficients), nil
}

// sqlRowsToMaps runs sqlQuery and flattens the result into the
// []map[string]interface{} shape the tool registry's database server
// returns to callers.
func sqlRowsToMaps(db *stdsql.DB) toolregistry.QueryFunc {
	return func(ctx context.Context, sqlQuery string) ([]map[string]interface{}, error) {
		rows, err := db.QueryContext(ctx, sqlQuery)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}

		var results []map[string]interface{}
		for rows.Next() {
			values := make([]interface{}, len(cols))
			pointers := make([]interface{}, len(cols))
			for i := range values {
				pointers[i] = &values[i]
			}
			if err := rows.Scan(pointers...); err != nil {
				return nil, err
			}
			row := make(map[string]interface{}, len(cols))
			for i, col := range cols {
				row[col] = values[i]
			}
			results = append(results, row)
		}
		return results, rows.Err()
	}
}

// buildToolRegistry registers every tool server declared in the
// bootstrap file at bootstrapPath, backing the database-kind entries
// (if any) with a read-only query against db.
func buildToolRegistry(st *store.Store, db *stdsql.DB, bootstrapPath string) (*toolregistry.Registry, error) {
	reg := toolregistry.New(audit.New(st))
	if _, err := os.Stat(bootstrapPath); err != nil {
		slog.Warn("tool registry bootstrap file not found, registry will have no servers", "path", bootstrapPath, "error", err)
		return reg, nil
	}
	if err := toolregistry.LoadBootstrap(reg, bootstrapPath, sqlRowsToMaps(db)); err != nil {
		return nil, err
	}
	return reg, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		return 2
	}

	dbClient, err := database.NewClient(ctx, loadDatabaseConfigFromEnv())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 2
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to database", "database", loadDatabaseConfigFromEnv().Database)

	var blobs store.ReportBlobStore
	if dir := os.Getenv("REPORT_BLOB_DIR"); dir != "" {
		fsBlobs, err := store.NewFilesystemBlobStore(dir)
		if err != nil {
			slog.Error("failed to initialize report blob store", "error", err)
			return 2
		}
		blobs = fsBlobs
	}
	st := store.New(dbClient.Client, blobs)

	dispatcher, err := buildDispatcher(cfg, st)
	if err != nil {
		slog.Error("failed to build evaluator dispatcher", "error", err)
		return 2
	}

	toolRegistryBootstrapPath := getEnv("TOOL_REGISTRY_BOOTSTRAP_PATH", filepath.Join(*configDir, "tool_registry.yaml"))
	toolRegistry, err := buildToolRegistry(st, dbClient.DB(), toolRegistryBootstrapPath)
	if err != nil {
		slog.Error("failed to bootstrap tool registry", "error", err)
		return 2
	}

	mutationTemplateDir := getEnv("MUTATION_TEMPLATE_DIR", filepath.Join(*configDir, "mutation_templates"))
	mutator := generator.NewToolRegistryMutator(toolRegistry, mutationTemplateDir)

	policyEngine := policy.New(st)
	broadcaster := events.NewBroadcaster()
	orch := orchestrator.New(st, dispatcher, policyEngine, mutator, broadcaster)
	tracker := jobs.New()

	server := api.NewServer(cfg, dbClient, st, orch, tracker, broadcaster)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		slog.Error("HTTP server failed", "error", err)
		return exitCode(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during graceful shutdown", "error", err)
		return 1
	}
	return 0
}
