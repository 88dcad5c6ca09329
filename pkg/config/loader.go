package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EvoEngineYAMLConfig represents the complete evoengine.yaml file structure:
// campaign defaults and the llm_judge provider backends.
type EvoEngineYAMLConfig struct {
	Defaults     *Defaults                    `yaml:"defaults"`
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load evoengine.yaml from configDir (optional; defaults apply if absent)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in defaults with user overrides
//  5. Build in-memory registries
//  6. Validate all configuration
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	yamlCfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	defaults := NewDefaults()
	if yamlCfg.Defaults != nil {
		mergeDefaults(defaults, yamlCfg.Defaults)
	}

	providers := yamlCfg.LLMProviders
	if providers == nil {
		providers = map[string]LLMProviderConfig{}
	}
	providerPtrs := make(map[string]*LLMProviderConfig, len(providers))
	for name := range providers {
		p := providers[name]
		providerPtrs[name] = &p
	}

	if err := validate(providerPtrs); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := &Config{
		configDir:           configDir,
		Defaults:            defaults,
		LLMProviderRegistry: NewLLMProviderRegistry(providerPtrs),
	}

	log.Info("Configuration initialized",
		"llm_providers", len(providerPtrs),
		"max_rounds_default", defaults.MaxRounds,
	)

	return cfg, nil
}

func load(configDir string) (*EvoEngineYAMLConfig, error) {
	path := filepath.Join(configDir, "evoengine.yaml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("No evoengine.yaml found, using built-in defaults", "path", path)
		return &EvoEngineYAMLConfig{}, nil
	}
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(data)

	var cfg EvoEngineYAMLConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidYAML, path, err)
	}

	return &cfg, nil
}

// mergeDefaults overlays non-zero fields from override onto base.
func mergeDefaults(base, override *Defaults) {
	if override.MaxRounds > 0 {
		base.MaxRounds = override.MaxRounds
	}
	if override.VariantsPerRound > 0 {
		base.VariantsPerRound = override.VariantsPerRound
	}
	if len(override.Evaluators) > 0 {
		base.Evaluators = override.Evaluators
	}
	for k, v := range override.EvaluatorCoefficients {
		base.EvaluatorCoefficients[k] = v
	}
	for k, v := range override.CriteriaWeights {
		base.CriteriaWeights[k] = v
	}
	if override.ReportInlineThresholdBytes > 0 {
		base.ReportInlineThresholdBytes = override.ReportInlineThresholdBytes
	}
}

// validate checks cross-cutting invariants on the loaded LLM provider set.
func validate(providers map[string]*LLMProviderConfig) error {
	for name, p := range providers {
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if p.APIKeyEnv == "" {
			return NewValidationError("llm_provider", name, "api_key_env", ErrMissingRequiredField)
		}
		if p.MaxOutputTokens < 256 {
			return NewValidationError("llm_provider", name, "max_output_tokens", ErrInvalidValue)
		}
	}
	return nil
}
