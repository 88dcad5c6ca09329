package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/evoengine/core/pkg/config"
)

// defaultCriteriaWeights mirrors config.NewDefaults().CriteriaWeights,
// used when a call's config omits criteria_weights entirely (spec.md §4.5).
var defaultCriteriaWeights = map[string]float64{
	"correctness":  0.3,
	"code_quality": 0.25,
	"performance":  0.2,
	"innovation":   0.15,
	"simplicity":   0.1,
}

// LLMJudgeRunner implements Runner against the Anthropic Messages API,
// prompting the model to return per-criterion scores as JSON and
// aggregating them with criteria_weights (spec.md §4.5).
type LLMJudgeRunner struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewLLMJudgeRunner builds an LLMJudgeRunner from a named provider in
// the LLM provider registry.
func NewLLMJudgeRunner(providers *config.LLMProviderRegistry, providerName string) (*LLMJudgeRunner, error) {
	p, err := providers.Get(providerName)
	if err != nil {
		return nil, err
	}
	apiKey := os.Getenv(p.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("llm_judge: environment variable %s is not set", p.APIKeyEnv)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}

	return &LLMJudgeRunner{
		client:    anthropic.NewClient(opts...),
		model:     p.Model,
		maxTokens: p.MaxOutputTokens,
	}, nil
}

func (r *LLMJudgeRunner) Run(ctx context.Context, content string, cfg map[string]interface{}) (RunResult, error) {
	weights := criteriaWeightsFrom(cfg)

	criteria := make([]string, 0, len(weights))
	for c := range weights {
		criteria = append(criteria, c)
	}

	prompt := fmt.Sprintf(
		"Score the following artifact on each of these criteria, each from 0.0 to 1.0: %s.\n"+
			"Respond with a JSON object only, shaped as "+
			`{"scores": {"<criterion>": <float>, ...}, "feedback": "<one paragraph>"}`+".\n\n"+
			"Artifact:\n%s",
		strings.Join(criteria, ", "), content,
	)

	msg, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(r.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("llm_judge: anthropic call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	var parsed struct {
		Scores   map[string]float64 `json:"scores"`
		Feedback string              `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text.String())), &parsed); err != nil {
		return RunResult{}, fmt.Errorf("llm_judge: could not parse judge response as JSON: %w", err)
	}

	composite := weightedAverage(parsed.Scores, weights)

	return RunResult{
		Score:          composite,
		Feedback:       parsed.Feedback,
		CriteriaScores: parsed.Scores,
	}, nil
}

func criteriaWeightsFrom(cfg map[string]interface{}) map[string]float64 {
	raw, ok := cfg["criteria_weights"].(map[string]interface{})
	if !ok {
		return defaultCriteriaWeights
	}
	weights := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			weights[k] = f
		}
	}
	if len(weights) == 0 {
		return defaultCriteriaWeights
	}
	return weights
}

func weightedAverage(scores, weights map[string]float64) float64 {
	var sum, total float64
	for criterion, w := range weights {
		s, ok := scores[criterion]
		if !ok {
			continue
		}
		sum += s * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}

// extractJSON trims any leading/trailing prose the model adds around
// the JSON object, taking the substring between the first '{' and the
// matching final '}'.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
