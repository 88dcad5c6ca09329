// Package planner implements the Planner agent (spec.md §4.7.1): it
// produces a RoundPlan from a campaign's phase and writes the
// idempotent create_round state transition.
package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/pkg/agent"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// Phase is the campaign-progress-derived planning phase.
type Phase string

const (
	PhaseExploration  Phase = "exploration"
	PhaseBalanced     Phase = "balanced"
	PhaseExploitation Phase = "exploitation"
)

// PhaseOf derives the phase from round_number/max_rounds (spec.md §4.7.1).
func PhaseOf(roundNumber, maxRounds int) Phase {
	if maxRounds <= 0 {
		maxRounds = 1
	}
	progress := float64(roundNumber) / float64(maxRounds)
	switch {
	case progress < 0.3:
		return PhaseExploration
	case progress < 0.7:
		return PhaseBalanced
	default:
		return PhaseExploitation
	}
}

// RoundPlan is the Planner's output, persisted on Round.plan.
type RoundPlan struct {
	VariantCount         int                    `json:"variant_count"`
	MutationTypes        []string               `json:"mutation_types"`
	MutationDistribution map[string]float64     `json:"mutation_distribution"`
	SelectionPressure    float64                `json:"selection_pressure"`
	EvaluationStrategy   map[string]interface{} `json:"evaluation_strategy"`
	Seed                 int64                  `json:"seed"`
	PlanHash             string                 `json:"plan_hash"`
}

// Planner is the agent.
type Planner struct {
	store *store.Store
	audit *audit.Logger
}

// New builds a Planner.
func New(s *store.Store) *Planner {
	return &Planner{store: s, audit: audit.New(s)}
}

// BuildInput captures the signals needed to materialize a RoundPlan.
type BuildInput struct {
	RoundNumber             int
	MaxRounds               int
	BaseVariantsPerRound    int
	Evaluators              []string
	Ensemble                []string
	Seed                    *int64
	CampaignID              string
	LastThreeRoundsImproved bool
}

// Build materializes a RoundPlan for the given inputs (spec.md §4.7.1).
func Build(in BuildInput) RoundPlan {
	phase := PhaseOf(in.RoundNumber, in.MaxRounds)

	base := float64(in.BaseVariantsPerRound)
	var variantCount int
	var pressure float64
	var distribution map[string]float64

	switch phase {
	case PhaseExploration:
		variantCount = int(base * 1.5)
		pressure = 0.3
		distribution = map[string]float64{"refactor": 0.3, "optimize": 0.2, "expand": 0.2, "simplify": 0.15, "experimental": 0.15}
	case PhaseBalanced:
		variantCount = int(base)
		pressure = 0.5
		if in.LastThreeRoundsImproved {
			distribution = map[string]float64{"refactor": 0.4, "optimize": 0.4, "expand": 0.2}
		} else {
			distribution = map[string]float64{"refactor": 0.4, "experimental": 0.3, "simplify": 0.3}
		}
	default: // exploitation
		variantCount = int(base * 0.7)
		pressure = 0.7
		distribution = map[string]float64{"optimize": 0.6, "refactor": 0.4}
	}

	mutationTypes := make([]string, 0, len(distribution))
	for t := range distribution {
		mutationTypes = append(mutationTypes, t)
	}
	sort.Strings(mutationTypes)

	evalStrategy := map[string]interface{}{"evaluators": in.Evaluators}
	if len(in.Ensemble) > 0 {
		evalStrategy["ensemble"] = in.Ensemble
	}

	seed := deterministicSeed(in.CampaignID)
	if in.Seed != nil {
		seed = *in.Seed
	}

	plan := RoundPlan{
		VariantCount:         variantCount,
		MutationTypes:        mutationTypes,
		MutationDistribution: distribution,
		SelectionPressure:    pressure,
		EvaluationStrategy:   evalStrategy,
		Seed:                 seed,
	}
	plan.PlanHash = planHash(plan)
	return plan
}

// deterministicSeed derives a seed from campaignID when the campaign
// itself supplies none (spec.md §4.7.1: "defaults to a deterministic
// function of campaign_id").
func deterministicSeed(campaignID string) int64 {
	sum := sha256.Sum256([]byte(campaignID))
	var seed int64
	for i := 0; i < 8; i++ {
		seed = seed<<8 | int64(sum[i])
	}
	return seed
}

// planHash returns a stable sha256 of the canonical JSON of plan, with
// PlanHash itself zeroed so the hash doesn't depend on its own value.
func planHash(plan RoundPlan) string {
	plan.PlanHash = ""
	canonical, _ := json.Marshal(plan)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func (p RoundPlan) asMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// logFailure writes a failure AgentDecision row whose reasoning is the
// cause's error message, then returns cause (or a combined error if
// even the failure log write itself fails). Every exit from
// CreateRound's traced closure must go through either this or the
// success-path LogDecision call, per spec.md §4.3's non-negotiable
// "agent fails ⇒ still writes a decision row" invariant.
func (p *Planner) logFailure(ctx context.Context, tc tracecontext.Context, spanID string, outputData map[string]interface{}, cause error) error {
	if logErr := p.audit.LogDecision(ctx, tc, audit.Decision{
		AgentType:    "planner",
		DecisionType: "create_round",
		SpanID:       spanID,
		OutputData:   outputData,
		Reasoning:    cause.Error(),
	}); logErr != nil {
		return fmt.Errorf("%w (additionally failed to log failure decision: %v)", cause, logErr)
	}
	return cause
}

// CreateRound is the idempotent create_round operation (spec.md
// §4.7.1): a second call for an existing (campaign_id, round_number)
// soft-deletes its variants, hard-deletes its evaluations, resets
// status/timers, and overwrites plan.
func (p *Planner) CreateRound(ctx context.Context, tc tracecontext.Context, roundNumber int, plan RoundPlan) (*ent.Round, error) {
	planMap, err := plan.asMap()
	if err != nil {
		return nil, fmt.Errorf("planner: marshal plan: %w", err)
	}

	var round *ent.Round
	err = agent.RunWithTracing(ctx, "planner", func(ctx context.Context, spanID string) error {
		existing, err := p.store.Rounds.ByCampaignAndNumber(ctx, tc.CampaignID, roundNumber)
		if err != nil {
			return p.logFailure(ctx, tc, spanID, planMap, fmt.Errorf("lookup existing round: %w", err))
		}

		reasoning := fmt.Sprintf("planned round %d with %d variants, mutation distribution %v, selection pressure %.2f",
			roundNumber, plan.VariantCount, plan.MutationDistribution, plan.SelectionPressure)

		if existing != nil {
			if err := p.store.Variants.SoftDeleteByRound(ctx, existing.ID); err != nil {
				return p.logFailure(ctx, tc.WithRound(existing.ID), spanID, planMap, fmt.Errorf("soft delete prior variants: %w", err))
			}
			if err := p.store.Evaluations.DeleteByRound(ctx, existing.ID); err != nil {
				return p.logFailure(ctx, tc.WithRound(existing.ID), spanID, planMap, fmt.Errorf("delete prior evaluations: %w", err))
			}
			round, err = p.store.Rounds.ResetForReplan(ctx, existing.ID, planMap)
			if err != nil {
				return p.logFailure(ctx, tc.WithRound(existing.ID), spanID, planMap, fmt.Errorf("reset round for replan: %w", err))
			}
			reasoning = "replanned existing round idempotently: " + reasoning
		} else {
			round, err = p.store.Rounds.Create(ctx, tc.CampaignID, roundNumber, planMap)
			if err != nil {
				return p.logFailure(ctx, tc, spanID, planMap, fmt.Errorf("create round: %w", err))
			}
		}

		return p.audit.LogDecision(ctx, tc.WithRound(round.ID), audit.Decision{
			AgentType:    "planner",
			DecisionType: "create_round",
			SpanID:       spanID,
			OutputData:   planMap,
			Reasoning:    reasoning,
		})
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}
