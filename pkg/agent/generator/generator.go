// Package generator implements the VariantGenerator agent (spec.md
// §4.7.2): applies a mutation to a parent variant's content and
// persists the child through the lineage engine.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/pkg/agent"
	"github.com/evoengine/core/pkg/agent/planner"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/lineage"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// Generator is the VariantGenerator agent.
type Generator struct {
	lineage *lineage.Engine
	audit   *audit.Logger
}

// New builds a Generator.
func New(s *store.Store) *Generator {
	return &Generator{lineage: lineage.New(s), audit: audit.New(s)}
}

// logFailure writes a failure AgentDecision row whose reasoning is the
// cause's error message, then returns cause (or a combined error if
// even the failure log write itself fails). Every exit from Generate's
// traced closure must go through either this or the success-path
// LogDecision call, per spec.md §4.3's non-negotiable "agent fails ⇒
// still writes a decision row" invariant.
func (g *Generator) logFailure(ctx context.Context, tc tracecontext.Context, spanID string, inputData map[string]interface{}, cause error) error {
	if logErr := g.audit.LogDecision(ctx, tc, audit.Decision{
		AgentType:    "variant_generator",
		DecisionType: "generate",
		SpanID:       spanID,
		InputData:    inputData,
		Reasoning:    cause.Error(),
	}); logErr != nil {
		return fmt.Errorf("%w (additionally failed to log failure decision: %v)", cause, logErr)
	}
	return cause
}

// Generate applies mutationType to the parent's content and persists
// the child variant (spec.md §4.7.2's generate()).
func (g *Generator) Generate(ctx context.Context, tc tracecontext.Context, roundID, parentID, mutationType string, mutationConfig map[string]interface{}, mutator Mutator, parent *ent.Variant) (*ent.Variant, error) {
	var child *ent.Variant
	err := agent.RunWithTracing(ctx, "variant_generator", func(ctx context.Context, spanID string) error {
		scopedTC := tc.WithRound(roundID)
		inputData := map[string]interface{}{"parent_id": parentID, "mutation_type": mutationType}

		content, err := mutator.Mutate(ctx, tc, parent.Content, mutationType, mutationConfig)
		if err != nil {
			return g.logFailure(ctx, scopedTC, spanID, inputData, fmt.Errorf("apply mutation %q: %w", mutationType, err))
		}

		result, err := g.lineage.CreateVariant(ctx, lineage.CreateVariantInput{
			RoundID:      roundID,
			ParentID:     &parentID,
			Generation:   parent.Generation + 1,
			Content:      content,
			MutationType: &mutationType,
			Metadata:     mutationConfig,
		})
		if err != nil {
			return g.logFailure(ctx, scopedTC, spanID, inputData, fmt.Errorf("create variant: %w", err))
		}
		child = result.Variant

		reasoning := fmt.Sprintf("applied mutation %q to parent %s", mutationType, parentID)
		if result.DuplicateOfID != "" {
			reasoning += fmt.Sprintf("; content duplicates existing variant %s", result.DuplicateOfID)
		}

		return g.audit.LogDecision(ctx, scopedTC.WithVariant(child.ID), audit.Decision{
			AgentType:    "variant_generator",
			DecisionType: "generate",
			SpanID:       spanID,
			InputData:    inputData,
			Reasoning:    reasoning,
		})
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

// GenerateBatch picks a mutation type per child by sampling
// plan.MutationDistribution with a plan-seed-keyed RNG, round-robining
// over parents up to plan.VariantCount (spec.md §4.7.2).
func (g *Generator) GenerateBatch(ctx context.Context, tc tracecontext.Context, roundID string, parents []*ent.Variant, plan planner.RoundPlan, mutator Mutator) ([]*ent.Variant, error) {
	if len(parents) == 0 {
		return nil, fmt.Errorf("generator: generate_batch requires at least one parent")
	}

	rng := rand.New(rand.NewSource(plan.Seed))
	sampler := newWeightedSampler(plan.MutationDistribution)

	children := make([]*ent.Variant, 0, plan.VariantCount)
	for i := 0; i < plan.VariantCount; i++ {
		parent := parents[i%len(parents)]
		mutationType := sampler.sample(rng)

		child, err := g.Generate(ctx, tc, roundID, parent.ID, mutationType, nil, mutator, parent)
		if err != nil {
			return nil, fmt.Errorf("generate child %d: %w", i, err)
		}
		children = append(children, child)
	}
	return children, nil
}

// weightedSampler draws mutation types proportionally to distribution
// weights, using a deterministic (seeded) RNG for reproducible rounds.
type weightedSampler struct {
	types   []string
	cumWeights []float64
}

func newWeightedSampler(distribution map[string]float64) *weightedSampler {
	types := make([]string, 0, len(distribution))
	for t := range distribution {
		types = append(types, t)
	}
	sort.Strings(types) // stable iteration order so the same seed reproduces the same draws

	cum := make([]float64, len(types))
	var running float64
	for i, t := range types {
		running += distribution[t]
		cum[i] = running
	}
	return &weightedSampler{types: types, cumWeights: cum}
}

func (s *weightedSampler) sample(rng *rand.Rand) string {
	if len(s.types) == 0 {
		return ""
	}
	total := s.cumWeights[len(s.cumWeights)-1]
	if total <= 0 {
		return s.types[0]
	}
	r := rng.Float64() * total
	for i, c := range s.cumWeights {
		if r <= c {
			return s.types[i]
		}
	}
	return s.types[len(s.types)-1]
}
