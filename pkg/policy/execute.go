package policy

import (
	"context"
	"fmt"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/policy"
	"github.com/evoengine/core/pkg/store"
)

// Engine ties the Selection Policy's strategy/ranking logic to
// persistence (policy versioning and variant selection).
type Engine struct {
	store *store.Store
}

// New builds a policy Engine.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// ExecuteInput is the PolicyMaker's execute() argument set (spec.md §4.7.4).
type ExecuteInput struct {
	CampaignID        string
	RoundNumber       int
	SelectionPressure float64
	Strategy          Strategy
	MinLineages       int
	CurrentAverage    float64
}

func buildConfig(in ExecuteInput, resolved Strategy) map[string]interface{} {
	return map[string]interface{}{
		"strategy":           string(resolved),
		"requested_strategy": string(in.Strategy),
		"selection_pressure": in.SelectionPressure,
		"min_lineages":       in.MinLineages,
	}
}

// Execute materializes and persists a versioned selection Policy row
// on its own. Prefer ExecuteAndApply when the caller also needs to
// select variants, since that runs both writes in one transaction.
func (e *Engine) Execute(ctx context.Context, in ExecuteInput) (*ent.Policy, error) {
	resolved := Resolve(in.Strategy, in.RoundNumber, in.CurrentAverage)
	config := buildConfig(in, resolved)
	return e.store.Policies.CreateVersioned(ctx, in.CampaignID, fmt.Sprintf("round-%d-selection", in.RoundNumber), policy.PolicyTypeSelection, config)
}

// ApplyResult is the outcome of ApplyPolicy/ExecuteAndApply.
type ApplyResult struct {
	Selected []*ent.Variant
	Ranked   []Scored
}

// ApplyPolicy loads the round's variants and their evaluations,
// computes the ranking and diversity guard, and marks selected
// variants against an already-persisted policy. Prefer ExecuteAndApply
// when policy creation and selection should commit atomically (spec.md
// §4.1).
func (e *Engine) ApplyPolicy(ctx context.Context, policyID, roundID string) (ApplyResult, error) {
	p, err := e.store.Policies.Get(ctx, policyID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("policy: load policy: %w", err)
	}

	variants, evaluationsByVariant, err := e.loadRoundVariants(ctx, roundID)
	if err != nil {
		return ApplyResult{}, err
	}

	ranked, selected := rankAndSelect(p, variants, evaluationsByVariant)
	if err := e.store.Variants.MarkSelected(ctx, idsOf(selected)); err != nil {
		return ApplyResult{}, fmt.Errorf("policy: mark selected: %w", err)
	}

	return ApplyResult{Selected: selected, Ranked: ranked}, nil
}

// ExecuteAndApply materializes the versioned selection Policy and
// applies it — ranking variants, running the diversity guard, and
// marking selected variants — inside a single transaction. spec.md
// §4.1 requires selection and policy activation to commit atomically:
// a crash between the two must never leave an active policy with zero
// selected variants and no recovery path.
func (e *Engine) ExecuteAndApply(ctx context.Context, in ExecuteInput, roundID string) (*ent.Policy, ApplyResult, error) {
	variants, evaluationsByVariant, err := e.loadRoundVariants(ctx, roundID)
	if err != nil {
		return nil, ApplyResult{}, err
	}

	resolved := Resolve(in.Strategy, in.RoundNumber, in.CurrentAverage)
	config := buildConfig(in, resolved)

	tx, err := e.store.Client().Tx(ctx)
	if err != nil {
		return nil, ApplyResult{}, fmt.Errorf("policy: begin tx: %w", err)
	}
	defer tx.Rollback()

	created, err := e.store.Policies.CreateVersionedTx(ctx, tx, in.CampaignID, fmt.Sprintf("round-%d-selection", in.RoundNumber), policy.PolicyTypeSelection, config)
	if err != nil {
		return nil, ApplyResult{}, fmt.Errorf("policy: create versioned policy: %w", err)
	}

	ranked, selected := rankAndSelect(created, variants, evaluationsByVariant)
	if err := e.store.Variants.MarkSelectedTx(ctx, tx, idsOf(selected)); err != nil {
		return nil, ApplyResult{}, fmt.Errorf("policy: mark selected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, ApplyResult{}, fmt.Errorf("policy: commit tx: %w", err)
	}

	return created, ApplyResult{Selected: selected, Ranked: ranked}, nil
}

func (e *Engine) loadRoundVariants(ctx context.Context, roundID string) ([]*ent.Variant, map[string][]*ent.Evaluation, error) {
	variants, err := e.store.Variants.ByRound(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("policy: load variants: %w", err)
	}
	if len(variants) == 0 {
		return nil, nil, fmt.Errorf("policy: round %s has no variants to select from", roundID)
	}

	evaluationsByVariant := make(map[string][]*ent.Evaluation, len(variants))
	for _, v := range variants {
		evals, err := e.store.Evaluations.ByVariant(ctx, v.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("policy: load evaluations for variant %s: %w", v.ID, err)
		}
		evaluationsByVariant[v.ID] = evals
	}
	return variants, evaluationsByVariant, nil
}

func rankAndSelect(p *ent.Policy, variants []*ent.Variant, evaluationsByVariant map[string][]*ent.Evaluation) ([]Scored, []*ent.Variant) {
	pressure, _ := p.Config["selection_pressure"].(float64)
	minLineages, _ := p.Config["min_lineages"].(float64)
	if minLineages == 0 {
		minLineages = 1
	}

	ranked := Rank(variants, evaluationsByVariant, pressure)
	selectCount := SelectionCount(len(variants), pressure)
	selected := DiversityGuard(ranked, selectCount, int(minLineages))
	return ranked, selected
}

func idsOf(variants []*ent.Variant) []string {
	ids := make([]string, len(variants))
	for i, v := range variants {
		ids[i] = v.ID
	}
	return ids
}
