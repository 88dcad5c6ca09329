// Package orchestrator drives the Round/Campaign state machine (C8):
// it composes the five agents per round in strict stage order and
// propagates stage failure to both the round and the campaign.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/campaign"
	"github.com/evoengine/core/ent/round"
	"github.com/evoengine/core/pkg/agent/generator"
	"github.com/evoengine/core/pkg/agent/planner"
	"github.com/evoengine/core/pkg/agent/policymaker"
	"github.com/evoengine/core/pkg/agent/reporter"
	"github.com/evoengine/core/pkg/agent/scorer"
	"github.com/evoengine/core/pkg/evaluator"
	"github.com/evoengine/core/pkg/events"
	"github.com/evoengine/core/pkg/lineage"
	"github.com/evoengine/core/pkg/policy"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// earlyStopScore is the average-score threshold at or above which a campaign
// stops before exhausting max_rounds (spec.md §4.8).
const earlyStopScore = 0.95

// Orchestrator composes the five agents into the round/campaign state
// machine. A single Orchestrator instance is assumed to own a campaign
// for the duration of its run (spec.md §1 non-goals: no cross-instance
// consensus).
type Orchestrator struct {
	store       *store.Store
	lineage     *lineage.Engine
	planner     *planner.Planner
	generator   *generator.Generator
	scorer      *scorer.Scorer
	policyMaker *policymaker.PolicyMaker
	reporter    *reporter.Reporter
	mutator     generator.Mutator
	broadcaster *events.Broadcaster
}

// New builds an Orchestrator wiring every agent over the same Store.
// broadcaster may be nil, in which case stage transitions are not
// published anywhere (e.g. in tests).
func New(s *store.Store, dispatcher *evaluator.Dispatcher, policyEngine *policy.Engine, mutator generator.Mutator, broadcaster *events.Broadcaster) *Orchestrator {
	return &Orchestrator{
		store:       s,
		lineage:     lineage.New(s),
		planner:     planner.New(s),
		generator:   generator.New(s),
		scorer:      scorer.New(s, dispatcher),
		policyMaker: policymaker.New(s, policyEngine),
		reporter:    reporter.New(s),
		mutator:     mutator,
		broadcaster: broadcaster,
	}
}

func (o *Orchestrator) publish(campaignID string, typ events.Type, data map[string]interface{}) {
	if o.broadcaster == nil {
		return
	}
	o.broadcaster.Publish(events.Event{Type: typ, CampaignID: campaignID, Data: data, EmittedAt: time.Now()})
}

// campaignConfig is the subset of Campaign.config this package reads.
type campaignConfig struct {
	MaxRounds        int
	VariantsPerRound int
	Evaluators       []string
	Ensemble         []string
	Seed             *int64
	MaxCostUSD       *float64
	MaxLatencyMs     *float64
}

func parseCampaignConfig(raw map[string]interface{}) campaignConfig {
	cfg := campaignConfig{MaxRounds: 10, VariantsPerRound: 10, Evaluators: []string{"llm_judge"}}
	if v, ok := raw["max_rounds"].(float64); ok {
		cfg.MaxRounds = int(v)
	}
	if v, ok := raw["variants_per_round"].(float64); ok {
		cfg.VariantsPerRound = int(v)
	}
	if v, ok := raw["evaluators"].([]interface{}); ok {
		evals := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				evals = append(evals, s)
			}
		}
		if len(evals) > 0 {
			cfg.Evaluators = evals
		}
	}
	if v, ok := raw["ensemble"].([]interface{}); ok {
		ens := make([]string, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]interface{}); ok {
				if t, ok := m["type"].(string); ok {
					ens = append(ens, t)
				}
			}
		}
		cfg.Ensemble = ens
	}
	if v, ok := raw["seed"].(float64); ok {
		seed := int64(v)
		cfg.Seed = &seed
	}
	if v, ok := raw["max_cost_usd"].(float64); ok {
		cfg.MaxCostUSD = &v
	}
	if v, ok := raw["max_latency_ms"].(float64); ok {
		cfg.MaxLatencyMs = &v
	}
	return cfg
}

// RunRound executes the eight-step per-round sequence from spec.md
// §4.8: create_round first mints round_id, then parents are resolved
// against it (the seed variant for round 1 is attached to this very
// round). report, if non-nil, is invoked after each of the five
// pipeline stages (planning, generating, evaluating, selecting,
// reporting) completes, so callers driving a single round (spec.md
// §4.9) can surface intermediate progress instead of jumping straight
// from 0 to done.
func (o *Orchestrator) RunRound(ctx context.Context, tc tracecontext.Context, campaignID string, roundNumber int, cfg campaignConfig, currentAverage float64, report func(stage int)) (*ent.Round, error) {
	if report == nil {
		report = func(int) {}
	}

	plan := planner.Build(planner.BuildInput{
		RoundNumber:          roundNumber,
		MaxRounds:            cfg.MaxRounds,
		BaseVariantsPerRound: cfg.VariantsPerRound,
		Evaluators:           cfg.Evaluators,
		Ensemble:             cfg.Ensemble,
		Seed:                 cfg.Seed,
		CampaignID:           campaignID,
	})

	r, err := o.planner.CreateRound(ctx, tc, roundNumber, plan)
	if err != nil {
		return nil, fmt.Errorf("plan round %d: %w", roundNumber, err)
	}
	rtc := tc.WithRound(r.ID)
	o.publish(campaignID, events.TypeRoundStarted, map[string]interface{}{"round_id": r.ID, "round_number": roundNumber})

	if _, err := o.store.Rounds.SetStatus(ctx, r.ID, round.StatusPlanning); err != nil {
		return o.failRound(ctx, r.ID, err)
	}

	parents, err := o.resolveParents(ctx, campaignID, roundNumber, r.ID)
	if err != nil {
		return o.failRound(ctx, r.ID, fmt.Errorf("resolve parents: %w", err))
	}
	if len(parents) == 0 {
		return o.failRound(ctx, r.ID, fmt.Errorf("round %d has no parent variants to generate from", roundNumber))
	}
	report(0)

	if _, err := o.store.Rounds.SetStatus(ctx, r.ID, round.StatusGenerating); err != nil {
		return o.failRound(ctx, r.ID, err)
	}

	children, err := o.generator.GenerateBatch(ctx, rtc, r.ID, parents, plan, o.mutator)
	if err != nil {
		return o.failRound(ctx, r.ID, fmt.Errorf("generate variants: %w", err))
	}
	report(1)

	if _, err := o.store.Rounds.SetStatus(ctx, r.ID, round.StatusEvaluating); err != nil {
		return o.failRound(ctx, r.ID, err)
	}

	variantInputs := make([]evaluator.VariantInput, len(children))
	for i, c := range children {
		variantInputs[i] = evaluator.VariantInput{VariantID: c.ID, RoundID: r.ID, Content: c.Content}
	}
	budget := evaluator.BudgetConfig{MaxCostUSD: cfg.MaxCostUSD, MaxLatencyMs: cfg.MaxLatencyMs}
	batch, err := o.scorer.EvaluateBatch(ctx, rtc, variantInputs, plan.EvaluationStrategy, budget, nil)
	if err != nil {
		return o.failRound(ctx, r.ID, fmt.Errorf("evaluate variants: %w", err))
	}
	report(2)

	if _, err := o.store.Rounds.SetStatus(ctx, r.ID, round.StatusSelecting); err != nil {
		return o.failRound(ctx, r.ID, err)
	}

	_, applyResult, err := o.policyMaker.ExecuteAndApply(ctx, rtc, r.ID, policymaker.ExecuteInput{
		RoundNumber:       roundNumber,
		SelectionPressure: plan.SelectionPressure,
		Strategy:          policy.StrategyAdaptive,
		MinLineages:       1,
		CurrentAverage:    currentAverage,
	})
	if err != nil {
		return o.failRound(ctx, r.ID, fmt.Errorf("select variants: %w", err))
	}
	report(3)

	if _, err := o.store.Rounds.SetMetrics(ctx, r.ID, map[string]interface{}{
		"average_score":  batch.Average,
		"selected_count": len(applyResult.Selected),
	}); err != nil {
		return o.failRound(ctx, r.ID, err)
	}

	if _, err := o.store.Rounds.SetStatus(ctx, r.ID, round.StatusReporting); err != nil {
		return o.failRound(ctx, r.ID, err)
	}

	if _, err := o.reporter.Execute(ctx, rtc, reporter.ReportTypeRoundSummary, ""); err != nil {
		return o.failRound(ctx, r.ID, fmt.Errorf("generate round summary: %w", err))
	}

	completed, err := o.store.Rounds.SetStatus(ctx, r.ID, round.StatusCompleted)
	if err != nil {
		return o.failRound(ctx, r.ID, err)
	}
	report(4)

	o.publish(campaignID, events.TypeRoundCompleted, map[string]interface{}{
		"round_id":       completed.ID,
		"round_number":   roundNumber,
		"average_score":  batch.Average,
		"selected_count": len(applyResult.Selected),
	})
	return completed, nil
}

func (o *Orchestrator) failRound(ctx context.Context, roundID string, cause error) (*ent.Round, error) {
	r, err := o.store.Rounds.Fail(ctx, roundID, cause.Error())
	if err != nil {
		return nil, fmt.Errorf("%w (and failed to record round failure: %v)", cause, err)
	}
	o.publish(r.CampaignID, events.TypeRoundFailed, map[string]interface{}{"round_id": roundID, "error": cause.Error()})
	return nil, cause
}

// RunCampaign loops rounds 1..max_rounds, stopping early once a
// round's average_score reaches earlyStopScore, per spec.md §4.8.
// report, if non-nil, is invoked after each completed round with
// (completedRounds, maxRounds) so a caller (e.g. the job tracker) can
// track fractional progress.
func (o *Orchestrator) RunCampaign(ctx context.Context, campaignID string, report func(completedRounds, maxRounds int)) error {
	c, err := o.store.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("orchestrator: load campaign: %w", err)
	}
	cfg := parseCampaignConfig(c.Config)

	tc := tracecontext.New(campaignID)

	if _, err := o.store.Campaigns.SetStatus(ctx, campaignID, campaign.StatusActive); err != nil {
		return fmt.Errorf("orchestrator: activate campaign: %w", err)
	}
	o.publish(campaignID, events.TypeCampaignStarted, map[string]interface{}{"max_rounds": cfg.MaxRounds})

	currentAverage := 0.0
	for roundNumber := 1; roundNumber <= cfg.MaxRounds; roundNumber++ {
		r, err := o.RunRound(ctx, tc, campaignID, roundNumber, cfg, currentAverage, nil)
		if err != nil {
			return o.failCampaign(ctx, campaignID, err)
		}

		avg, _ := r.Metrics["average_score"].(float64)
		currentAverage = avg

		if report != nil {
			report(roundNumber, cfg.MaxRounds)
		}

		if avg >= earlyStopScore {
			break
		}
	}

	if _, err := o.reporter.Execute(ctx, tc, reporter.ReportTypeFinalReport, ""); err != nil {
		return o.failCampaign(ctx, campaignID, fmt.Errorf("generate final report: %w", err))
	}

	if _, err := o.store.Campaigns.SetStatus(ctx, campaignID, campaign.StatusCompleted); err != nil {
		return fmt.Errorf("orchestrator: complete campaign: %w", err)
	}
	o.publish(campaignID, events.TypeCampaignCompleted, map[string]interface{}{"final_average": currentAverage})
	return nil
}

// RunSingleRound loads a campaign's config and the previous round's
// average score on the caller's behalf and runs exactly one round,
// for API-triggered single-round execution (POST /rounds/:id/run)
// rather than a full campaign loop. report, if non-nil, receives the
// 0-4 stage index as each pipeline stage completes (spec.md §4.9).
func (o *Orchestrator) RunSingleRound(ctx context.Context, campaignID string, roundNumber int, report func(stage int)) (*ent.Round, error) {
	c, err := o.store.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load campaign: %w", err)
	}
	cfg := parseCampaignConfig(c.Config)
	tc := tracecontext.New(campaignID)

	currentAverage := 0.0
	if roundNumber > 1 {
		prev, err := o.store.Rounds.ByCampaignAndNumber(ctx, campaignID, roundNumber-1)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load previous round: %w", err)
		}
		if prev != nil {
			if avg, ok := prev.Metrics["average_score"].(float64); ok {
				currentAverage = avg
			}
		}
	}

	return o.RunRound(ctx, tc, campaignID, roundNumber, cfg, currentAverage, report)
}

func (o *Orchestrator) failCampaign(ctx context.Context, campaignID string, cause error) error {
	o.publish(campaignID, events.TypeError, map[string]interface{}{"error": cause.Error()})
	if _, err := o.store.Campaigns.SetStatus(ctx, campaignID, campaign.StatusFailed); err != nil {
		return fmt.Errorf("%w (and failed to mark campaign failed: %v)", cause, err)
	}
	return cause
}

// resolveParents returns the seed variant for round 1 (attached to
// roundID, the round just created), or the previous round's selected
// variants for round N>1.
func (o *Orchestrator) resolveParents(ctx context.Context, campaignID string, roundNumber int, roundID string) ([]*ent.Variant, error) {
	if roundNumber == 1 {
		seed, err := o.seedVariant(ctx, campaignID, roundID)
		if err != nil {
			return nil, err
		}
		return []*ent.Variant{seed}, nil
	}

	prev, err := o.store.Rounds.ByCampaignAndNumber(ctx, campaignID, roundNumber-1)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, fmt.Errorf("round %d: previous round %d not found", roundNumber, roundNumber-1)
	}
	return o.store.Variants.SelectedByRound(ctx, prev.ID)
}

// seedVariant creates the deterministic placeholder founder for round
// 1, per spec.md §4.8: generation=0, parent_id=null,
// mutation_metadata.is_initial=true.
func (o *Orchestrator) seedVariant(ctx context.Context, campaignID, roundID string) (*ent.Variant, error) {
	result, err := o.lineage.CreateVariant(ctx, lineage.CreateVariantInput{
		RoundID:    roundID,
		ParentID:   nil,
		Generation: 0,
		Content:    fmt.Sprintf("// seed artifact for campaign %s\n", campaignID),
		Metadata:   map[string]interface{}{"is_initial": true},
	})
	if err != nil {
		return nil, fmt.Errorf("create seed variant: %w", err)
	}
	return result.Variant, nil
}
