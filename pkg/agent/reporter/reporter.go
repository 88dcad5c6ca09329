// Package reporter implements the Reporter agent (spec.md §4.7.5): it
// produces one of four report types as an inline JSON document, with
// round_id resolution rules that differ per report type.
package reporter

import (
	"context"
	"fmt"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/pkg/agent"
	"github.com/evoengine/core/pkg/audit"
	"github.com/evoengine/core/pkg/lineage"
	"github.com/evoengine/core/pkg/store"
	"github.com/evoengine/core/pkg/tracecontext"
)

// ReportType enumerates the four report kinds (spec.md §4.7.5).
type ReportType string

const (
	ReportTypeRoundSummary     ReportType = "round_summary"
	ReportTypeCampaignProgress ReportType = "campaign_progress"
	ReportTypeLineageAnalysis  ReportType = "lineage_analysis"
	ReportTypeFinalReport      ReportType = "final_report"
)

// Reporter is the agent.
type Reporter struct {
	store   *store.Store
	lineage *lineage.Engine
	audit   *audit.Logger
}

// New builds a Reporter.
func New(s *store.Store) *Reporter {
	return &Reporter{store: s, lineage: lineage.New(s), audit: audit.New(s)}
}

// logFailure writes a failure AgentDecision row whose reasoning is the
// cause's error message, then returns cause (or a combined error if
// even the failure log write itself fails). Every exit from Execute's
// traced closure must go through either this or the success-path
// LogDecision call, per spec.md §4.3's non-negotiable "agent fails ⇒
// still writes a decision row" invariant.
func (r *Reporter) logFailure(ctx context.Context, tc tracecontext.Context, spanID, decisionType string, cause error) error {
	if logErr := r.audit.LogDecision(ctx, tc, audit.Decision{
		AgentType:    "reporter",
		DecisionType: decisionType,
		SpanID:       spanID,
		Reasoning:    cause.Error(),
	}); logErr != nil {
		return fmt.Errorf("%w (additionally failed to log failure decision: %v)", cause, logErr)
	}
	return cause
}

// Execute generates reportType and persists it, resolving round_id per
// spec.md §4.7.5's rules: from context for round-scoped reports, from
// the variant's round for lineage reports, from the campaign's latest
// round for campaign/final reports.
func (r *Reporter) Execute(ctx context.Context, tc tracecontext.Context, reportType ReportType, variantID string) (*ent.Report, error) {
	var report *ent.Report
	err := agent.RunWithTracing(ctx, "reporter", func(ctx context.Context, spanID string) error {
		decisionType := "generate_" + string(reportType)

		roundID, err := r.resolveRoundID(ctx, tc, reportType, variantID)
		if err != nil {
			return r.logFailure(ctx, tc, spanID, decisionType, fmt.Errorf("resolve round_id: %w", err))
		}
		scopedTC := tc.WithRound(roundID)

		content, err := r.buildContent(ctx, tc, reportType, roundID, variantID)
		if err != nil {
			return r.logFailure(ctx, scopedTC, spanID, decisionType, fmt.Errorf("build %s content: %w", reportType, err))
		}

		report, err = r.store.Reports.Create(ctx, store.CreateReportInput{
			RoundID:    roundID,
			ReportType: string(reportType),
			Content:    content,
		})
		if err != nil {
			return r.logFailure(ctx, scopedTC, spanID, decisionType, fmt.Errorf("persist report: %w", err))
		}

		return r.audit.LogDecision(ctx, scopedTC, audit.Decision{
			AgentType:    "reporter",
			DecisionType: decisionType,
			SpanID:       spanID,
			Reasoning:    fmt.Sprintf("generated %s report for round %s", reportType, roundID),
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Reporter) resolveRoundID(ctx context.Context, tc tracecontext.Context, reportType ReportType, variantID string) (string, error) {
	switch reportType {
	case ReportTypeRoundSummary:
		if tc.RoundID == "" {
			return "", fmt.Errorf("round_summary requires a round-scoped context")
		}
		return tc.RoundID, nil
	case ReportTypeLineageAnalysis:
		v, err := r.store.Variants.Get(ctx, variantID)
		if err != nil {
			return "", err
		}
		return v.RoundID, nil
	case ReportTypeCampaignProgress, ReportTypeFinalReport:
		latest, err := r.store.Rounds.Latest(ctx, tc.CampaignID)
		if err != nil {
			return "", err
		}
		if latest == nil {
			return "", fmt.Errorf("campaign %s has no rounds yet", tc.CampaignID)
		}
		return latest.ID, nil
	default:
		return "", fmt.Errorf("unknown report_type %q", reportType)
	}
}

func (r *Reporter) buildContent(ctx context.Context, tc tracecontext.Context, reportType ReportType, roundID, variantID string) (map[string]interface{}, error) {
	switch reportType {
	case ReportTypeRoundSummary:
		return r.roundSummary(ctx, roundID)
	case ReportTypeLineageAnalysis:
		return r.lineageAnalysis(ctx, variantID)
	case ReportTypeCampaignProgress:
		return r.campaignProgress(ctx, tc.CampaignID)
	case ReportTypeFinalReport:
		return r.finalReport(ctx, tc.CampaignID)
	default:
		return nil, fmt.Errorf("unknown report_type %q", reportType)
	}
}

func (r *Reporter) roundSummary(ctx context.Context, roundID string) (map[string]interface{}, error) {
	round, err := r.store.Rounds.Get(ctx, roundID)
	if err != nil {
		return nil, err
	}
	variants, err := r.store.Variants.ByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	selected, err := r.store.Variants.SelectedByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"round_id":       roundID,
		"round_number":   round.RoundNumber,
		"status":         string(round.Status),
		"variant_count":  len(variants),
		"selected_count": len(selected),
		"metrics":        round.Metrics,
		"plan":           round.Plan,
	}, nil
}

func (r *Reporter) lineageAnalysis(ctx context.Context, variantID string) (map[string]interface{}, error) {
	chain, generations, err := r.lineage.FullLineage(ctx, variantID)
	if err != nil {
		return nil, err
	}
	descendants, err := r.lineage.Descendants(ctx, variantID)
	if err != nil {
		return nil, err
	}

	lineageIDs := make([]string, len(chain))
	for i, v := range chain {
		lineageIDs[i] = v.ID
	}

	return map[string]interface{}{
		"variant_id":       variantID,
		"generations":      generations,
		"lineage":          lineageIDs,
		"descendant_count": len(descendants),
	}, nil
}

func (r *Reporter) campaignProgress(ctx context.Context, campaignID string) (map[string]interface{}, error) {
	rounds, err := r.store.Rounds.ByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	completed := 0
	var scoreSum float64
	var scoreCount int
	for _, rd := range rounds {
		if rd.Status == "completed" {
			completed++
		}
		if avg, ok := rd.Metrics["average_score"].(float64); ok {
			scoreSum += avg
			scoreCount++
		}
	}

	overallAverage := 0.0
	if scoreCount > 0 {
		overallAverage = scoreSum / float64(scoreCount)
	}

	return map[string]interface{}{
		"campaign_id":      campaignID,
		"total_rounds":     len(rounds),
		"completed_rounds": completed,
		"overall_average":  overallAverage,
	}, nil
}

func (r *Reporter) finalReport(ctx context.Context, campaignID string) (map[string]interface{}, error) {
	progress, err := r.campaignProgress(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	c, err := r.store.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	progress["campaign_status"] = string(c.Status)
	progress["campaign_name"] = c.Name
	return progress, nil
}
