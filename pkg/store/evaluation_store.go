package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/evaluation"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/google/uuid"
)

// EvaluationStore is typed persistence for Evaluation rows.
type EvaluationStore struct {
	client *ent.Client
}

// CreatePendingInput is the set of fields known before an evaluator runs.
type CreatePendingInput struct {
	VariantID         string
	RoundID           string
	EvaluatorType     string
	EvaluationConfig  map[string]interface{}
	ConfigFingerprint string
}

// CreatePending inserts a new evaluation row in status "pending".
func (s *EvaluationStore) CreatePending(ctx context.Context, in CreatePendingInput) (*ent.Evaluation, error) {
	e, err := s.client.Evaluation.Create().
		SetID(uuid.NewString()).
		SetVariantID(in.VariantID).
		SetRoundID(in.RoundID).
		SetEvaluatorType(in.EvaluatorType).
		SetStatus(evaluation.StatusPending).
		SetEvaluationConfig(in.EvaluationConfig).
		SetConfigFingerprint(in.ConfigFingerprint).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create pending evaluation: %w", err)
	}
	return e, nil
}

// Get returns an evaluation by id.
func (s *EvaluationStore) Get(ctx context.Context, id string) (*ent.Evaluation, error) {
	e, err := s.client.Evaluation.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, orcherrors.NewEntityNotFound("evaluation", id)
		}
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return e, nil
}

// FindCached returns a completed evaluation matching (variantID,
// evaluatorType, configFingerprint), or nil if no such row exists, per
// the caching rule in spec.md §4.5 step 3.
func (s *EvaluationStore) FindCached(ctx context.Context, variantID, evaluatorType, configFingerprint string) (*ent.Evaluation, error) {
	e, err := s.client.Evaluation.Query().
		Where(
			evaluation.VariantIDEQ(variantID),
			evaluation.EvaluatorTypeEQ(evaluatorType),
			evaluation.ConfigFingerprintEQ(configFingerprint),
			evaluation.StatusEQ(evaluation.StatusCompleted),
		).
		Order(ent.Asc(evaluation.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cached evaluation: %w", err)
	}
	return e, nil
}

// Complete transitions a pending/running evaluation to completed with
// its score and result data.
func (s *EvaluationStore) Complete(ctx context.Context, id string, score float64, resultData map[string]interface{}) (*ent.Evaluation, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return e.Update().
		SetStatus(evaluation.StatusCompleted).
		SetScore(score).
		SetResultData(resultData).
		SetCompletedAt(time.Now().UTC()).
		Save(ctx)
}

// Fail transitions a pending/running evaluation to failed, recording
// the failure reason in result_data.feedback with score 0.
func (s *EvaluationStore) Fail(ctx context.Context, id string, feedback string) (*ent.Evaluation, error) {
	return s.FailWithScores(ctx, id, feedback, nil)
}

// FailWithScores is Fail plus an optional criteria_scores breakdown,
// used by the budget-blocked path to record result_data.criteria_scores
// = {"budget_exceeded": 1.0} alongside the feedback.
func (s *EvaluationStore) FailWithScores(ctx context.Context, id string, feedback string, criteriaScores map[string]float64) (*ent.Evaluation, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resultData := map[string]interface{}{"feedback": feedback}
	if criteriaScores != nil {
		resultData["criteria_scores"] = criteriaScores
	}
	return e.Update().
		SetStatus(evaluation.StatusFailed).
		SetScore(0).
		SetResultData(resultData).
		SetCompletedAt(time.Now().UTC()).
		Save(ctx)
}

// ByVariant returns all evaluations for a variant.
func (s *EvaluationStore) ByVariant(ctx context.Context, variantID string) ([]*ent.Evaluation, error) {
	return s.client.Evaluation.Query().
		Where(evaluation.VariantIDEQ(variantID)).
		Order(ent.Asc(evaluation.FieldCreatedAt)).
		All(ctx)
}

// ByRound returns all evaluations for a round.
func (s *EvaluationStore) ByRound(ctx context.Context, roundID string) ([]*ent.Evaluation, error) {
	return s.client.Evaluation.Query().
		Where(evaluation.RoundIDEQ(roundID)).
		Order(ent.Asc(evaluation.FieldCreatedAt)).
		All(ctx)
}

// DeleteByRound hard-deletes every evaluation for a round, used by the
// idempotent create_round when replanning an existing round.
func (s *EvaluationStore) DeleteByRound(ctx context.Context, roundID string) error {
	_, err := s.client.Evaluation.Delete().
		Where(evaluation.RoundIDEQ(roundID)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete evaluations by round: %w", err)
	}
	return nil
}
