package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/round"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/google/uuid"
)

// RoundStore is typed persistence for Round rows.
type RoundStore struct {
	client *ent.Client
}

// Get returns the round with the given id.
func (s *RoundStore) Get(ctx context.Context, id string) (*ent.Round, error) {
	r, err := s.client.Round.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, orcherrors.NewEntityNotFound("round", id)
		}
		return nil, fmt.Errorf("get round: %w", err)
	}
	return r, nil
}

// ByCampaignAndNumber returns the round for (campaignID, roundNumber), or nil if absent.
func (s *RoundStore) ByCampaignAndNumber(ctx context.Context, campaignID string, roundNumber int) (*ent.Round, error) {
	r, err := s.client.Round.Query().
		Where(round.CampaignIDEQ(campaignID), round.RoundNumberEQ(roundNumber)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get round by number: %w", err)
	}
	return r, nil
}

// ByCampaign returns all rounds for a campaign, ordered by round_number ascending.
func (s *RoundStore) ByCampaign(ctx context.Context, campaignID string) ([]*ent.Round, error) {
	return s.client.Round.Query().
		Where(round.CampaignIDEQ(campaignID), round.DeletedAtIsNil()).
		Order(ent.Asc(round.FieldRoundNumber)).
		All(ctx)
}

// Latest returns the highest-numbered round for a campaign, or nil if none exist.
func (s *RoundStore) Latest(ctx context.Context, campaignID string) (*ent.Round, error) {
	r, err := s.client.Round.Query().
		Where(round.CampaignIDEQ(campaignID), round.DeletedAtIsNil()).
		Order(ent.Desc(round.FieldRoundNumber)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest round: %w", err)
	}
	return r, nil
}

// NextRoundNumber returns coalesce(max(round_number), 0) + 1 for campaignID.
func (s *RoundStore) NextRoundNumber(ctx context.Context, campaignID string) (int, error) {
	latest, err := s.Latest(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 1, nil
	}
	return latest.RoundNumber + 1, nil
}

// Create inserts a brand-new round row for (campaignID, roundNumber).
// Callers should use the Planner's idempotent create_round, which
// calls this only when ByCampaignAndNumber returned nil.
func (s *RoundStore) Create(ctx context.Context, campaignID string, roundNumber int, plan map[string]interface{}) (*ent.Round, error) {
	r, err := s.client.Round.Create().
		SetID(uuid.NewString()).
		SetCampaignID(campaignID).
		SetRoundNumber(roundNumber).
		SetStatus(round.StatusPending).
		SetPlan(plan).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create round: %w", err)
	}
	return r, nil
}

// ResetForReplan overwrites an existing round's plan and resets its
// status/timers to the pending state, per the idempotent create_round
// contract in spec.md §4.7.1.
func (s *RoundStore) ResetForReplan(ctx context.Context, id string, plan map[string]interface{}) (*ent.Round, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Update().
		SetPlan(plan).
		SetStatus(round.StatusPending).
		ClearStartedAt().
		ClearCompletedAt().
		ClearErrorMessage().
		Save(ctx)
}

// SetStatus transitions the round's status. It does not itself enforce
// the stage ordering invariant (spec.md §8); the Orchestrator is the
// single writer and is trusted to call this in stage order.
func (s *RoundStore) SetStatus(ctx context.Context, id string, status round.Status) (*ent.Round, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b := r.Update().SetStatus(status)
	switch status {
	case round.StatusPlanning:
		if r.StartedAt == nil {
			b.SetStartedAt(time.Now().UTC())
		}
	case round.StatusCompleted, round.StatusFailed:
		b.SetCompletedAt(time.Now().UTC())
	}
	return b.Save(ctx)
}

// Fail transitions the round to failed and records the error message.
func (s *RoundStore) Fail(ctx context.Context, id string, reason string) (*ent.Round, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Update().
		SetStatus(round.StatusFailed).
		SetCompletedAt(time.Now().UTC()).
		SetErrorMessage(reason).
		Save(ctx)
}

// SetMetrics merges computed round metrics (average_score, best_score,
// selected_count, ...) into the round row.
func (s *RoundStore) SetMetrics(ctx context.Context, id string, metrics map[string]interface{}) (*ent.Round, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Update().SetMetrics(metrics).Save(ctx)
}
