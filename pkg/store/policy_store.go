package store

import (
	"context"
	"fmt"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/policy"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/google/uuid"
)

// PolicyStore is typed persistence for Policy rows.
type PolicyStore struct {
	client *ent.Client
}

// Get returns a policy by id.
func (s *PolicyStore) Get(ctx context.Context, id string) (*ent.Policy, error) {
	p, err := s.client.Policy.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, orcherrors.NewEntityNotFound("policy", id)
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return p, nil
}

// Active returns the single active policy for (campaignID, policyType), or nil.
func (s *PolicyStore) Active(ctx context.Context, campaignID string, policyType policy.PolicyType) (*ent.Policy, error) {
	p, err := s.client.Policy.Query().
		Where(
			policy.CampaignIDEQ(campaignID),
			policy.PolicyTypeEQ(policyType),
			policy.IsActiveEQ(true),
			policy.DeletedAtIsNil(),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active policy: %w", err)
	}
	return p, nil
}

// ByCampaign returns policies for a campaign, optionally restricted to active ones.
func (s *PolicyStore) ByCampaign(ctx context.Context, campaignID string, activeOnly bool) ([]*ent.Policy, error) {
	q := s.client.Policy.Query().Where(policy.CampaignIDEQ(campaignID), policy.DeletedAtIsNil())
	if activeOnly {
		q = q.Where(policy.IsActiveEQ(true))
	}
	return q.Order(ent.Desc(policy.FieldVersion)).All(ctx)
}

// CreateVersioned deactivates any existing active policy for
// (campaignID, policyType) and inserts a new one at version
// max(version)+1, atomically, per spec.md §4.6's versioning rule.
func (s *PolicyStore) CreateVersioned(ctx context.Context, campaignID, name string, policyType policy.PolicyType, config map[string]interface{}) (*ent.Policy, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin policy tx: %w", err)
	}
	defer tx.Rollback()

	created, err := s.CreateVersionedTx(ctx, tx, campaignID, name, policyType, config)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit policy tx: %w", err)
	}
	return created, nil
}

// CreateVersionedTx runs CreateVersioned's deactivate-then-create logic
// against an already-open transaction, so callers can compose it with
// other writes under one commit (pkg/policy.Engine.ExecuteAndApply
// combines this with VariantStore.MarkSelectedTx per spec.md §4.1's
// single-transaction requirement for selection + policy activation).
func (s *PolicyStore) CreateVersionedTx(ctx context.Context, tx *ent.Tx, campaignID, name string, policyType policy.PolicyType, config map[string]interface{}) (*ent.Policy, error) {
	existing, err := tx.Policy.Query().
		Where(policy.CampaignIDEQ(campaignID), policy.PolicyTypeEQ(policyType), policy.DeletedAtIsNil()).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing policies: %w", err)
	}

	nextVersion := 1
	for _, p := range existing {
		if p.Version >= nextVersion {
			nextVersion = p.Version + 1
		}
		if p.IsActive {
			if _, err := p.Update().SetIsActive(false).Save(ctx); err != nil {
				return nil, fmt.Errorf("deactivate prior policy: %w", err)
			}
		}
	}

	created, err := tx.Policy.Create().
		SetID(uuid.NewString()).
		SetCampaignID(campaignID).
		SetName(name).
		SetPolicyType(policyType).
		SetVersion(nextVersion).
		SetConfig(config).
		SetIsActive(true).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create policy: %w", err)
	}
	return created, nil
}
