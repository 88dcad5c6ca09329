package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/campaign"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/google/uuid"
)

// CampaignStore is typed persistence for Campaign rows.
type CampaignStore struct {
	client *ent.Client
}

// CreateCampaignInput is the set of caller-supplied fields for a new Campaign.
type CreateCampaignInput struct {
	Name        string
	Description string
	Config      map[string]interface{}
	Metadata    map[string]interface{}
}

// Create inserts a new Campaign in status "draft".
func (s *CampaignStore) Create(ctx context.Context, in CreateCampaignInput) (*ent.Campaign, error) {
	b := s.client.Campaign.Create().
		SetID(uuid.NewString()).
		SetName(in.Name).
		SetStatus(campaign.StatusDraft).
		SetConfig(in.Config)

	if in.Description != "" {
		b.SetDescription(in.Description)
	}
	if in.Metadata != nil {
		b.SetMetadata(in.Metadata)
	}

	c, err := b.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

// Get returns the non-deleted campaign with the given id.
func (s *CampaignStore) Get(ctx context.Context, id string) (*ent.Campaign, error) {
	c, err := s.client.Campaign.Query().
		Where(campaign.IDEQ(id), campaign.DeletedAtIsNil()).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, orcherrors.NewEntityNotFound("campaign", id)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// List returns non-deleted campaigns, optionally filtered by status.
func (s *CampaignStore) List(ctx context.Context, status string) ([]*ent.Campaign, error) {
	q := s.client.Campaign.Query().Where(campaign.DeletedAtIsNil())
	if status != "" {
		q = q.Where(campaign.StatusEQ(campaign.Status(status)))
	}
	return q.Order(ent.Desc(campaign.FieldCreatedAt)).All(ctx)
}

// Start transitions a draft campaign to active. Refuses any other
// starting state with ErrInvalidStateTransition.
func (s *CampaignStore) Start(ctx context.Context, id string) (*ent.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusDraft {
		return nil, orcherrors.NewInvalidStateTransition("campaign", id, string(c.Status), "start")
	}
	return c.Update().SetStatus(campaign.StatusActive).Save(ctx)
}

// SetStatus sets the campaign's status unconditionally (used by the
// orchestrator for active<->paused and the two terminal states).
func (s *CampaignStore) SetStatus(ctx context.Context, id string, status campaign.Status) (*ent.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Update().SetStatus(status).Save(ctx)
}

// Update applies a partial patch (name/description/config/metadata).
func (s *CampaignStore) Update(ctx context.Context, id string, patch map[string]interface{}) (*ent.Campaign, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b := c.Update()
	if name, ok := patch["name"].(string); ok && name != "" {
		b.SetName(name)
	}
	if desc, ok := patch["description"].(string); ok {
		b.SetDescription(desc)
	}
	if cfg, ok := patch["config"].(map[string]interface{}); ok {
		b.SetConfig(cfg)
	}
	if meta, ok := patch["metadata"].(map[string]interface{}); ok {
		b.SetMetadata(meta)
	}
	return b.Save(ctx)
}

// SoftDelete sets deleted_at to now.
func (s *CampaignStore) SoftDelete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = c.Update().SetDeletedAt(time.Now().UTC()).Save(ctx)
	return err
}
