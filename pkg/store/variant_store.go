package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/variant"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/google/uuid"
)

// VariantStore is typed persistence for Variant rows and the backbone
// of the lineage engine's storage-layer access.
type VariantStore struct {
	client *ent.Client
}

// CreateVariantInput mirrors the lineage engine's create_variant arguments.
type CreateVariantInput struct {
	RoundID          string
	ParentID         *string
	Generation       int
	Content          string
	ContentHash      string
	MutationType     *string
	MutationMetadata map[string]interface{}
}

// Create inserts a new Variant row. Lineage invariant enforcement
// happens one layer up in pkg/lineage, which is the only intended
// caller; this method trusts its input.
func (s *VariantStore) Create(ctx context.Context, in CreateVariantInput) (*ent.Variant, error) {
	b := s.client.Variant.Create().
		SetID(uuid.NewString()).
		SetRoundID(in.RoundID).
		SetGeneration(in.Generation).
		SetContent(in.Content).
		SetContentHash(in.ContentHash)

	if in.ParentID != nil {
		b.SetParentID(*in.ParentID)
	}
	if in.MutationType != nil {
		b.SetMutationType(*in.MutationType)
	}
	if in.MutationMetadata != nil {
		b.SetMutationMetadata(in.MutationMetadata)
	}

	v, err := b.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	return v, nil
}

// Get returns a non-deleted variant by id.
func (s *VariantStore) Get(ctx context.Context, id string) (*ent.Variant, error) {
	v, err := s.client.Variant.Query().
		Where(variant.IDEQ(id), variant.DeletedAtIsNil()).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, orcherrors.NewEntityNotFound("variant", id)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// ByRound returns all non-deleted variants for a round.
func (s *VariantStore) ByRound(ctx context.Context, roundID string) ([]*ent.Variant, error) {
	return s.client.Variant.Query().
		Where(variant.RoundIDEQ(roundID), variant.DeletedAtIsNil()).
		Order(ent.Asc(variant.FieldCreatedAt)).
		All(ctx)
}

// SelectedByRound returns the variants in a round marked is_selected.
func (s *VariantStore) SelectedByRound(ctx context.Context, roundID string) ([]*ent.Variant, error) {
	return s.client.Variant.Query().
		Where(variant.RoundIDEQ(roundID), variant.DeletedAtIsNil(), variant.IsSelectedEQ(true)).
		Order(ent.Asc(variant.FieldCreatedAt)).
		All(ctx)
}

// ByParent returns all non-deleted children of parentID.
func (s *VariantStore) ByParent(ctx context.Context, parentID string) ([]*ent.Variant, error) {
	return s.client.Variant.Query().
		Where(variant.ParentIDEQ(parentID), variant.DeletedAtIsNil()).
		All(ctx)
}

// ByContentHash returns the first (earliest created_at) non-deleted
// variant with the given content hash, or nil if none exists.
func (s *VariantStore) ByContentHash(ctx context.Context, hash string) (*ent.Variant, error) {
	v, err := s.client.Variant.Query().
		Where(variant.ContentHashEQ(hash), variant.DeletedAtIsNil()).
		Order(ent.Asc(variant.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant by content hash: %w", err)
	}
	return v, nil
}

// Lineage returns the chain from v up to its generation-0 founder,
// ordered by generation ascending: [founder, ..., v]. It walks
// parent_id one hop at a time; the DAG depth is bounded by max_rounds
// so this never needs a recursive CTE.
func (s *VariantStore) Lineage(ctx context.Context, id string) ([]*ent.Variant, error) {
	chain := make([]*ent.Variant, 0, 8)
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	chain = append(chain, cur)
	for cur.ParentID != nil {
		parent, err := s.client.Variant.Get(ctx, *cur.ParentID)
		if err != nil {
			if ent.IsNotFound(err) {
				break
			}
			return nil, fmt.Errorf("lineage walk: %w", err)
		}
		chain = append(chain, parent)
		cur = parent
	}
	// chain is currently [v, parent, ..., founder]; reverse to ascending generation.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Descendants returns every non-deleted variant whose lineage chain
// passes through id, found by breadth-first walk over the parent_id
// edge (the inverse of Lineage).
func (s *VariantStore) Descendants(ctx context.Context, id string) ([]*ent.Variant, error) {
	var result []*ent.Variant
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for _, parentID := range frontier {
			children, err := s.ByParent(ctx, parentID)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				result = append(result, c)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return result, nil
}

// MarkSelected sets is_selected=true for the given variant ids outside
// of any wider transaction. pkg/policy.Engine.ExecuteAndApply uses
// MarkSelectedTx instead so selection composes with policy activation
// in one commit, per spec.md §4.1's transaction discipline.
func (s *VariantStore) MarkSelected(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.client.Variant.Update().
		Where(variant.IDIn(ids...)).
		SetIsSelected(true).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark variants selected: %w", err)
	}
	return nil
}

// MarkSelectedTx is MarkSelected run against an already-open transaction.
func (s *VariantStore) MarkSelectedTx(ctx context.Context, tx *ent.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Variant.Update().
		Where(variant.IDIn(ids...)).
		SetIsSelected(true).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark variants selected: %w", err)
	}
	return nil
}

// SoftDeleteByRound marks every variant in a round as deleted, used by
// the idempotent create_round when replanning an existing round.
func (s *VariantStore) SoftDeleteByRound(ctx context.Context, roundID string) error {
	_, err := s.client.Variant.Update().
		Where(variant.RoundIDEQ(roundID), variant.DeletedAtIsNil()).
		SetDeletedAt(time.Now().UTC()).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("soft delete variants by round: %w", err)
	}
	return nil
}
