// Package lineage implements the variant DAG: creation under the three
// lineage invariants, ancestry/descendant traversal, and relationship
// classification (C4).
package lineage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/evoengine/core/pkg/store"
)

// Engine is the lineage engine over a Store's VariantStore.
type Engine struct {
	variants *store.VariantStore
}

// New builds a lineage Engine over s.
func New(s *store.Store) *Engine {
	return &Engine{variants: s.Variants}
}

// ContentHash returns sha256(content) hex-encoded, the deterministic
// function required by spec.md §3 invariant 3.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CreateVariantInput mirrors create_variant's arguments in spec.md §4.4.
type CreateVariantInput struct {
	RoundID          string
	ParentID         *string
	Generation       int
	Content          string
	MutationType     *string
	Metadata         map[string]interface{}
}

// CreateResult carries the created variant plus, when content dedup
// found a prior hit, that hit's id for the caller to surface.
type CreateResult struct {
	Variant         *ent.Variant
	DuplicateOfID   string // non-empty if by_content_hash found a pre-existing match
}

// CreateVariant enforces the three lineage invariants from spec.md §3
// before persisting:
//  1. generation == 0 iff parent_id == nil
//  2. generation == parent.generation + 1 otherwise
//  3. content_hash == sha256(content), computed here
//
// Callers SHOULD check by_content_hash first; this method still does
// so itself and reports a hit via CreateResult.DuplicateOfID, but does
// not refuse the creation — duplicates are permitted with distinct
// lineage (spec.md §4.4).
func (e *Engine) CreateVariant(ctx context.Context, in CreateVariantInput) (*CreateResult, error) {
	if err := e.validateLineage(ctx, in.ParentID, in.Generation); err != nil {
		return nil, err
	}

	hash := ContentHash(in.Content)

	var duplicateOf string
	if existing, err := e.variants.ByContentHash(ctx, hash); err == nil && existing != nil {
		duplicateOf = existing.ID
	}

	v, err := e.variants.Create(ctx, store.CreateVariantInput{
		RoundID:          in.RoundID,
		ParentID:         in.ParentID,
		Generation:       in.Generation,
		Content:          in.Content,
		ContentHash:      hash,
		MutationType:     in.MutationType,
		MutationMetadata: in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return &CreateResult{Variant: v, DuplicateOfID: duplicateOf}, nil
}

func (e *Engine) validateLineage(ctx context.Context, parentID *string, generation int) error {
	if parentID == nil {
		if generation != 0 {
			return orcherrors.NewLineageViolation("", fmt.Sprintf("generation must be 0 for a founder (no parent_id), got %d", generation))
		}
		return nil
	}

	parent, err := e.variants.Get(ctx, *parentID)
	if err != nil {
		return orcherrors.NewLineageViolation(*parentID, fmt.Sprintf("parent lookup failed: %v", err))
	}

	if generation != parent.Generation+1 {
		return orcherrors.NewLineageViolation(*parentID,
			fmt.Sprintf("lineage violation: generation %d does not equal parent generation %d + 1", generation, parent.Generation))
	}
	return nil
}

// FullLineage returns [self, parent, ..., founder] (the ordering used
// directly by spec.md §4.4; note this is the reverse of
// VariantStore.Lineage's ascending-generation order) plus the
// generation count.
func (e *Engine) FullLineage(ctx context.Context, variantID string) ([]*ent.Variant, int, error) {
	ascending, err := e.variants.Lineage(ctx, variantID)
	if err != nil {
		return nil, 0, err
	}
	descending := make([]*ent.Variant, len(ascending))
	for i, v := range ascending {
		descending[len(ascending)-1-i] = v
	}
	return descending, len(descending), nil
}

// Descendants returns every variant whose lineage chain passes through variantID.
func (e *Engine) Descendants(ctx context.Context, variantID string) ([]*ent.Variant, error) {
	return e.variants.Descendants(ctx, variantID)
}

// Relationship classification between two variants.
type Relationship string

const (
	RelationshipAncestor   Relationship = "ancestor"
	RelationshipDescendant Relationship = "descendant"
	RelationshipSibling    Relationship = "sibling"
	RelationshipCousin     Relationship = "cousin"
	RelationshipUnrelated  Relationship = "unrelated"
)

// Relationship classifies the relationship of a to b per spec.md §4.4,
// using their two lineages.
func (e *Engine) Relationship(ctx context.Context, a, b string) (Relationship, error) {
	if a == b {
		return RelationshipSibling, nil
	}

	lineageA, err := e.variants.Lineage(ctx, a) // ascending: [founder, ..., a]
	if err != nil {
		return "", err
	}
	lineageB, err := e.variants.Lineage(ctx, b)
	if err != nil {
		return "", err
	}

	idsA := make(map[string]bool, len(lineageA))
	for _, v := range lineageA {
		idsA[v.ID] = true
	}
	idsB := make(map[string]bool, len(lineageB))
	for _, v := range lineageB {
		idsB[v.ID] = true
	}

	if idsB[a] {
		return RelationshipAncestor, nil
	}
	if idsA[b] {
		return RelationshipDescendant, nil
	}

	parentOf := func(lineage []*ent.Variant, id string) string {
		for i, v := range lineage {
			if v.ID == id && i > 0 {
				return lineage[i-1].ID
			}
		}
		return ""
	}
	parentA := parentOf(lineageA, a)
	parentB := parentOf(lineageB, b)
	if parentA != "" && parentA == parentB {
		return RelationshipSibling, nil
	}

	founderA := ""
	if len(lineageA) > 0 {
		founderA = lineageA[0].ID
	}
	founderB := ""
	if len(lineageB) > 0 {
		founderB = lineageB[0].ID
	}
	if founderA != "" && founderA == founderB {
		return RelationshipCousin, nil
	}

	return RelationshipUnrelated, nil
}
