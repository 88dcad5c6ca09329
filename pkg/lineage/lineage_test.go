package lineage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoengine/core/pkg/lineage"
	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/evoengine/core/pkg/store"
	testdb "github.com/evoengine/core/test/database"
)

func newTestRound(t *testing.T, st *store.Store) string {
	c, err := st.Campaigns.Create(context.Background(), store.CreateCampaignInput{
		Name:   "lineage-test",
		Config: map[string]interface{}{"max_rounds": 5},
	})
	require.NoError(t, err)

	r, err := st.Rounds.Create(context.Background(), c.ID, 1, nil)
	require.NoError(t, err)
	return r.ID
}

func newTestEngine(t *testing.T) (*lineage.Engine, *store.Store, string) {
	client := testdb.NewTestClient(t)
	st := store.New(client.Client, nil)
	roundID := newTestRound(t, st)
	return lineage.New(st), st, roundID
}

func TestCreateVariantFounderRequiresGenerationZero(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	result, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		Generation: 0,
		Content:    "founder content",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Variant.ParentID)
	assert.Equal(t, 0, result.Variant.Generation)
}

func TestCreateVariantFounderRejectsNonZeroGeneration(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	_, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		Generation: 1,
		Content:    "founder content",
	})
	require.Error(t, err)

	var violation *orcherrors.LineageViolation
	require.ErrorAs(t, err, &violation)
	assert.ErrorIs(t, err, orcherrors.ErrLineageViolation)
	assert.Contains(t, err.Error(), "lineage")
}

func TestCreateVariantChildGenerationMustBeParentPlusOne(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	founder, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		Generation: 0,
		Content:    "founder",
	})
	require.NoError(t, err)

	parentID := founder.Variant.ID
	child, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		ParentID:   &parentID,
		Generation: 1,
		Content:    "child",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, child.Variant.Generation)
	require.NotNil(t, child.Variant.ParentID)
	assert.Equal(t, parentID, *child.Variant.ParentID)
}

func TestCreateVariantRejectsGenerationSkip(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	founder, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		Generation: 0,
		Content:    "founder",
	})
	require.NoError(t, err)

	parentID := founder.Variant.ID
	_, err = engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		ParentID:   &parentID,
		Generation: 2, // should be 1
		Content:    "bad-skip",
	})
	require.Error(t, err)

	var violation *orcherrors.LineageViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, parentID, violation.VariantParentID)
	assert.Contains(t, err.Error(), "lineage")
}

func TestCreateVariantRejectsUnknownParent(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	bogusParent := "does-not-exist"
	_, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		ParentID:   &bogusParent,
		Generation: 1,
		Content:    "orphan",
	})
	require.Error(t, err)

	var violation *orcherrors.LineageViolation
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, err.Error(), "lineage")
}

func TestCreateVariantFlagsContentHashDuplicateWithinRound(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	first, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		Generation: 0,
		Content:    "identical content",
	})
	require.NoError(t, err)
	assert.Empty(t, first.DuplicateOfID)

	second, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID:    roundID,
		Generation: 0,
		Content:    "identical content",
	})
	require.NoError(t, err)
	assert.Equal(t, first.Variant.ID, second.DuplicateOfID, "duplicate content is flagged but still persisted with its own lineage")
	assert.NotEqual(t, first.Variant.ID, second.Variant.ID)
	assert.Equal(t, first.Variant.ContentHash, second.Variant.ContentHash)
}

func TestFullLineageReturnsChainFromSelfToFounder(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	founder, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, Generation: 0, Content: "gen0",
	})
	require.NoError(t, err)
	parentID := founder.Variant.ID

	child, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &parentID, Generation: 1, Content: "gen1",
	})
	require.NoError(t, err)
	childID := child.Variant.ID

	grandchild, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &childID, Generation: 2, Content: "gen2",
	})
	require.NoError(t, err)

	chain, generations, err := engine.FullLineage(context.Background(), grandchild.Variant.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, 3, generations)
	assert.Equal(t, grandchild.Variant.ID, chain[0].ID)
	assert.Equal(t, childID, chain[1].ID)
	assert.Equal(t, parentID, chain[2].ID)
}

func TestDescendantsReturnsEveryVariantBelow(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	founder, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, Generation: 0, Content: "root",
	})
	require.NoError(t, err)
	parentID := founder.Variant.ID

	childA, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &parentID, Generation: 1, Content: "child-a",
	})
	require.NoError(t, err)
	_, err = engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &parentID, Generation: 1, Content: "child-b",
	})
	require.NoError(t, err)
	childAID := childA.Variant.ID
	_, err = engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &childAID, Generation: 2, Content: "grandchild",
	})
	require.NoError(t, err)

	descendants, err := engine.Descendants(context.Background(), parentID)
	require.NoError(t, err)
	assert.Len(t, descendants, 3)
}

func TestRelationshipClassifiesSiblingsAndCousins(t *testing.T) {
	engine, _, roundID := newTestEngine(t)

	founder, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, Generation: 0, Content: "root",
	})
	require.NoError(t, err)
	parentID := founder.Variant.ID

	siblingA, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &parentID, Generation: 1, Content: "sibling-a",
	})
	require.NoError(t, err)
	siblingB, err := engine.CreateVariant(context.Background(), lineage.CreateVariantInput{
		RoundID: roundID, ParentID: &parentID, Generation: 1, Content: "sibling-b",
	})
	require.NoError(t, err)

	rel, err := engine.Relationship(context.Background(), siblingA.Variant.ID, siblingB.Variant.ID)
	require.NoError(t, err)
	assert.Equal(t, lineage.RelationshipSibling, rel)

	rel, err = engine.Relationship(context.Background(), parentID, siblingA.Variant.ID)
	require.NoError(t, err)
	assert.Equal(t, lineage.RelationshipAncestor, rel)

	rel, err = engine.Relationship(context.Background(), siblingA.Variant.ID, parentID)
	require.NoError(t, err)
	assert.Equal(t, lineage.RelationshipDescendant, rel)
}
