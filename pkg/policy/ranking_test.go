package policy

import (
	"testing"
	"time"

	"github.com/evoengine/core/ent"
	"github.com/evoengine/core/ent/evaluation"
	"github.com/stretchr/testify/assert"
)

func score(v float64) *float64 { return &v }

func strp(s string) *string { return &s }

func TestRankOrdersByCompositeDescending(t *testing.T) {
	now := time.Now()
	variants := []*ent.Variant{
		{ID: "a", ContentHash: "ha", CreatedAt: now},
		{ID: "b", ContentHash: "hb", CreatedAt: now.Add(time.Second)},
	}
	evals := map[string][]*ent.Evaluation{
		"a": {{Status: evaluation.StatusCompleted, Score: score(0.9)}},
		"b": {{Status: evaluation.StatusCompleted, Score: score(0.1)}},
	}

	ranked := Rank(variants, evals, 0.5)

	assert.Equal(t, "a", ranked[0].Variant.ID)
	assert.Equal(t, "b", ranked[1].Variant.ID)
}

func TestRankTreatsPendingAndFailedAsZero(t *testing.T) {
	now := time.Now()
	variants := []*ent.Variant{{ID: "a", ContentHash: "ha", CreatedAt: now}}
	evals := map[string][]*ent.Evaluation{
		"a": {{Status: evaluation.StatusFailed, Score: nil}},
	}

	ranked := Rank(variants, evals, 0.5)
	assert.Zero(t, ranked[0].EvaluationScore)
}

func TestRankNoveltyPenalizesDuplicateContentHash(t *testing.T) {
	now := time.Now()
	variants := []*ent.Variant{
		{ID: "a", ContentHash: "dup", CreatedAt: now},
		{ID: "b", ContentHash: "dup", CreatedAt: now},
		{ID: "c", ContentHash: "unique", CreatedAt: now},
	}
	ranked := Rank(variants, map[string][]*ent.Evaluation{}, 0.5)

	byID := map[string]Scored{}
	for _, s := range ranked {
		byID[s.Variant.ID] = s
	}
	assert.Equal(t, 0.5, byID["a"].Novelty)
	assert.Equal(t, 1.0, byID["c"].Novelty)
}

func TestRankDiversityGroupsRootlessVariantsTogether(t *testing.T) {
	now := time.Now()
	variants := []*ent.Variant{
		{ID: "a", ParentID: nil, ContentHash: "ha", CreatedAt: now},
		{ID: "b", ParentID: nil, ContentHash: "hb", CreatedAt: now},
	}
	ranked := Rank(variants, map[string][]*ent.Evaluation{}, 0.5)
	for _, s := range ranked {
		assert.Equal(t, 0.5, s.Diversity, "both root variants share the synthetic root parent key")
	}
}

func TestRankInnovationFallsBackToEvaluationScore(t *testing.T) {
	now := time.Now()
	variants := []*ent.Variant{{ID: "a", ContentHash: "ha", CreatedAt: now}}
	evals := map[string][]*ent.Evaluation{
		"a": {{Status: evaluation.StatusCompleted, Score: score(0.7), ResultData: nil}},
	}
	ranked := Rank(variants, evals, 0.5)
	assert.Equal(t, ranked[0].EvaluationScore, ranked[0].Innovation)
}

func TestDiversityGuardPrefersUnseenParentsFirst(t *testing.T) {
	now := time.Now()
	ranked := []Scored{
		{Variant: &ent.Variant{ID: "a", ParentID: strp("p1"), CreatedAt: now}, Composite: 0.9},
		{Variant: &ent.Variant{ID: "b", ParentID: strp("p1"), CreatedAt: now}, Composite: 0.8},
		{Variant: &ent.Variant{ID: "c", ParentID: strp("p2"), CreatedAt: now}, Composite: 0.7},
	}

	selected := DiversityGuard(ranked, 2, 2)

	ids := []string{selected[0].ID, selected[1].ID}
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "c", "second distinct-parent candidate should be preferred over same-parent 'b'")
}

func TestDiversityGuardFillsRemainderInCompositeOrderOnceLineagesSatisfied(t *testing.T) {
	now := time.Now()
	ranked := []Scored{
		{Variant: &ent.Variant{ID: "a", ParentID: strp("p1"), CreatedAt: now}, Composite: 0.9},
		{Variant: &ent.Variant{ID: "b", ParentID: strp("p2"), CreatedAt: now}, Composite: 0.8},
		{Variant: &ent.Variant{ID: "c", ParentID: strp("p1"), CreatedAt: now}, Composite: 0.7},
	}

	selected := DiversityGuard(ranked, 3, 2)
	assert.Len(t, selected, 3)
	assert.Equal(t, "c", selected[2].ID)
}
