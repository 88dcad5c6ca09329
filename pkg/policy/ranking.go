package policy

import (
	"sort"

	"github.com/evoengine/core/ent"
)

// rootParentKey is the synthetic parent bucket for variants with no
// parent (generation 0), used so the diversity axis still groups them
// (spec.md §4.6: "ungrouped parents counted under a synthetic 'root'").
const rootParentKey = "__root__"

// Scored is one variant with its four ranking axes and composite.
type Scored struct {
	Variant          *ent.Variant
	EvaluationScore  float64
	Novelty          float64
	Diversity        float64
	Innovation       float64
	Composite        float64
}

// Rank computes the four axes and the pressure-weighted composite for
// every variant in round, using only completed evaluations (pending
// and failed rows count as evaluation_score=0 but do not block
// ranking, per spec.md §5).
func Rank(variants []*ent.Variant, evaluationsByVariant map[string][]*ent.Evaluation, pressure float64) []Scored {
	contentHashCounts := make(map[string]int, len(variants))
	parentCounts := make(map[string]int, len(variants))
	for _, v := range variants {
		contentHashCounts[v.ContentHash]++
		parentCounts[parentKey(v)]++
	}

	evalW, noveltyW, diversityW, innovationW := compositeWeights(pressure)

	scored := make([]Scored, 0, len(variants))
	for _, v := range variants {
		evalScore, innovation := meanScores(evaluationsByVariant[v.ID])
		novelty := 1.0 / float64(contentHashCounts[v.ContentHash])
		diversity := 1.0 / float64(parentCounts[parentKey(v)])

		composite := evalW*evalScore + noveltyW*novelty + diversityW*diversity + innovationW*innovation

		scored = append(scored, Scored{
			Variant:         v,
			EvaluationScore: evalScore,
			Novelty:         novelty,
			Diversity:       diversity,
			Innovation:      innovation,
			Composite:       composite,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Composite != scored[j].Composite {
			return scored[i].Composite > scored[j].Composite
		}
		return scored[i].Variant.CreatedAt.Before(scored[j].Variant.CreatedAt)
	})

	return scored
}

func parentKey(v *ent.Variant) string {
	if v.ParentID == nil {
		return rootParentKey
	}
	return *v.ParentID
}

// meanScores returns (mean of completed scores, mean of per-criterion
// "innovation" values found across those evaluations, falling back to
// the evaluation_score mean when no such criterion is present).
func meanScores(evals []*ent.Evaluation) (evaluationScore, innovation float64) {
	var sum float64
	var n int
	var innovationSum float64
	var innovationN int

	for _, e := range evals {
		if e.Status != "completed" || e.Score == nil {
			continue
		}
		sum += *e.Score
		n++

		if e.ResultData == nil {
			continue
		}
		criteria, ok := e.ResultData["criteria_scores"].(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := criteria["innovation"].(float64); ok {
			innovationSum += v
			innovationN++
		}
	}

	if n > 0 {
		evaluationScore = sum / float64(n)
	}
	if innovationN > 0 {
		innovation = innovationSum / float64(innovationN)
	} else {
		innovation = evaluationScore
	}
	return evaluationScore, innovation
}

// DiversityGuard selects up to selectCount variants from ranked
// (already composite-descending), per spec.md §4.6: a first pass
// accepts only candidates whose parent key has not yet been chosen,
// until minLineages distinct parents have been seen or the quota is
// met; a second pass fills the remainder in composite order.
func DiversityGuard(ranked []Scored, selectCount, minLineages int) []*ent.Variant {
	if selectCount > len(ranked) {
		selectCount = len(ranked)
	}

	selected := make([]*ent.Variant, 0, selectCount)
	chosenIDs := make(map[string]bool, selectCount)
	seenParents := make(map[string]bool, minLineages)

	for _, s := range ranked {
		if len(selected) >= selectCount || len(seenParents) >= minLineages {
			break
		}
		pk := parentKey(s.Variant)
		if seenParents[pk] {
			continue
		}
		seenParents[pk] = true
		chosenIDs[s.Variant.ID] = true
		selected = append(selected, s.Variant)
	}

	for _, s := range ranked {
		if len(selected) >= selectCount {
			break
		}
		if chosenIDs[s.Variant.ID] {
			continue
		}
		chosenIDs[s.Variant.ID] = true
		selected = append(selected, s.Variant)
	}

	return selected
}
