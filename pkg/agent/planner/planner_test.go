package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseOfBoundaries(t *testing.T) {
	assert.Equal(t, PhaseExploration, PhaseOf(2, 10))
	assert.Equal(t, PhaseBalanced, PhaseOf(5, 10))
	assert.Equal(t, PhaseExploitation, PhaseOf(8, 10))
}

func TestBuildExplorationScalesVariantCountUp(t *testing.T) {
	plan := Build(BuildInput{RoundNumber: 1, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1"})
	assert.Equal(t, 15, plan.VariantCount)
	assert.Equal(t, 0.3, plan.SelectionPressure)
	assert.Len(t, plan.MutationDistribution, 5)
}

func TestBuildExploitationScalesVariantCountDown(t *testing.T) {
	plan := Build(BuildInput{RoundNumber: 9, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1"})
	assert.Equal(t, 7, plan.VariantCount)
	assert.Equal(t, 0.7, plan.SelectionPressure)
	assert.Equal(t, map[string]float64{"optimize": 0.6, "refactor": 0.4}, plan.MutationDistribution)
}

func TestBuildBalancedDistributionDependsOnRecentImprovement(t *testing.T) {
	improved := Build(BuildInput{RoundNumber: 5, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1", LastThreeRoundsImproved: true})
	stalled := Build(BuildInput{RoundNumber: 5, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1", LastThreeRoundsImproved: false})

	assert.Contains(t, improved.MutationDistribution, "expand")
	assert.Contains(t, stalled.MutationDistribution, "experimental")
}

func TestBuildSeedIsDeterministicForSameCampaign(t *testing.T) {
	a := Build(BuildInput{RoundNumber: 1, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "same"})
	b := Build(BuildInput{RoundNumber: 2, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "same"})
	assert.Equal(t, a.Seed, b.Seed)
}

func TestBuildSeedOverrideIsHonored(t *testing.T) {
	seed := int64(42)
	plan := Build(BuildInput{RoundNumber: 1, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1", Seed: &seed})
	assert.Equal(t, int64(42), plan.Seed)
}

func TestPlanHashStableForEqualPlans(t *testing.T) {
	a := Build(BuildInput{RoundNumber: 1, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1"})
	b := Build(BuildInput{RoundNumber: 1, MaxRounds: 10, BaseVariantsPerRound: 10, CampaignID: "c1"})
	assert.Equal(t, a.PlanHash, b.PlanHash)
	assert.NotEmpty(t, a.PlanHash)
}
