package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionCountBuckets(t *testing.T) {
	assert.Equal(t, 7, SelectionCount(10, 0.1))
	assert.Equal(t, 5, SelectionCount(10, 0.5))
	assert.Equal(t, 3, SelectionCount(10, 0.9))
}

func TestSelectionCountHighPressureFloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, SelectionCount(2, 0.9))
}

func TestResolveAdaptiveEarlyRoundsPreferDiversity(t *testing.T) {
	assert.Equal(t, StrategyDiversity, ResolveAdaptive(1, 0.9))
	assert.Equal(t, StrategyDiversity, ResolveAdaptive(4, 0.9))
}

func TestResolveAdaptiveStrugglingCampaignPrefersTournament(t *testing.T) {
	assert.Equal(t, StrategyTournament, ResolveAdaptive(8, 0.2))
}

func TestResolveAdaptiveMaturePrefersTopK(t *testing.T) {
	assert.Equal(t, StrategyTopK, ResolveAdaptive(8, 0.8))
}

func TestResolveNonAdaptivePassesThrough(t *testing.T) {
	assert.Equal(t, StrategyTopK, Resolve(StrategyTopK, 1, 0.1))
}
