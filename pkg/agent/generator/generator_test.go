package generator

import (
	"context"
	"math/rand"
	"testing"

	"github.com/evoengine/core/pkg/tracecontext"
	"github.com/stretchr/testify/assert"
)

func TestWeightedSamplerRespectsDistributionProportions(t *testing.T) {
	sampler := newWeightedSampler(map[string]float64{"refactor": 0.9, "optimize": 0.1})
	rng := rand.New(rand.NewSource(1))

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		counts[sampler.sample(rng)]++
	}

	assert.Greater(t, counts["refactor"], counts["optimize"]*4)
}

func TestWeightedSamplerIsDeterministicForSameSeed(t *testing.T) {
	dist := map[string]float64{"refactor": 0.5, "optimize": 0.5}

	a := newWeightedSampler(dist)
	rngA := rand.New(rand.NewSource(42))
	seqA := []string{a.sample(rngA), a.sample(rngA), a.sample(rngA)}

	b := newWeightedSampler(dist)
	rngB := rand.New(rand.NewSource(42))
	seqB := []string{b.sample(rngB), b.sample(rngB), b.sample(rngB)}

	assert.Equal(t, seqA, seqB)
}

func TestAnnotatingMutatorAppendsMarker(t *testing.T) {
	out, err := AnnotatingMutator{}.Mutate(context.Background(), tracecontext.New("campaign-1"), "original", "refactor", nil)
	assert.NoError(t, err)
	assert.Contains(t, out, "original")
	assert.Contains(t, out, "refactor")
}
