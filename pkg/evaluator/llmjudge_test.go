package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriteriaWeightsFromDefaultsWhenAbsent(t *testing.T) {
	weights := criteriaWeightsFrom(map[string]interface{}{})
	assert.Equal(t, defaultCriteriaWeights, weights)
}

func TestCriteriaWeightsFromOverride(t *testing.T) {
	cfg := map[string]interface{}{
		"criteria_weights": map[string]interface{}{
			"correctness": 0.6,
			"simplicity":  0.4,
		},
	}
	weights := criteriaWeightsFrom(cfg)
	assert.Equal(t, 0.6, weights["correctness"])
	assert.Equal(t, 0.4, weights["simplicity"])
	assert.Len(t, weights, 2)
}

func TestWeightedAverageIgnoresMissingCriteria(t *testing.T) {
	weights := map[string]float64{"correctness": 0.5, "simplicity": 0.5}
	scores := map[string]float64{"correctness": 1.0} // simplicity missing from judge response

	avg := weightedAverage(scores, weights)
	assert.Equal(t, 1.0, avg, "renormalizes over the weights that have a matching score")
}

func TestWeightedAverageClampsToUnitInterval(t *testing.T) {
	weights := map[string]float64{"correctness": 1.0}
	scores := map[string]float64{"correctness": 1.5}

	assert.Equal(t, 1.0, weightedAverage(scores, weights))
}

func TestExtractJSONStripsSurroundingProse(t *testing.T) {
	raw := "Sure, here is my answer:\n{\"scores\": {\"correctness\": 0.9}, \"feedback\": \"good\"}\nHope that helps."
	got := extractJSON(raw)
	assert.Equal(t, `{"scores": {"correctness": 0.9}, "feedback": "good"}`, got)
}
