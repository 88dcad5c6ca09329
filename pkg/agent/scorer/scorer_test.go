package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEvaluatorTypeEnsembleForcesEnsemble(t *testing.T) {
	strategy := map[string]interface{}{
		"evaluators": []interface{}{"llm_judge"},
		"ensemble":   []interface{}{"llm_judge", "unit_test"},
	}
	evalType, components := resolveEvaluatorType(strategy)
	assert.Equal(t, "ensemble", evalType)
	assert.Len(t, components, 2)
	assert.InDelta(t, 0.5, components[0].Weight, 1e-9)
}

func TestResolveEvaluatorTypeUsesFirstEvaluatorWhenNoEnsemble(t *testing.T) {
	strategy := map[string]interface{}{"evaluators": []interface{}{"unit_test", "benchmark"}}
	evalType, components := resolveEvaluatorType(strategy)
	assert.Equal(t, "unit_test", evalType)
	assert.Nil(t, components)
}

func TestResolveEvaluatorTypeDefaultsToLLMJudge(t *testing.T) {
	evalType, _ := resolveEvaluatorType(map[string]interface{}{})
	assert.Equal(t, "llm_judge", evalType)
}
