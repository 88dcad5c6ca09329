package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIsDeterministicAcrossKeyOrder(t *testing.T) {
	a := map[string]interface{}{"max_cost_usd": 1.0, "evaluator": "llm_judge"}
	b := map[string]interface{}{"evaluator": "llm_judge", "max_cost_usd": 1.0}

	fa, err := fingerprint(a)
	require.NoError(t, err)
	fb, err := fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
}

func TestFingerprintDiffersOnValueChange(t *testing.T) {
	a := map[string]interface{}{"max_cost_usd": 1.0}
	b := map[string]interface{}{"max_cost_usd": 2.0}

	fa, err := fingerprint(a)
	require.NoError(t, err)
	fb, err := fingerprint(b)
	require.NoError(t, err)

	assert.NotEqual(t, fa, fb)
}

func TestFingerprintNilConfig(t *testing.T) {
	f, err := fingerprint(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, f)
}
