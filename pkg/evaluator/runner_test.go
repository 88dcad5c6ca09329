package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubRunnerFixedScore(t *testing.T) {
	score := 0.77
	r := &StubRunner{FixedScore: &score}

	res, err := r.Run(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.77, res.Score)
}

func TestStubRunnerHeuristicScoreSaturatesTowardOne(t *testing.T) {
	r := &StubRunner{}

	short, err := r.Run(context.Background(), "x", nil)
	require.NoError(t, err)

	long, err := r.Run(context.Background(), string(make([]byte, 100000)), nil)
	require.NoError(t, err)

	assert.Less(t, short.Score, long.Score)
	assert.Less(t, long.Score, 1.0)
}
