package evaluator

import "context"

// RunResult is what a concrete evaluator backend returns for a single
// variant, before budget/cache/ensemble bookkeeping.
type RunResult struct {
	Score           float64
	Feedback        string
	CriteriaScores  map[string]float64
}

// Runner is the tagged-union contract for a concrete evaluator
// backend, per spec.md §9's "explicit tagged union" guidance:
// unit_test and benchmark are out of scope as concrete sandboxes
// (spec.md §1), so they are pluggable Runners with in-process stub
// implementations that still exercise the dispatcher's budget/cache/
// ensemble logic end to end.
type Runner interface {
	Run(ctx context.Context, content string, cfg map[string]interface{}) (RunResult, error)
}

// StubRunner is a deterministic in-process Runner used for unit_test
// and benchmark evaluator types, and in tests for llm_judge. It scores
// content on a simple, reproducible heuristic (normalized length) so
// dispatcher behavior is exercisable without a real sandbox or LLM.
type StubRunner struct {
	// FixedScore, if non-nil, is returned unconditionally.
	FixedScore *float64
}

func (r *StubRunner) Run(ctx context.Context, content string, cfg map[string]interface{}) (RunResult, error) {
	if r.FixedScore != nil {
		return RunResult{Score: *r.FixedScore, Feedback: "stub runner: fixed score"}, nil
	}
	score := normalizedLengthScore(content)
	return RunResult{
		Score:    score,
		Feedback: "stub runner: heuristic score based on content length",
		CriteriaScores: map[string]float64{
			"correctness": score,
		},
	}, nil
}

// normalizedLengthScore maps content length to (0,1) via a simple
// saturating curve so longer content trends toward (but never reaches) 1.
func normalizedLengthScore(content string) float64 {
	n := float64(len(content))
	return n / (n + 500.0)
}
