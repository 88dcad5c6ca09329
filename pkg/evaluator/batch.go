package evaluator

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/evoengine/core/ent"
)

// VariantInput is one variant submitted to evaluate_batch.
type VariantInput struct {
	VariantID string
	RoundID   string
	Content   string
}

// BatchResult is the Scorer-facing structure returned by EvaluateBatch
// (spec.md §4.5: "evaluate_batch ... returns: {results[], ranked by
// score desc, best, worst, average}").
type BatchResult struct {
	Results []Result
	Ranked  []Result
	Best    *ent.Evaluation
	Worst   *ent.Evaluation
	Average float64
}

// defaultConcurrency returns the default cap for evaluator fan-out within a round,
// per spec.md §5 ("parallel with a configurable concurrency cap
// (default = CPU count)").
func defaultConcurrency() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// EvaluateBatch fans out Evaluate over variants with a bounded worker
// pool, preserving request order in Results.
func (d *Dispatcher) EvaluateBatch(ctx context.Context, variants []VariantInput, cfg Config, concurrency int) (BatchResult, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency()
	}

	results := make([]Result, len(variants))
	errs := make([]error, len(variants))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v VariantInput) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := d.Evaluate(ctx, v.RoundID, v.VariantID, v.Content, cfg)
			results[i] = res
			errs[i] = err
		}(i, v)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return BatchResult{}, err
		}
	}

	ranked := make([]Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scoreOf(ranked[i]) > scoreOf(ranked[j])
	})

	var sum float64
	var best, worst *ent.Evaluation
	for _, r := range results {
		s := scoreOf(r)
		sum += s
		if r.Evaluation == nil {
			continue
		}
		if best == nil || s > scoreOf(Result{Evaluation: best}) {
			best = r.Evaluation
		}
		if worst == nil || s < scoreOf(Result{Evaluation: worst}) {
			worst = r.Evaluation
		}
	}
	avg := 0.0
	if len(results) > 0 {
		avg = sum / float64(len(results))
	}

	return BatchResult{Results: results, Ranked: ranked, Best: best, Worst: worst, Average: avg}, nil
}

func scoreOf(r Result) float64 {
	if r.Evaluation == nil || r.Evaluation.Score == nil {
		return 0
	}
	return *r.Evaluation.Score
}
