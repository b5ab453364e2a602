package reasoning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
)

// Observer is notified after every completed solve. The optimization
// manager implements it to evaluate outcomes and drive the feedback loop.
type Observer interface {
	Observe(ctx context.Context, result *SolveResult)
}

// Engine is the top-level reasoning orchestrator.
type Engine struct {
	lib            *prompts.Library
	runner         *Runner
	tot            *TreeOfThought
	consistency    *SelfConsistency
	arbiter        *Arbiter
	problemTimeout time.Duration
	observer       Observer

	mu    sync.Mutex
	stats SessionStats
}

// SessionStats accumulates per-process solve statistics.
type SessionStats struct {
	ProblemsSolved int                 `json:"problems_solved"`
	ByType         map[ProblemType]int `json:"problems_by_type"`
	TotalElapsed   time.Duration       `json:"total_elapsed"`
	SumConfidence  float64             `json:"-"`
	AvgConfidence  float64             `json:"avg_confidence"`
	SessionStart   time.Time           `json:"session_start"`
}

// New builds an engine over the generator, prompt library and config.
func New(gen gemini.Generator, lib *prompts.Library, params gemini.Params, cfg config.ReasoningConfig) *Engine {
	runner := NewRunner(gen, cfg.RetryBudget, cfg.PathTimeout)
	timeout := cfg.ProblemTimeout
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}
	return &Engine{
		lib:            lib,
		runner:         runner,
		tot:            NewTreeOfThought(runner, params),
		consistency:    NewSelfConsistency(runner, params, cfg.ConsistencySamples),
		arbiter:        NewArbiter(gen, params, cfg.HighAgreement),
		problemTimeout: timeout,
		stats: SessionStats{
			ByType:       make(map[ProblemType]int),
			SessionStart: time.Now().UTC(),
		},
	}
}

// SetObserver installs the post-solve hook.
func (e *Engine) SetObserver(obs Observer) { e.observer = obs }

// Library returns the live prompt library.
func (e *Engine) Library() *prompts.Library { return e.lib }

// Solve answers one problem with both strategies and arbitration. It
// always returns a SolveResult: total model unavailability yields the
// undetermined sentinel with a diagnostic, never a structural failure.
func (e *Engine) Solve(ctx context.Context, problem Problem) SolveResult {
	result := e.SolveWith(ctx, e.lib, problem)
	if e.observer != nil {
		e.observer.Observe(ctx, &result)
	}
	return result
}

// SolveWith answers one problem against an explicit prompt library. The
// optimization manager uses it to validate candidate templates on a
// staged library without touching the live set; it bypasses the observer
// so validation runs never count as production failures.
func (e *Engine) SolveWith(ctx context.Context, lib *prompts.Library, problem Problem) SolveResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.problemTimeout)
	defer cancel()

	log.Info().Str("type", string(problem.Normalized())).
		Str("problem", snippet(problem.Text)).Msg("solving")

	// Both strategies run concurrently; neither observes the other's
	// partial state. The completion counter is solve-local so concurrent
	// solves over the same engine never skew each other's tie-break.
	var (
		wg         sync.WaitGroup
		seq        atomic.Int64
		totResults []PathResult
		consResult ConsistencyResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		totResults = e.tot.Run(ctx, lib, problem, &seq)
	}()
	go func() {
		defer wg.Done()
		consResult = e.consistency.Run(ctx, lib, problem, &seq)
	}()
	wg.Wait()

	final := e.arbiter.Arbitrate(ctx, problem, totResults, consResult)

	result := SolveResult{
		Problem: problem,
		Final:   final,
		Elapsed: time.Since(start),
		Optimization: OptimizationStatus{
			State: OptimizationOK,
		},
	}
	if diag := transportDiagnostic(final.Sources); diag != "" {
		result.Diagnostic = diag
	}

	e.recordStats(problem, result)

	log.Info().Str("answer", final.Answer).Float64("confidence", final.Confidence).
		Float64("agreement", final.AgreementRatio).Bool("arbitration", final.ArbitrationUsed).
		Dur("elapsed", result.Elapsed).Msg("solved")
	return result
}

// BatchSolve answers problems with at most maxConcurrent in flight.
// Output order matches input order regardless of completion order, and a
// timeout on one problem never affects its siblings.
func (e *Engine) BatchSolve(ctx context.Context, problems []Problem, maxConcurrent int) []SolveResult {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	results := make([]SolveResult, len(problems))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, p := range problems {
		g.Go(func() error {
			results[i] = e.Solve(gctx, p)
			return nil
		})
	}
	// Workers absorb their own failures; only context cancellation can
	// surface here, and the per-slot results are already sentinel-filled.
	_ = g.Wait()

	return results
}

// Stats returns a snapshot of the session statistics.
func (e *Engine) Stats() SessionStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.ByType = make(map[ProblemType]int, len(e.stats.ByType))
	for k, v := range e.stats.ByType {
		s.ByType[k] = v
	}
	if s.ProblemsSolved > 0 {
		s.AvgConfidence = s.SumConfidence / float64(s.ProblemsSolved)
	}
	return s
}

// ResetStats clears the session statistics.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = SessionStats{
		ByType:       make(map[ProblemType]int),
		SessionStart: time.Now().UTC(),
	}
}

func (e *Engine) recordStats(problem Problem, result SolveResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.ProblemsSolved++
	e.stats.ByType[problem.Normalized()]++
	e.stats.TotalElapsed += result.Elapsed
	e.stats.SumConfidence += result.Final.Confidence
}

// transportDiagnostic reports why a solve degraded when every path failed
// at the transport boundary.
func transportDiagnostic(sources []PathResult) string {
	if len(sources) == 0 {
		return ""
	}
	kinds := make(map[gemini.FailureKind]int)
	for _, r := range sources {
		if !r.Failed() {
			return ""
		}
		kinds[r.Failure]++
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range []gemini.FailureKind{gemini.FailureTimeout, gemini.FailureRateLimited, gemini.FailureServerError} {
		if n := kinds[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s x%d", k, n))
		}
	}
	return "language model unreachable on every path: " + strings.Join(parts, ", ")
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
