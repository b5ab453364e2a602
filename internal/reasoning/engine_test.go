package reasoning

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
)

func testEngine(t *testing.T, gen gemini.Generator) *Engine {
	t.Helper()
	cfg := config.ReasoningConfig{
		ConsistencySamples: 5,
		HighAgreement:      0.7,
		RetryBudget:        0,
		PathTimeout:        2 * time.Second,
		ProblemTimeout:     10 * time.Second,
	}
	return New(gen, testLibrary(t), gemini.Params{Temperature: 0.7}, cfg)
}

func TestEngine_SolveUnanimous(t *testing.T) {
	t.Parallel()

	e := testEngine(t, constGen("Work through it.\nThe answer is 42."))
	result := e.Solve(context.Background(), Problem{Text: "What is 6 * 7?", Type: TypeMath})

	assert.Equal(t, "42", result.Final.Answer)
	assert.Equal(t, "high_agreement", result.Final.Method)
	assert.False(t, result.Final.ArbitrationUsed)
	assert.InDelta(t, 1.0, result.Final.AgreementRatio, 1e-9)
	assert.Len(t, result.Final.Sources, 10)
	assert.Empty(t, result.Diagnostic)
}

func TestEngine_TotalFailureIsSentinelWithDiagnostic(t *testing.T) {
	t.Parallel()

	e := testEngine(t, errGen(gemini.FailureServerError))
	result := e.Solve(context.Background(), Problem{Text: "What is 6 * 7?", Type: TypeMath})

	assert.True(t, result.Final.Undetermined())
	assert.Contains(t, result.Diagnostic, "language model unreachable on every path")
	assert.Contains(t, result.Diagnostic, "server_error")
}

func TestEngine_BatchSolvePreservesOrder(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{respond: func(call int, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "6 * 7"):
			// Slow problem: its results must still land in slot 1.
			time.Sleep(20 * time.Millisecond)
			return "The answer is 42.", nil
		case strings.Contains(prompt, "2 + 2"):
			return "The answer is 4.", nil
		default:
			return "The answer is 9.", nil
		}
	}}
	e := testEngine(t, gen)

	problems := []Problem{
		{Text: "What is 2 + 2?", Type: TypeMath},
		{Text: "What is 6 * 7?", Type: TypeMath},
		{Text: "What is 3 * 3?", Type: TypeMath},
	}
	results := e.BatchSolve(context.Background(), problems, 3)

	require.Len(t, results, 3)
	assert.Equal(t, "4", results[0].Final.Answer)
	assert.Equal(t, "42", results[1].Final.Answer)
	assert.Equal(t, "9", results[2].Final.Answer)
	for i, r := range results {
		assert.Equal(t, problems[i].Text, r.Problem.Text)
	}
}

func TestEngine_BatchSolveSeqIsSolveLocal(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{respond: func(call int, prompt string) (string, error) {
		// Stagger completions so concurrent solves interleave.
		time.Sleep(time.Duration(call%4) * time.Millisecond)
		return "The answer is 7.", nil
	}}
	e := testEngine(t, gen)

	problems := []Problem{
		{Text: "What is 3 + 4?", Type: TypeMath},
		{Text: "What is 14 / 2?", Type: TypeMath},
		{Text: "What is 1 + 6?", Type: TypeMath},
	}
	results := e.BatchSolve(context.Background(), problems, 3)
	require.Len(t, results, 3)

	// Every solve numbers its own completions 1..N with no gaps or
	// duplicates, regardless of what its siblings were doing.
	for _, r := range results {
		seen := make(map[int]bool, len(r.Final.Sources))
		for _, src := range r.Final.Sources {
			assert.False(t, seen[src.Seq], "duplicate seq %d", src.Seq)
			seen[src.Seq] = true
			assert.GreaterOrEqual(t, src.Seq, 1)
			assert.LessOrEqual(t, src.Seq, len(r.Final.Sources))
		}
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	observed []string
}

func (o *recordingObserver) Observe(ctx context.Context, result *SolveResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed = append(o.observed, result.Problem.Text)
	result.Optimization = OptimizationStatus{State: OptimizationMonitoring, PendingFailures: 1}
}

func TestEngine_SolveNotifiesObserver(t *testing.T) {
	t.Parallel()

	e := testEngine(t, constGen("The answer is 4."))
	obs := &recordingObserver{}
	e.SetObserver(obs)

	result := e.Solve(context.Background(), Problem{Text: "What is 2 + 2?", Type: TypeMath})
	assert.Equal(t, []string{"What is 2 + 2?"}, obs.observed)
	// Observer mutations reach the caller's copy.
	assert.Equal(t, OptimizationMonitoring, result.Optimization.State)
}

// SolveWith is the staging entry point: it must not notify the observer,
// so candidate validation never pollutes the failure buffer.
func TestEngine_SolveWithBypassesObserver(t *testing.T) {
	t.Parallel()

	e := testEngine(t, constGen("The answer is 4."))
	obs := &recordingObserver{}
	e.SetObserver(obs)

	result := e.SolveWith(context.Background(), e.Library().Clone(), Problem{Text: "What is 2 + 2?", Type: TypeMath})
	assert.Equal(t, "4", result.Final.Answer)
	assert.Empty(t, obs.observed)
}

func TestEngine_StatsAccumulate(t *testing.T) {
	t.Parallel()

	e := testEngine(t, constGen("The answer is 4."))
	e.Solve(context.Background(), Problem{Text: "What is 2 + 2?", Type: TypeMath})
	e.Solve(context.Background(), Problem{Text: "Is this valid?", Type: TypeLogic})

	stats := e.Stats()
	assert.Equal(t, 2, stats.ProblemsSolved)
	assert.Equal(t, 1, stats.ByType[TypeMath])
	assert.Equal(t, 1, stats.ByType[TypeLogic])
	assert.Greater(t, stats.AvgConfidence, 0.0)

	e.ResetStats()
	assert.Zero(t, e.Stats().ProblemsSolved)
}
