package optimize

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/problems"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

// accuracyMarker is the fallback enhancement the generator appends for
// accuracy-driven optimization. The scripted model only answers
// correctly when it sees an enhanced prompt, so candidate prompts
// measurably outperform the baseline.
const accuracyMarker = "Double-check your answer"

func scriptedModel() *fakeGen {
	return &fakeGen{respond: func(call int, prompt string) (string, error) {
		if !strings.Contains(prompt, accuracyMarker) {
			return "I cannot determine this answer", nil
		}
		switch {
		case strings.Contains(prompt, "25%"):
			return "The answer is 20.", nil
		case strings.Contains(prompt, "12 * 8"):
			return "The answer is 96.", nil
		case strings.Contains(prompt, "all A are B"):
			return "The answer is false.", nil
		default:
			return "The answer is 0.", nil
		}
	}}
}

func managerConfig() config.OptimizationConfig {
	return config.OptimizationConfig{
		Enabled:               true,
		ConfidenceThreshold:   0.7,
		DisagreementThreshold: 0.4,
		FailureThreshold:      2,
		EvaluationWindow:      20,
		Cooldown:              time.Hour,
	}
}

func newTestEngine(t *testing.T, gen gemini.Generator) *reasoning.Engine {
	t.Helper()
	lib, err := prompts.NewLibrary()
	require.NoError(t, err)
	cfg := config.ReasoningConfig{
		ConsistencySamples: 5,
		HighAgreement:      0.7,
		PathTimeout:        2 * time.Second,
		ProblemTimeout:     10 * time.Second,
	}
	return reasoning.New(gen, lib, gemini.Params{Temperature: 0.7}, cfg)
}

func newTestManager(t *testing.T, gen gemini.Generator, cfg config.OptimizationConfig) (*Manager, *reasoning.Engine) {
	t.Helper()
	engine := newTestEngine(t, gen)
	m := NewManager(engine, NewGenerator(gen, gemini.Params{}), cfg, problems.BuiltinValidation())
	engine.SetObserver(m)
	return m, engine
}

func TestObserve_MonitorsBeforeThreshold(t *testing.T) {
	t.Parallel()

	cfg := managerConfig()
	cfg.FailureThreshold = 5
	m, engine := newTestManager(t, scriptedModel(), cfg)

	result := engine.Solve(context.Background(), reasoning.Problem{Text: "What is 25% of 80?", Type: reasoning.TypeMath})

	assert.Equal(t, reasoning.OptimizationMonitoring, result.Optimization.State)
	assert.Equal(t, 1, result.Optimization.PendingFailures)
	assert.Equal(t, StateMonitoring, m.Status().State)
	assert.Len(t, m.Status().RecentFailures, 1)
	assert.Empty(t, m.Runs())
}

// Crossing the failure threshold runs the full pipeline; the enhanced
// candidates answer the validation set correctly, so they deploy.
func TestObserve_TriggersAndDeploys(t *testing.T) {
	t.Parallel()

	m, engine := newTestManager(t, scriptedModel(), managerConfig())
	problem := reasoning.Problem{Text: "What is 25% of 80?", Type: reasoning.TypeMath}

	engine.Solve(context.Background(), problem)
	result := engine.Solve(context.Background(), problem)

	assert.Equal(t, reasoning.OptimizationTriggered, result.Optimization.State)

	runs := m.Runs()
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "failure_threshold", run.Trigger)
	assert.Equal(t, OutcomeDeployed, run.Outcome)
	assert.Greater(t, run.CandidateScore, run.BaselineScore)
	assert.Contains(t, run.Steps, StepAnalyze)
	assert.Contains(t, run.Steps, StepGenerate)
	assert.Contains(t, run.Steps, StepTest)
	assert.Contains(t, run.Steps, StepDeploy)

	// Deploy swaps the live templates and clears the failure buffer.
	active, ok := engine.Library().Active(prompts.StrategySelfConsistency, "math")
	require.True(t, ok)
	assert.Contains(t, active.Template, accuracyMarker)
	assert.Greater(t, active.BackupOf, 0)
	assert.Zero(t, m.Evaluator().FailureCount())
	assert.Equal(t, StateIdle, m.Status().State)
}

func TestManualOptimize_RespectsCooldown(t *testing.T) {
	t.Parallel()

	m, engine := newTestManager(t, scriptedModel(), managerConfig())
	problem := reasoning.Problem{Text: "What is 25% of 80?", Type: reasoning.TypeMath}
	engine.Solve(context.Background(), problem)
	engine.Solve(context.Background(), problem)
	require.Len(t, m.Runs(), 1)
	require.True(t, m.InCooldown())

	_, err := m.ManualOptimize(context.Background())
	assert.ErrorIs(t, err, ErrCooldown)
	assert.Len(t, m.Runs(), 1)
}

func TestManualOptimize_BypassesFailureCount(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, scriptedModel(), managerConfig())
	require.Zero(t, m.Evaluator().FailureCount())

	run, err := m.ManualOptimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manual", run.Trigger)
	// With no failures the pipeline still runs end to end.
	assert.NotEmpty(t, run.Steps)
}

// When the model is unreachable the generator falls back to deterministic
// enhancement, both libraries score zero on validation, and the run ends
// in manual review with the live prompts untouched.
func TestOptimize_UnderperformingCandidateNeedsReview(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{respond: func(int, string) (string, error) {
		return "I cannot determine this answer", nil
	}}
	m, engine := newTestManager(t, gen, managerConfig())
	before, _ := engine.Library().Active(prompts.StrategySelfConsistency, "general")

	problem := reasoning.Problem{Text: "Why is the sky blue?", Type: reasoning.TypeGeneral}
	engine.Solve(context.Background(), problem)
	engine.Solve(context.Background(), problem)

	runs := m.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeManualReviewRequired, runs[0].Outcome)
	assert.Contains(t, runs[0].Steps, StepFallback)
	assert.NotContains(t, runs[0].Steps, StepDeploy)

	// Live library unchanged, failure buffer intact.
	after, _ := engine.Library().Active(prompts.StrategySelfConsistency, "general")
	assert.Equal(t, before.ID, after.ID)
	assert.NotZero(t, m.Evaluator().FailureCount())
	assert.Equal(t, StateMonitoring, m.Status().State)
}

func TestObserve_DisabledIsInert(t *testing.T) {
	t.Parallel()

	cfg := managerConfig()
	cfg.Enabled = false
	m, engine := newTestManager(t, scriptedModel(), cfg)

	problem := reasoning.Problem{Text: "What is 25% of 80?", Type: reasoning.TypeMath}
	engine.Solve(context.Background(), problem)
	engine.Solve(context.Background(), problem)
	engine.Solve(context.Background(), problem)

	assert.Empty(t, m.Runs())
	assert.Zero(t, m.Evaluator().FailureCount())
}

func TestRunSink_ReceivesFinalizedRuns(t *testing.T) {
	t.Parallel()

	m, engine := newTestManager(t, scriptedModel(), managerConfig())
	var got []Run
	m.SetRunSink(func(r Run) { got = append(got, r) })

	problem := reasoning.Problem{Text: "What is 25% of 80?", Type: reasoning.TypeMath}
	engine.Solve(context.Background(), problem)
	engine.Solve(context.Background(), problem)

	require.Len(t, got, 1)
	assert.Equal(t, OutcomeDeployed, got[0].Outcome)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].EndedAt.Before(got[0].StartedAt))
}
