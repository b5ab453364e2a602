package optimize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/extract"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

// ErrCooldown is returned when an optimization is requested while a
// previous run's cooldown is still in effect.
var ErrCooldown = errors.New("optimization is in cooldown")

// ErrRunning is returned when an optimization is requested while another
// run is already in progress.
var ErrRunning = errors.New("optimization already running")

// RunSink receives finalized optimization runs, typically for persistence.
type RunSink func(Run)

// Manager owns the optimization lifecycle: it observes solves through the
// evaluator, triggers a run when the failure threshold is crossed, and
// drives the analyze/extract/generate/test/deploy pipeline against a
// staging copy of the prompt library.
type Manager struct {
	engine     *reasoning.Engine
	lib        *prompts.Library
	evaluator  *Evaluator
	generator  *Generator
	cfg        config.OptimizationConfig
	validation []reasoning.Problem
	sink       RunSink

	mu            sync.Mutex
	state         State
	lastRun       *Run
	runs          []Run
	cooldownUntil time.Time
}

// NewManager wires the optimization loop over a live engine and its
// prompt library. The validation set is used to score candidate prompts
// against the current baseline.
func NewManager(engine *reasoning.Engine, gen *Generator, cfg config.OptimizationConfig, validation []reasoning.Problem) *Manager {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	return &Manager{
		engine:     engine,
		lib:        engine.Library(),
		evaluator:  NewEvaluator(cfg),
		generator:  gen,
		cfg:        cfg,
		validation: validation,
		state:      StateIdle,
	}
}

// SetRunSink registers a callback invoked with every finalized run.
func (m *Manager) SetRunSink(sink RunSink) { m.sink = sink }

// Evaluator exposes the failure evaluator, mainly for status reporting.
func (m *Manager) Evaluator() *Evaluator { return m.evaluator }

// Observe implements reasoning.Observer. It evaluates the solve, stamps
// the result with the current optimization state, and runs a full
// optimization synchronously when the failure threshold is crossed.
func (m *Manager) Observe(ctx context.Context, result *reasoning.SolveResult) {
	if !m.cfg.Enabled {
		return
	}

	m.evaluator.Evaluate(*result)
	count := m.evaluator.FailureCount()

	switch {
	case count == 0:
		result.Optimization = reasoning.OptimizationStatus{State: reasoning.OptimizationOK}
	case count < m.cfg.FailureThreshold:
		result.Optimization = reasoning.OptimizationStatus{
			State:           reasoning.OptimizationMonitoring,
			PendingFailures: count,
		}
		m.mu.Lock()
		if m.state == StateIdle {
			m.state = StateMonitoring
		}
		m.mu.Unlock()
	default:
		result.Optimization = reasoning.OptimizationStatus{
			State:           reasoning.OptimizationTriggered,
			PendingFailures: count,
		}
		if _, err := m.optimize(ctx, "failure_threshold"); err != nil {
			if !errors.Is(err, ErrCooldown) && !errors.Is(err, ErrRunning) {
				log.Error().Err(err).Msg("optimization run failed")
			}
		}
	}
}

// ManualOptimize triggers an optimization run regardless of the failure
// count. The cooldown from a previous run still applies.
func (m *Manager) ManualOptimize(ctx context.Context) (Run, error) {
	return m.optimize(ctx, "manual")
}

// InCooldown reports whether a previous run's cooldown is still active.
func (m *Manager) InCooldown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Now().Before(m.cooldownUntil)
}

// Status returns a snapshot of the manager's externally visible state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:          m.state,
		RecentFailures: m.evaluator.Failures(),
	}
	if m.lastRun != nil {
		run := *m.lastRun
		st.LastRun = &run
	}
	if time.Now().Before(m.cooldownUntil) {
		st.CooldownUntil = m.cooldownUntil
	}
	return st
}

// Runs returns all finalized runs, oldest first.
func (m *Manager) Runs() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, len(m.runs))
	copy(out, m.runs)
	return out
}

// optimize gates a run on cooldown and concurrency, then executes it.
func (m *Manager) optimize(ctx context.Context, trigger string) (Run, error) {
	m.mu.Lock()
	if time.Now().Before(m.cooldownUntil) {
		m.mu.Unlock()
		return Run{}, fmt.Errorf("%w until %s", ErrCooldown, m.cooldownUntil.Format(time.RFC3339))
	}
	if m.state == StateTriggered || m.state == StateTesting {
		m.mu.Unlock()
		return Run{}, ErrRunning
	}
	m.state = StateTriggered
	m.mu.Unlock()

	run := m.execute(ctx, trigger)

	m.mu.Lock()
	m.state = StateIdle
	if m.evaluator.FailureCount() > 0 {
		m.state = StateMonitoring
	}
	m.cooldownUntil = time.Now().Add(m.cfg.Cooldown)
	m.lastRun = &run
	m.runs = append(m.runs, run)
	m.mu.Unlock()

	if m.sink != nil {
		m.sink(run)
	}
	return run, nil
}

// execute drives one run through its steps. The live library is only
// touched at the deploy step; everything before operates on a clone.
func (m *Manager) execute(ctx context.Context, trigger string) Run {
	run := Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	defer func() { run.EndedAt = time.Now().UTC() }()

	log.Info().Str("run", run.ID).Str("trigger", trigger).Msg("optimization run started")

	// Analyze: pick the improvement strategy from the failure pattern.
	failures := m.evaluator.Failures()
	strategy := selectStrategy(failures)
	run.Steps = append(run.Steps, StepAnalyze)

	// Extract: the currently active versions implicated by the failures.
	targets := m.implicated(failures)
	run.Steps = append(run.Steps, StepExtract)
	if len(targets) == 0 {
		run.Outcome = OutcomeManualReviewRequired
		run.Notes = "no active prompt versions implicated by recent failures"
		return run
	}

	// Generate: propose one candidate per target.
	candidates := make(map[string]string, len(targets))
	for _, ver := range targets {
		candidates[key(ver)] = m.generator.Propose(ctx, strategy, failures, ver)
	}
	run.Steps = append(run.Steps, StepGenerate)

	// Test: score the candidates on a staging library against the live
	// baseline over the validation set.
	m.setState(StateTesting)
	staging := m.lib.Clone()
	for _, ver := range targets {
		if _, err := staging.Deploy(ver.Strategy, ver.Variant, candidates[key(ver)]); err != nil {
			run.Outcome = OutcomeManualReviewRequired
			run.Notes = fmt.Sprintf("staging deploy failed: %v", err)
			return run
		}
	}
	run.BaselineScore = m.score(ctx, m.lib)
	run.CandidateScore = m.score(ctx, staging)
	run.Steps = append(run.Steps, StepTest)

	if run.CandidateScore <= run.BaselineScore {
		run.Steps = append(run.Steps, StepFallback)
		run.Outcome = OutcomeManualReviewRequired
		run.Notes = "candidate did not outperform baseline; active prompts unchanged"
		log.Warn().Str("run", run.ID).
			Float64("candidate", run.CandidateScore).Float64("baseline", run.BaselineScore).
			Msg("candidate underperformed, flagging for manual review")
		return run
	}

	// Deploy: swap each candidate into the live library. Deploy keeps a
	// backup lineage, so a partial failure is unwound by rollback.
	deployed := make([]prompts.Version, 0, len(targets))
	for _, ver := range targets {
		v, err := m.lib.Deploy(ver.Strategy, ver.Variant, candidates[key(ver)])
		if err != nil {
			for _, d := range deployed {
				if _, rbErr := m.lib.Rollback(d.Strategy, d.Variant); rbErr != nil {
					log.Error().Err(rbErr).Str("variant", d.Variant).Msg("rollback after failed deploy")
				}
			}
			run.Outcome = OutcomeRolledBack
			run.Notes = fmt.Sprintf("deploy failed: %v", err)
			return run
		}
		deployed = append(deployed, v)
	}
	run.Steps = append(run.Steps, StepDeploy)
	run.Outcome = OutcomeDeployed

	// A deploy clears the failure buffer so the new prompts start from a
	// clean evaluation window.
	m.evaluator.Reset()
	log.Info().Str("run", run.ID).
		Float64("candidate", run.CandidateScore).Float64("baseline", run.BaselineScore).
		Int("prompts", len(deployed)).Msg("optimized prompts deployed")
	return run
}

// implicated picks the active prompt versions to regenerate: the
// self-consistency template for the dominant failing problem type, plus
// the anchoring analytical tree-of-thought variant.
func (m *Manager) implicated(failures []FailureRecord) []prompts.Version {
	counts := make(map[reasoning.ProblemType]int)
	for _, f := range failures {
		counts[f.Type]++
	}
	dominant, max := reasoning.TypeGeneral, 0
	for t, n := range counts {
		if n > max {
			dominant, max = t, n
		}
	}

	var targets []prompts.Version
	if v, ok := m.lib.Active(prompts.StrategySelfConsistency, string(dominant)); ok {
		targets = append(targets, v)
	}
	if v, ok := m.lib.Active(prompts.StrategyTreeOfThought, "analytical"); ok {
		targets = append(targets, v)
	}
	return targets
}

// score runs the validation set through the engine with the given library
// and averages per-problem scores: correctness when an expected answer is
// known, confidence otherwise.
func (m *Manager) score(ctx context.Context, lib *prompts.Library) float64 {
	if len(m.validation) == 0 {
		return 0
	}
	var total float64
	for _, p := range m.validation {
		result := m.engine.SolveWith(ctx, lib, p)
		if p.Expected != "" {
			if !result.Final.Undetermined() && extract.Equal(result.Final.Answer, p.Expected) {
				total += 1.0
			}
			continue
		}
		total += result.Final.Confidence
	}
	return total / float64(len(m.validation))
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func key(v prompts.Version) string {
	return v.Strategy + "/" + v.Variant
}
