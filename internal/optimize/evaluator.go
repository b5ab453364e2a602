package optimize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

// errorKeywords in a raw response flag a failure unless the verdict
// carried an offsetting high-confidence signal.
var errorKeywords = []string{"error", "cannot", "unable", "don't know", "unclear", "invalid"}

// keywordOverride is the confidence above which error vocabulary in the
// reasoning text is ignored; a confident verdict may legitimately discuss
// errors (e.g. code problems).
const keywordOverride = 0.85

// Evaluator classifies completed solves and accumulates failure records.
// It never re-queries the model: classification is pure over its input,
// the only side effect is the buffer append.
type Evaluator struct {
	cfg config.OptimizationConfig

	mu        sync.Mutex
	failures  []FailureRecord
	successes int
}

// NewEvaluator builds an evaluator with the configured thresholds.
func NewEvaluator(cfg config.OptimizationConfig) *Evaluator {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	if cfg.DisagreementThreshold <= 0 {
		cfg.DisagreementThreshold = 0.4
	}
	if cfg.EvaluationWindow <= 0 {
		cfg.EvaluationWindow = 20
	}
	return &Evaluator{cfg: cfg}
}

// Evaluate scores one SolveResult; on failure it appends a FailureRecord
// to the buffer and returns it.
func (e *Evaluator) Evaluate(result reasoning.SolveResult) (FailureRecord, bool) {
	reason, failed := classify(result, e.cfg)
	if !failed {
		e.mu.Lock()
		e.successes++
		e.mu.Unlock()
		return FailureRecord{}, false
	}

	rec := FailureRecord{
		ProblemID:  problemID(result.Problem.Text),
		Problem:    result.Problem.Text,
		Type:       result.Problem.Normalized(),
		Reason:     reason,
		Confidence: result.Final.Confidence,
		At:         time.Now().UTC(),
	}

	e.mu.Lock()
	e.failures = append(e.failures, rec)
	// Rolling window: the buffer never grows past the evaluation window.
	if len(e.failures) > e.cfg.EvaluationWindow {
		e.failures = e.failures[len(e.failures)-e.cfg.EvaluationWindow:]
	}
	e.mu.Unlock()

	log.Warn().Str("reason", string(reason)).Float64("confidence", result.Final.Confidence).
		Str("problem", rec.ProblemID).Msg("solve classified as failure")
	return rec, true
}

// classify applies the failure rules in order of specificity.
func classify(result reasoning.SolveResult, cfg config.OptimizationConfig) (FailureReason, bool) {
	final := result.Final

	if final.Undetermined() {
		return ReasonNoAnswerExtracted, true
	}
	if final.Confidence < cfg.ConfidenceThreshold {
		return ReasonLowConfidence, true
	}
	if final.Confidence < keywordOverride && hasErrorKeywords(final.Sources) {
		return ReasonErrorKeyword, true
	}
	if final.AgreementRatio < cfg.DisagreementThreshold && anyExtracted(final.Sources) {
		return ReasonDisagreement, true
	}
	return "", false
}

// FailureCount returns the current size of the failure buffer.
func (e *Evaluator) FailureCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.failures)
}

// Failures returns a copy of the failure buffer, oldest first.
func (e *Evaluator) Failures() []FailureRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]FailureRecord, len(e.failures))
	copy(out, e.failures)
	return out
}

// Reset clears the failure buffer after a successful deploy.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = e.failures[:0]
}

// Successes returns the count of solves that passed evaluation.
func (e *Evaluator) Successes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.successes
}

func hasErrorKeywords(sources []reasoning.PathResult) bool {
	for _, r := range sources {
		lower := strings.ToLower(r.Raw)
		for _, kw := range errorKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func anyExtracted(sources []reasoning.PathResult) bool {
	for _, r := range sources {
		if r.Extracted {
			return true
		}
	}
	return false
}

func problemID(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:6])
}
