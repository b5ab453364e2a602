// Package optimize implements the monitoring-and-optimization feedback
// loop: failure accumulation, prompt regeneration, A/B validation, and
// deploy-or-rollback of prompt versions.
package optimize

import (
	"time"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

// FailureReason classifies why a solve was judged a failure.
type FailureReason string

const (
	ReasonLowConfidence     FailureReason = "low_confidence"
	ReasonNoAnswerExtracted FailureReason = "no_answer_extracted"
	ReasonErrorKeyword      FailureReason = "error_keyword"
	ReasonDisagreement      FailureReason = "disagreement"
)

// FailureRecord is one entry in the failure accumulation buffer.
type FailureRecord struct {
	ProblemID  string                `json:"problem_id"`
	Problem    string                `json:"problem"`
	Type       reasoning.ProblemType `json:"type"`
	Reason     FailureReason         `json:"reason"`
	Confidence float64               `json:"confidence"`
	At         time.Time             `json:"at"`
}

// State is the optimization manager's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateMonitoring State = "monitoring"
	StateTriggered  State = "triggered"
	StateTesting    State = "testing"
)

// Step names the ordered stages of one optimization run.
type Step string

const (
	StepAnalyze  Step = "analyze"
	StepExtract  Step = "extract"
	StepGenerate Step = "generate"
	StepTest     Step = "test"
	StepDeploy   Step = "deploy"
	StepFallback Step = "fallback"
)

// Outcome is the terminal result of an optimization run. A run never
// transitions out of its outcome once it is set.
type Outcome string

const (
	OutcomeDeployed             Outcome = "deployed"
	OutcomeRolledBack           Outcome = "rolled_back"
	OutcomeManualReviewRequired Outcome = "manual_review_required"
)

// Run records one optimization attempt; immutable once finalized.
type Run struct {
	ID             string    `json:"id"`
	Trigger        string    `json:"trigger"`
	Steps          []Step    `json:"steps_completed"`
	Outcome        Outcome   `json:"outcome"`
	CandidateScore float64   `json:"candidate_score"`
	BaselineScore  float64   `json:"baseline_score"`
	Notes          string    `json:"notes,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// Status is the externally visible optimization state.
type Status struct {
	State          State           `json:"state"`
	RecentFailures []FailureRecord `json:"recent_failures"`
	LastRun        *Run            `json:"last_run,omitempty"`
	CooldownUntil  time.Time       `json:"cooldown_until,omitempty"`
}
