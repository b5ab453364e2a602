// Package reasoning implements the multi-path reasoning engine: concurrent
// Tree-of-Thought and Self-Consistency strategies over a language-model
// port, reconciled into one answer with a confidence score.
package reasoning

import (
	"time"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
)

// ProblemType categorizes a problem for prompt selection.
type ProblemType string

const (
	TypeMath    ProblemType = "math"
	TypeLogic   ProblemType = "logic"
	TypeCode    ProblemType = "code"
	TypeGeneral ProblemType = "general"
)

// Difficulty is an optional problem annotation.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Problem is one immutable input to the engine. Expected is set only on
// validation-set problems used by the optimization manager.
type Problem struct {
	Text       string      `json:"text"       yaml:"text"`
	Type       ProblemType `json:"type"       yaml:"type"`
	Difficulty Difficulty  `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Expected   string      `json:"expected,omitempty"   yaml:"expected,omitempty"`
}

// Normalized returns the problem type with unknown values mapped to general.
func (p Problem) Normalized() ProblemType {
	switch p.Type {
	case TypeMath, TypeLogic, TypeCode:
		return p.Type
	default:
		return TypeGeneral
	}
}

// PathResult is the outcome of one reasoning path or sample. It is
// immutable after creation and owned by the strategy that produced it
// until arbitration consumes it.
type PathResult struct {
	Strategy  string             `json:"strategy"`
	Variant   string             `json:"variant"`
	Raw       string             `json:"raw,omitempty"`
	Answer    string             `json:"answer,omitempty"`
	Extracted bool               `json:"extracted"`
	Quality   float64            `json:"quality"`
	Latency   time.Duration      `json:"latency"`
	Failure   gemini.FailureKind `json:"failure,omitempty"`
	// Seq is the global completion order of this path within its solve,
	// used as the deterministic tie-break in majority voting.
	Seq int `json:"seq"`
}

// Failed reports whether the path degraded to a transport failure.
func (r PathResult) Failed() bool { return r.Failure != "" }

// AnswerUndetermined is the sentinel answer returned when no path of any
// strategy extracted anything. It is a terminal outcome, not an error.
const AnswerUndetermined = "unable to determine"

// FinalAnswer is the arbitration engine's verdict.
type FinalAnswer struct {
	Answer          string       `json:"answer"`
	Confidence      float64      `json:"confidence"`
	AgreementRatio  float64      `json:"agreement_ratio"`
	ArbitrationUsed bool         `json:"arbitration_used"`
	Method          string       `json:"method"`
	Sources         []PathResult `json:"sources"`
}

// Undetermined reports whether the verdict is the sentinel outcome.
func (f FinalAnswer) Undetermined() bool { return f.Answer == AnswerUndetermined }

// OptimizationState mirrors the optimization manager's view of a solve.
type OptimizationState string

const (
	OptimizationOK         OptimizationState = "ok"
	OptimizationMonitoring OptimizationState = "monitoring"
	OptimizationTriggered  OptimizationState = "triggered"
)

// OptimizationStatus is attached to a SolveResult after evaluation.
type OptimizationStatus struct {
	State           OptimizationState `json:"state"`
	PendingFailures int               `json:"pending_failures,omitempty"`
}

// SolveResult is the terminal record returned to the caller.
type SolveResult struct {
	Problem      Problem            `json:"problem"`
	Final        FinalAnswer        `json:"final_answer"`
	Elapsed      time.Duration      `json:"elapsed"`
	Optimization OptimizationStatus `json:"optimization"`
	// Diagnostic explains a degraded outcome, e.g. total transport failure.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// ConsistencyResult is the Self-Consistency strategy's summary.
type ConsistencyResult struct {
	Results        []PathResult `json:"results"`
	Majority       string       `json:"majority"`
	MajorityFound  bool         `json:"majority_found"`
	AgreementRatio float64      `json:"agreement_ratio"`
}
