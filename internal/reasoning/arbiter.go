package reasoning

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
)

// Arbiter merges the two strategies' results into one FinalAnswer. The
// secondary "AI arbitration" call happens only when agreement is low.
type Arbiter struct {
	gen       gemini.Generator
	params    gemini.Params
	threshold float64
}

// arbitrationMargin keeps an arbitrated confidence strictly below the
// high-agreement threshold: an escalated verdict is never reported as
// certain as a consensus one.
const arbitrationMargin = 0.05

// NewArbiter builds the arbitration engine. threshold is the
// high-agreement cutoff over non-absent results.
func NewArbiter(gen gemini.Generator, params gemini.Params, threshold float64) *Arbiter {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}
	return &Arbiter{gen: gen, params: params, threshold: threshold}
}

// Arbitrate reconciles the Tree-of-Thought results and the
// Self-Consistency samples into a single verdict.
func (a *Arbiter) Arbitrate(ctx context.Context, problem Problem, tot []PathResult, cons ConsistencyResult) FinalAnswer {
	all := make([]PathResult, 0, len(tot)+len(cons.Results))
	all = append(all, tot...)
	all = append(all, cons.Results...)

	groups := partitionByAnswer(all)
	nonAbsent := 0
	for _, g := range groups {
		nonAbsent += g.size()
	}

	// Every result came back absent: terminal sentinel outcome.
	if nonAbsent == 0 {
		return FinalAnswer{
			Answer:  AnswerUndetermined,
			Method:  "undetermined",
			Sources: all,
		}
	}

	best, _ := largestGroup(groups)
	ratio := float64(best.size()) / float64(nonAbsent)

	if ratio >= a.threshold {
		confidence := 0.7*ratio + 0.3*best.avgQuality()
		if confidence > 1 {
			confidence = 1
		}
		return FinalAnswer{
			Answer:         best.rep.Answer,
			Confidence:     confidence,
			AgreementRatio: ratio,
			Method:         "high_agreement",
			Sources:        all,
		}
	}

	return a.escalate(ctx, problem, groups, best, ratio, nonAbsent, all)
}

// escalate issues the single arbitration call and caps its confidence
// below the high-agreement threshold.
func (a *Arbiter) escalate(ctx context.Context, problem Problem, groups []answerGroup, best answerGroup, ratio float64, nonAbsent int, all []PathResult) FinalAnswer {
	ceiling := a.threshold - arbitrationMargin

	prompt := a.arbitrationPrompt(problem, groups, nonAbsent)
	raw, err := a.gen.Generate(ctx, prompt, a.params)
	if err != nil {
		// Fall back to the largest group with reduced confidence.
		log.Warn().Err(err).Msg("arbitration call failed, falling back to largest group")
		confidence := ratio * 0.8
		if confidence > ceiling {
			confidence = ceiling
		}
		return FinalAnswer{
			Answer:          best.rep.Answer,
			Confidence:      confidence,
			AgreementRatio:  ratio,
			ArbitrationUsed: true,
			Method:          "arbitration_fallback",
			Sources:         all,
		}
	}

	selected, confidence := parseArbitration(raw, groups)
	if selected == "" {
		selected = best.rep.Answer
	}
	if confidence > ceiling {
		confidence = ceiling
	}
	return FinalAnswer{
		Answer:          selected,
		Confidence:      confidence,
		AgreementRatio:  ratio,
		ArbitrationUsed: true,
		Method:          "ai_arbitration",
		Sources:         all,
	}
}

func (a *Arbiter) arbitrationPrompt(problem Problem, groups []answerGroup, nonAbsent int) string {
	var b strings.Builder
	b.WriteString("Several independent reasoning attempts produced different answers to this problem.\n\n")
	fmt.Fprintf(&b, "Problem: %s\n\nCandidate answers:\n", problem.Text)
	for i, g := range groups {
		fmt.Fprintf(&b, "%d. %q (supported by %d of %d attempts)\n", i+1, g.rep.Answer, g.size(), nonAbsent)
		if excerpt := reasoningExcerpt(g.rep.Raw); excerpt != "" {
			fmt.Fprintf(&b, "   Reasoning excerpt: %s\n", excerpt)
		}
	}
	b.WriteString(`
Analyze the candidates and choose the most likely correct final answer.
Consider which reasoning is more sound, which answer is more plausible,
and whether any candidate contains an obvious error.

Respond with:
SELECTED: [candidate number]
CONFIDENCE: [0.0 to 1.0]
REASONING: [brief explanation]
`)
	return b.String()
}

func reasoningExcerpt(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 300 {
		raw = raw[:300] + "..."
	}
	return strings.ReplaceAll(raw, "\n", " ")
}

var (
	selectedRe   = regexp.MustCompile(`(?i)SELECTED:\s*\[?(\d+)`)
	confidenceRe = regexp.MustCompile(`(?i)CONFIDENCE:\s*\[?([0-9]*\.?[0-9]+)`)
)

// parseArbitration reads the SELECTED/CONFIDENCE response format. An
// unparsable selection returns "", letting the caller fall back to the
// largest group; an unparsable confidence defaults to 0.6.
func parseArbitration(raw string, groups []answerGroup) (string, float64) {
	selected := ""
	if m := selectedRe.FindStringSubmatch(raw); m != nil {
		if idx, err := strconv.Atoi(m[1]); err == nil && idx >= 1 && idx <= len(groups) {
			selected = groups[idx-1].rep.Answer
		}
	}
	confidence := 0.6
	if m := confidenceRe.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 1 {
			confidence = v
		}
	}
	return selected, confidence
}
