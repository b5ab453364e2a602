package optimize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
)

// Generator proposes replacement templates for failing prompts by asking
// the model to act as a prompt engineer over the observed failure pattern.
type Generator struct {
	gen    gemini.Generator
	params gemini.Params
}

// NewGenerator builds a prompt generator over the language-model port.
func NewGenerator(gen gemini.Generator, params gemini.Params) *Generator {
	return &Generator{gen: gen, params: params}
}

// improvement strategies, selected from the dominant failure reason.
const (
	improveConfidence = "confidence_boosting"
	improveResponse   = "response_encouragement"
	improveAccuracy   = "accuracy_improvement"
	improveGeneral    = "general_enhancement"
)

var strategyInstructions = map[string]string{
	improveConfidence: "Make the prompt encourage more confident and decisive responses, ending with a clearly stated final answer.",
	improveResponse:   "Modify the prompt to encourage longer, more detailed responses with explicit instructions to isolate a final answer on its own line.",
	improveAccuracy:   "Enhance the prompt to improve accuracy. Add verification steps and double-checking instructions.",
	improveGeneral:    "Improve the prompt for better clarity, specificity, and effectiveness.",
}

// selectStrategy maps the dominant failure reason to an improvement goal.
func selectStrategy(failures []FailureRecord) string {
	counts := make(map[FailureReason]int)
	for _, f := range failures {
		counts[f.Reason]++
	}
	dominant, max := FailureReason(""), 0
	for reason, n := range counts {
		if n > max {
			dominant, max = reason, n
		}
	}
	switch dominant {
	case ReasonLowConfidence:
		return improveConfidence
	case ReasonNoAnswerExtracted:
		return improveResponse
	case ReasonErrorKeyword, ReasonDisagreement:
		return improveAccuracy
	default:
		return improveGeneral
	}
}

// Propose asks the model for an improved template. When the call fails or
// the candidate does not validate, a deterministic fallback enhancement
// of the original is returned instead.
func (g *Generator) Propose(ctx context.Context, strategy string, failures []FailureRecord, current prompts.Version) string {
	meta := buildMetaPrompt(strategy, failures, current)

	raw, err := g.gen.Generate(ctx, meta, g.params)
	if err != nil {
		log.Warn().Err(err).Str("variant", current.Variant).Msg("prompt generation call failed, using fallback enhancement")
		return fallbackCandidate(current.Template, strategy)
	}

	candidate := cleanCandidate(raw)
	if !validCandidate(candidate, current.Template) {
		log.Warn().Str("variant", current.Variant).Msg("generated prompt failed validation, using fallback enhancement")
		return fallbackCandidate(current.Template, strategy)
	}
	return candidate
}

func buildMetaPrompt(strategy string, failures []FailureRecord, current prompts.Version) string {
	var b strings.Builder
	b.WriteString("You are an expert prompt engineer. Your task is to optimize the following prompt for better performance.\n\n")
	fmt.Fprintf(&b, "CONTEXT: the prompt is the %q variant of the %q reasoning strategy.\n", current.Variant, current.Strategy)
	fmt.Fprintf(&b, "OPTIMIZATION GOAL: %s\n\n", strategyInstructions[strategy])

	b.WriteString("OBSERVED FAILURES:\n")
	for i, f := range failures {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s problem failed with %s (confidence %.2f)\n", f.Type, f.Reason, f.Confidence)
	}

	fmt.Fprintf(&b, "\nORIGINAL PROMPT:\n%s\n\n", current.Template)
	b.WriteString("Provide an improved version of this prompt that addresses the optimization goal. ")
	b.WriteString("Keep the core intent and structure, and keep the {problem} placeholder exactly as written. ")
	b.WriteString("Return only the optimized prompt without explanations.\n\nOPTIMIZED PROMPT:")
	return b.String()
}

// cleanCandidate strips code fences and surrounding whitespace from the
// model's reply.
func cleanCandidate(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// validCandidate rejects degenerate candidates: too short, runaway
// growth, missing the problem placeholder, or no prompt-like structure.
func validCandidate(candidate, original string) bool {
	if len(candidate) < 20 {
		return false
	}
	if len(candidate) > 3*len(original) {
		return false
	}
	if !strings.Contains(candidate, "{problem}") {
		return false
	}
	return strings.ContainsAny(candidate, ":?")
}

var fallbackSuffixes = map[string]string{
	improveConfidence: "\nBe decisive: end with a single line of the form \"Final answer: <answer>\".",
	improveResponse:   "\nExplain your reasoning step by step, then state the final answer on its own line.",
	improveAccuracy:   "\nDouble-check your answer before responding and verify the solution is correct.",
	improveGeneral:    "\nProvide a clear and accurate response with an explicit final answer.",
}

// fallbackCandidate deterministically enhances the original template when
// model-driven generation is unavailable or invalid.
func fallbackCandidate(original, strategy string) string {
	suffix, ok := fallbackSuffixes[strategy]
	if !ok {
		suffix = fallbackSuffixes[improveGeneral]
	}
	if strings.HasSuffix(strings.TrimSpace(original), strings.TrimSpace(suffix)) {
		return original
	}
	return strings.TrimRight(original, "\n") + "\n" + strings.TrimLeft(suffix, "\n") + "\n"
}
