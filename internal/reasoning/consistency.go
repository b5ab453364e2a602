package reasoning

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
)

// Prompt variations nudge each sample toward a distinct phrasing of the
// same reasoning without changing the question.
var (
	variationPrefixes = []string{
		"Think step by step: ",
		"Solve this carefully: ",
		"Let's work through this: ",
		"Analyze this problem: ",
		"Consider this question: ",
	}
	variationSuffixes = []string{
		"\n\nShow your reasoning clearly.",
		"\n\nExplain your approach.",
		"\n\nBreak this down step by step.",
		"\n\nProvide a detailed solution.",
		"\n\nWalk through your thinking.",
	}
)

// SelfConsistency samples one canonical prompt N times and majority-votes
// the extracted answers.
type SelfConsistency struct {
	runner  *Runner
	params  gemini.Params
	samples int
}

// NewSelfConsistency builds the strategy with the configured sample count.
func NewSelfConsistency(runner *Runner, params gemini.Params, samples int) *SelfConsistency {
	if samples <= 0 {
		samples = 5
	}
	return &SelfConsistency{runner: runner, params: params, samples: samples}
}

// Run issues all samples concurrently and computes the agreement ratio:
// the largest group of normalized-equal answers divided by the sample
// count. Failed samples stay in the denominator.
func (s *SelfConsistency) Run(ctx context.Context, lib *prompts.Library, problem Problem, seq *atomic.Int64) ConsistencyResult {
	variant := string(problem.Normalized())
	template := fallbackTemplate
	if v, ok := lib.Active(prompts.StrategySelfConsistency, variant); ok {
		template = v.Template
	} else {
		log.Warn().Str("variant", variant).Msg("self-consistency template missing, using fallback")
	}
	base := prompts.Render(template, problem.Text)

	results := make([]PathResult, s.samples)
	var wg sync.WaitGroup
	for i := 0; i < s.samples; i++ {
		prompt := varyPrompt(base, i)
		params := s.params
		params.Temperature = jitterTemperature(s.params.Temperature, i)

		wg.Add(1)
		go func(i int, prompt string, params gemini.Params) {
			defer wg.Done()
			results[i] = s.runner.Run(ctx, seq, prompts.StrategySelfConsistency,
				fmt.Sprintf("sample-%d", i), prompt, params)
		}(i, prompt, params)
	}
	wg.Wait()

	out := ConsistencyResult{Results: results}
	if group, ok := largestGroup(partitionByAnswer(results)); ok {
		out.Majority = group.rep.Answer
		out.MajorityFound = true
		out.AgreementRatio = float64(group.size()) / float64(s.samples)
	}
	return out
}

// varyPrompt returns the base prompt for sample 0, then prefixed and
// suffixed variants for the rest.
func varyPrompt(base string, i int) string {
	switch {
	case i == 0:
		return base
	case i <= len(variationPrefixes):
		return variationPrefixes[i-1] + base
	default:
		return base + variationSuffixes[(i-1)%len(variationSuffixes)]
	}
}

// jitterTemperature spreads sample temperatures around the base value,
// clamped to [0.1, 1.0].
func jitterTemperature(base float64, i int) float64 {
	t := base + float64(i)*0.1 - 0.2
	if t < 0.1 {
		t = 0.1
	}
	if t > 1.0 {
		t = 1.0
	}
	return t
}
