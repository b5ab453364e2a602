package reasoning

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
)

// TotVariants is the fixed Tree-of-Thought path catalog. Result order is
// fixed by this declaration order regardless of completion order.
var TotVariants = [5]string{"analytical", "intuitive", "systematic", "creative", "verification"}

// fallbackTemplate backs a variant whose template is missing from the
// library, which only happens if a deploy removed a variant.
const fallbackTemplate = "Solve this problem step by step and state your final answer clearly:\n\nProblem: {problem}\n"

// TreeOfThought runs the five differently-worded reasoning paths
// concurrently over the same problem.
type TreeOfThought struct {
	runner *Runner
	params gemini.Params
}

// NewTreeOfThought builds the strategy over a shared path runner.
func NewTreeOfThought(runner *Runner, params gemini.Params) *TreeOfThought {
	return &TreeOfThought{runner: runner, params: params}
}

// Run executes all five paths and waits for every one of them. A path
// that fails or times out is recorded as a failed PathResult, not omitted.
func (t *TreeOfThought) Run(ctx context.Context, lib *prompts.Library, problem Problem, seq *atomic.Int64) []PathResult {
	results := make([]PathResult, len(TotVariants))

	var wg sync.WaitGroup
	for i, variant := range TotVariants {
		template := fallbackTemplate
		if v, ok := lib.Active(prompts.StrategyTreeOfThought, variant); ok {
			template = v.Template
		} else {
			log.Warn().Str("variant", variant).Msg("tree-of-thought template missing, using fallback")
		}
		prompt := prompts.Render(template, problem.Text)

		wg.Add(1)
		go func(i int, variant, prompt string) {
			defer wg.Done()
			pr := t.runner.Run(ctx, seq, prompts.StrategyTreeOfThought, variant, prompt, t.params)
			pr.Quality = variantBonus(variant, pr.Quality)
			results[i] = pr
		}(i, variant, prompt)
	}
	wg.Wait()

	return results
}

// variantBonus nudges the structured reasoning styles, which empirically
// produce more checkable work.
func variantBonus(variant string, quality float64) float64 {
	if quality == 0 {
		return 0
	}
	if variant == "analytical" || variant == "systematic" {
		quality += 0.1
	}
	if quality > 1 {
		quality = 1
	}
	return quality
}
