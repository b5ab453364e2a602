package reasoning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
)

func TestTreeOfThought_RunsAllVariantsInOrder(t *testing.T) {
	t.Parallel()

	gen := constGen("The answer is 7.")
	tot := NewTreeOfThought(NewRunner(gen, 0, time.Second), gemini.Params{})
	results := tot.Run(context.Background(), testLibrary(t), Problem{Text: "What is 3 + 4?", Type: TypeMath}, newSeq())

	require.Len(t, results, len(TotVariants))
	for i, variant := range TotVariants {
		assert.Equal(t, variant, results[i].Variant)
		assert.Equal(t, "7", results[i].Answer)
	}
	assert.Equal(t, len(TotVariants), gen.callCount())
}

// The structured variants carry a quality bonus over the rest given the
// same response text.
func TestTreeOfThought_VariantBonus(t *testing.T) {
	t.Parallel()

	gen := constGen("The answer is 7.")
	tot := NewTreeOfThought(NewRunner(gen, 0, time.Second), gemini.Params{})
	results := tot.Run(context.Background(), testLibrary(t), Problem{Text: "What is 3 + 4?", Type: TypeMath}, newSeq())

	byVariant := make(map[string]PathResult, len(results))
	for _, r := range results {
		byVariant[r.Variant] = r
	}
	assert.Greater(t, byVariant["analytical"].Quality, byVariant["intuitive"].Quality)
	assert.Greater(t, byVariant["systematic"].Quality, byVariant["creative"].Quality)
}

func TestVariantBonus_NeverRevivesZero(t *testing.T) {
	t.Parallel()

	assert.Zero(t, variantBonus("analytical", 0))
	assert.InDelta(t, 1.0, variantBonus("systematic", 0.95), 1e-9)
	assert.InDelta(t, 0.5, variantBonus("creative", 0.5), 1e-9)
}

func TestTreeOfThought_FailuresKeepTheirSlot(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{respond: func(call int, prompt string) (string, error) {
		if call == 0 {
			return "", &gemini.TransportError{Kind: gemini.FailureServerError, Err: context.DeadlineExceeded}
		}
		return "The answer is 7.", nil
	}}
	tot := NewTreeOfThought(NewRunner(gen, 0, time.Second), gemini.Params{})
	results := tot.Run(context.Background(), testLibrary(t), Problem{Text: "What is 3 + 4?", Type: TypeMath}, newSeq())

	require.Len(t, results, len(TotVariants))
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			assert.Zero(t, r.Quality)
		}
	}
	assert.Equal(t, 1, failed)
}
