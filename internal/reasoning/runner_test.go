package reasoning

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/extract"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
)

// fakeGen scripts the language-model port. respond is called with the
// prompt under the fake's lock.
type fakeGen struct {
	mu      sync.Mutex
	calls   int
	respond func(call int, prompt string) (string, error)
}

func (f *fakeGen) Generate(ctx context.Context, prompt string, p gemini.Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	return f.respond(call, prompt)
}

func (f *fakeGen) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newSeq() *atomic.Int64 { return new(atomic.Int64) }

func constGen(raw string) *fakeGen {
	return &fakeGen{respond: func(int, string) (string, error) { return raw, nil }}
}

func errGen(kind gemini.FailureKind) *fakeGen {
	return &fakeGen{respond: func(int, string) (string, error) {
		return "", &gemini.TransportError{Kind: kind, Err: errors.New("scripted failure")}
	}}
}

func TestRunner_Success(t *testing.T) {
	t.Parallel()

	r := NewRunner(constGen("First, compute the product.\nThe answer is 96."), 0, time.Second)
	pr := r.Run(context.Background(), newSeq(), "tree_of_thought", "analytical", "prompt", gemini.Params{})

	require.False(t, pr.Failed())
	assert.Equal(t, "96", pr.Answer)
	assert.True(t, pr.Extracted)
	assert.Greater(t, pr.Quality, 0.0)
	assert.Equal(t, 1, pr.Seq)
}

func TestRunner_FailureBecomesResult(t *testing.T) {
	t.Parallel()

	gen := errGen(gemini.FailureTimeout)
	r := NewRunner(gen, 2, time.Second)
	pr := r.Run(context.Background(), newSeq(), "tree_of_thought", "intuitive", "prompt", gemini.Params{})

	assert.True(t, pr.Failed())
	assert.Equal(t, gemini.FailureTimeout, pr.Failure)
	assert.Zero(t, pr.Quality)
	// Timeouts are not retryable: exactly one call.
	assert.Equal(t, 1, gen.callCount())
}

func TestRunner_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{respond: func(call int, prompt string) (string, error) {
		if call == 0 {
			return "", &gemini.TransportError{Kind: gemini.FailureRateLimited, Err: errors.New("429")}
		}
		return "The answer is 20.", nil
	}}
	r := NewRunner(gen, 2, time.Second)
	pr := r.Run(context.Background(), newSeq(), "self_consistency", "sample-0", "prompt", gemini.Params{})

	require.False(t, pr.Failed())
	assert.Equal(t, "20", pr.Answer)
	assert.Equal(t, 2, gen.callCount())
}

func TestRunner_RetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	gen := errGen(gemini.FailureServerError)
	r := NewRunner(gen, 1, time.Second)
	pr := r.Run(context.Background(), newSeq(), "self_consistency", "sample-0", "prompt", gemini.Params{})

	assert.True(t, pr.Failed())
	assert.Equal(t, gemini.FailureServerError, pr.Failure)
	assert.Equal(t, 2, gen.callCount())
}

func TestRunner_SeqOrdersCompletions(t *testing.T) {
	t.Parallel()

	r := NewRunner(constGen("The answer is 1."), 0, time.Second)
	seq := newSeq()
	first := r.Run(context.Background(), seq, "s", "a", "p", gemini.Params{})
	second := r.Run(context.Background(), seq, "s", "b", "p", gemini.Params{})
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)
}

func TestRunner_SeqCountersAreIndependent(t *testing.T) {
	t.Parallel()

	// Interleaved calls against distinct counters must not observe each
	// other, so the tie-break stays correct when solves overlap.
	r := NewRunner(constGen("The answer is 1."), 0, time.Second)
	seqA, seqB := newSeq(), newSeq()

	b1 := r.Run(context.Background(), seqB, "s", "sample-0", "p", gemini.Params{})
	a1 := r.Run(context.Background(), seqA, "s", "sample-0", "p", gemini.Params{})
	b2 := r.Run(context.Background(), seqB, "s", "sample-1", "p", gemini.Params{})

	assert.Equal(t, 1, b1.Seq)
	assert.Equal(t, 1, a1.Seq)
	assert.Equal(t, 2, b2.Seq)
	assert.Greater(t, b2.Seq, b1.Seq)
}

func TestScoreQuality(t *testing.T) {
	t.Parallel()

	structured := strings.Join([]string{
		"Let me solve this step by step.",
		"1. First, identify the values.",
		"2. Multiply them together carefully and confirm the product.",
		"3. Therefore the product is definitely correct after checking.",
		"The answer is 96.",
	}, "\n")
	res := extract.Extract(structured)
	high := scoreQuality(structured, res)

	terse := "96"
	low := scoreQuality(terse, extract.Extract(terse))

	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 1.0)
	assert.GreaterOrEqual(t, low, 0.0)
}

func TestConfidenceSignal_Bounded(t *testing.T) {
	t.Parallel()

	boost := confidenceSignal("this is definitely, certainly, clearly correct; to verify, confirm it")
	assert.LessOrEqual(t, boost, 0.2)

	hedge := confidenceSignal("it might be, maybe, possibly this, perhaps")
	assert.Zero(t, hedge)
}
