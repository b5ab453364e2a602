package reasoning

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/extract"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/gemini"
)

// Runner executes one prompt through the language-model port and the
// answer extractor. Transport failures never escape: they degrade to a
// failed PathResult so one bad path cannot abort its siblings.
type Runner struct {
	gen         gemini.Generator
	retryBudget int
	pathTimeout time.Duration
}

// NewRunner builds a path runner over the given generator.
func NewRunner(gen gemini.Generator, retryBudget int, pathTimeout time.Duration) *Runner {
	if pathTimeout <= 0 {
		pathTimeout = 45 * time.Second
	}
	return &Runner{gen: gen, retryBudget: retryBudget, pathTimeout: pathTimeout}
}

// Run issues one guarded generate call and returns a PathResult on every
// exit path: success, transport error, or timeout. seq is the solve-local
// completion counter; concurrent solves each carry their own so the
// completion-order tie-break never observes a sibling solve.
func (r *Runner) Run(ctx context.Context, seq *atomic.Int64, strategy, variant, prompt string, p gemini.Params) PathResult {
	start := time.Now()
	raw, err := r.generate(ctx, prompt, p)
	latency := time.Since(start)
	seqNo := int(seq.Add(1))

	if err != nil {
		kind := gemini.KindOf(err)
		if kind == "" {
			kind = gemini.FailureServerError
		}
		log.Debug().Str("strategy", strategy).Str("variant", variant).
			Str("failure", string(kind)).Dur("latency", latency).Msg("path failed")
		return PathResult{
			Strategy: strategy,
			Variant:  variant,
			Quality:  0,
			Latency:  latency,
			Failure:  kind,
			Seq:      seqNo,
		}
	}

	res := extract.Extract(raw)
	pr := PathResult{
		Strategy:  strategy,
		Variant:   variant,
		Raw:       raw,
		Answer:    res.Answer,
		Extracted: res.Extracted,
		Latency:   latency,
		Seq:       seqNo,
	}
	pr.Quality = scoreQuality(raw, res)
	log.Debug().Str("strategy", strategy).Str("variant", variant).
		Bool("extracted", pr.Extracted).Float64("quality", pr.Quality).
		Dur("latency", latency).Msg("path complete")
	return pr
}

// generate retries retryable transport failures within the fixed budget.
func (r *Runner) generate(ctx context.Context, prompt string, p gemini.Params) (string, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.pathTimeout)
		raw, err := r.gen.Generate(callCtx, prompt, p)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var te *gemini.TransportError
		if !errors.As(err, &te) || !te.Retryable() || attempt >= r.retryBudget {
			return "", err
		}
		if ctx.Err() != nil {
			return "", err
		}
		// Brief linear backoff before the retry.
		select {
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		case <-ctx.Done():
			return "", lastErr
		}
	}
}

var stepRe = regexp.MustCompile(`(?m)^\s*\d+[.)]`)

var structureWords = []string{"step", "first", "second", "therefore", "because", "since"}

// scoreQuality assigns the shallow heuristic quality score: presence of a
// final answer, length band, and reasoning structure. Advisory input to
// arbitration, not a correctness guarantee.
func scoreQuality(raw string, res extract.Result) float64 {
	score := 0.0

	length := len(raw)
	switch {
	case length >= 100 && length <= 2000:
		score += 0.3
	case length > 50:
		score += 0.15
	}

	steps := len(stepRe.FindAllString(raw, -1))
	switch {
	case steps >= 3 && steps <= 10:
		score += 0.3
	case steps >= 2:
		score += 0.15
	}

	if res.Extracted {
		score += 0.2
	}

	lower := strings.ToLower(raw)
	for _, w := range structureWords {
		if strings.Contains(lower, w) {
			score += 0.1
			break
		}
	}

	score += confidenceSignal(lower)

	if score > 1 {
		score = 1
	}
	return score
}

var (
	certaintyWords    = []string{"definitely", "certainly", "clearly", "obviously", "confident"}
	uncertaintyWords  = []string{"might", "maybe", "possibly", "perhaps", "could be", "uncertain"}
	verificationWords = []string{"to verify", "double-check", "confirm", "validate"}
)

// confidenceSignal folds the response's certainty vocabulary into the
// quality score, bounded to [0, 0.2].
func confidenceSignal(lower string) float64 {
	signal := 0.0
	for _, w := range certaintyWords {
		if strings.Contains(lower, w) {
			signal += 0.1
		}
	}
	for _, w := range uncertaintyWords {
		if strings.Contains(lower, w) {
			signal -= 0.05
		}
	}
	for _, w := range verificationWords {
		if strings.Contains(lower, w) {
			signal += 0.1
		}
	}
	if signal < 0 {
		return 0
	}
	if signal > 0.2 {
		return 0.2
	}
	return signal
}
