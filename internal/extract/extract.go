// Package extract isolates a final answer from free-form model output.
//
// Extraction applies an ordered table of pattern tiers and returns the
// first tier that produces a valid token; tiers never blend. The package
// is pure: no I/O, no clocks, deterministic for any input.
package extract

import (
	"regexp"
	"strings"
)

// Result is the outcome of extracting an answer from one response.
type Result struct {
	Answer    string
	Extracted bool
	// Confidence is the heuristic trust in the extraction itself, not in
	// the answer's correctness.
	Confidence float64
}

const (
	// maxAnswerLen rejects matches where the model echoed its whole
	// explanation instead of isolating an answer.
	maxAnswerLen = 120
	// minContentLen is the non-trivial-content floor for the last-line
	// fallback.
	minContentLen = 3
)

// tier is one row of the extraction policy table. Rows are tried in
// order; a row matches when its pattern finds a valid token.
type tier struct {
	name  string
	trust float64
	match func(text string) (string, bool)
}

var (
	explicitRe   = regexp.MustCompile(`(?im)\b(?:final\s+answer|answer|solution|result|conclusion)\s*(?:is|:|=)\s*(.+)$`)
	equationRe   = regexp.MustCompile(`=\s*([^=]+?)\s*$`)
	numericRe    = regexp.MustCompile(`^[$€£]?-?\d[\d,]*(?:\.\d+)?%?$`)
	symbolOnlyRe = regexp.MustCompile(`^[^\p{L}\p{N}]+$`)
)

// tiers is the ordered extraction policy: explicit answer phrasing first,
// then a trailing equality, then a standalone token on the final line.
var tiers = []tier{
	{name: "explicit", trust: 0.9, match: matchExplicit},
	{name: "equation", trust: 0.7, match: matchEquation},
	{name: "standalone", trust: 0.55, match: matchStandalone},
}

// Extract parses one model response into a normalized answer and a
// heuristic confidence hint. A zero Result with Extracted=false means no
// tier and no fallback produced anything usable.
func Extract(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{}
	}

	for _, t := range tiers {
		token, ok := t.match(text)
		if !ok {
			continue
		}
		token = tidy(token)
		if validToken(token) {
			return Result{Answer: token, Extracted: true, Confidence: t.trust}
		}
	}

	// Last resort: the final line with non-trivial content.
	if line, ok := lastContentLine(text); ok {
		return Result{Answer: line, Extracted: true, Confidence: 0.3}
	}
	return Result{}
}

// matchExplicit finds "the answer is X" / "final answer: X" phrasing,
// preferring the last occurrence.
func matchExplicit(text string) (string, bool) {
	matches := explicitRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1][1], true
}

// matchEquation finds a trailing "= X" on the final non-empty line.
func matchEquation(text string) (string, bool) {
	line, ok := lastLine(text)
	if !ok {
		return "", false
	}
	m := equationRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// matchStandalone accepts a bare number or a single short token on the
// final non-empty line.
func matchStandalone(text string) (string, bool) {
	line, ok := lastLine(text)
	if !ok {
		return "", false
	}
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	if numericRe.MatchString(line) {
		return line, true
	}
	if !strings.ContainsAny(line, " \t") && len(line) <= 20 {
		return line, true
	}
	return "", false
}

func validToken(token string) bool {
	if token == "" || len(token) > maxAnswerLen {
		return false
	}
	return !symbolOnlyRe.MatchString(token)
}

// tidy trims a matched token down to its first sentence and strips
// markdown emphasis.
func tidy(token string) string {
	token = strings.TrimSpace(token)
	if i := strings.IndexByte(token, '\n'); i >= 0 {
		token = token[:i]
	}
	// Cut at a sentence boundary, keeping decimal points intact.
	for i := 0; i < len(token); i++ {
		if token[i] != '.' {
			continue
		}
		if i+1 == len(token) || token[i+1] == ' ' {
			token = token[:i]
			break
		}
	}
	token = strings.Trim(token, "*_` ")
	return strings.TrimSpace(token)
}

func lastLine(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return line, true
		}
	}
	return "", false
}

func lastContentLine(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if len(line) < minContentLen || symbolOnlyRe.MatchString(line) {
			continue
		}
		if len(line) > maxAnswerLen {
			line = strings.TrimSpace(line[:maxAnswerLen])
		}
		return line, true
	}
	return "", false
}
