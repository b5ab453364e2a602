package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Normalize maps an answer onto its comparison form: lower-cased,
// whitespace-collapsed, with surrounding punctuation removed.
func Normalize(answer string) string {
	s := strings.ToLower(strings.TrimSpace(answer))
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, ".,;:!?\"'`* ")
	return s
}

// Equal reports whether two answers agree under the normalized equality
// relation. When both sides parse as numbers they are compared as values,
// so "120", "120.0" and "$120" all agree.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	va, okA := NumericValue(na)
	vb, okB := NumericValue(nb)
	if okA && okB {
		return math.Abs(va-vb) < 1e-9
	}
	return false
}

// NumericValue parses a normalized answer as a number, tolerating
// currency prefixes, percent suffixes and thousands separators.
func NumericValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
