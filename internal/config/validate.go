package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

// Fields whose YAML form is a Go duration string ("45s", "1h"). The
// schema only sees strings, so parseability is checked here.
var durationFields = map[string][]string{
	"reasoning":    {"path_timeout", "problem_timeout"},
	"optimization": {"cooldown"},
}

// ValidateSettings checks raw settings before they are unmarshalled:
// shape and ranges against the embedded JSON schema, then the semantic
// rules the schema cannot express.
func ValidateSettings(settings map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(settings),
	)
	if err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}

	var errs []string
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	errs = append(errs, semanticErrors(settings)...)
	if len(errs) == 0 {
		return nil
	}
	sort.Strings(errs)
	return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
}

func semanticErrors(settings map[string]any) []string {
	var errs []string

	for section, fields := range durationFields {
		for _, field := range fields {
			raw, ok := stringAt(settings, section, field)
			if !ok {
				continue
			}
			d, err := time.ParseDuration(raw)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s.%s: %q is not a duration", section, field, raw))
				continue
			}
			if d <= 0 {
				errs = append(errs, fmt.Sprintf("%s.%s: must be positive", section, field))
			}
		}
	}

	threshold, hasThreshold := intAt(settings, "optimization", "failure_threshold")
	window, hasWindow := intAt(settings, "optimization", "evaluation_window")
	if hasThreshold && hasWindow && threshold > window {
		errs = append(errs, fmt.Sprintf(
			"optimization.failure_threshold (%d) exceeds optimization.evaluation_window (%d): optimization could never trigger",
			threshold, window))
	}

	return errs
}

func stringAt(settings map[string]any, section, field string) (string, bool) {
	sec, ok := settings[section].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := sec[field].(string)
	return s, ok
}

func intAt(settings map[string]any, section, field string) (int, bool) {
	sec, ok := settings[section].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := sec[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
