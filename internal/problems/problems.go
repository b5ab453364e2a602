// Package problems loads problem datasets for batch solving and for
// validating candidate prompts during optimization.
package problems

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

// dataset is the on-disk shape of a problem file.
type dataset struct {
	Problems []reasoning.Problem `yaml:"problems"`
}

// Load reads a YAML problem set from disk, preserving file order.
func Load(path string) ([]reasoning.Problem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem set: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML problem set. Problems may carry an optional
// expected answer for scoring; those without one are scored by
// confidence alone.
func Parse(raw []byte) ([]reasoning.Problem, error) {
	var ds dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parse problem set: %w", err)
	}
	if len(ds.Problems) == 0 {
		return nil, fmt.Errorf("problem set is empty")
	}
	for i, p := range ds.Problems {
		if p.Text == "" {
			return nil, fmt.Errorf("problem %d has no text", i+1)
		}
	}
	return ds.Problems, nil
}

// BuiltinValidation is the held-out set used to compare candidate prompts
// against the current baseline when no validation file is configured.
func BuiltinValidation() []reasoning.Problem {
	return []reasoning.Problem{
		{
			Text:     "What is 25% of 80?",
			Type:     reasoning.TypeMath,
			Expected: "20",
		},
		{
			Text:     "If all A are B, and some B are C, can we conclude that all A are C? Answer true or false.",
			Type:     reasoning.TypeLogic,
			Expected: "false",
		},
		{
			Text:     "What is 12 * 8?",
			Type:     reasoning.TypeMath,
			Expected: "96",
		},
	}
}
