// Package config provides configuration loading and management for promptpipe.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Gemini       GeminiConfig       `json:"gemini"       mapstructure:"gemini"`
	Reasoning    ReasoningConfig    `json:"reasoning"    mapstructure:"reasoning"`
	Optimization OptimizationConfig `json:"optimization" mapstructure:"optimization"`
	Store        StoreConfig        `json:"store"        mapstructure:"store"`
}

// GeminiConfig describes the model backend and its cost guards.
type GeminiConfig struct {
	Model             string  `json:"model"                mapstructure:"model"`
	Temperature       float64 `json:"temperature"          mapstructure:"temperature"`
	TopP              float64 `json:"top_p"                mapstructure:"top_p"`
	TopK              int     `json:"top_k"                mapstructure:"top_k"`
	MaxTokens         int     `json:"max_tokens"           mapstructure:"max_tokens"`
	CandidateCount    int     `json:"candidate_count"      mapstructure:"candidate_count"`
	RequestsPerMinute int     `json:"requests_per_minute"  mapstructure:"requests_per_minute"`
	MaxDailyRequests  int     `json:"max_daily_requests"   mapstructure:"max_daily_requests"`
}

// ReasoningConfig defines strategy fan-out and combination knobs.
type ReasoningConfig struct {
	ConsistencySamples int           `json:"consistency_samples" mapstructure:"consistency_samples"`
	HighAgreement      float64       `json:"high_agreement"      mapstructure:"high_agreement"`
	RetryBudget        int           `json:"retry_budget"        mapstructure:"retry_budget"`
	PathTimeout        time.Duration `json:"path_timeout"        mapstructure:"path_timeout"`
	ProblemTimeout     time.Duration `json:"problem_timeout"     mapstructure:"problem_timeout"`
}

// OptimizationConfig defines the failure-monitoring feedback loop.
type OptimizationConfig struct {
	Enabled               bool          `json:"enabled"                mapstructure:"enabled"`
	ConfidenceThreshold   float64       `json:"confidence_threshold"   mapstructure:"confidence_threshold"`
	DisagreementThreshold float64       `json:"disagreement_threshold" mapstructure:"disagreement_threshold"`
	FailureThreshold      int           `json:"failure_threshold"      mapstructure:"failure_threshold"`
	EvaluationWindow      int           `json:"evaluation_window"      mapstructure:"evaluation_window"`
	Cooldown              time.Duration `json:"cooldown"               mapstructure:"cooldown"`
	ValidationSet         string        `json:"validation_set"         mapstructure:"validation_set"`
}

// StoreConfig describes the local history database.
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			Model:             "gemini-1.5-flash",
			Temperature:       0.7,
			TopP:              0.9,
			TopK:              40,
			MaxTokens:         2048,
			CandidateCount:    1,
			RequestsPerMinute: 60,
			MaxDailyRequests:  1500,
		},
		Reasoning: ReasoningConfig{
			ConsistencySamples: 5,
			HighAgreement:      0.7,
			RetryBudget:        2,
			PathTimeout:        45 * time.Second,
			ProblemTimeout:     4 * time.Minute,
		},
		Optimization: OptimizationConfig{
			Enabled:               true,
			ConfidenceThreshold:   0.7,
			DisagreementThreshold: 0.4,
			FailureThreshold:      5,
			EvaluationWindow:      20,
			Cooldown:              time.Hour,
		},
		Store: StoreConfig{
			Path: ".promptpipe/promptpipe.db",
		},
	}
}
