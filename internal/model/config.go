package model

import (
	"runtime"
	"time"
)

// Config holds the full runtime configuration
type Config struct {
	Labeling    LabelingConfig    `yaml:"labeling" mapstructure:"labeling"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Verifier    VerifierConfig    `yaml:"verifier" mapstructure:"verifier"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// LabelingConfig controls statement splitting and span aggregation
type LabelingConfig struct {
	HardThreshold     float64 `yaml:"hard_threshold" mapstructure:"hard_threshold"`           // Probability cutoff for hard spans
	MaxItemsPerSample int     `yaml:"max_items_per_sample" mapstructure:"max_items_per_sample"` // Cap on splitter output
	CombinePolicy     string  `yaml:"combine_policy" mapstructure:"combine_policy"`           // max, mean, or min
}

// RetrievalConfig controls evidence retrieval
type RetrievalConfig struct {
	SearchAPIKey    string  `yaml:"search_api_key,omitempty" mapstructure:"search_api_key"`
	SearchEngineID  string  `yaml:"search_engine_id,omitempty" mapstructure:"search_engine_id"`
	QAEvidenceCount int     `yaml:"qa_evidence_count" mapstructure:"qa_evidence_count"` // Question-derived contexts blended into answer statements
	MaxContextChars int     `yaml:"max_context_chars" mapstructure:"max_context_chars"` // Truncation limit for retrieved page text
	RatePerSecond   float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`     // Per-domain page fetch rate
	RateBurst       int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// VerifierConfig controls the statement verifier
type VerifierConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, deepseek, ollama, offline
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// HTTPConfig controls outbound HTTP behavior
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls context caching
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers          int `yaml:"workers" mapstructure:"workers"`                     // Records processed in parallel
	StatementWorkers int `yaml:"statement_workers" mapstructure:"statement_workers"` // Retrieve/verify fan-out per record
}

// OutputConfig controls output rendering
type OutputConfig struct {
	Verbose      bool `yaml:"verbose" mapstructure:"verbose"`
	WithVerdicts bool `yaml:"with_verdicts" mapstructure:"with_verdicts"` // Include per-statement verifications in output records
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Labeling: LabelingConfig{
			HardThreshold:     0.5,
			MaxItemsPerSample: 30,
			CombinePolicy:     "max",
		},
		Retrieval: RetrievalConfig{
			QAEvidenceCount: 2,
			MaxContextChars: 2000,
			RatePerSecond:   2,
			RateBurst:       5,
		},
		Verifier: VerifierConfig{
			Provider:  "",
			Model:     "",
			Timeout:   60,
			MaxTokens: 1000,
		},
		HTTP: HTTPConfig{
			Timeout:      10 * time.Second,
			UserAgent:    "HalluSearch/0.1 (+https://github.com/hallusearch/hallusearch)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:          runtime.NumCPU(),
			StatementWorkers: 4,
		},
		Output: OutputConfig{},
	}
}
