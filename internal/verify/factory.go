package verify

import (
	"fmt"
	"strings"

	"github.com/hallusearch/hallusearch/internal/model"
)

// deepseekBaseURL is the default endpoint for the deepseek provider
const deepseekBaseURL = "https://api.deepseek.com/v1"

// NewVerifier creates a verifier based on configuration. An empty provider
// selects the offline verifier.
func NewVerifier(cfg model.VerifierConfig, maxContextChars int) (Verifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIVerifier(cfg, maxContextChars)

	case "deepseek":
		if cfg.BaseURL == "" {
			cfg.BaseURL = deepseekBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = "deepseek-chat"
		}
		return NewOpenAIVerifier(cfg, maxContextChars)

	case "ollama":
		return NewOllamaVerifier(cfg, maxContextChars)

	case "", "offline":
		return NewOfflineVerifier(), nil

	default:
		return nil, fmt.Errorf("unknown verifier provider: %s (supported: openai, deepseek, ollama, offline)", cfg.Provider)
	}
}
