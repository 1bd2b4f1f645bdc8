package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
)

// OpenAIVerifier verifies statements through an OpenAI-compatible chat
// completions API. A custom BaseURL selects compatible backends such as
// DeepSeek.
type OpenAIVerifier struct {
	client          *openai.Client
	config          model.VerifierConfig
	maxContextChars int
}

// NewOpenAIVerifier creates a new OpenAI-compatible verifier
func NewOpenAIVerifier(cfg model.VerifierConfig, maxContextChars int) (*OpenAIVerifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for provider %q", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIVerifier{
		client:          openai.NewClientWithConfig(clientConfig),
		config:          cfg,
		maxContextChars: maxContextChars,
	}, nil
}

// Name returns the provider name
func (v *OpenAIVerifier) Name() string {
	if v.config.Provider != "" {
		return v.config.Provider
	}
	return "openai"
}

// Verify compares the statement and anchor against the retrieved context.
// An empty context or any API failure degrades to a neutral verification.
func (v *OpenAIVerifier) Verify(ctx context.Context, statement, anchor, evidence string) (model.Verification, error) {
	n := len(text.Tokenize(anchor))
	if strings.TrimSpace(evidence) == "" {
		// No evidence to judge against: conservative 0.5 per token
		return Neutral(statement, n, neutralProb), nil
	}

	mdl := v.config.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}

	maxTokens := v.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	timeout := time.Duration(v.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := v.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(statement, anchor, evidence, v.maxContextChars),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return Neutral(statement, n, neutralProb), nil
	}
	if len(resp.Choices) == 0 {
		return Neutral(statement, n, neutralProb), nil
	}

	return ParseResponse(statement, strings.TrimSpace(resp.Choices[0].Message.Content), n), nil
}
