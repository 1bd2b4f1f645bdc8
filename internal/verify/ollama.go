package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
)

// OllamaVerifier verifies statements through a local Ollama instance
type OllamaVerifier struct {
	baseURL         string
	httpClient      *http.Client
	config          model.VerifierConfig
	maxContextChars int
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaVerifier creates a new Ollama verifier
func NewOllamaVerifier(cfg model.VerifierConfig, maxContextChars int) (*OllamaVerifier, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second // local models can be slow
	}

	return &OllamaVerifier{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		config:          cfg,
		maxContextChars: maxContextChars,
	}, nil
}

// Name returns the provider name
func (v *OllamaVerifier) Name() string {
	return "ollama"
}

// Verify compares the statement and anchor against the retrieved context
// using the local model. Failures degrade to a neutral verification.
func (v *OllamaVerifier) Verify(ctx context.Context, statement, anchor, evidence string) (model.Verification, error) {
	n := len(text.Tokenize(anchor))
	if strings.TrimSpace(evidence) == "" {
		return Neutral(statement, n, neutralProb), nil
	}

	mdl := v.config.Model
	if mdl == "" {
		mdl = "llama3.2"
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  mdl,
		Prompt: BuildPrompt(statement, anchor, evidence, v.maxContextChars),
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0,
			NumPredict:  v.config.MaxTokens,
		},
	})
	if err != nil {
		return Neutral(statement, n, neutralProb), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Neutral(statement, n, neutralProb), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Neutral(statement, n, neutralProb), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Neutral(statement, n, neutralProb), nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Neutral(statement, n, neutralProb), nil
	}

	var out ollamaResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Neutral(statement, n, neutralProb), nil
	}

	return ParseResponse(statement, strings.TrimSpace(out.Response), n), nil
}
