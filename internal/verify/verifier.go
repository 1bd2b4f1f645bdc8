// Package verify implements the statement verifier contract: given a
// statement, its anchor substring, and retrieved context, produce a verdict
// and one hallucination probability per whitespace token of the anchor.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
)

const neutralProb = 0.5

// Verifier verifies one statement against retrieved context.
//
// Implementations must degrade rather than fail: an empty context or an
// unreachable backend yields a neutral Verification, not an error.
type Verifier interface {
	// Name returns the provider name
	Name() string

	// Verify compares statement and anchor against context. The returned
	// TokenProbs has exactly one entry per whitespace token of anchor.
	Verify(ctx context.Context, statement, anchor, evidence string) (model.Verification, error)
}

// Neutral returns the degraded verification for a statement whose anchor
// has n tokens: UNKNOWN verdict, every token at the given probability.
func Neutral(statement string, n int, prob float64) model.Verification {
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = prob
	}
	return model.Verification{
		Statement:  statement,
		Verdict:    model.VerdictUnknown,
		TokenProbs: probs,
	}
}

// NormalizeProbs pads, truncates and clamps a probability vector so its
// length equals n. Missing entries become 0.5; values outside [0,1] are
// clamped. Shape mismatches are corrected here, never surfaced as errors.
func NormalizeProbs(probs []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(probs) {
			out[i] = clamp(probs[i])
		} else {
			out[i] = neutralProb
		}
	}
	return out
}

func clamp(p float64) float64 {
	if p != p { // NaN
		return neutralProb
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// BuildPrompt constructs the verification prompt for LLM-backed providers.
// The model is asked for strict JSON: a verdict plus one probability per
// anchor token.
func BuildPrompt(statement, anchor, evidence string, maxContextChars int) string {
	toks := text.Tokenize(anchor)

	type promptToken struct {
		I int    `json:"i"`
		T string `json:"t"`
	}
	tokens := make([]promptToken, len(toks))
	for i, t := range toks {
		tokens[i] = promptToken{I: t.Index, T: t.Text}
	}
	tokensJSON, _ := json.Marshal(tokens)

	if maxContextChars > 0 && len(evidence) > maxContextChars {
		evidence = evidence[:maxContextChars]
	}

	return fmt.Sprintf(`You will compare a FACT and its ORIGINAL_SUBSTRING against the given CONTEXT.
Your job is to decide, for each token in the ORIGINAL_SUBSTRING (as tokenized below), the probability that this token reflects a hallucination or contradiction with the CONTEXT.

CONTEXT:
"""%s"""

FACT:
%s

ORIGINAL_SUBSTRING TOKENS (index + token):
%s

Output ONLY valid JSON with exactly these keys:
{
  "verdict": "SUPPORTED" | "NOT SUPPORTED" | "PARTIAL",
  "token_probs": [p0, p1, ..., p%d]
}

Rules:
- "token_probs" MUST have length %d, one float in [0,1] per token index (0 = safe/consistent, 1 = hallucinated/contradicted).
- Use the CONTEXT ONLY. If the context clearly supports a token (name/date/place/number/etc.), give it a low probability (near 0).
- If the context contradicts a token, give it a high probability (near 1).
- If the context is unrelated or unclear, use an intermediate value (e.g., ~0.5).
- The "verdict" is overall: SUPPORTED if most key tokens are consistent, NOT SUPPORTED if key tokens contradict, PARTIAL if mixed.
- Do NOT include explanations or any text besides the JSON object.`,
		evidence, statement, tokensJSON, len(toks)-1, len(toks))
}

// ParseResponse extracts a Verification from a model's raw response for an
// anchor with n tokens. Any parse failure degrades to UNKNOWN with neutral
// probabilities; the returned vector always has length n.
func ParseResponse(statement, content string, n int) model.Verification {
	var raw struct {
		Verdict    string `json:"verdict"`
		TokenProbs []any  `json:"token_probs"`
	}

	payload := extractJSON(content)
	if payload == "" || json.Unmarshal([]byte(payload), &raw) != nil {
		return Neutral(statement, n, neutralProb)
	}

	probs := make([]float64, 0, len(raw.TokenProbs))
	for _, v := range raw.TokenProbs {
		probs = append(probs, coerceProb(v))
	}

	return model.Verification{
		Statement:  statement,
		Verdict:    model.CoerceVerdict(raw.Verdict),
		TokenProbs: NormalizeProbs(probs, n),
	}
}

// extractJSON pulls the outermost JSON object out of a response that may be
// wrapped in code fences or prose
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// coerceProb converts a loosely-typed JSON value into a probability,
// defaulting to neutral for anything unusable
func coerceProb(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return neutralProb
}
