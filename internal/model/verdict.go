package model

// Verdict is the verifier's overall judgement of a statement against context
type Verdict string

const (
	VerdictSupported    Verdict = "SUPPORTED"
	VerdictNotSupported Verdict = "NOT_SUPPORTED"
	VerdictPartial      Verdict = "PARTIAL"
	VerdictUnknown      Verdict = "UNKNOWN"
)

// CoerceVerdict maps an arbitrary verdict string onto a known Verdict value.
// Unrecognized values become VerdictUnknown rather than an error.
func CoerceVerdict(s string) Verdict {
	switch Verdict(s) {
	case VerdictSupported, VerdictNotSupported, VerdictPartial, VerdictUnknown:
		return Verdict(s)
	}
	// The upstream prompt format uses a space instead of an underscore
	if s == "NOT SUPPORTED" {
		return VerdictNotSupported
	}
	return VerdictUnknown
}

// Verification is the verifier's output for one statement: an overall
// verdict plus one hallucination probability per whitespace token of the
// statement's anchor substring
type Verification struct {
	Statement  string    `json:"statement"`
	Verdict    Verdict   `json:"verdict"`
	TokenProbs []float64 `json:"token_probs"`
}
