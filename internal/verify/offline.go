package verify

import (
	"context"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
)

// OfflineVerifier never touches the network. Every statement comes back
// UNKNOWN with zero probabilities, so offline runs produce no hard spans.
type OfflineVerifier struct{}

// NewOfflineVerifier creates a new offline verifier
func NewOfflineVerifier() *OfflineVerifier {
	return &OfflineVerifier{}
}

// Name returns the provider name
func (*OfflineVerifier) Name() string {
	return "offline"
}

// Verify returns a zero-probability verification sized to the anchor
func (*OfflineVerifier) Verify(_ context.Context, statement, anchor, _ string) (model.Verification, error) {
	return Neutral(statement, len(text.Tokenize(anchor)), 0), nil
}
