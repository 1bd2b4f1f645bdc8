package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
	"github.com/hallusearch/hallusearch/internal/verify"
)

// fixedRetriever returns a context derived from the statement, or an error
type fixedRetriever struct {
	err    error
	prefix string
}

func (r *fixedRetriever) Retrieve(ctx context.Context, statement string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if r.prefix == "" {
		return "", nil
	}
	return r.prefix + statement, nil
}

// probVerifier returns a fixed probability per anchor token, selected by
// matching a substring of the statement. Records the evidence it saw.
type probVerifier struct {
	probs map[string]float64 // statement substring -> per-token prob
	err   error

	mu   sync.Mutex
	seen map[string]string // statement -> evidence
}

func (v *probVerifier) Name() string { return "prob" }

func (v *probVerifier) Verify(ctx context.Context, statement, anchor, evidence string) (model.Verification, error) {
	v.mu.Lock()
	if v.seen == nil {
		v.seen = make(map[string]string)
	}
	v.seen[statement] = evidence
	v.mu.Unlock()

	if v.err != nil {
		return model.Verification{}, v.err
	}

	prob := 0.0
	for substr, p := range v.probs {
		if strings.Contains(statement, substr) {
			prob = p
			break
		}
	}
	n := len(text.Tokenize(anchor))
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = prob
	}
	return model.Verification{
		Statement:  statement,
		Verdict:    model.VerdictSupported,
		TokenProbs: probs,
	}, nil
}

func (v *probVerifier) evidenceFor(statement string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seen[statement]
}

func TestLabelRecord_MarksLowSupportSpans(t *testing.T) {
	cfg := model.DefaultConfig()
	verifier := &probVerifier{probs: map[string]float64{
		"Paris":  0.1,
		"Berlin": 0.9,
	}}
	p := New(cfg, &fixedRetriever{}, verifier)

	answer := "Paris is in France. Berlin is in France."
	out, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelOutputText: answer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the Berlin sentence's tokens pass the hard threshold
	wantHard := []model.HardLabel{{20, 26}, {27, 29}, {30, 32}, {33, 40}}
	if len(out.HardLabels) != len(wantHard) {
		t.Fatalf("hard labels = %v, want %v", out.HardLabels, wantHard)
	}
	for i, h := range out.HardLabels {
		if h != wantHard[i] {
			t.Errorf("hard label %d = %v, want %v", i, h, wantHard[i])
		}
	}

	// Soft labels cover every token of both sentences
	if len(out.SoftLabels) != 8 {
		t.Fatalf("expected 8 soft labels, got %d", len(out.SoftLabels))
	}
	for _, s := range out.SoftLabels {
		got := answer[s.Start:s.End]
		if strings.HasPrefix(got, "Paris") || s.Start < 20 {
			if s.Prob != 0.1 {
				t.Errorf("token %q prob = %v, want 0.1", got, s.Prob)
			}
		} else if s.Prob != 0.9 {
			t.Errorf("token %q prob = %v, want 0.9", got, s.Prob)
		}
	}
}

func TestLabelRecord_QuestionDerivedStatement(t *testing.T) {
	cfg := model.DefaultConfig()
	verifier := &probVerifier{probs: map[string]float64{"capital": 0.8}}
	p := New(cfg, &fixedRetriever{}, verifier)

	out, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelInput:      "Is Paris the capital of France?",
		ModelOutputText: "Yes, Paris is the capital.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The question-derived statement anchors to the answer's first token,
	// so its evidence lands on the "Yes," span too.
	foundAnchor := false
	for _, s := range out.SoftLabels {
		if s.Start == 0 && s.End == 4 {
			foundAnchor = true
		}
	}
	if !foundAnchor {
		t.Errorf("expected a soft label on [0,4) for the leading token, got %v", out.SoftLabels)
	}
	if len(out.HardLabels) == 0 {
		t.Error("expected hard labels above threshold")
	}
}

func TestLabelRecord_VerifierFailureIsNeutral(t *testing.T) {
	cfg := model.DefaultConfig()
	p := New(cfg, &fixedRetriever{}, &probVerifier{err: errors.New("provider down")})

	answer := "The sky is green."
	out, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelOutputText: answer,
	})
	if err != nil {
		t.Fatalf("verifier failure must not surface as a record error: %v", err)
	}

	for _, s := range out.SoftLabels {
		if s.Prob != 0.5 {
			t.Errorf("expected neutral 0.5 probability, got %v", s.Prob)
		}
	}
	// 0.5 meets the default inclusive threshold
	if len(out.HardLabels) == 0 {
		t.Error("neutral probabilities at threshold should produce hard labels")
	}
}

func TestLabelRecord_RetrieverFailureMeansEmptyEvidence(t *testing.T) {
	cfg := model.DefaultConfig()
	verifier := &probVerifier{}
	p := New(cfg, &fixedRetriever{err: errors.New("network down")}, verifier)

	_, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelOutputText: "Oslo is in Norway.",
	})
	if err != nil {
		t.Fatalf("retriever failure must not surface as a record error: %v", err)
	}
	if got := verifier.evidenceFor("Oslo is in Norway."); got != "" {
		t.Errorf("expected empty evidence, got %q", got)
	}
}

func TestLabelRecord_BlendsQuestionEvidence(t *testing.T) {
	cfg := model.DefaultConfig()
	verifier := &probVerifier{}
	p := New(cfg, &fixedRetriever{prefix: "ctx:"}, verifier)

	_, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelInput:      "Is Paris the capital of France?",
		ModelOutputText: "Yes, Paris is the capital.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := verifier.evidenceFor("Yes, Paris is the capital.")
	if !strings.HasPrefix(got, "ctx:Yes, Paris is the capital.") {
		t.Errorf("answer statement lost its own evidence: %q", got)
	}
	if !strings.Contains(got, "\nctx:Paris the capital of France.") {
		t.Errorf("question-derived evidence was not blended in: %q", got)
	}
}

func TestLabelRecord_ContextTruncation(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Retrieval.MaxContextChars = 40
	verifier := &probVerifier{}
	p := New(cfg, &fixedRetriever{prefix: strings.Repeat("x", 100)}, verifier)

	_, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelInput:      "Is Paris the capital of France?",
		ModelOutputText: "Yes, Paris is the capital.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := verifier.evidenceFor("Yes, Paris is the capital.")
	if len(got) > 40 {
		t.Errorf("blended evidence exceeds cap: %d chars", len(got))
	}
}

func TestLabelRecord_EmptySlicesNotNull(t *testing.T) {
	cfg := model.DefaultConfig()
	p := New(cfg, &fixedRetriever{}, verify.NewOfflineVerifier())

	rawID := json.RawMessage(`"rec-7"`)
	out, err := p.LabelRecord(context.Background(), model.InputRecord{
		ID:              rawID,
		ModelOutputText: "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"hard_labels":[]`) {
		t.Errorf("hard_labels must encode as [], got %s", s)
	}
	if !strings.Contains(s, `"soft_labels":[]`) {
		t.Errorf("soft_labels must encode as [], got %s", s)
	}
	if !strings.Contains(s, `"id":"rec-7"`) {
		t.Errorf("id must pass through untouched, got %s", s)
	}
	if strings.Contains(s, "verifications") {
		t.Errorf("verifications must be omitted unless requested, got %s", s)
	}
}

func TestLabelRecord_WithVerdicts(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Output.WithVerdicts = true
	p := New(cfg, &fixedRetriever{}, verify.NewOfflineVerifier())

	out, err := p.LabelRecord(context.Background(), model.InputRecord{
		ModelOutputText: "The moon orbits the earth.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Verifications) == 0 {
		t.Fatal("expected verifications in the output record")
	}
	for _, v := range out.Verifications {
		if v.Verdict != model.VerdictUnknown {
			t.Errorf("offline verdict = %v, want UNKNOWN", v.Verdict)
		}
	}
}
