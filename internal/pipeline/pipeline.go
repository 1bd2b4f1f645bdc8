// Package pipeline orchestrates the labeling of one record: split the
// answer into statements, retrieve and verify evidence per statement, and
// aggregate token probabilities into character spans.
package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/retrieve"
	"github.com/hallusearch/hallusearch/internal/span"
	"github.com/hallusearch/hallusearch/internal/split"
	"github.com/hallusearch/hallusearch/internal/text"
	"github.com/hallusearch/hallusearch/internal/verify"
)

// Pipeline labels records. Safe for concurrent use: each record is
// processed independently and configuration is read-only.
type Pipeline struct {
	splitter  *split.Splitter
	retriever retrieve.Retriever
	verifier  verify.Verifier
	config    *model.Config
}

// New creates a pipeline from its collaborators
func New(cfg *model.Config, retriever retrieve.Retriever, verifier verify.Verifier) *Pipeline {
	return &Pipeline{
		splitter:  split.NewSplitter(text.DefaultSegmenter()),
		retriever: retriever,
		verifier:  verifier,
		config:    cfg,
	}
}

// LabelRecord produces hard and soft span labels for one input record.
//
// Collaborator failures degrade to empty context or neutral probabilities;
// only record-level structural problems (which the JSONL reader catches
// earlier) abort processing.
func (p *Pipeline) LabelRecord(ctx context.Context, rec model.InputRecord) (model.OutputRecord, error) {
	statements := p.splitter.Split(rec.ModelInput, rec.ModelOutputText, p.config.Labeling.MaxItemsPerSample)

	contexts := p.retrieveAll(ctx, statements)
	p.blendQuestionEvidence(statements, contexts)

	verifications := p.verifyAll(ctx, statements, contexts)

	evidence := make([]span.Evidence, len(statements))
	for i, st := range statements {
		evidence[i] = span.Evidence{
			Anchor: st.OriginalSubstring,
			Probs:  verifications[i].TokenProbs,
		}
	}

	hard, soft := span.Aggregate(
		rec.ModelOutputText,
		evidence,
		p.config.Labeling.HardThreshold,
		span.ParsePolicy(p.config.Labeling.CombinePolicy),
	)
	if hard == nil {
		hard = []model.HardLabel{}
	}
	if soft == nil {
		soft = []model.SoftLabel{}
	}

	out := model.OutputRecord{
		ID:              rec.ID,
		ModelInput:      rec.ModelInput,
		ModelOutputText: rec.ModelOutputText,
		HardLabels:      hard,
		SoftLabels:      soft,
	}
	if p.config.Output.WithVerdicts {
		out.Verifications = verifications
	}
	return out, nil
}

// retrieveAll fans out retrieval across statements and returns contexts in
// statement order. Retrieval failure means empty context, never an error.
func (p *Pipeline) retrieveAll(ctx context.Context, statements []model.Statement) []string {
	contexts := make([]string, len(statements))

	workers := p.config.Concurrency.StatementWorkers
	if workers <= 0 {
		workers = 1
	}
	semaphore := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, st := range statements {
		wg.Add(1)
		go func(idx int, statement string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			evidence, err := p.retriever.Retrieve(ctx, statement)
			if err != nil {
				return
			}
			contexts[idx] = evidence
		}(i, st.FactualStatement)
	}
	wg.Wait()

	return contexts
}

// blendQuestionEvidence appends contexts gathered for question-derived
// statements onto each answer statement's context, so answer verification
// can lean on question-side evidence. Mutates contexts in place.
func (p *Pipeline) blendQuestionEvidence(statements []model.Statement, contexts []string) {
	limit := p.config.Retrieval.QAEvidenceCount
	if limit <= 0 {
		return
	}

	var aux []string
	for i, st := range statements {
		if len(aux) >= limit {
			break
		}
		if st.Origin != model.OriginAnswer && contexts[i] != "" {
			aux = append(aux, contexts[i])
		}
	}
	if len(aux) == 0 {
		return
	}
	auxBlock := strings.Join(aux, "\n")

	maxChars := p.config.Retrieval.MaxContextChars
	for i, st := range statements {
		if st.Origin != model.OriginAnswer {
			continue
		}
		if contexts[i] == "" {
			contexts[i] = auxBlock
		} else {
			contexts[i] = contexts[i] + "\n" + auxBlock
		}
		if maxChars > 0 && len(contexts[i]) > maxChars {
			contexts[i] = contexts[i][:maxChars]
		}
	}
}

// verifyAll fans out verification and returns one verification per
// statement, in statement order, each normalized to its anchor's token
// count. Verifier failure degrades to a neutral verification.
func (p *Pipeline) verifyAll(ctx context.Context, statements []model.Statement, contexts []string) []model.Verification {
	verifications := make([]model.Verification, len(statements))

	workers := p.config.Concurrency.StatementWorkers
	if workers <= 0 {
		workers = 1
	}
	semaphore := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, st := range statements {
		wg.Add(1)
		go func(idx int, st model.Statement) {
			defer wg.Done()

			n := len(text.Tokenize(st.OriginalSubstring))

			select {
			case <-ctx.Done():
				verifications[idx] = verify.Neutral(st.FactualStatement, n, 0.5)
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			v, err := p.verifier.Verify(ctx, st.FactualStatement, st.OriginalSubstring, contexts[idx])
			if err != nil {
				verifications[idx] = verify.Neutral(st.FactualStatement, n, 0.5)
				return
			}
			// Defense against providers that miscount tokens
			v.TokenProbs = verify.NormalizeProbs(v.TokenProbs, n)
			verifications[idx] = v
		}(i, st)
	}
	wg.Wait()

	return verifications
}
