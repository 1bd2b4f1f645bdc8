// Package span reassembles per-statement token probabilities into
// character-accurate hard and soft labels over the original answer text.
package span

import (
	"math"
	"sort"
	"strings"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
)

// neutralProb stands in for missing or invalid probability entries.
// Deliberately 0.5 rather than 0, so malformed upstream output does not
// read as "definitely safe".
const neutralProb = 0.5

// Policy selects how probabilities from multiple statements covering the
// same token span are combined
type Policy string

const (
	PolicyMax  Policy = "max" // Any positive hallucination signal dominates
	PolicyMean Policy = "mean"
	PolicyMin  Policy = "min"
)

// ParsePolicy maps a config string onto a Policy, defaulting to max
func ParsePolicy(s string) Policy {
	switch Policy(strings.ToLower(s)) {
	case PolicyMean:
		return PolicyMean
	case PolicyMin:
		return PolicyMin
	default:
		return PolicyMax
	}
}

// Evidence is one statement's contribution: its verbatim anchor substring
// and one hallucination probability per whitespace token of the anchor
type Evidence struct {
	Anchor string
	Probs  []float64
}

// accumulator collects probability lists keyed by absolute token span,
// preserving first-encountered span order so output is reproducible.
type accumulator struct {
	order []model.SoftLabel // Prob unused until combine
	index map[[2]int]int
	vals  map[[2]int][]float64
}

func newAccumulator() *accumulator {
	return &accumulator{
		index: make(map[[2]int]int),
		vals:  make(map[[2]int][]float64),
	}
}

func (ac *accumulator) add(start, end int, p float64) {
	key := [2]int{start, end}
	if _, ok := ac.index[key]; !ok {
		ac.index[key] = len(ac.order)
		ac.order = append(ac.order, model.SoftLabel{Start: start, End: end})
	}
	ac.vals[key] = append(ac.vals[key], p)
}

// Aggregate maps every evidence pair back onto answerText and produces soft
// labels (one per distinct token span, in first-encountered order) and hard
// labels (spans at or above threshold, sorted and merged).
//
// Anchors absent from answerText contribute nothing; this is deliberate and
// silent. Probabilities are clamped to [0,1]; tokens beyond the supplied
// probability vector default to 0.5.
func Aggregate(answerText string, evidence []Evidence, threshold float64, policy Policy) ([]model.HardLabel, []model.SoftLabel) {
	acc := newAccumulator()

	for _, ev := range evidence {
		base := strings.Index(answerText, ev.Anchor)
		if base < 0 || ev.Anchor == "" {
			continue
		}
		for _, tok := range text.Tokenize(ev.Anchor) {
			p := neutralProb
			if tok.Index < len(ev.Probs) {
				p = clamp(ev.Probs[tok.Index])
			}
			acc.add(base+tok.Start, base+tok.End, p)
		}
	}

	soft := make([]model.SoftLabel, len(acc.order))
	for i, lbl := range acc.order {
		lbl.Prob = combine(acc.vals[[2]int{lbl.Start, lbl.End}], policy)
		soft[i] = lbl
	}

	return hardLabels(soft, threshold), soft
}

// hardLabels keeps soft spans at or above threshold (inclusive), sorts them
// by start offset, and merges adjacent or overlapping spans into maximal runs
func hardLabels(soft []model.SoftLabel, threshold float64) []model.HardLabel {
	var kept []model.HardLabel
	for _, lbl := range soft {
		if lbl.Prob >= threshold {
			kept = append(kept, model.HardLabel{lbl.Start, lbl.End})
		}
	}
	return MergeAdjacent(kept)
}

// MergeAdjacent sorts spans and coalesces any span whose start is <= the
// running span's end. The merged end is the max of constituent ends.
func MergeAdjacent(spans []model.HardLabel) []model.HardLabel {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]model.HardLabel, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	merged := []model.HardLabel{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s[0] <= last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func combine(vals []float64, policy Policy) float64 {
	if len(vals) == 0 {
		return neutralProb
	}
	switch policy {
	case PolicyMean:
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	case PolicyMin:
		min := vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
		}
		return min
	default:
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return max
	}
}

func clamp(p float64) float64 {
	if math.IsNaN(p) {
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
