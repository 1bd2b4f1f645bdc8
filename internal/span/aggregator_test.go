package span

import (
	"math"
	"reflect"
	"testing"

	"github.com/hallusearch/hallusearch/internal/model"
)

func TestAggregate_BasicOffsets(t *testing.T) {
	answer := "Paris is the capital."

	hard, soft := Aggregate(answer, []Evidence{
		{Anchor: "Paris is the capital.", Probs: []float64{0.9, 0.1, 0.1, 0.1}},
	}, 0.5, PolicyMax)

	if len(soft) != 4 {
		t.Fatalf("expected 4 soft labels, got %d", len(soft))
	}
	if soft[0].Start != 0 || soft[0].End != 5 || soft[0].Prob != 0.9 {
		t.Errorf("unexpected first soft label: %+v", soft[0])
	}
	if got := answer[soft[3].Start:soft[3].End]; got != "capital." {
		t.Errorf("expected last span to cover 'capital.', got %q", got)
	}
	if !reflect.DeepEqual(hard, []model.HardLabel{{0, 5}}) {
		t.Errorf("expected hard label [[0,5]], got %v", hard)
	}
}

func TestAggregate_AnchorOffsetTranslation(t *testing.T) {
	answer := "Well, Tokyo hosted the Olympics."

	_, soft := Aggregate(answer, []Evidence{
		{Anchor: "Tokyo hosted", Probs: []float64{0.8, 0.2}},
	}, 0.5, PolicyMax)

	if len(soft) != 2 {
		t.Fatalf("expected 2 soft labels, got %d", len(soft))
	}
	if soft[0].Start != 6 || soft[0].End != 11 {
		t.Errorf("expected span [6,11) for 'Tokyo', got [%d,%d)", soft[0].Start, soft[0].End)
	}
}

func TestAggregate_AnchorNotFoundIsSilent(t *testing.T) {
	hard, soft := Aggregate("The answer text.", []Evidence{
		{Anchor: "completely absent", Probs: []float64{0.9, 0.9}},
	}, 0.5, PolicyMax)

	if len(hard) != 0 || len(soft) != 0 {
		t.Errorf("absent anchor must contribute nothing, got hard=%v soft=%v", hard, soft)
	}
}

func TestAggregate_ProbabilityPadding(t *testing.T) {
	// 3-token anchor, 1 supplied probability: the rest default to 0.5
	_, soft := Aggregate("one two three", []Evidence{
		{Anchor: "one two three", Probs: []float64{0.9}},
	}, 0.5, PolicyMax)

	if len(soft) != 3 {
		t.Fatalf("expected 3 soft labels, got %d", len(soft))
	}
	want := []float64{0.9, 0.5, 0.5}
	for i, lbl := range soft {
		if lbl.Prob != want[i] {
			t.Errorf("token %d: expected prob %v, got %v", i, want[i], lbl.Prob)
		}
	}
}

func TestAggregate_Clamping(t *testing.T) {
	_, soft := Aggregate("a b c", []Evidence{
		{Anchor: "a b c", Probs: []float64{-0.3, 1.7, math.NaN()}},
	}, 0.5, PolicyMax)

	want := []float64{0, 1, 0.5}
	for i, lbl := range soft {
		if lbl.Prob != want[i] {
			t.Errorf("token %d: expected prob %v, got %v", i, want[i], lbl.Prob)
		}
	}
}

func TestAggregate_CombinePolicies(t *testing.T) {
	evidence := []Evidence{
		{Anchor: "token", Probs: []float64{0.2}},
		{Anchor: "token", Probs: []float64{0.9}},
	}

	tests := []struct {
		policy Policy
		want   float64
	}{
		{PolicyMax, 0.9},
		{PolicyMean, 0.55},
		{PolicyMin, 0.2},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			_, soft := Aggregate("token", evidence, 0.5, tt.policy)
			if len(soft) != 1 {
				t.Fatalf("expected 1 soft label, got %d", len(soft))
			}
			if math.Abs(soft[0].Prob-tt.want) > 1e-9 {
				t.Errorf("policy %s: expected %v, got %v", tt.policy, tt.want, soft[0].Prob)
			}
		})
	}
}

func TestAggregate_FirstEncounteredOrder(t *testing.T) {
	answer := "alpha beta gamma"

	_, soft := Aggregate(answer, []Evidence{
		{Anchor: "beta gamma", Probs: []float64{0.1, 0.2}},
		{Anchor: "alpha beta", Probs: []float64{0.3, 0.4}},
	}, 0.5, PolicyMax)

	// Spans enumerate in first-encountered order: beta, gamma, then alpha
	starts := []int{6, 11, 0}
	if len(soft) != 3 {
		t.Fatalf("expected 3 soft labels, got %d", len(soft))
	}
	for i, lbl := range soft {
		if lbl.Start != starts[i] {
			t.Errorf("label %d: expected start %d, got %d", i, starts[i], lbl.Start)
		}
	}
}

func TestAggregate_ThresholdInclusive(t *testing.T) {
	hard, _ := Aggregate("word", []Evidence{
		{Anchor: "word", Probs: []float64{0.5}},
	}, 0.5, PolicyMax)

	if !reflect.DeepEqual(hard, []model.HardLabel{{0, 4}}) {
		t.Errorf("a span at exactly the threshold must be kept, got %v", hard)
	}
}

func TestMergeAdjacent(t *testing.T) {
	tests := []struct {
		name string
		in   []model.HardLabel
		want []model.HardLabel
	}{
		{
			name: "adjacent and disjoint",
			in:   []model.HardLabel{{0, 3}, {3, 6}, {10, 12}},
			want: []model.HardLabel{{0, 6}, {10, 12}},
		},
		{
			name: "overlapping",
			in:   []model.HardLabel{{0, 5}, {2, 8}},
			want: []model.HardLabel{{0, 8}},
		},
		{
			name: "unsorted input",
			in:   []model.HardLabel{{10, 12}, {0, 3}, {3, 6}},
			want: []model.HardLabel{{0, 6}, {10, 12}},
		},
		{
			name: "contained span keeps max end",
			in:   []model.HardLabel{{0, 10}, {2, 4}},
			want: []model.HardLabel{{0, 10}},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeAdjacent(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("mean") != PolicyMean {
		t.Error("expected mean")
	}
	if ParsePolicy("MIN") != PolicyMin {
		t.Error("expected min")
	}
	if ParsePolicy("") != PolicyMax {
		t.Error("expected max default for empty string")
	}
	if ParsePolicy("garbage") != PolicyMax {
		t.Error("expected max default for unknown policy")
	}
}

func TestAggregate_DuplicateAnchorSingleSpanSet(t *testing.T) {
	// Two statements anchored to the same substring contribute to the same
	// spans, not duplicates
	_, soft := Aggregate("one two", []Evidence{
		{Anchor: "one two", Probs: []float64{0.1, 0.2}},
		{Anchor: "one two", Probs: []float64{0.3, 0.4}},
	}, 0.5, PolicyMax)

	if len(soft) != 2 {
		t.Fatalf("expected 2 soft labels, got %d", len(soft))
	}
	if soft[0].Prob != 0.3 || soft[1].Prob != 0.4 {
		t.Errorf("expected max-combined probs [0.3 0.4], got [%v %v]", soft[0].Prob, soft[1].Prob)
	}
}
