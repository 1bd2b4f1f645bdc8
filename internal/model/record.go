package model

import "encoding/json"

// InputRecord is one logical item from the input JSONL stream
type InputRecord struct {
	ID              json.RawMessage `json:"id,omitempty"`          // Passed through untouched (string or number)
	ModelInput      string          `json:"model_input,omitempty"` // The question/prompt (may be empty)
	ModelOutputText string          `json:"model_output_text"`     // The answer text to be labeled
}

// SoftLabel is a character span of the answer text carrying a continuous
// hallucination probability
type SoftLabel struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Prob  float64 `json:"prob"`
}

// HardLabel is a maximal merged character span judged hallucinated under
// the configured threshold. It marshals as a two-element [start, end] array.
type HardLabel [2]int

// OutputRecord is the labeled result emitted for one input record
type OutputRecord struct {
	ID              json.RawMessage `json:"id,omitempty"`
	ModelInput      string          `json:"model_input,omitempty"`
	ModelOutputText string          `json:"model_output_text"`
	HardLabels      []HardLabel     `json:"hard_labels"`
	SoftLabels      []SoftLabel     `json:"soft_labels"`
	Verifications   []Verification  `json:"verifications,omitempty"`
}
