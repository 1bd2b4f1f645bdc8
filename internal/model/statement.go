package model

// Statement represents one atomic factual claim extracted or synthesized
// from an input record
type Statement struct {
	FactualStatement  string `json:"factual_statement"`  // Normalized declarative sentence (may be synthesized)
	OriginalSubstring string `json:"original_substring"` // Verbatim slice of the question or answer text
	Origin            Origin `json:"origin"`             // Provenance of the statement
}

// Origin tags where a statement came from
type Origin string

const (
	OriginQADerived Origin = "qa_derived" // Synthesized from question + answer
	OriginAnswer    Origin = "answer"     // Verbatim sentence/bullet from the answer
	OriginInputLine Origin = "input_line" // Verbatim sentence/bullet from the question
)
