package text

import (
	"strings"
	"sync"
)

// Span is a half-open [Start, End) byte range within some source text
type Span struct {
	Start int
	End   int
}

// Segmenter splits text into ordered sentence spans over the original,
// unmodified text. Implementations must be stateless to callers and safe
// for concurrent use.
type Segmenter interface {
	Segment(text string) []Span
}

var (
	defaultSegmenter     Segmenter
	defaultSegmenterOnce sync.Once
)

// DefaultSegmenter returns the process-wide sentence segmenter, constructing
// it on first use.
func DefaultSegmenter() Segmenter {
	defaultSegmenterOnce.Do(func() {
		defaultSegmenter = RuleSegmenter{}
	})
	return defaultSegmenter
}

// RuleSegmenter is a rule-based sentence segmenter: a sentence ends at a
// run of '.', '!' or '?' followed by whitespace or end of text. Trailing
// text without a terminator still counts as a sentence.
type RuleSegmenter struct{}

// Segment returns sentence spans trimmed of surrounding whitespace, so the
// spanned slice is the exact verbatim sentence text.
func (RuleSegmenter) Segment(text string) []Span {
	var spans []Span
	start := -1
	i := 0
	for i < len(text) {
		c := text[i]
		if start < 0 {
			if !isSpaceByte(c) {
				start = i
			}
			i++
			continue
		}
		if isTerminator(c) {
			// Swallow the whole terminator run ("?!", "...")
			end := i + 1
			for end < len(text) && isTerminator(text[end]) {
				end++
			}
			if end >= len(text) || isSpaceByte(text[end]) {
				spans = append(spans, Span{Start: start, End: end})
				start = -1
			}
			i = end
			continue
		}
		i++
	}
	if start >= 0 {
		end := len(text)
		for end > start && isSpaceByte(text[end-1]) {
			end--
		}
		if strings.TrimSpace(text[start:end]) != "" {
			spans = append(spans, Span{Start: start, End: end})
		}
	}
	return spans
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
