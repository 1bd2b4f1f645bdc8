// Package split decomposes question/answer text into atomic, anchored
// factual statements.
package split

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/text"
)

// Word sets for answer polarity detection
var (
	yesWords = wordSet("yes", "yeah", "yep", "certainly", "indeed", "affirmative", "correct", "true", "right")
	noWords  = wordSet("no", "nope", "nah", "false", "incorrect", "wrong")
)

// Leading auxiliaries that mark a yes/no question
var (
	beWords    = wordSet("is", "are", "was", "were")
	doWords    = wordSet("do", "does", "did")
	modalWords = wordSet("can", "could", "will", "would", "should", "may", "might", "must")
	haveWords  = wordSet("has", "have", "had")
	whWords    = wordSet("who", "what", "where", "when", "which", "how", "why")
)

// Bullet or numbered lines: "- foo", "* bar", "• baz", "1. item", "a) item"
var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]\s+|(?:\d+|[a-zA-Z])[.)]\s+)(.+?)\s*$`)

// Wh-question rewrite templates
var (
	whoRe      = regexp.MustCompile(`(?i)^\s*who\s+(.*)\?\s*$`)
	whatIsRe   = regexp.MustCompile(`(?i)^\s*what\s+(is|are)\s+(.*)\?\s*$`)
	whereIsRe  = regexp.MustCompile(`(?i)^\s*where\s+(is|was|are|were)\s+(.*)\?\s*$`)
	whenDidRe  = regexp.MustCompile(`(?i)^\s*when\s+(did|was|were|is)\s+(.*)\?\s*$`)
	howManyRe  = regexp.MustCompile(`(?i)^\s*how\s+many\s+(.*)\?\s*$`)
	howMuchRe  = regexp.MustCompile(`(?i)^\s*how\s+much\s+(.*)\?\s*$`)
)

// leadingWord returns the question's leading word-character run, lowercased.
// Stopping at the first non-word rune keeps contractions classifiable:
// "What's" reads as "what", while "Whatever" stays "whatever".
func leadingWord(s string) string {
	end := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		end += utf8.RuneLen(r)
	}
	return strings.ToLower(s[:end])
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Splitter turns raw question/answer text into atomic anchored statements
type Splitter struct {
	segmenter text.Segmenter
}

// NewSplitter creates a splitter using the given sentence segmenter.
// A nil segmenter selects the process-wide default.
func NewSplitter(seg text.Segmenter) *Splitter {
	if seg == nil {
		seg = text.DefaultSegmenter()
	}
	return &Splitter{segmenter: seg}
}

// Split extracts an ordered, deduplicated list of atomic statements from a
// question and an answer, capped at maxItems. Deterministic, no side effects.
//
// Anchors are always verbatim slices of the original text; normalization is
// used for classification only.
func (sp *Splitter) Split(question, answer string, maxItems int) []model.Statement {
	if maxItems <= 0 {
		maxItems = 30
	}

	q := clean(question)
	a := clean(answer)

	var out []model.Statement

	// 1. QA-derived statement (only if both sides are present)
	if q != "" && a != "" {
		if stmt, anchor, ok := qaStatement(q, a); ok {
			out = append(out, model.Statement{
				FactualStatement:  stmt,
				OriginalSubstring: anchor,
				Origin:            model.OriginQADerived,
			})
		}
	}

	// 2. Answer sentence splitting over the ORIGINAL answer so that anchors
	// stay verbatim
	if a != "" {
		out = append(out, sp.sentenceStatements(answer, model.OriginAnswer)...)
	}

	// 3. Bullet / numbered lines from question and answer
	out = append(out, bulletStatements(question, model.OriginInputLine)...)
	out = append(out, bulletStatements(answer, model.OriginAnswer)...)

	// 4. No answer, but the question reads as a statement: split it instead
	if a == "" && q != "" && !strings.HasSuffix(q, "?") {
		out = append(out, sp.sentenceStatements(question, model.OriginInputLine)...)
	}

	// 5. Deduplicate preserving first-occurrence order, drop empty anchors,
	// cap at maxItems
	seen := make(map[string]bool, len(out))
	dedup := make([]model.Statement, 0, len(out))
	for _, st := range out {
		if st.FactualStatement == "" || st.OriginalSubstring == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(st.FactualStatement)) + "\x00" + st.OriginalSubstring
		if seen[key] {
			continue
		}
		seen[key] = true
		dedup = append(dedup, st)
		if len(dedup) >= maxItems {
			break
		}
	}
	return dedup
}

// clean collapses whitespace runs to single spaces, trims, and replaces
// ellipsis glyphs with a space. Classification input only, never anchors.
func clean(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "…", " ")), " ")
}

// sentenceStatements splits src into sentences and emits one verbatim
// statement per non-empty sentence
func (sp *Splitter) sentenceStatements(src string, origin model.Origin) []model.Statement {
	var stmts []model.Statement
	for _, span := range sp.segmenter.Segment(src) {
		raw := src[span.Start:span.End]
		fact := strings.TrimSpace(raw)
		if fact == "" {
			continue
		}
		stmts = append(stmts, model.Statement{
			FactualStatement:  fact,
			OriginalSubstring: raw,
			Origin:            origin,
		})
	}
	return stmts
}

// bulletStatements scans src line by line for bullet or numbered items and
// emits the verbatim trailing content of each match
func bulletStatements(src string, origin model.Origin) []model.Statement {
	var stmts []model.Statement
	pos := 0
	for pos <= len(src) {
		nl := strings.IndexByte(src[pos:], '\n')
		var line string
		if nl < 0 {
			line = src[pos:]
			nl = len(src) - pos
		} else {
			line = src[pos : pos+nl]
		}
		if m := bulletRe.FindStringSubmatchIndex(line); m != nil {
			orig := line[m[2]:m[3]]
			if fact := strings.TrimSpace(orig); fact != "" {
				stmts = append(stmts, model.Statement{
					FactualStatement:  fact,
					OriginalSubstring: orig,
					Origin:            origin,
				})
			}
		}
		pos += nl + 1
	}
	return stmts
}

// qaStatement classifies the question and synthesizes a declarative
// statement from it plus the answer. Returns false for questions with no
// recognized leading word.
func qaStatement(q, a string) (stmt, anchor string, ok bool) {
	first := leadingWord(q)
	switch {
	case beWords[first] || doWords[first] || modalWords[first] || haveWords[first]:
		stmt, anchor = yesNoStatement(q, a)
	case whWords[first]:
		stmt, anchor = whStatement(q, a)
	default:
		return "", "", false
	}
	if stmt == "" {
		return "", "", false
	}
	if anchor == "" {
		anchor = a
	}
	return stmt, anchor, true
}

// yesNoStatement rewrites a yes/no question into a declarative clause whose
// polarity follows the answer's first word. The anchor is the answer's first
// whitespace token: a minimal, intentionally crude anchor.
func yesNoStatement(q, a string) (string, string) {
	anchor := text.FirstToken(a)
	polarity := !noWords[strings.ToLower(anchor)]

	stem := strings.TrimSuffix(q, "?")
	fields := strings.Fields(stem)
	if len(fields) == 0 {
		return "", ""
	}
	aux := strings.ToLower(fields[0])
	rest := strings.Join(fields[1:], " ")

	switch {
	case beWords[aux] && len(fields) >= 2:
		if polarity {
			return rest + ".", anchor
		}
		if len(fields) >= 3 {
			return fields[1] + " " + aux + " not " + strings.Join(fields[2:], " ") + ".", anchor
		}
		return rest + " not.", anchor

	case doWords[aux] && len(fields) >= 2:
		if polarity {
			return rest + ".", anchor
		}
		if len(fields) >= 3 {
			// Fixed "does" regardless of the input tense
			return fields[1] + " does not " + strings.Join(fields[2:], " ") + ".", anchor
		}
		return "not " + rest + ".", anchor

	case modalWords[aux] && len(fields) >= 2:
		if polarity {
			return rest + ".", anchor
		}
		if aux == "can" {
			return rest + " cannot.", anchor
		}
		return rest + " " + aux + " not.", anchor

	case haveWords[aux] && len(fields) >= 2:
		if polarity {
			return rest + ".", anchor
		}
		return aux + " not " + rest + ".", anchor
	}

	return stem + ".", anchor
}

// whStatement rewrites a wh-question plus a shortened answer into a
// declarative sentence. The anchor is the full cleaned answer text.
func whStatement(q, a string) (string, string) {
	aShort := a
	if utf8.RuneCountInString(a) > 80 {
		if idx := strings.Index(a, "."); idx >= 0 {
			aShort = a[:idx]
		}
	}
	if aShort == "" {
		return "", ""
	}

	if m := whoRe.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(aShort + " " + m[1] + "."), a
	}
	if m := whatIsRe.FindStringSubmatch(q); m != nil {
		return m[2] + " " + strings.ToLower(m[1]) + " " + aShort + ".", a
	}
	if m := whereIsRe.FindStringSubmatch(q); m != nil {
		return m[2] + " " + strings.ToLower(m[1]) + " located in " + aShort + ".", a
	}
	if m := whenDidRe.FindStringSubmatch(q); m != nil {
		return m[2] + " in " + aShort + ".", a
	}
	if m := howManyRe.FindStringSubmatch(q); m != nil {
		return "There are " + aShort + " " + m[1] + ".", a
	}
	if m := howMuchRe.FindStringSubmatch(q); m != nil {
		return "The amount is " + aShort + ".", a
	}

	return strings.TrimSpace(q+" "+aShort) + ".", a
}
