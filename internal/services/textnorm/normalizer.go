// Package textnorm cleans extracted document text before chunking.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// C0 controls minus \t and \n, plus DEL. \r is handled by newline
	// normalization before this runs.
	controlChars    = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

// Normalizer applies a fixed cleanup pass to parser output. The pass is
// idempotent: Normalize(Normalize(s)) == Normalize(s).
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize cleans text for chunking: strips a leading BOM, converts
// CRLF/CR line endings to LF, removes control characters, collapses
// runs of spaces and tabs to a single space, trims each line, collapses
// three or more consecutive newlines to two, and trims the whole text.
//
// Blank-line collapsing runs after line trimming so that lines which
// become empty cannot reintroduce triple newlines on a second pass.
func (n *Normalizer) Normalize(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = controlChars.ReplaceAllString(text, "")
	text = horizontalSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = excessNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
