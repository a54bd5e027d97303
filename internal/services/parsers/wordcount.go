package parsers

import "regexp"

var (
	cjkChars   = regexp.MustCompile("[一-龥]")
	latinWords = regexp.MustCompile("[a-zA-Z]+")
)

// countWords counts words in mixed CJK/Latin text: every CJK ideograph
// counts as one word, every run of Latin letters counts as one word.
// Coarse on purpose; exact tokenization is not a goal.
func countWords(text string) int {
	cjk := len(cjkChars.FindAllStringIndex(text, -1))
	latin := len(latinWords.FindAllStringIndex(cjkChars.ReplaceAllString(text, " "), -1))
	return cjk + latin
}
