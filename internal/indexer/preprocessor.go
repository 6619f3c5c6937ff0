package indexer

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\x00", "")

// Preprocess normalizes line endings and drops NUL bytes left behind by some extractors.
func Preprocess(text string) string {
	return lineEndings.Replace(text)
}
