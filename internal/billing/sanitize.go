package billing

import "strings"

// fenceReplacer drops markdown code fences. "```json" is listed first so it wins over "```".
var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// Sanitize removes every "```json" and "```" marker and trims surrounding whitespace.
func Sanitize(text string) string {
	return strings.TrimSpace(fenceReplacer.Replace(text))
}
