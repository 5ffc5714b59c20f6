package judge

import "strings"

// cleanOutput normalizes program output for comparison: unify line endings,
// drop leading non-printable junk, trim surrounding whitespace.
func cleanOutput(output string) string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.ReplaceAll(output, "\r", "\n")

	startIndex := 0
	for i, c := range output {
		if c >= 32 && c <= 126 {
			startIndex = i
			break
		}
	}
	if startIndex > 0 {
		output = output[startIndex:]
	}

	return strings.TrimSpace(output)
}

// formatForDisplay makes newlines visible in error messages.
func formatForDisplay(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
