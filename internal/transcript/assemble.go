// Package transcript assembles decoded speech segments into final text.
package transcript

import "strings"

// Assemble concatenates segments in decode order and trims the ends once.
// Segments carry their own leading spaces, so nothing is inserted between them
// and interior whitespace is preserved.
func Assemble(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(segments, ""))
}
