package segment

import "strings"

// SplitFunc picks the index of the first line of the second part.
// Results outside [0, len(lines)] are clamped.
type SplitFunc func(lines []string) int

// Midpoint cuts at len(lines)/2, so an odd line count leaves the extra line in
// the second part.
func Midpoint(lines []string) int {
	return len(lines) / 2
}

// AtMarker cuts at the first line after the first one that contains marker.
// A match on the first line would leave the first part empty and is ignored.
// Without a match it falls back to Midpoint.
func AtMarker(marker string) SplitFunc {
	return func(lines []string) int {
		if marker != "" {
			for i := 1; i < len(lines); i++ {
				if strings.Contains(lines[i], marker) {
					return i
				}
			}
		}
		return Midpoint(lines)
	}
}

// AtStatement cuts at the last line at or before the midpoint that opens a
// value tuple, so the second part starts on a complete row. Without such a
// line it falls back to Midpoint.
func AtStatement(lines []string) int {
	mid := Midpoint(lines)
	for i := mid; i > 0; i-- {
		if i < len(lines) && strings.HasPrefix(strings.TrimLeft(lines[i], " \t"), "(") {
			return i
		}
	}
	return mid
}

// Subdivide splits text on "\n" at the line chosen by split (Midpoint when
// nil) and prefixes the second part with preamble. The line separators at the
// cut are consumed, so part1 + "\n" + part2 without the preamble is text.
func Subdivide(text string, split SplitFunc, preamble string) (part1, part2 string) {
	if split == nil {
		split = Midpoint
	}
	lines := strings.Split(text, "\n")
	cut := split(lines)
	if cut < 0 {
		cut = 0
	}
	if cut > len(lines) {
		cut = len(lines)
	}
	part1 = strings.Join(lines[:cut], "\n")
	part2 = preamble + strings.Join(lines[cut:], "\n")
	return part1, part2
}

// LineCount returns the number of "\n"-separated lines of text.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}
