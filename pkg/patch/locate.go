package patch

import "strings"

// contextWindow is the number of lines on each side of a matched line
// searched for required-context tokens.
const contextWindow = 5

// Location is one line in one file where a Pattern's detector matched.
type Location struct {
	File string
	Line int // 1-indexed
}

// findLocations scans lines for a Pattern's detector, requiring every
// declared RequiredContext token to appear within contextWindow lines of
// the match.
func findLocations(file string, lines []string, p Pattern) []Location {
	var locs []Location
	for i, line := range lines {
		if !p.Detector.MatchString(line) {
			continue
		}
		if len(p.RequiredContext) > 0 && !hasContextTokens(lines, i, p.RequiredContext) {
			continue
		}
		locs = append(locs, Location{File: file, Line: i + 1})
	}
	return locs
}

func hasContextTokens(lines []string, idx int, tokens []string) bool {
	start := idx - contextWindow
	if start < 0 {
		start = 0
	}
	end := idx + contextWindow
	if end >= len(lines) {
		end = len(lines) - 1
	}
	window := strings.ToLower(strings.Join(lines[start:end+1], "\n"))
	for _, tok := range tokens {
		if !strings.Contains(window, strings.ToLower(tok)) {
			return false
		}
	}
	return true
}

// findBlockStart walks backward from idx for the nearest preceding
// function/async-function declaration.
func findBlockStart(lines []string, idx int) int {
	for i := idx; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "function ") || strings.HasPrefix(trimmed, "async function ") ||
			strings.Contains(trimmed, "func ") {
			return i
		}
	}
	return idx
}

// findBlockEnd walks forward from idx for the nearest `return` or a
// same-level closing brace.
func findBlockEnd(lines []string, idx int) int {
	for i := idx; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "return") || trimmed == "}" {
			return i
		}
	}
	return len(lines) - 1
}
