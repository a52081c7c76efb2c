// Package patch implements rule-based source rewrite by pattern match,
// location discovery, and ordered change application.
package patch

import (
	"regexp"
	"strings"
)

// RewriteKind names the shape of a rewrite operation.
type RewriteKind string

const (
	RewriteWrapTryFinally    RewriteKind = "wrap_try_finally"
	RewriteAddErrorHandling  RewriteKind = "add_error_handling"
	RewriteAddTimeout        RewriteKind = "add_timeout"
	RewriteReplaceUnboundedCache RewriteKind = "replace_unbounded_cache"
)

// Pattern is a built-in rule: what issue types/keywords it matches, how to
// locate the offending line(s), and which rewrite to emit.
type Pattern struct {
	Name            string
	Types           []string
	Keywords        []string
	Detector        *regexp.Regexp
	RequiredContext []string
	Rewrite         RewriteKind
	DefaultTimeoutMs int
}

// BuiltinPatterns returns the shipped pattern table.
func BuiltinPatterns() []Pattern {
	return []Pattern{
		{
			Name:     "connection_leak",
			Types:    []string{"connection_leak", "resource_leak"},
			Keywords: []string{"connection", "leak", "close", "unclosed"},
			Detector: regexp.MustCompile(`(?i)\b(open|connect|acquire)\w*\s*\(`),
			Rewrite:  RewriteWrapTryFinally,
		},
		{
			Name:     "missing_error_handling",
			Types:    []string{"missing_error_handling", "unhandled_error"},
			Keywords: []string{"error", "exception", "unhandled", "ignored"},
			Detector: regexp.MustCompile(`(?i)\berr\s*:?=\s*[\w.]+\(`),
			Rewrite:  RewriteAddErrorHandling,
		},
		{
			Name:             "missing_timeout",
			Types:            []string{"missing_timeout", "hang_risk"},
			Keywords:         []string{"timeout", "hang", "blocking"},
			Detector:         regexp.MustCompile(`(?i)\b(request|call|dial|query)\w*\s*\(`),
			Rewrite:          RewriteAddTimeout,
			DefaultTimeoutMs: 30000,
		},
		{
			Name:            "unbounded_cache",
			Types:           []string{"unbounded_cache", "memory_growth"},
			Keywords:        []string{"cache", "map", "unbounded", "memory"},
			Detector:        regexp.MustCompile(`(?i)\bmake\(map\[`),
			RequiredContext: []string{"cache"},
			Rewrite:         RewriteReplaceUnboundedCache,
		},
	}
}

// matchesPattern reports whether p applies to issueType given evidence
// strings: types contains issue type AND any keyword appears,
// case-insensitive substring, in any evidence string.
func matchesPattern(p Pattern, issueType string, evidence []string) (bool, int) {
	typeMatch := false
	for _, t := range p.Types {
		if t == issueType {
			typeMatch = true
			break
		}
	}
	if !typeMatch {
		return false, 0
	}

	hits := 0
	for _, kw := range p.Keywords {
		lowerKw := strings.ToLower(kw)
		for _, ev := range evidence {
			if strings.Contains(strings.ToLower(ev), lowerKw) {
				hits++
				break
			}
		}
	}
	return hits > 0, hits
}

// selectPattern finds the first built-in pattern matching issueType and
// evidence, alongside its keyword-hit count (used for confidence scoring).
func selectPattern(patterns []Pattern, issueType string, evidence []string) (Pattern, int, bool) {
	for _, p := range patterns {
		if ok, hits := matchesPattern(p, issueType, evidence); ok {
			return p, hits, true
		}
	}
	return Pattern{}, 0, false
}

// confidence computes clamp(0.5 + 0.15*hits, 0.5, 0.95).
func confidence(hits int) float64 {
	c := 0.5 + 0.15*float64(hits)
	if c < 0.5 {
		return 0.5
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}
