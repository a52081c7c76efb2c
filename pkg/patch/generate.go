package patch

import (
	"fmt"
	"strings"
	"time"
)

// Issue describes a detected code problem to generate a fix for.
type Issue struct {
	Type      string
	Evidence  []string
	Files     map[string][]string // file path → source lines
}

// Patch is the generated rewrite.
type Patch struct {
	ID         string
	IssueType  string
	Pattern    string
	Files      []string
	Changes    map[string][]Change
	Confidence float64
	Timestamp  time.Time
}

// Generator produces Patches from Issues using the built-in pattern table.
type Generator struct {
	patterns []Pattern
	seq      uint64
}

// NewGenerator constructs a Generator with the shipped pattern table.
func NewGenerator() *Generator {
	return &Generator{patterns: BuiltinPatterns()}
}

// Generate matches issue against the pattern table and builds a Patch
// from every location the selected pattern finds across issue.Files.
func (g *Generator) Generate(issue Issue) (Patch, error) {
	pattern, hits, ok := selectPattern(g.patterns, issue.Type, issue.Evidence)
	if !ok {
		return Patch{}, fmt.Errorf("no pattern matches issue type %q", issue.Type)
	}

	changes := make(map[string][]Change)
	var files []string
	for file, lines := range issue.Files {
		locs := findLocations(file, lines, pattern)
		if len(locs) == 0 {
			continue
		}
		var fileChanges []Change
		for _, loc := range locs {
			fileChanges = append(fileChanges, buildChange(loc, lines, pattern))
		}
		changes[file] = fileChanges
		files = append(files, file)
	}

	if len(files) == 0 {
		return Patch{}, fmt.Errorf("pattern %q matched issue type but no location found in provided files", pattern.Name)
	}

	g.seq++
	return Patch{
		ID:         fmt.Sprintf("patch-%d", g.seq),
		IssueType:  issue.Type,
		Pattern:    pattern.Name,
		Files:      files,
		Changes:    changes,
		Confidence: confidence(hits),
		Timestamp:  time.Now(),
	}, nil
}

// Apply applies a Patch's changes to the given file's source, returning
// the rewritten source (joined with newlines).
func (p Patch) Apply(file string, lines []string) []string {
	return ApplyChanges(lines, p.Changes[file])
}

// Render joins lines back into a single source string.
func Render(lines []string) string {
	return strings.Join(lines, "\n")
}
