package patch

import (
	"fmt"
	"sort"
	"strings"
)

// ChangeOp names a rewrite operation kind emitted against a file.
type ChangeOp string

const (
	OpReplace ChangeOp = "replace"
	OpInsert  ChangeOp = "insert"
	OpWrap    ChangeOp = "wrap"
)

// Change is one ordered rewrite operation against a single file.
type Change struct {
	File   string
	Op     ChangeOp
	Line   int // target line (replace/insert) or block start (wrap)
	EndLine int // only meaningful for wrap
	Before string
	After  string
}

// buildChange constructs the Change for one Location under pattern's
// rewrite kind.
func buildChange(loc Location, lines []string, p Pattern) Change {
	before := lines[loc.Line-1]

	switch p.Rewrite {
	case RewriteAddErrorHandling:
		inserted := "\tif err != nil {\n\t\treturn err\n\t}"
		return Change{File: loc.File, Op: OpInsert, Line: loc.Line, Before: before, After: inserted}

	case RewriteAddTimeout:
		after := strings.Replace(before, "(", fmt.Sprintf("(/* timeout: %dms */", p.DefaultTimeoutMs), 1)
		return Change{File: loc.File, Op: OpReplace, Line: loc.Line, Before: before, After: after}

	case RewriteReplaceUnboundedCache:
		after := strings.Replace(before, "make(map[", "lru.New(1000) // was: make(map[", 1)
		return Change{File: loc.File, Op: OpReplace, Line: loc.Line, Before: before, After: after}

	case RewriteWrapTryFinally:
		startIdx := findBlockStart(lines, loc.Line-1)
		endIdx := findBlockEnd(lines, loc.Line-1)
		body := strings.Join(lines[startIdx+1:endIdx], "\n")
		wrapped := "try {\n" + body + "\n} finally {\n\t// ensure acquired resources are released\n\tconn.Close()\n}"
		return Change{
			File: loc.File, Op: OpWrap,
			Line: startIdx + 1, EndLine: endIdx + 1,
			Before: strings.Join(lines[startIdx:endIdx+1], "\n"),
			After:  wrapped,
		}

	default:
		return Change{File: loc.File, Op: OpReplace, Line: loc.Line, Before: before, After: before}
	}
}

// ApplyChanges applies changes to lines in descending-line-number order so
// earlier-line offsets are unaffected by later edits.
func ApplyChanges(lines []string, changes []Change) []string {
	ordered := append([]Change(nil), changes...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Line > ordered[j].Line })

	out := append([]string(nil), lines...)
	for _, c := range ordered {
		switch c.Op {
		case OpReplace:
			out[c.Line-1] = c.After
		case OpInsert:
			idx := c.Line
			tail := append([]string(nil), out[idx:]...)
			inserted := strings.Split(c.After, "\n")
			out = append(out[:idx], append(inserted, tail...)...)
		case OpWrap:
			replacement := strings.Split(c.After, "\n")
			tail := append([]string(nil), out[c.EndLine:]...)
			out = append(out[:c.Line-1], append(replacement, tail...)...)
		}
	}
	return out
}
