package stage

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLine is a line removed or added by a version rewrite.
type DiffLine struct {
	LineNum int  // Line in the original file for '-', in the rewritten file for '+'
	Type    rune // '+' added, '-' deleted
	Content string
}

// FileDiff is the line diff of one rewritten file.
type FileDiff struct {
	Path  string
	Lines []DiffLine
}

// ComputeFileDiff returns the lines that differ between before and after.
func ComputeFileDiff(path, before, after string) FileDiff {
	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	result := FileDiff{Path: path}
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				result.Lines = append(result.Lines, DiffLine{LineNum: oldLine, Type: '-', Content: line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				result.Lines = append(result.Lines, DiffLine{LineNum: newLine, Type: '+', Content: line})
				newLine++
			}
		}
	}
	return result
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\n")
	}
	return lines
}
