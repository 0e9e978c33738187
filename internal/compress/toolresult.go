package compress

import (
	"fmt"
	"strings"
)

// ToolResultText smart-truncates one tool_result text block: if it's short
// enough, it's untouched. Otherwise, a handful of lines (head+tail) is
// preferred over a byte-budget split, since tool output is usually line
// oriented (logs, diffs, file listings) and head/tail lines stay readable.
func ToolResultText(text string, maxChars, headLines, tailLines int) (string, int) {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text, 0
	}

	lines := strings.Split(text, "\n")
	var result string
	if len(lines) <= headLines+tailLines {
		result = charBudgetSplit(text, maxChars)
	} else {
		result = lineSplit(lines, headLines, tailLines)
	}

	result = hardTruncate(result, maxChars)
	return result, len(text) - len(result)
}

// charBudgetSplit keeps maxChars/2 runes from the start and the same from
// the end, joined by an omission marker naming how much was cut.
func charBudgetSplit(text string, maxChars int) string {
	runes := []rune(text)
	half := maxChars / 2
	if half < 1 {
		half = 1
	}
	if half*2 >= len(runes) {
		return text
	}
	head := string(runes[:half])
	tail := string(runes[len(runes)-half:])
	omitted := len(runes) - 2*half
	return fmt.Sprintf("%s\n... [%d chars omitted] ...\n%s", head, omitted, tail)
}

// lineSplit keeps the first headLines and last tailLines lines.
func lineSplit(lines []string, headLines, tailLines int) string {
	head := lines[:headLines]
	tail := lines[len(lines)-tailLines:]
	omittedLines := len(lines) - headLines - tailLines
	omittedChars := 0
	for _, l := range lines[headLines : len(lines)-tailLines] {
		omittedChars += len([]rune(l)) + 1
	}
	marker := fmt.Sprintf("\n... [%d lines omitted (%d chars)] ...\n", omittedLines, omittedChars)
	return strings.Join(head, "\n") + marker + strings.Join(tail, "\n")
}

// hardTruncate is a final safety net: if the assembled head+tail result is
// itself still over budget (pathologically long individual lines), fall
// back to a plain character-indexed cut.
func hardTruncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
