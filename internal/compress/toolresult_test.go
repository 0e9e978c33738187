package compress

import (
	"fmt"
	"strings"
	"testing"
)

func TestToolResultSmartTruncation(t *testing.T) {
	t.Parallel()

	lines := make([]string, 200)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	text := strings.Join(lines, "\n")

	got, n := ToolResultText(text, 100, 3, 2)
	if n <= 0 {
		t.Fatal("expected bytes saved > 0")
	}
	if !strings.HasPrefix(got, "line 0\nline 1\nline 2\n") {
		t.Errorf("expected head lines preserved, got prefix %q", got[:min(40, len(got))])
	}
	if !strings.HasSuffix(got, "line 198\nline 199") {
		t.Errorf("expected tail lines preserved, got suffix %q", got[max(0, len(got)-40):])
	}
	if !strings.Contains(got, "lines omitted") {
		t.Errorf("expected omission marker, got %q", got)
	}
}

func TestToolResultUnderBudgetUnchanged(t *testing.T) {
	t.Parallel()
	short := "short text"
	got, n := ToolResultText(short, 100, 3, 2)
	if got != short || n != 0 {
		t.Errorf("expected unchanged, got %q saved=%d", got, n)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
