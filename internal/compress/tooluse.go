package compress

import (
	"encoding/json"
	"fmt"
)

const truncatedNMarkerFmt = "...[truncated %d chars]"

// ToolUseInput recursively truncates every string value nested inside a
// tool_use input JSON document to at most maxChars Unicode characters. A
// marker is appended only when doing so still leaves the string strictly
// shorter, in bytes, than the untruncated original — multi-byte strings near the
// threshold would otherwise grow past it by adding the marker.
//
// Malformed JSON is left untouched: the spec treats compression passes as
// total functions that never fail, so an unparsable input simply isn't
// walked.
func ToolUseInput(raw json.RawMessage, maxChars int) (json.RawMessage, int) {
	if len(raw) == 0 {
		return raw, 0
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return raw, 0
	}

	walked := walkTruncate(value, maxChars)

	out, err := json.Marshal(walked)
	if err != nil {
		return raw, 0
	}
	saved := len(raw) - len(out)
	if saved < 0 {
		saved = 0
	}
	return out, saved
}

func walkTruncate(v interface{}, maxChars int) interface{} {
	switch t := v.(type) {
	case string:
		return truncateString(t, maxChars)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, nested := range t {
			out[k] = walkTruncate(nested, maxChars)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, nested := range t {
			out[i] = walkTruncate(nested, maxChars)
		}
		return out
	default:
		return t
	}
}

// truncateString caps s at maxChars Unicode characters, only appending the
// "...[truncated N chars]" marker when the marked form is strictly shorter,
// in bytes, than s itself.
func truncateString(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}

	omitted := len(runes) - maxChars
	plain := string(runes[:maxChars])
	marked := plain + fmt.Sprintf(truncatedNMarkerFmt, omitted)

	if len(marked) < len(s) {
		return marked
	}
	return plain
}
