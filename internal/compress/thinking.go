package compress

import "strings"

const (
	openTag  = "<thinking>"
	closeTag = "</thinking>"

	thinkingKeepChars = 500
	truncatedMarker   = "...[truncated]"
)

// Thinking strategies.
const (
	ThinkingKeep     = "keep"
	ThinkingTruncate = "truncate"
	ThinkingDiscard  = "discard"
)

// Thinking rewrites the first <thinking>...</thinking> region of an
// assistant content string per strategy, returning the rewritten content
// and bytes saved. A second call with the same strategy is idempotent: once
// discarded or already within the keep budget, nothing further changes.
func Thinking(content, strategy string) (string, int) {
	if strategy == ThinkingKeep {
		return content, 0
	}

	openIdx := strings.Index(content, openTag)
	if openIdx < 0 {
		return content, 0
	}

	innerStart := openIdx + len(openTag)
	closeIdx := strings.Index(content[innerStart:], closeTag)

	var region, before, after string
	hasClose := closeIdx >= 0
	if hasClose {
		region = content[innerStart : innerStart+closeIdx]
		before = content[:openIdx]
		after = content[innerStart+closeIdx+len(closeTag):]
	} else {
		// No closing tag: the rest of the string is the region.
		region = content[innerStart:]
		before = content[:openIdx]
		after = ""
	}

	originalLen := len(content)

	switch strategy {
	case ThinkingDiscard:
		result := before + after
		return result, originalLen - len(result)
	case ThinkingTruncate:
		runes := []rune(region)
		if len(runes) <= thinkingKeepChars {
			return content, 0
		}
		kept := string(runes[:thinkingKeepChars]) + truncatedMarker
		var result string
		if hasClose {
			result = before + openTag + kept + closeTag + after
		} else {
			result = before + openTag + kept + closeTag
		}
		return result, originalLen - len(result)
	default:
		return content, 0
	}
}
