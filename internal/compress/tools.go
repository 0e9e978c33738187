package compress

import (
	"encoding/json"

	"github.com/relaygate/gateway/internal/convo"
)

// ToolSizeThreshold is the serialized size, in bytes, of a request's
// declared tool list above which PrepareTools compresses tool definitions.
const ToolSizeThreshold = 20 * 1024

// MinDescriptionChars floors how short a tool description may be shrunk.
const MinDescriptionChars = 50

// PrepareTools compresses tool definitions before C1 runs, on the theory
// that redundant schema boilerplate is a safer place to cut than
// conversation content. It runs once per request, not as part of the
// adaptive loop. maxDescriptionChars caps how far the ratio-based shrink
// below may take any one description; 0 or negative means no cap beyond
// MinDescriptionChars.
func PrepareTools(tools []convo.ToolSpec, maxDescriptionChars int) ([]convo.ToolSpec, int) {
	if len(tools) == 0 || serializedSize(tools) <= ToolSizeThreshold {
		return tools, 0
	}
	before := serializedSize(tools)

	simplified := make([]convo.ToolSpec, len(tools))
	for i, t := range tools {
		simplified[i] = t
		simplified[i].InputSchema = simplifySchema(t.InputSchema)
	}

	afterSchema := serializedSize(simplified)
	if afterSchema <= ToolSizeThreshold || afterSchema == 0 {
		return simplified, before - afterSchema
	}

	ratio := float64(ToolSizeThreshold) / float64(afterSchema)
	for i := range simplified {
		simplified[i].Description = truncateDescription(simplified[i].Description, ratio, maxDescriptionChars)
	}

	return simplified, before - serializedSize(simplified)
}

func serializedSize(tools []convo.ToolSpec) int {
	b, err := json.Marshal(tools)
	if err != nil {
		return 0
	}
	return len(b)
}

func truncateDescription(desc string, ratio float64, maxChars int) string {
	runes := []rune(desc)
	target := int(float64(len(runes)) * ratio)
	if maxChars > 0 && target > maxChars {
		target = maxChars
	}
	if target < MinDescriptionChars {
		target = MinDescriptionChars
	}
	if target >= len(runes) {
		return desc
	}
	return string(runes[:target])
}

// simplifySchema keeps only the structural skeleton of a JSON Schema value:
// type, properties (recursively simplified), required, additionalProperties,
// enum, and items. Descriptions, examples, and other documentation keys are
// dropped since they dominate byte size without affecting validation.
func simplifySchema(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	simplified := simplifySchemaValue(v)
	out, err := json.Marshal(simplified)
	if err != nil {
		return raw
	}
	return out
}

func simplifySchemaValue(v interface{}) interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return v
	}

	out := map[string]interface{}{}
	if t, ok := obj["type"]; ok {
		out["type"] = t
	}
	if e, ok := obj["enum"]; ok {
		out["enum"] = e
	}
	if items, ok := obj["items"]; ok {
		out["items"] = simplifySchemaValue(items)
	}
	if required, ok := obj["required"]; ok {
		out["required"] = required
	}
	if ap, ok := obj["additionalProperties"]; ok {
		out["additionalProperties"] = ap
	}
	if props, ok := obj["properties"].(map[string]interface{}); ok {
		simplifiedProps := make(map[string]interface{}, len(props))
		for name, prop := range props {
			simplifiedProps[name] = simplifySchemaValue(prop)
		}
		out["properties"] = simplifiedProps
	}
	return out
}
