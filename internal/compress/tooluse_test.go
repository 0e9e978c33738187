package compress

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestToolUseInputNonExpandingNearThreshold(t *testing.T) {
	t.Parallel()
	raw, _ := json.Marshal(map[string]string{"content": strings.Repeat("a", 101)})

	got, _ := ToolUseInput(raw, 100)

	var decoded map[string]string
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("result must still be valid JSON: %v", err)
	}
	want := strings.Repeat("a", 100)
	if decoded["content"] != want {
		t.Errorf("got %q, want exactly %d a's with no marker", decoded["content"], 100)
	}
}

func TestToolUseInputMultiByteUnderCapUnchanged(t *testing.T) {
	t.Parallel()
	raw, _ := json.Marshal(map[string]string{"content": strings.Repeat("你", 60)})

	got, n := ToolUseInput(raw, 100)
	if n != 0 {
		t.Errorf("expected 0 bytes saved, got %d", n)
	}

	var decoded map[string]string
	json.Unmarshal(got, &decoded)
	if decoded["content"] != strings.Repeat("你", 60) {
		t.Errorf("content should be unchanged under cap, got %q", decoded["content"])
	}
}

func TestToolUseInputWalksNestedStructures(t *testing.T) {
	t.Parallel()
	raw, _ := json.Marshal(map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"text": strings.Repeat("b", 500)},
		},
	})

	got, n := ToolUseInput(raw, 50)
	if n <= 0 {
		t.Fatal("expected bytes saved for nested long string")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("result must be valid JSON: %v", err)
	}
}

func TestToolUseInputMalformedLeftUntouched(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`{not valid json`)
	got, n := ToolUseInput(raw, 10)
	if string(got) != string(raw) || n != 0 {
		t.Errorf("malformed input must pass through unchanged")
	}
}
