package convo

// CompressionConfig controls every pass C1 runs and seeds C3's adaptive
// working copy. It is immutable for the lifetime of one request.
type CompressionConfig struct {
	Enabled               bool   `json:"enabled"`
	WhitespaceCompression bool   `json:"whitespace_compression"`
	ThinkingStrategy      string `json:"thinking_strategy"` // keep | truncate | discard

	ToolResultMaxChars   int `json:"tool_result_max_chars"`
	ToolResultHeadLines  int `json:"tool_result_head_lines"`
	ToolResultTailLines  int `json:"tool_result_tail_lines"`
	ToolUseInputMaxChars int `json:"tool_use_input_max_chars"`
	ToolDescriptionMax   int `json:"tool_description_max_chars"`

	MaxHistoryTurns int `json:"max_history_turns"`
	MaxHistoryChars int `json:"max_history_chars"`

	MaxRequestBodyBytes int `json:"max_request_body_bytes"`

	ImageMaxLongEdge     int `json:"image_max_long_edge"`
	ImageMaxPixelsSingle int `json:"image_max_pixels_single"`
	ImageMaxPixelsMulti  int `json:"image_max_pixels_multi"`
	ImageMultiThreshold  int `json:"image_multi_threshold"`
}

// DefaultCompressionConfig mirrors the original implementation's defaults.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Enabled:               true,
		WhitespaceCompression: true,
		ThinkingStrategy:      "discard",
		ToolResultMaxChars:    8000,
		ToolResultHeadLines:   80,
		ToolResultTailLines:   40,
		ToolUseInputMaxChars:  6000,
		ToolDescriptionMax:    4000,
		MaxHistoryTurns:       80,
		MaxHistoryChars:       400_000,
		MaxRequestBodyBytes:   400_000,
		ImageMaxLongEdge:      1568,
		ImageMaxPixelsSingle:  1_150_000,
		ImageMaxPixelsMulti:   4_000_000,
		ImageMultiThreshold:   20,
	}
}

// Clone returns a copy safe for C3 to mutate as its working config.
func (c CompressionConfig) Clone() CompressionConfig {
	return c
}
