package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSONArray pulls the outermost JSON array out of a model
// response. Responses are frequently wrapped in markdown fences or
// surrounded by prose; locating the array delimiters first is cheaper
// and more robust than stripping every wrapper variant.
func extractJSONArray(text string, v any) error {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON array in response: %.200s", text)
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("decode response array: %w", err)
	}
	return nil
}

// truncate bounds a string for prompt payloads and fallback summaries.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary so multi-byte text stays valid.
	b := []byte(s)
	for max > 0 && b[max]&0xc0 == 0x80 {
		max--
	}
	return string(b[:max])
}
