package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFence removes a markdown code fence that models sometimes wrap
// around JSON payloads despite instructions.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func decodeJSONArray(text string, dst any) error {
	return decode(text, dst, "[", "]")
}

func decodeJSONObject(text string, dst any) error {
	return decode(text, dst, "{", "}")
}

func decode(text string, dst any, open, closing string) error {
	raw := stripFence(text)
	if raw == "" {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(raw), dst); err == nil {
		return nil
	}

	// Salvage the outermost JSON value from surrounding prose.
	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, closing)
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), dst); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnparseable, truncate(raw, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
