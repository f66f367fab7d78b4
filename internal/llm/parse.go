package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadResponse indicates an LLM response that was expected to contain JSON
// but could not be decoded even after stripping markdown fences.
var ErrBadResponse = errors.New("response is not valid JSON")

// DecodeLenient decodes JSON from an LLM response into v, tolerating a
// markdown code fence around the payload. This is the single shared decoder
// for structured responses: models routinely wrap JSON in ```json fences
// even when asked not to, so every JSON-expecting call site goes through
// here rather than hand-rolling its own stripping.
func DecodeLenient(raw string, v any) error {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", ErrBadResponse)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

// StripFences removes one leading and trailing triple-backtick fence, with
// an optional language tag on the opening fence, and trims whitespace.
// Content without fences passes through unchanged apart from trimming.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the language tag (e.g. "json") up to the first newline.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "" || isLanguageTag(firstLine) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isLanguageTag reports whether a fence's first line looks like a language
// identifier rather than payload.
func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) <= 16
}
