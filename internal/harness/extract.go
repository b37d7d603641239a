package harness

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/jsonc"
)

// extractSpan returns text from the first open byte to the last close byte.
func extractSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, close)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// decodeSpan decodes the greedy open..close span of a model reply into v.
// Comments and trailing commas are tolerated. Callers pick their own
// fallback when it reports false.
func decodeSpan(text string, open, close byte, v interface{}) bool {
	span, ok := extractSpan(text, open, close)
	if !ok {
		return false
	}
	return json.Unmarshal(jsonc.ToJSON([]byte(span)), v) == nil
}

func decodeObject(text string, v interface{}) bool {
	return decodeSpan(text, '{', '}', v)
}

func decodeArray(text string, v interface{}) bool {
	return decodeSpan(text, '[', ']', v)
}
