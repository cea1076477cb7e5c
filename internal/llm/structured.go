package llm

import (
	"encoding/json"
	"strings"
)

// DecodeJSON extracts the first JSON object embedded in model output and
// unmarshals it into the declared schema type T.
//
// Models frequently wrap JSON in prose or markdown fences, so the decoder
// scans for the first balanced {...} object rather than requiring the whole
// output to be JSON. Parse failure is a first-class outcome, not an error:
// the caller declares an explicit fallback value, which is returned with
// ok=false so stage-specific fallback policy (keyword routing, fail-open
// approval) can be applied locally.
func DecodeJSON[T any](raw string, fallback T) (T, bool) {
	obj, found := extractObject(raw)
	if !found {
		return fallback, false
	}

	var out T
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return fallback, false
	}
	return out, true
}

// extractObject returns the first balanced JSON object in s.
// Braces inside JSON strings are ignored.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
