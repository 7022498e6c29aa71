package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON signals that no parsable JSON object could be recovered from the
// model output. Recover never panics on malformed input.
var ErrNoJSON = errors.New("no JSON object found in model output")

var (
	thinkBlockRe  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// Recover extracts a best-effort JSON object from free-form model output.
// Strategies are tried in order, first success wins:
//
//  1. strip <think>...</think> spans, then parse the trimmed remainder
//  2. parse the interior of a fenced code block
//  3. parse balanced {...} spans found by a string/escape-aware brace scan,
//     in the order they appear
//  4. parse the substring from the first '{' to the last '}'
//
// If every strategy fails, ErrNoJSON is returned.
func Recover(text string) (map[string]any, error) {
	cleaned := strings.TrimSpace(thinkBlockRe.ReplaceAllString(text, ""))
	if cleaned == "" {
		return nil, ErrNoJSON
	}

	if obj, ok := tryParseObject(cleaned); ok {
		return obj, nil
	}

	if m := fencedBlockRe.FindStringSubmatch(cleaned); m != nil {
		if obj, ok := tryParseObject(m[1]); ok {
			return obj, nil
		}
	}

	for _, candidate := range balancedObjects(cleaned) {
		if obj, ok := tryParseObject(candidate); ok {
			return obj, nil
		}
	}

	first := strings.IndexByte(cleaned, '{')
	last := strings.LastIndexByte(cleaned, '}')
	if first != -1 && last > first {
		if obj, ok := tryParseObject(cleaned[first : last+1]); ok {
			return obj, nil
		}
	}

	return nil, ErrNoJSON
}

func tryParseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil {
		return nil, false
	}
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// balancedObjects returns every top-level {...} span in s, in order. The
// scanner tracks quoted-string state so braces inside string literals are
// ignored, and honors backslash escapes so an escaped quote does not toggle
// string state.
func balancedObjects(s string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			// Quotes outside any object are prose, not JSON strings.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}
