package pagekb

import (
	"encoding/json"
	"regexp"
	"strings"
)

// LLM replies rarely arrive as clean JSON: they come wrapped in prose,
// fenced in markdown code blocks, or truncated mid-structure when the
// output token budget runs out. ParseJSONResponse locates the JSON
// region and walks an escalating ladder of syntactic repairs. It knows
// nothing about any document schema — it repairs syntax, never infers
// missing semantic fields.

var (
	fencedBlockRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

	danglingKeyRe    = regexp.MustCompile(`,\s*"[^"]*$`)
	danglingObjectRe = regexp.MustCompile(`,\s*\{[^}]*$`)
	danglingArrayRe  = regexp.MustCompile(`,\s*\[[^\]]*$`)
)

// ParseJSONResponse extracts and parses the JSON object carried in a
// free-form LLM reply. Returns an ENOJSON error when no fenced block
// or {...} region is locatable, and an EJSONREPAIR error when every
// repair attempt fails.
func ParseJSONResponse(raw string) (map[string]any, error) {
	var result map[string]any
	if err := DecodeJSONResponse(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DecodeJSONResponse is ParseJSONResponse decoding into a caller
// schema instead of a generic map.
func DecodeJSONResponse(raw string, v any) error {
	jsonStr, err := extractJSONRegion(raw)
	if err != nil {
		return err
	}

	// Attempt 1: strict parse.
	if err := json.Unmarshal([]byte(jsonStr), v); err == nil {
		return nil
	}

	// Attempt 2: strip trailing commas before closing brackets.
	fixed := trailingCommaRe.ReplaceAllString(jsonStr, "$1")
	if err := json.Unmarshal([]byte(fixed), v); err == nil {
		return nil
	}

	// Attempt 3: truncation recovery.
	if repaired := repairTruncatedJSON(fixed); repaired != "" {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	return Errorf(EJSONREPAIR, "failed to parse JSON after repair attempts at ~char %d, tail: ...%s",
		len(jsonStr), tailSnippet(jsonStr, 200))
}

// extractJSONRegion locates the JSON payload: a fenced code block
// takes precedence, then the first { through the last } of the text.
func extractJSONRegion(raw string) (string, error) {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	start := strings.Index(raw, "{")
	if start < 0 {
		return "", Errorf(ENOJSON, "no JSON found in response: %s", tailSnippet(raw, 200))
	}

	// A reply cut off mid-object has an opening brace but no closing
	// one; hand the whole tail to the repair ladder.
	end := strings.LastIndex(raw, "}")
	if end < start {
		end = len(raw) - 1
	}
	return strings.TrimSpace(raw[start : end+1]), nil
}

// repairTruncatedJSON recovers a parseable prefix of JSON that was cut
// off mid-structure. If the text contains a point where all braces and
// brackets returned to depth zero (a complete top-level object), it
// truncates there. Otherwise it strips dangling fragments — an
// unterminated key, a half-open object or array — and appends the
// closers the remaining open structures need, innermost first.
// Returns "" when the input holds no salvageable structure.
func repairTruncatedJSON(s string) string {
	lastComplete, _ := scanStructure(s)
	if lastComplete > 0 {
		return s[:lastComplete]
	}

	truncated := danglingKeyRe.ReplaceAllString(s, "")
	truncated = danglingObjectRe.ReplaceAllString(truncated, "")
	truncated = danglingArrayRe.ReplaceAllString(truncated, "")

	// The strip may have removed opens, so the open stack is
	// recomputed before synthesizing closers.
	_, open := scanStructure(truncated)
	if len(open) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(truncated)
	for i := len(open) - 1; i >= 0; i-- {
		switch open[i] {
		case '{':
			b.WriteByte('}')
		case '[':
			b.WriteByte(']')
		}
	}
	return b.String()
}

// scanStructure walks s tracking brace/bracket depth while honoring
// string-quote and backslash-escape state. It returns the offset just
// past the last point where all depth returned to zero, and the stack
// of unclosed openers in order.
func scanStructure(s string) (lastComplete int, open []byte) {
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{', '[':
			open = append(open, c)
		case '}', ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			if len(open) == 0 && c == '}' {
				lastComplete = i + 1
			}
		}
	}
	return lastComplete, open
}

func tailSnippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
