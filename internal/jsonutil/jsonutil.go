// Package jsonutil extracts structured data from free-form model output.
//
// Models asked for "only JSON" still wrap their answer in markdown
// fences, preambles, or trailing chatter. Every call site that needs an
// object out of model text goes through ExtractObject rather than
// parsing ad hoc.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject is returned when the input contains no parseable JSON object.
var ErrNoObject = errors.New("no JSON object found in response")

// ExtractObject pulls the first well-formed JSON object out of text.
//
// Strategy: trim the input, strip a surrounding markdown fence if
// present, then try a full parse. If that fails, retry on the span from
// the first '{' to the last '}' — models often wrap valid JSON in prose.
func ExtractObject(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, fmt.Errorf("extract object: empty response")
	}

	s = stripFence(s)

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj, nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, ErrNoObject
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("extract object: %w", err)
	}
	return obj, nil
}

// stripFence removes a surrounding ```lang ... ``` markdown fence.
// Input must already be trimmed.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence line, if any.
	if i := strings.Index(s, "\n"); i != -1 {
		first := strings.TrimSpace(s[:i])
		if !strings.ContainsAny(first, "{}") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
