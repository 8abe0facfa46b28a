package tools

import (
	"encoding/json"
	"fmt"
)

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// optionalString extracts an optional string argument, "" when absent.
func optionalString(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

// intArg extracts a required integer argument, accepting the numeric
// encodings JSON decoding produces.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("argument %q must be a number", key)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}

// optionalInt extracts an optional integer argument, def when absent or
// malformed.
func optionalInt(args map[string]any, key string, def int) int {
	if _, ok := args[key]; !ok {
		return def
	}
	n, err := intArg(args, key)
	if err != nil {
		return def
	}
	return n
}

// optionalBool extracts an optional boolean argument, def when absent.
func optionalBool(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}
