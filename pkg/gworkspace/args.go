package gworkspace

import (
	"time"

	"github.com/officekit/workspace-mcp/pkg/mcperr"
)

// The core dispatches arguments as the generic mapping JSON gave it; each
// handler is responsible for rejecting missing or malformed required
// arguments with a descriptive business error.

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func requireStringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", mcperr.MissingArgument(key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", mcperr.Toolf("argument %s must be a non-empty string", key)
	}
	return s, nil
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// timeArg parses an optional RFC3339 timestamp argument. The zero time
// means "not supplied".
func timeArg(args map[string]interface{}, key string) (time.Time, error) {
	s := stringArg(args, key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, mcperr.Toolf("argument %s must be an RFC3339 timestamp: %v", key, err)
	}
	return t, nil
}

func requireTimeArg(args map[string]interface{}, key string) (time.Time, error) {
	if _, ok := args[key]; !ok {
		return time.Time{}, mcperr.MissingArgument(key)
	}
	t, err := timeArg(args, key)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return time.Time{}, mcperr.Toolf("argument %s must be a non-empty RFC3339 timestamp", key)
	}
	return t, nil
}
