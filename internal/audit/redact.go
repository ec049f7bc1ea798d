package audit

import (
	"encoding/json"
	"strings"
)

// sensitiveKeyParts are key substrings that always trigger redaction.
var sensitiveKeyParts = []string{
	"token",
	"key",
	"secret",
	"password",
	"authorization",
	"cookie",
	"credential",
}

const redactedValue = "[REDACTED]"

// Redact replaces values under sensitive keys in a JSON document with
// [REDACTED], descending into nested objects and arrays. Input that is
// not valid JSON is returned unchanged.
func Redact(params json.RawMessage, hints []string) json.RawMessage {
	if len(params) == 0 {
		return params
	}
	var doc any
	if err := json.Unmarshal(params, &doc); err != nil {
		return params
	}
	if !redactValue(doc, hints) {
		return params
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return params
	}
	return out
}

// redactValue rewrites v in place and reports whether anything changed.
func redactValue(v any, hints []string) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if isSensitiveKey(k, hints) {
				t[k] = redactedValue
				changed = true
				continue
			}
			if redactValue(child, hints) {
				changed = true
			}
		}
	case []any:
		for _, child := range t {
			if redactValue(child, hints) {
				changed = true
			}
		}
	}
	return changed
}

func isSensitiveKey(key string, hints []string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	for _, hint := range hints {
		if strings.Contains(lower, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}
