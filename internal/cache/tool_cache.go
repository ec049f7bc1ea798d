package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ToolKey derives the cache key for a tool call. Arguments are hashed
// from their canonical JSON form (object keys sorted), so two argument
// sets that differ only in key order share a key.
func ToolKey(toolName string, args map[string]any) (string, error) {
	canonical, err := canonicalJSON(args)
	if err != nil {
		return "", fmt.Errorf("canonicalize args: %w", err)
	}
	h := sha256.Sum256(canonical)
	return "tool:" + toolName + ":" + hex.EncodeToString(h[:8]), nil
}

// ResourceKey derives the cache key for a resource URI.
func ResourceKey(uri string) string {
	return "resource:" + uri
}

// canonicalJSON marshals v with map keys in sorted order. A nil map
// encodes the same as an empty one.
func canonicalJSON(args map[string]any) ([]byte, error) {
	if args == nil {
		args = map[string]any{}
	}
	return json.Marshal(args)
}
