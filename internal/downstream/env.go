package downstream

import (
	"net/http"
	"os"
)

// expandVars replaces ${VAR} and $VAR references in val using lookup.
// Unknown names expand to the empty string.
func expandVars(val string, lookup func(string) (string, bool)) string {
	return os.Expand(val, func(key string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return ""
	})
}

// expandHeaders copies static headers into h, expanding variable
// references. Later maps override earlier ones for the same key.
func expandHeaders(h http.Header, lookup func(string) (string, bool), sets ...map[string]string) {
	for _, set := range sets {
		for k, v := range set {
			h.Set(k, expandVars(v, lookup))
		}
	}
}
