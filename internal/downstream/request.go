package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/revittco/mcpgate/internal/config"
)

var (
	bareTemplateRe = regexp.MustCompile(`^\{(\w+)\}$`)
	pathParamRe    = regexp.MustCompile(`\{(\w+)\}`)
)

// requestSpec is a fully resolved upstream request. It is immutable so
// that every retry resubmits the same method, URL, headers and body.
type requestSpec struct {
	method string
	url    string
	header http.Header
	body   []byte
}

func (s *requestSpec) newRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if s.body != nil {
		body = bytes.NewReader(s.body)
	}
	req, err := http.NewRequestWithContext(ctx, s.method, s.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = s.header.Clone()
	return req, nil
}

// resolveTemplate resolves a params/body template value. A string of
// exactly "{name}" yields args[name]; anything else is a literal. The
// boolean is false when the value resolves to missing, null or "".
func resolveTemplate(v any, args map[string]any) (any, bool) {
	if s, ok := v.(string); ok {
		if m := bareTemplateRe.FindStringSubmatch(s); m != nil {
			v = args[m[1]]
		}
	}
	if v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, false
	}
	return v, true
}

// resolvePath substitutes {name} placeholders with path-escaped argument
// values. Placeholders without a usable argument are left as written and
// returned in unresolved.
func resolvePath(path string, args map[string]any) (resolved string, unresolved []string) {
	resolved = pathParamRe.ReplaceAllStringFunc(path, func(ph string) string {
		name := ph[1 : len(ph)-1]
		v, ok := args[name]
		if !ok || v == nil {
			unresolved = append(unresolved, name)
			return ph
		}
		return url.PathEscape(formatValue(v))
	})
	return resolved, unresolved
}

// formatValue renders an argument for a URL. JSON numbers decode as
// float64, so integral values print without a decimal point.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// buildQuery resolves the params template. Array values become repeated keys.
func buildQuery(params map[string]any, args map[string]any) url.Values {
	q := url.Values{}
	for k, tmpl := range params {
		v, ok := resolveTemplate(tmpl, args)
		if !ok {
			continue
		}
		if list, isList := v.([]any); isList {
			for _, item := range list {
				if item != nil {
					q.Add(k, formatValue(item))
				}
			}
			continue
		}
		q.Set(k, formatValue(v))
	}
	return q
}

// buildBody resolves the body template. It returns nil when nothing
// resolved.
func buildBody(tmpl map[string]any, args map[string]any) map[string]any {
	var body map[string]any
	for k, t := range tmpl {
		v, ok := resolveTemplate(t, args)
		if !ok {
			continue
		}
		if body == nil {
			body = make(map[string]any, len(tmpl))
		}
		body[k] = v
	}
	return body
}

// buildRequest turns an endpoint template and invocation arguments into
// a requestSpec, applying static headers and credentials.
func (h *Handler) buildRequest(ep config.EndpointConfig, args map[string]any) (*requestSpec, error) {
	path, unresolved := resolvePath(ep.Path, args)
	if len(unresolved) > 0 {
		h.logger.Warn("unresolved path placeholders",
			"path", ep.Path,
			"missing", unresolved,
		)
	}

	u, err := url.Parse(strings.TrimRight(h.baseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	q := u.Query()
	for k, vs := range buildQuery(ep.Params, args) {
		q[k] = vs
	}
	h.injector.ApplyQuery(q)
	u.RawQuery = q.Encode()

	method := strings.ToUpper(ep.Method)
	header := make(http.Header)
	header.Set("Accept", "application/json")
	header.Set("User-Agent", h.userAgent)
	expandHeaders(header, h.lookup, h.cfg.API.Headers, ep.Headers)
	h.injector.ApplyHeaders(header)

	spec := &requestSpec{method: method, url: u.String(), header: header}

	body := h.injector.ApplyBody(buildBody(ep.Body, args))
	if len(body) > 0 && ep.SendsBody() {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		spec.body = data
		header.Set("Content-Type", "application/json")
	}
	return spec, nil
}

// normalizeBody returns JSON bodies verbatim and wraps anything else as
// a JSON string. An empty body becomes null.
func normalizeBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	b, _ := json.Marshal(string(body))
	return b
}
