package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/revittco/mcpgate/internal/cache"
	"github.com/revittco/mcpgate/internal/config"
)

// ResourceContent is the body of a read resource.
type ResourceContent struct {
	URI      string
	MimeType string
	Text     string
	CacheHit bool
}

// FetchResource reads a configured resource. Resources with an endpoint
// are fetched live and cached under "resource:<uri>"; others are served
// from the cache, falling back to a not-implemented placeholder.
func (h *Handler) FetchResource(ctx context.Context, uri string) (*ResourceContent, error) {
	res, ok := h.cfg.Resource(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}

	key := cache.ResourceKey(uri)
	if h.cache.Enabled() {
		if data, ok := h.cache.Get(key); ok {
			h.metrics.ObserveCacheLookup("resource", true)
			return resourceContent(res, data, true), nil
		}
		h.metrics.ObserveCacheLookup("resource", false)
	}

	if res.Endpoint == nil {
		data, _ := json.Marshal(map[string]string{
			"uri":     uri,
			"message": "Resource fetching not implemented",
		})
		return &ResourceContent{URI: uri, MimeType: config.DefaultMimeType, Text: string(data)}, nil
	}

	data, err := h.shared(ctx, key, func(sctx context.Context) (json.RawMessage, error) {
		spec, err := h.buildRequest(*res.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		body, err := h.send(sctx, spec)
		if err != nil {
			return nil, err
		}
		data := normalizeBody(body)
		h.cache.Set(key, data, res.CacheTTLDuration())
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return resourceContent(res, data, false), nil
}

// resourceContent renders cached data for the resource's MIME type. Non
// JSON types get the original text back when the body was wrapped.
func resourceContent(res *config.ResourceConfig, data json.RawMessage, hit bool) *ResourceContent {
	text := string(data)
	if !strings.Contains(res.MimeType, "json") {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			text = s
		}
	}
	return &ResourceContent{URI: res.URI, MimeType: res.MimeType, Text: text, CacheHit: hit}
}

// PromptMessage is one rendered prompt message.
type PromptMessage struct {
	Role string
	Text string
}

// PromptResult is a rendered prompt.
type PromptResult struct {
	Description string
	Messages    []PromptMessage
}

// GeneratePrompt renders a configured prompt. A prompt with a template
// has its {arg} placeholders substituted; otherwise a single message
// describes the prompt and its arguments.
func (h *Handler) GeneratePrompt(name string, args map[string]string) (*PromptResult, error) {
	p, ok := h.cfg.Prompt(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	declared := make(map[string]bool, len(p.Arguments))
	for _, a := range p.Arguments {
		declared[a.Name] = true
		if a.Required && args[a.Name] == "" {
			return nil, &MissingArgumentError{Name: a.Name}
		}
	}

	var text string
	if p.Template != "" {
		text = pathParamRe.ReplaceAllStringFunc(p.Template, func(ph string) string {
			arg := ph[1 : len(ph)-1]
			if v, ok := args[arg]; ok {
				return v
			}
			if declared[arg] {
				return ""
			}
			return ph
		})
	} else {
		text = describePrompt(p, args)
	}

	return &PromptResult{
		Description: p.Description,
		Messages:    []PromptMessage{{Role: "user", Text: text}},
	}, nil
}

func describePrompt(p *config.PromptConfig, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Prompt: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	b.WriteString("Arguments:")
	if len(keys) == 0 {
		b.WriteString(" none")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %s", k, args[k])
	}
	return b.String()
}
