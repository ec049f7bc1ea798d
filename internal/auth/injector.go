package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/revittco/mcpgate/internal/config"
)

// ErrMissingCredential is returned when required auth has no secret.
var ErrMissingCredential = errors.New("missing credential")

// LookupFunc resolves a variable name to its value.
type LookupFunc func(name string) (string, bool)

// Injector places the configured credential into outgoing requests.
// A zero Injector injects nothing.
type Injector struct {
	kind     config.AuthType
	location config.KeyLocation
	name     string
	secret   string
}

// NewInjector resolves the credential named by cfg.KeyEnv. When the
// credential is absent and cfg.Required is set, it returns an error
// wrapping ErrMissingCredential. Absent optional credentials disable
// injection.
func NewInjector(cfg config.AuthConfig, lookup LookupFunc) (*Injector, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if cfg.Type == "" || cfg.Type == config.AuthNone {
		return &Injector{}, nil
	}

	secret, ok := lookup(cfg.KeyEnv)
	if !ok || secret == "" {
		if cfg.Required {
			return nil, fmt.Errorf("%w: environment variable %s is not set", ErrMissingCredential, cfg.KeyEnv)
		}
		return &Injector{}, nil
	}
	if cfg.Type == config.AuthBasic && !strings.Contains(secret, ":") {
		return nil, fmt.Errorf("basic auth: %s must hold user:password", cfg.KeyEnv)
	}

	return &Injector{
		kind:     cfg.Type,
		location: cfg.KeyLocation,
		name:     cfg.KeyName,
		secret:   secret,
	}, nil
}

// Active reports whether a credential will be injected.
func (inj *Injector) Active() bool {
	return inj != nil && inj.secret != ""
}

// Scheme describes the injection target, for logs. It never includes
// the secret.
func (inj *Injector) Scheme() string {
	if !inj.Active() {
		return "none"
	}
	if inj.kind == config.AuthAPIKey {
		return fmt.Sprintf("api_key(%s:%s)", inj.location, inj.name)
	}
	return string(inj.kind)
}

// ApplyHeaders sets header-borne credentials.
func (inj *Injector) ApplyHeaders(h http.Header) {
	if !inj.Active() {
		return
	}
	switch inj.kind {
	case config.AuthAPIKey:
		if inj.location == config.KeyInHeader {
			h.Set(inj.name, inj.secret)
		}
	case config.AuthBearer:
		h.Set("Authorization", "Bearer "+inj.secret)
	case config.AuthBasic:
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(inj.secret)))
	}
}

// ApplyQuery sets an api_key credential placed in the query string.
func (inj *Injector) ApplyQuery(q url.Values) {
	if inj.Active() && inj.kind == config.AuthAPIKey && inj.location == config.KeyInQuery {
		q.Set(inj.name, inj.secret)
	}
}

// ApplyBody sets an api_key credential placed in the JSON body. It
// returns the body, allocating one when body is nil and a field is added.
func (inj *Injector) ApplyBody(body map[string]any) map[string]any {
	if !inj.Active() || inj.kind != config.AuthAPIKey || inj.location != config.KeyInBody {
		return body
	}
	if body == nil {
		body = make(map[string]any, 1)
	}
	body[inj.name] = inj.secret
	return body
}

// InBody reports whether the credential travels in the request body.
func (inj *Injector) InBody() bool {
	return inj.Active() && inj.kind == config.AuthAPIKey && inj.location == config.KeyInBody
}
