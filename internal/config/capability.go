package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CapabilityMode is the decoded shape of a capability flag.
type CapabilityMode int

const (
	CapabilityUnset CapabilityMode = iota
	CapabilityDisabled
	CapabilityEnabled
	CapabilityEnabledWithOptions
)

func (m CapabilityMode) String() string {
	switch m {
	case CapabilityDisabled:
		return "disabled"
	case CapabilityEnabled:
		return "enabled"
	case CapabilityEnabledWithOptions:
		return "enabled_with_options"
	default:
		return "unset"
	}
}

// Capability accepts either a bool or a {list_changed, subscribe} mapping.
type Capability struct {
	Mode        CapabilityMode
	ListChanged bool
	Subscribe   bool
}

// Active reports whether the capability should be served. An unset
// capability follows the fallback, which callers derive from whether any
// entries are declared.
func (c Capability) Active(fallback bool) bool {
	switch c.Mode {
	case CapabilityDisabled:
		return false
	case CapabilityEnabled, CapabilityEnabledWithOptions:
		return true
	default:
		return fallback
	}
}

func (c *Capability) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!bool" {
			return fmt.Errorf("line %d: capability must be a bool or mapping, got %q", node.Line, node.Value)
		}
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*c = Capability{Mode: CapabilityDisabled}
		if b {
			c.Mode = CapabilityEnabled
		}
		return nil
	case yaml.MappingNode:
		out := Capability{Mode: CapabilityEnabledWithOptions}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			var target *bool
			switch key.Value {
			case "list_changed", "listChanged":
				target = &out.ListChanged
			case "subscribe":
				target = &out.Subscribe
			default:
				return fmt.Errorf("line %d: unknown capability option %q", key.Line, key.Value)
			}
			if val.Kind != yaml.ScalarNode || val.Tag != "!!bool" {
				return fmt.Errorf("line %d: capability option %q must be a bool", val.Line, key.Value)
			}
			if err := val.Decode(target); err != nil {
				return err
			}
		}
		*c = out
		return nil
	default:
		return fmt.Errorf("line %d: capability must be a bool or mapping", node.Line)
	}
}

func (c Capability) MarshalYAML() (any, error) {
	switch c.Mode {
	case CapabilityEnabled:
		return true, nil
	case CapabilityDisabled:
		return false, nil
	case CapabilityEnabledWithOptions:
		return map[string]bool{"list_changed": c.ListChanged, "subscribe": c.Subscribe}, nil
	default:
		return nil, nil
	}
}
