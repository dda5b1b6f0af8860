package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// reservedActionKeys are the action-entry keys with dedicated meaning; any
// other key on an action object is folded into its kwargs, which lets
// authors write flat-style entries.
var reservedActionKeys = map[string]struct{}{
	"action":      {},
	"args":        {},
	"kwargs":      {},
	"optional":    {},
	"description": {},
}

// Load reads and parses a scenario file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, path, err)
	}
	return Parse(data, path)
}

// Parse decodes scenario JSON. The source string only feeds error messages.
func Parse(data []byte, source string) (*Definition, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, source, err)
	}

	id := strings.TrimSpace(stringAt(raw, "id"))
	if id == "" {
		return nil, fmt.Errorf("%w: %s: scenario id is required", ErrInvalidScenario, source)
	}

	kind, err := ParseKind(stringAt(raw, "kind"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, source, err)
	}

	name := strings.TrimSpace(stringAt(raw, "name"))
	if name == "" {
		name = id
	}

	var actions []Action
	if rawActions, ok := raw["actions"]; ok && rawActions != nil {
		list, ok := rawActions.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: actions must be a list", ErrInvalidScenario, source)
		}
		actions = make([]Action, 0, len(list))
		for i, item := range list {
			a, err := parseAction(item, source, i)
			if err != nil {
				return nil, err
			}
			actions = append(actions, a)
		}
	}

	metadata := map[string]any{}
	if rawMeta, ok := raw["metadata"]; ok && rawMeta != nil {
		m, ok := rawMeta.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: metadata must be an object", ErrInvalidScenario, source)
		}
		metadata = m
	}

	return &Definition{
		ID:       id,
		Kind:     kind,
		Name:     name,
		Actions:  actions,
		Metadata: metadata,
	}, nil
}

func parseAction(raw any, source string, index int) (Action, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Action{}, fmt.Errorf("%w: %s: action at index %d must be an object", ErrInvalidScenario, source, index)
	}

	name := strings.TrimSpace(stringAt(obj, "action"))
	if name == "" {
		return Action{}, fmt.Errorf("%w: %s: action name is required at index %d", ErrInvalidScenario, source, index)
	}

	var args []any
	if rawArgs, ok := obj["args"]; ok && rawArgs != nil {
		args, ok = rawArgs.([]any)
		if !ok {
			return Action{}, fmt.Errorf("%w: %s: args must be an array at index %d", ErrInvalidScenario, source, index)
		}
	}

	kwargs := map[string]any{}
	if rawKwargs, ok := obj["kwargs"]; ok && rawKwargs != nil {
		m, ok := rawKwargs.(map[string]any)
		if !ok {
			return Action{}, fmt.Errorf("%w: %s: kwargs must be an object at index %d", ErrInvalidScenario, source, index)
		}
		for k, v := range m {
			kwargs[k] = v
		}
	}

	// Flat-style authoring: unknown top-level keys merge into kwargs.
	for k, v := range obj {
		if _, reserved := reservedActionKeys[k]; reserved {
			continue
		}
		kwargs[k] = v
	}

	optional, _ := obj["optional"].(bool)

	return Action{
		Name:        name,
		Args:        args,
		Kwargs:      kwargs,
		Optional:    optional,
		Description: strings.TrimSpace(stringAt(obj, "description")),
	}, nil
}

func stringAt(obj map[string]any, key string) string {
	if v, ok := obj[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}
