package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedPattern indicates a rule entry that is missing its name or
// expression, or a configuration document of an unsupported shape.
var ErrMalformedPattern = errors.New("malformed pattern entry")

// FromConfig loads a rule set from a JSON or YAML pattern file and
// builds an Engine. Three document shapes are accepted:
//
//  1. an object with a "patterns" list of {name, regex|pattern, flags?}
//  2. a flat object mapping name to expression string
//  3. a bare list of the same entry shape as (1)
//
// Entries without explicit flags use defaultFlags. Unreadable or
// malformed configuration is a fatal startup error for the pipeline.
func FromConfig(path string, defaultFlags Flags) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern configuration: %w", err)
	}

	var payload any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parsing pattern configuration %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parsing pattern configuration %s: %w", path, err)
		}
	}

	rules, err := loadRules(payload, defaultFlags)
	if err != nil {
		return nil, fmt.Errorf("loading pattern configuration %s: %w", path, err)
	}
	return NewEngine(rules)
}

// loadRules resolves the accepted document shapes into one canonical
// rule list.
func loadRules(payload any, defaultFlags Flags) ([]Rule, error) {
	switch doc := payload.(type) {
	case map[string]any:
		if wrapped, ok := doc["patterns"].([]any); ok {
			return rulesFromEntries(wrapped, defaultFlags)
		}
		return rulesFromNamedMap(doc, defaultFlags)
	case []any:
		return rulesFromEntries(doc, defaultFlags)
	}
	return nil, fmt.Errorf("%w: unsupported configuration structure", ErrMalformedPattern)
}

func rulesFromEntries(entries []any, defaultFlags Flags) ([]Rule, error) {
	rules := make([]Rule, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entries must be objects", ErrMalformedPattern)
		}
		rule, err := ruleFromEntry(m, defaultFlags)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// rulesFromNamedMap handles the flat name-to-expression shape. Names are
// sorted so rule order is deterministic regardless of decoder map order.
func rulesFromNamedMap(doc map[string]any, defaultFlags Flags) ([]Rule, error) {
	names := make([]string, 0, len(doc))
	for name, value := range doc {
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("%w: unsupported configuration structure", ErrMalformedPattern)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		rule, err := NewRule(name, doc[name].(string), defaultFlags)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func ruleFromEntry(entry map[string]any, defaultFlags Flags) (Rule, error) {
	name, _ := entry["name"].(string)

	expression, _ := entry["regex"].(string)
	if expression == "" {
		expression, _ = entry["pattern"].(string)
	}

	if name == "" || expression == "" {
		return Rule{}, fmt.Errorf("%w: entries require 'name' and 'regex' fields", ErrMalformedPattern)
	}

	flags, err := flagsFromEntry(entry, defaultFlags)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", name, err)
	}
	return NewRule(name, expression, flags)
}

func flagsFromEntry(entry map[string]any, defaultFlags Flags) (Flags, error) {
	raw, ok := entry["flags"]
	if !ok || raw == nil {
		raw, ok = entry["options"]
		if !ok || raw == nil {
			return defaultFlags, nil
		}
	}

	switch value := raw.(type) {
	case string:
		return ParseFlag(value)
	case []any:
		names := make([]string, 0, len(value))
		for _, item := range value {
			name, ok := item.(string)
			if !ok {
				return 0, fmt.Errorf("%w: got list item of type %T", ErrInvalidFlagType, item)
			}
			names = append(names, name)
		}
		return ParseFlagNames(names)
	default:
		return 0, fmt.Errorf("%w: got %T", ErrInvalidFlagType, raw)
	}
}
