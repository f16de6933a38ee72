package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/overlaykit/overlay/definition"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// mapping is an order-preserving decoded mapping; yaml.v3 node walking keeps
// the source key order that plain map decoding would lose.
type mapping struct {
	keys   []string
	values map[string]any
}

// decodeOverlay parses overlay file content by extension. YAML and JSON go
// through the YAML parser (JSON is a YAML subset); TOML uses go-toml with
// sorted keys for determinism.
func decodeOverlay(data []byte, extension string) (any, error) {
	switch extension {
	case ".overlay.yaml", ".overlay.yml", ".overlay.json":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to parse overlay: %w", err)
		}
		if root.Kind == 0 {
			return nil, nil
		}
		return decodeNode(&root)
	case ".overlay.toml":
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse overlay: %w", err)
		}
		return normalizeTOML(raw), nil
	default:
		return nil, fmt.Errorf("unsupported overlay extension %q", extension)
	}
}

func decodeNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return decodeNode(node.Content[0])
	case yaml.MappingNode:
		decoded := &mapping{values: map[string]any{}}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value, err := decodeNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			if _, duplicate := decoded.values[key]; !duplicate {
				decoded.keys = append(decoded.keys, key)
			}
			decoded.values[key] = value
		}
		return decoded, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	case yaml.AliasNode:
		return decodeNode(node.Alias)
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, err
		}
		return value, nil
	}
}

func normalizeTOML(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		decoded := &mapping{values: map[string]any{}}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			decoded.keys = append(decoded.keys, key)
			decoded.values[key] = normalizeTOML(typed[key])
		}
		return decoded
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = normalizeTOML(item)
		}
		return items
	default:
		return typed
	}
}

// parseReference parses the overlay reference syntax: "$^^.Path.To.Scope"
// escapes one level per caret; the segment "~" names the referring symbol.
func parseReference(text string) (definition.RelativeReference, bool) {
	if !strings.HasPrefix(text, "$") {
		return definition.RelativeReference{}, false
	}
	rest := text[1:]
	levels := 0
	for strings.HasPrefix(rest, "^") {
		levels++
		rest = rest[1:]
	}
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return definition.RelativeReference{}, false
	}
	return definition.NewReference(levels, strings.Split(rest, ".")...), true
}

// fileDefinitions converts a decoded overlay file into the definitions it
// contributes. A top-level mapping is a scope whose keys are children; a
// list or scalar means the file itself is one mixin value.
func fileDefinitions(value any, source string) ([]definition.Definition, error) {
	def, err := valueDefinition(value, source)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, nil
	}
	return []definition.Definition{def}, nil
}

// valueDefinition parses one mixin value: mapping → scope, list →
// (inheritances, property definitions, scalar values), scalar → constant
// resource.
func valueDefinition(value any, source string) (definition.Definition, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case *mapping:
		return mappingScope(typed, nil, source)
	case []any:
		return listMixin(typed, source)
	default:
		return definition.Const(typed), nil
	}
}

func mappingScope(decoded *mapping, bases []definition.RelativeReference, source string) (definition.Definition, error) {
	scope := definition.NewScope(bases...)
	for _, key := range decoded.keys {
		child, err := valueDefinition(decoded.values[key], source)
		if err != nil {
			return nil, err
		}
		if child != nil {
			scope.Add(key, child)
		}
	}
	return scope, nil
}

func listMixin(items []any, source string) (definition.Definition, error) {
	var bases []definition.RelativeReference
	var properties []*mapping
	var scalars []any
	for _, item := range items {
		switch typed := item.(type) {
		case *mapping:
			properties = append(properties, typed)
		case string:
			if reference, ok := parseReference(typed); ok {
				bases = append(bases, reference)
				continue
			}
			scalars = append(scalars, typed)
		case []any:
			return nil, &InvalidOverlayFileError{URL: source, Cause: fmt.Errorf("nested list in mixin value")}
		default:
			scalars = append(scalars, typed)
		}
	}
	if len(scalars) > 0 && (len(properties) > 0 || len(bases) > 0) {
		return nil, &InvalidOverlayFileError{URL: source, Cause: fmt.Errorf("scalar values cannot mix with properties or inheritances")}
	}
	if len(properties) > 0 || len(bases) > 0 {
		scope := definition.NewScope(bases...)
		for _, property := range properties {
			for _, key := range property.keys {
				child, err := valueDefinition(property.values[key], source)
				if err != nil {
					return nil, err
				}
				if child != nil {
					scope.Add(key, child)
				}
			}
		}
		return scope, nil
	}
	if len(scalars) == 1 {
		return definition.Const(scalars[0]), nil
	}
	return definition.Const(scalars), nil
}
