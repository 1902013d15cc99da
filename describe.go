package versioned

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes a path and the inferred type.
type FieldDescriptor struct {
	Path string `json:"path" yaml:"path"`
	Type string `json:"type" yaml:"type"`
}

// VersionDescriptor summarises one generation of a chain.
type VersionDescriptor struct {
	Version      int               `json:"version" yaml:"version"`
	Own          bool              `json:"own,omitempty" yaml:"own,omitempty"`
	HasMigration bool              `json:"has_migration" yaml:"has_migration"`
	DefaultType  string            `json:"default_type" yaml:"default_type"`
	Fields       []FieldDescriptor `json:"fields" yaml:"fields"`
}

// Describe lists every generation registered on the chain, flagging the one
// the handle is bound to. Field paths come from the JSON form of each
// default value.
func (m *Model[T]) Describe() []VersionDescriptor {
	out := make([]VersionDescriptor, 0, len(m.reg.steps))
	for idx, current := range m.reg.steps {
		fields := deriveFieldDescriptors(genericForm(current.defaultValue), "")
		if fields == nil {
			fields = []FieldDescriptor{}
		}
		out = append(out, VersionDescriptor{
			Version:      idx,
			Own:          idx == m.version,
			HasMigration: current.migrate != nil,
			DefaultType:  fmt.Sprintf("%T", current.defaultValue),
			Fields:       fields,
		})
	}
	return out
}

func genericForm(value any) any {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	return generic
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: "null"}}
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{
				Path: prefix,
				Type: "object",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: "[]" + elementType,
		}}
	default:
		return []FieldDescriptor{{
			Path: prefix,
			Type: typeName(typed),
		}}
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
