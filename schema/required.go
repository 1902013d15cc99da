package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// requiredFields walks the generic JSON form of a payload alongside the Go
// type it decodes into and reports every field the type needs but the payload
// lacks. Fields tagged omitempty are optional; pointer and interface fields
// must be present but may be null.
func requiredFields(t reflect.Type, payload any, path string) []*Violation {
	for t.Kind() == reflect.Pointer {
		if payload == nil {
			return nil
		}
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		object, ok := payload.(map[string]any)
		if !ok {
			return nil
		}
		var out []*Violation
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, optional, skip := jsonField(field)
			if skip {
				continue
			}
			if field.Anonymous && field.Type.Kind() == reflect.Struct && name == field.Name {
				out = append(out, requiredFields(field.Type, payload, path)...)
				continue
			}
			fieldPath := joinPath(path, name)
			value, present := object[name]
			if !present {
				if !optional {
					out = append(out, &Violation{Path: fieldPath, Err: ErrMissingField})
				}
				continue
			}
			if value == nil {
				if !optional && !nullable(field.Type) {
					out = append(out, &Violation{Path: fieldPath, Err: ErrMissingField})
				}
				continue
			}
			out = append(out, requiredFields(field.Type, value, fieldPath)...)
		}
		return out
	case reflect.Slice, reflect.Array:
		items, ok := payload.([]any)
		if !ok {
			return nil
		}
		var out []*Violation
		for i, item := range items {
			itemPath := path + "[" + strconv.Itoa(i) + "]"
			if item == nil && !nullable(t.Elem()) {
				out = append(out, &Violation{Path: itemPath, Err: ErrMissingField})
				continue
			}
			out = append(out, requiredFields(t.Elem(), item, itemPath)...)
		}
		return out
	case reflect.Map:
		entries, ok := payload.(map[string]any)
		if !ok {
			return nil
		}
		var out []*Violation
		for key, entry := range entries {
			entryPath := joinPath(path, key)
			if entry == nil && !nullable(t.Elem()) {
				out = append(out, &Violation{Path: entryPath, Err: ErrMissingField})
				continue
			}
			out = append(out, requiredFields(t.Elem(), entry, entryPath)...)
		}
		return out
	default:
		return nil
	}
}

func jsonField(field reflect.StructField) (name string, optional, skip bool) {
	name = field.Name
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" && len(parts) == 1 {
		return "", false, true
	}
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			optional = true
		}
	}
	return name, optional, false
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		return true
	default:
		return false
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return fmt.Sprintf("%s.%s", prefix, segment)
}
