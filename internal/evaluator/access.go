package evaluator

import (
	"reflect"
	"strings"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// Get resolves a dotted path against an Event's namespaces, e.g.
// "source.ip" or "event.category". A missing path is reported as
// absent — it is never coerced to a zero value, so evaluators can
// distinguish "field is empty string" from "field is not present".
func Get(evt *types.Event, path string) (any, bool) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil, false
	}

	var root any
	switch parts[0] {
	case "event":
		root = evt.Event
	case "source":
		root = evt.Source
	case "destination":
		root = evt.Destination
	case "host":
		root = evt.Host
	case "user":
		root = evt.User
	case "process":
		root = evt.Process
	case "network":
		root = evt.Network
	case "http":
		root = evt.HTTP
	case "url":
		root = evt.URL
	case "user_agent":
		root = evt.UserAgent
	case "dns":
		root = evt.DNS
	case "file":
		root = evt.File
	case "threat":
		root = evt.Threat
	case "message":
		if len(parts) == 1 {
			return evt.Message, true
		}
		return nil, false
	case "@timestamp", "timestamp":
		if len(parts) == 1 {
			return evt.Timestamp, true
		}
		return nil, false
	case "tags":
		if len(parts) == 1 {
			return evt.Tags, true
		}
		return nil, false
	default:
		return nil, false
	}

	return walk(root, parts[1:])
}

// walk descends into a namespace struct (or map, for the loosely
// typed `file` namespace) field by field.
func walk(v any, fields []string) (any, bool) {
	if len(fields) == 0 {
		if v == nil || isNilPointer(v) {
			return nil, false
		}
		return deref(v), true
	}

	if isNilPointer(v) || v == nil {
		return nil, false
	}

	if m, ok := v.(types.FileInfo); ok {
		return walkMap(map[string]any(m), fields)
	}
	if m, ok := v.(map[string]any); ok {
		return walkMap(m, fields)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	field := findField(rv, fields[0])
	if !field.IsValid() {
		return nil, false
	}
	return walk(field.Interface(), fields[1:])
}

func walkMap(m map[string]any, fields []string) (any, bool) {
	val, ok := m[fields[0]]
	if !ok {
		return nil, false
	}
	if len(fields) == 1 {
		return val, true
	}
	next, ok := val.(map[string]any)
	if !ok {
		return nil, false
	}
	return walkMap(next, fields[1:])
}

// findField locates a struct field by its json tag name (falling back
// to a case-insensitive name match) so dotted paths can use the
// lowercase ECS field names while the struct uses Go identifiers.
func findField(rv reflect.Value, name string) reflect.Value {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("json")
		tagName := strings.Split(tag, ",")[0]
		if tagName == name || strings.EqualFold(f.Name, name) {
			return rv.Field(i)
		}
	}
	return reflect.Value{}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}
