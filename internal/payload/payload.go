// Package payload provides safe access to JSON-like payload trees by dotted
// field path. It is the single path implementation shared by filter
// evaluation and transformations.
package payload

import "strings"

// Get resolves a dotted path against the payload. The second return value is
// false when the path or any intermediate segment is missing.
func Get(m map[string]any, path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current any = m
	for _, segment := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes value at the dotted path, creating missing intermediate objects
// as empty maps. A non-object intermediate is replaced by an object.
func Set(m map[string]any, path string, value any) {
	if m == nil || path == "" {
		return
	}

	segments := strings.Split(path, ".")
	current := m
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// Delete removes the value at the dotted path. Missing paths are a no-op.
func Delete(m map[string]any, path string) {
	if m == nil || path == "" {
		return
	}

	segments := strings.Split(path, ".")
	current := m
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}

// Clone returns a deep copy of the payload tree. Only the types produced by
// encoding/json unmarshalling are descended into.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return Clone(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
