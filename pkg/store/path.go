package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Clone deep copies maps and lists so that stored values never alias caller
// data. Typed slices and string keyed maps, such as []map[string]any, are
// normalised to []any and map[string]any so path lookups can walk them.
func Clone(value any) any {
	return deepCopy(value)
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	case []byte:
		return append([]byte(nil), typed...)
	default:
		return normalize(typed)
	}
}

func normalize(value any) any {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return value
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = deepCopy(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return value
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = deepCopy(iter.Value().Interface())
		}
		return out
	default:
		return value
	}
}

func getPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// setPath writes value, growing lists and creating maps along the way. A
// numeric segment following a map key selects a list element.
func setPath(root map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return fmt.Errorf("store: empty segment in path %q", path)
		}
	}
	_, err := assign(root, segments, value, path)
	return err
}

// assign returns node with value written under segments. Lists may be
// reallocated, so parents always store the returned container.
func assign(node any, segments []string, value any, path string) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	segment := segments[0]
	idx, numErr := strconv.Atoi(segment)

	switch typed := node.(type) {
	case map[string]any:
		child, err := assign(typed[segment], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		typed[segment] = child
		return typed, nil
	case []any:
		if numErr != nil || idx < 0 {
			return nil, fmt.Errorf("store: expected list index, got %q in path %q", segment, path)
		}
		if len(typed) <= idx {
			typed = append(typed, make([]any, idx+1-len(typed))...)
		}
		child, err := assign(typed[idx], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		typed[idx] = child
		return typed, nil
	default:
		// Missing or scalar containers are replaced by the shape the
		// segment asks for.
		if numErr == nil && idx >= 0 {
			return assign(make([]any, 0, idx+1), segments, value, path)
		}
		return assign(make(map[string]any), segments, value, path)
	}
}

func deletePath(root map[string]any, path string) bool {
	segments := strings.Split(path, ".")
	parentPath := strings.Join(segments[:len(segments)-1], ".")
	last := segments[len(segments)-1]

	var parent any = root
	if parentPath != "" {
		var ok bool
		parent, ok = getPath(root, parentPath)
		if !ok {
			return false
		}
	}
	switch node := parent.(type) {
	case map[string]any:
		if _, ok := node[last]; !ok {
			return false
		}
		delete(node, last)
		return true
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(node) {
			return false
		}
		node[idx] = nil
		return true
	default:
		return false
	}
}
