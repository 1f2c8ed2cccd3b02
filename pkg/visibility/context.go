package visibility

import (
	"strconv"
	"strings"
)

// Lookup resolves a condition's field reference to its current value. A
// missing field reports false and is evaluated as nil.
type Lookup interface {
	Lookup(field string) (any, bool)
}

// LookupFunc adapts a function into a Lookup.
type LookupFunc func(field string) (any, bool)

// Lookup delegates to the underlying function.
func (fn LookupFunc) Lookup(field string) (any, bool) {
	return fn(field)
}

// Context provides condition inputs. Values holds the live form values while
// Extras allows callers to inject arbitrary context such as user roles or
// feature flags, addressed with the `extras.` prefix.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// Lookup resolves dot paths against Values, or Extras for `extras.` keys.
func (c Context) Lookup(key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	if strings.HasPrefix(strings.ToLower(key), "extras.") {
		return LookupPath(c.Extras, strings.TrimSpace(key[len("extras."):]))
	}
	return LookupPath(c.Values, key)
}

// Scoped resolves names against a repeatable item first and falls back to
// Parent for everything the item does not define.
type Scoped struct {
	Item   map[string]any
	Parent Lookup
}

// Lookup implements Lookup.
func (s Scoped) Lookup(key string) (any, bool) {
	if v, ok := LookupPath(s.Item, key); ok {
		return v, true
	}
	if s.Parent == nil {
		return nil, false
	}
	return s.Parent.Lookup(key)
}

// LookupPath walks values by dot path. Exact dotted keys are preferred, list
// segments are addressed by index.
func LookupPath(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
