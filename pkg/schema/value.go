package schema

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Value is an optional literal that remembers whether it was supplied. The
// zero value is unset; V wraps a value (including nil) as set.
type Value struct {
	v   any
	set bool
}

// V wraps value as a set literal.
func V(value any) Value {
	return Value{v: value, set: true}
}

// Get returns the literal and whether it was supplied.
func (v Value) Get() (any, bool) {
	return v.v, v.set
}

// IsSet reports whether the literal was supplied.
func (v Value) IsSet() bool {
	return v.set
}

// Any returns the wrapped literal, nil when unset.
func (v Value) Any() any {
	return v.v
}

// UnmarshalJSON marks the value as set, including for an explicit null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	v.v = out
	v.set = true
	return nil
}

// MarshalJSON encodes the literal; unset values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

func isNullJSON(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
