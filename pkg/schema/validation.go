package schema

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// ValidationSpec is the declarative per-field validation description.
type ValidationSpec struct {
	Required  Flag     `json:"required,omitempty"`
	MinLength *Bound   `json:"minLength,omitempty"`
	MaxLength *Bound   `json:"maxLength,omitempty"`
	Min       *Bound   `json:"min,omitempty"`
	Max       *Bound   `json:"max,omitempty"`
	Pattern   *Pattern `json:"pattern,omitempty"`
	Email     Flag     `json:"email,omitempty"`
	// Custom names a validator registered in validation.Registry.
	Custom string `json:"custom,omitempty"`
	// CustomFunc attaches a validator directly. It is only available to
	// schemas built in Go and never decoded from documents.
	CustomFunc func(value any) error `json:"-"`
}

// Empty reports whether no rule is declared.
func (v ValidationSpec) Empty() bool {
	return !v.Required.Enabled && v.MinLength == nil && v.MaxLength == nil &&
		v.Min == nil && v.Max == nil && v.Pattern == nil && !v.Email.Enabled &&
		v.Custom == "" && v.CustomFunc == nil
}

// Flag accepts `true` or a message string in documents. A string enables the
// rule and overrides its default message.
type Flag struct {
	Enabled bool
	Message string
}

// On returns an enabled flag with an optional message.
func On(message ...string) Flag {
	f := Flag{Enabled: true}
	if len(message) > 0 {
		f.Message = message[0]
	}
	return f
}

// IsZero lets encoders omit disabled flags.
func (f Flag) IsZero() bool {
	return !f.Enabled
}

// UnmarshalJSON accepts a bool or a string.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = Flag{}
	case bool:
		*f = Flag{Enabled: v}
	case string:
		*f = Flag{Enabled: true, Message: v}
	default:
		return fmt.Errorf("schema: expected bool or string, got %T", raw)
	}
	return nil
}

// MarshalJSON emits `true` or the message string.
func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Enabled {
		return []byte("false"), nil
	}
	if f.Message != "" {
		return json.Marshal(f.Message)
	}
	return []byte("true"), nil
}

// Bound is a numeric threshold written either as a bare number or as
// `{value, message}`.
type Bound struct {
	Value   float64 `json:"value"`
	Message string  `json:"message,omitempty"`
}

// Limit returns a bound with an optional message.
func Limit(value float64, message ...string) *Bound {
	b := &Bound{Value: value}
	if len(message) > 0 {
		b.Message = message[0]
	}
	return b
}

// UnmarshalJSON accepts a number or an object.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = Bound{Value: n}
		return nil
	}
	type alias Bound
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("schema: expected number or {value, message}: %w", err)
	}
	*b = Bound(obj)
	return nil
}

// MarshalJSON emits a bare number when no message is attached.
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.Message == "" {
		return json.Marshal(b.Value)
	}
	type alias Bound
	return json.Marshal(alias(b))
}

// Pattern is a regular expression rule. A bare string is accepted as the
// expression.
type Pattern struct {
	Value   string `json:"value"`
	Message string `json:"message,omitempty"`
}

// UnmarshalJSON accepts a string or an object.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Pattern{Value: s}
		return nil
	}
	type alias Pattern
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("schema: expected string or {value, message}: %w", err)
	}
	*p = Pattern(obj)
	return nil
}
