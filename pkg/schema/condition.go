package schema

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Operator names the comparison used when a condition relies on the generic
// `operator` + `value` form instead of a shorthand key.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpIn          Operator = "in"
	OpNotIn       Operator = "notIn"
	OpIsEmpty     Operator = "isEmpty"
	OpIsNotEmpty  Operator = "isNotEmpty"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
)

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpIsEmpty, OpIsNotEmpty, OpGreaterThan, OpLessThan:
		return true
	default:
		return false
	}
}

// Condition is a single-field comparison. Exactly one discriminator is
// expected; when several are present the shorthand keys win over Operator in
// the order equals, notEquals, in, notIn, isEmpty, isNotEmpty, greaterThan,
// lessThan.
type Condition struct {
	Field       string
	Operator    Operator
	Value       Value
	Equals      Value
	NotEquals   Value
	In          []any
	NotIn       []any
	IsEmpty     bool
	IsNotEmpty  bool
	GreaterThan *float64
	LessThan    *float64
}

// Conditions groups the four condition slots shared by fields, sections and
// steps.
type Conditions struct {
	ShowWhen    *Condition `json:"showWhen,omitempty"`
	HideWhen    *Condition `json:"hideWhen,omitempty"`
	EnableWhen  *Condition `json:"enableWhen,omitempty"`
	DisableWhen *Condition `json:"disableWhen,omitempty"`
}

// Empty reports whether no slot is populated.
func (c Conditions) Empty() bool {
	return c.ShowWhen == nil && c.HideWhen == nil && c.EnableWhen == nil && c.DisableWhen == nil
}

// Slot pairs a populated condition with its document key.
type Slot struct {
	Name      string
	Condition *Condition
}

// Slots returns the populated slots in the order showWhen, hideWhen,
// enableWhen, disableWhen.
func (c Conditions) Slots() []Slot {
	out := make([]Slot, 0, 4)
	for _, slot := range []Slot{
		{"showWhen", c.ShowWhen},
		{"hideWhen", c.HideWhen},
		{"enableWhen", c.EnableWhen},
		{"disableWhen", c.DisableWhen},
	} {
		if slot.Condition != nil {
			out = append(out, slot)
		}
	}
	return out
}

// Equals builds an equality condition.
func Equals(field string, value any) *Condition {
	return &Condition{Field: field, Equals: V(value)}
}

// NotEquals builds an inequality condition.
func NotEquals(field string, value any) *Condition {
	return &Condition{Field: field, NotEquals: V(value)}
}

// In builds a membership condition.
func In(field string, values ...any) *Condition {
	return &Condition{Field: field, In: append([]any{}, values...)}
}

// NotIn builds a negated membership condition.
func NotIn(field string, values ...any) *Condition {
	return &Condition{Field: field, NotIn: append([]any{}, values...)}
}

// IsEmpty builds an emptiness condition.
func IsEmpty(field string) *Condition {
	return &Condition{Field: field, IsEmpty: true}
}

// IsNotEmpty builds a non-emptiness condition.
func IsNotEmpty(field string) *Condition {
	return &Condition{Field: field, IsNotEmpty: true}
}

// GreaterThan builds a numeric lower-bound condition.
func GreaterThan(field string, n float64) *Condition {
	return &Condition{Field: field, GreaterThan: &n}
}

// LessThan builds a numeric upper-bound condition.
func LessThan(field string, n float64) *Condition {
	return &Condition{Field: field, LessThan: &n}
}

// UnmarshalJSON decodes a condition tracking which keys were present so that
// explicit nulls survive as set operands.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: condition: %w", err)
	}
	out := Condition{}
	for key, msg := range raw {
		var err error
		switch key {
		case "field":
			err = json.Unmarshal(msg, &out.Field)
		case "operator":
			err = json.Unmarshal(msg, &out.Operator)
		case "value":
			err = out.Value.UnmarshalJSON(msg)
		case "equals":
			err = out.Equals.UnmarshalJSON(msg)
		case "notEquals":
			err = out.NotEquals.UnmarshalJSON(msg)
		case "in":
			out.In, err = decodeList(msg)
		case "notIn":
			out.NotIn, err = decodeList(msg)
		case "isEmpty":
			err = json.Unmarshal(msg, &out.IsEmpty)
		case "isNotEmpty":
			err = json.Unmarshal(msg, &out.IsNotEmpty)
		case "greaterThan":
			out.GreaterThan, err = decodeNumber(msg)
		case "lessThan":
			out.LessThan, err = decodeNumber(msg)
		}
		if err != nil {
			return fmt.Errorf("schema: condition key %q: %w", key, err)
		}
	}
	*c = out
	return nil
}

// MarshalJSON emits only the keys that were set.
func (c Condition) MarshalJSON() ([]byte, error) {
	out := map[string]any{"field": c.Field}
	if c.Operator != "" {
		out["operator"] = c.Operator
	}
	if v, ok := c.Value.Get(); ok {
		out["value"] = v
	}
	if v, ok := c.Equals.Get(); ok {
		out["equals"] = v
	}
	if v, ok := c.NotEquals.Get(); ok {
		out["notEquals"] = v
	}
	if c.In != nil {
		out["in"] = c.In
	}
	if c.NotIn != nil {
		out["notIn"] = c.NotIn
	}
	if c.IsEmpty {
		out["isEmpty"] = true
	}
	if c.IsNotEmpty {
		out["isNotEmpty"] = true
	}
	if c.GreaterThan != nil {
		out["greaterThan"] = *c.GreaterThan
	}
	if c.LessThan != nil {
		out["lessThan"] = *c.LessThan
	}
	return json.Marshal(out)
}

func decodeList(msg json.RawMessage) ([]any, error) {
	if isNullJSON(msg) {
		return nil, nil
	}
	out := []any{}
	if err := json.Unmarshal(msg, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeNumber(msg json.RawMessage) (*float64, error) {
	if isNullJSON(msg) {
		return nil, nil
	}
	var n float64
	if err := json.Unmarshal(msg, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
