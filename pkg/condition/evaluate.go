package condition

import (
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Evaluate reports whether value satisfies cond. A nil condition, or one
// without a field reference, always passes.
//
// When several discriminators are set the first one in the order equals,
// notEquals, in, notIn, isEmpty, isNotEmpty, greaterThan, lessThan decides;
// otherwise Operator is dispatched with Value as its operand.
func Evaluate(cond *schema.Condition, value any) bool {
	if cond == nil || cond.Field == "" {
		return true
	}

	if want, ok := cond.Equals.Get(); ok {
		return Equal(value, want)
	}
	if want, ok := cond.NotEquals.Get(); ok {
		return !Equal(value, want)
	}
	if cond.In != nil {
		return Contains(cond.In, value)
	}
	if cond.NotIn != nil {
		return !Contains(cond.NotIn, value)
	}
	if cond.IsEmpty {
		return IsEmpty(value)
	}
	if cond.IsNotEmpty {
		return !IsEmpty(value)
	}
	if cond.GreaterThan != nil {
		n, ok := ToNumber(value)
		return ok && n > *cond.GreaterThan
	}
	if cond.LessThan != nil {
		n, ok := ToNumber(value)
		return ok && n < *cond.LessThan
	}
	return dispatch(cond.Operator, cond.Value.Any(), value)
}

func dispatch(op schema.Operator, operand, value any) bool {
	switch op {
	case schema.OpEquals:
		return Equal(value, operand)
	case schema.OpNotEquals:
		return !Equal(value, operand)
	case schema.OpIn:
		list, ok := operand.([]any)
		return ok && Contains(list, value)
	case schema.OpNotIn:
		list, ok := operand.([]any)
		return !ok || !Contains(list, value)
	case schema.OpIsEmpty:
		return IsEmpty(value)
	case schema.OpIsNotEmpty:
		return !IsEmpty(value)
	case schema.OpGreaterThan:
		return compare(value, operand, func(a, b float64) bool { return a > b })
	case schema.OpLessThan:
		return compare(value, operand, func(a, b float64) bool { return a < b })
	default:
		return true
	}
}

func compare(value, operand any, fn func(a, b float64) bool) bool {
	a, ok := ToNumber(value)
	if !ok {
		return false
	}
	b, ok := ToNumber(operand)
	if !ok {
		return false
	}
	return fn(a, b)
}
