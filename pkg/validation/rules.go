package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Canonical rule kinds, in evaluation order.
const (
	RuleRequired  = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RuleMin       = "min"
	RuleMax       = "max"
	RulePattern   = "pattern"
	RuleCustom    = "custom"
)

// EmailPattern is the fixed expression applied by the email flag.
const EmailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`

var emailExpr = regexp.MustCompile(EmailPattern)

// Rule is one compiled constraint. Kind and Params describe the rule for
// renderers; the check itself is not serialised.
type Rule struct {
	Kind    string            `json:"kind"`
	Params  map[string]string `json:"params,omitempty"`
	Message string            `json:"message"`

	check func(value any) (string, bool)
}

// Check runs the rule and returns the failure message when it does not hold.
func (r Rule) Check(value any) (string, bool) {
	if r.check == nil {
		return "", true
	}
	return r.check(value)
}

// RuleSet is the ordered set of rules compiled for one field.
type RuleSet struct {
	Rules []Rule `json:"rules,omitempty"`
}

// Empty reports whether no rule was compiled.
func (rs RuleSet) Empty() bool {
	return len(rs.Rules) == 0
}

// Required reports whether the set carries a presence rule.
func (rs RuleSet) Required() bool {
	for _, r := range rs.Rules {
		if r.Kind == RuleRequired {
			return true
		}
	}
	return false
}

// Validate evaluates every rule and returns all failure messages in rule
// order.
func (rs RuleSet) Validate(value any) []string {
	var out []string
	for _, r := range rs.Rules {
		if msg, ok := r.Check(value); !ok {
			out = append(out, msg)
		}
	}
	return out
}

// First returns the message of the first failing rule, the one a renderer
// displays.
func (rs RuleSet) First(value any) (string, bool) {
	for _, r := range rs.Rules {
		if msg, ok := r.Check(value); !ok {
			return msg, true
		}
	}
	return "", false
}

// Option configures Compile.
type Option func(*compileOptions)

type compileOptions struct {
	registry *Registry
}

// WithRegistry resolves `custom` names against reg.
func WithRegistry(reg *Registry) Option {
	return func(o *compileOptions) {
		o.registry = reg
	}
}

// Compile maps a validation spec onto a rule set. Rules that cannot be built
// (bad regular expressions, unknown custom names) are skipped and reported in
// the returned error; the rule set is always usable.
func Compile(spec schema.ValidationSpec, opts ...Option) (RuleSet, error) {
	cfg := compileOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var (
		rules []Rule
		errs  []error
	)

	if spec.Required.Enabled {
		msg := message(spec.Required.Message, "This field is required")
		rules = append(rules, Rule{
			Kind:    RuleRequired,
			Message: msg,
			check: func(value any) (string, bool) {
				if IsBlank(value) {
					return msg, false
				}
				return "", true
			},
		})
	}
	if b := spec.MinLength; b != nil {
		msg := message(b.Message, fmt.Sprintf("Minimum length is %s characters", formatNumber(b.Value)))
		rules = append(rules, Rule{
			Kind:    RuleMinLength,
			Params:  map[string]string{"value": formatNumber(b.Value)},
			Message: msg,
			check: func(value any) (string, bool) {
				n, ok := length(value)
				if !ok || float64(n) >= b.Value {
					return "", true
				}
				return msg, false
			},
		})
	}
	if b := spec.MaxLength; b != nil {
		msg := message(b.Message, fmt.Sprintf("Maximum length is %s characters", formatNumber(b.Value)))
		rules = append(rules, Rule{
			Kind:    RuleMaxLength,
			Params:  map[string]string{"value": formatNumber(b.Value)},
			Message: msg,
			check: func(value any) (string, bool) {
				n, ok := length(value)
				if !ok || float64(n) <= b.Value {
					return "", true
				}
				return msg, false
			},
		})
	}
	if b := spec.Min; b != nil {
		msg := message(b.Message, fmt.Sprintf("Minimum value is %s", formatNumber(b.Value)))
		rules = append(rules, Rule{
			Kind:    RuleMin,
			Params:  map[string]string{"value": formatNumber(b.Value)},
			Message: msg,
			check: func(value any) (string, bool) {
				n, ok := number(value)
				if !ok || n >= b.Value {
					return "", true
				}
				return msg, false
			},
		})
	}
	if b := spec.Max; b != nil {
		msg := message(b.Message, fmt.Sprintf("Maximum value is %s", formatNumber(b.Value)))
		rules = append(rules, Rule{
			Kind:    RuleMax,
			Params:  map[string]string{"value": formatNumber(b.Value)},
			Message: msg,
			check: func(value any) (string, bool) {
				n, ok := number(value)
				if !ok || n <= b.Value {
					return "", true
				}
				return msg, false
			},
		})
	}

	// email and pattern share one slot; email overwrites.
	switch {
	case spec.Email.Enabled:
		rules = append(rules, patternRule(emailExpr, message(spec.Email.Message, "Invalid email address"), "email"))
	case spec.Pattern != nil:
		expr, err := regexp.Compile(spec.Pattern.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("validation: pattern %q: %w", spec.Pattern.Value, err))
			break
		}
		rules = append(rules, patternRule(expr, message(spec.Pattern.Message, "Invalid format"), ""))
	}

	if custom := customFunc(spec, cfg.registry, &errs); custom != nil {
		rules = append(rules, Rule{
			Kind:    RuleCustom,
			Params:  customParams(spec.Custom),
			Message: "Invalid value",
			check: func(value any) (string, bool) {
				if err := custom(value); err != nil {
					return message(err.Error(), "Invalid value"), false
				}
				return "", true
			},
		})
	}

	return RuleSet{Rules: rules}, errors.Join(errs...)
}

func customFunc(spec schema.ValidationSpec, reg *Registry, errs *[]error) Func {
	if spec.CustomFunc != nil {
		return spec.CustomFunc
	}
	if spec.Custom == "" {
		return nil
	}
	fn, ok := reg.Lookup(spec.Custom)
	if !ok {
		*errs = append(*errs, fmt.Errorf("%w: %q", ErrUnknownValidator, spec.Custom))
		return nil
	}
	return fn
}

func customParams(name string) map[string]string {
	if name == "" {
		return nil
	}
	return map[string]string{"name": name}
}

func patternRule(expr *regexp.Regexp, msg, source string) Rule {
	params := map[string]string{"pattern": expr.String()}
	if source != "" {
		params["source"] = source
	}
	return Rule{
		Kind:    RulePattern,
		Params:  params,
		Message: msg,
		check: func(value any) (string, bool) {
			s, ok := value.(string)
			if !ok || s == "" || expr.MatchString(s) {
				return "", true
			}
			return msg, false
		},
	}
}

// IsBlank reports whether value fails a presence check: nil, the empty
// string, an empty list or map, or false.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// length measures strings in runes and lists by element count. Empty values
// are skipped so that optional fields only fail the required rule.
func length(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return 0, false
		}
		return utf8.RuneCountInString(v), true
	case []any:
		if len(v) == 0 {
			return 0, false
		}
		return len(v), true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Len() > 0 {
		return rv.Len(), true
	}
	return 0, false
}

func number(value any) (float64, bool) {
	if s, ok := value.(string); ok && s == "" {
		return 0, false
	}
	return condition.ToNumber(value)
}

func message(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
