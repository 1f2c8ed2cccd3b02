package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Widget identifiers resolved for field types.
const (
	WidgetTextInput    = "text-input"
	WidgetTextarea     = "textarea"
	WidgetEmail        = "email-input"
	WidgetPassword     = "password-input"
	WidgetNumber       = "number-input"
	WidgetDatePicker   = "date-picker"
	WidgetSelect       = "select"
	WidgetMultiSelect  = "multi-select"
	WidgetAutocomplete = "autocomplete"
	WidgetFileUpload   = "file-upload"
	WidgetRadioGroup   = "radio-group"
	WidgetCheckbox     = "checkbox"
	WidgetToggle       = "toggle"
	WidgetHidden       = "hidden"
	WidgetChips        = "chips"
	WidgetReadOnly     = "read-only"
)

// Base maps every field type onto its default widget. Unknown types report
// false.
func Base(t schema.FieldType) (string, bool) {
	switch t {
	case schema.TypeText:
		return WidgetTextInput, true
	case schema.TypeTextarea:
		return WidgetTextarea, true
	case schema.TypeEmail:
		return WidgetEmail, true
	case schema.TypePassword:
		return WidgetPassword, true
	case schema.TypeNumber:
		return WidgetNumber, true
	case schema.TypeDate:
		return WidgetDatePicker, true
	case schema.TypeSelect:
		return WidgetSelect, true
	case schema.TypeMultiSelect:
		return WidgetMultiSelect, true
	case schema.TypeAutocomplete:
		return WidgetAutocomplete, true
	case schema.TypeFile:
		return WidgetFileUpload, true
	case schema.TypeRadio:
		return WidgetRadioGroup, true
	case schema.TypeCheckbox:
		return WidgetCheckbox, true
	case schema.TypeSwitch:
		return WidgetToggle, true
	case schema.TypeHidden:
		return WidgetHidden, true
	default:
		return "", false
	}
}

// Matcher decides whether a widget renderer should handle the supplied field.
type Matcher func(field schema.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields. An explicit field widget wins, then
// registered matchers by priority (ties fall back to registration order),
// then the field type's base widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field.
func (r *Registry) Resolve(field schema.Field) (string, bool) {
	if explicit := strings.TrimSpace(field.Widget); explicit != "" {
		return explicit, true
	}
	if r != nil {
		r.mu.RLock()
		rules := append([]rule(nil), r.rules...)
		r.mu.RUnlock()
		sort.SliceStable(rules, func(i, j int) bool {
			if rules[i].priority == rules[j].priority {
				return rules[i].order < rules[j].order
			}
			return rules[i].priority > rules[j].priority
		})
		for _, entry := range rules {
			if entry.match(field) {
				return entry.name, true
			}
		}
	}
	return Base(field.Type)
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetReadOnly, 100, func(field schema.Field) bool {
		return field.ReadOnly()
	})

	r.Register(WidgetChips, 80, func(field schema.Field) bool {
		return field.Type == schema.TypeMultiSelect && len(field.Options) == 0
	})

	r.Register(WidgetSelect, 70, func(field schema.Field) bool {
		return field.Type == schema.TypeText && len(field.Options) > 0
	})

	r.Register(WidgetTextarea, 60, func(field schema.Field) bool {
		return field.Type == schema.TypeText && field.Validation.MaxLength != nil && field.Validation.MaxLength.Value > 255
	})
}
