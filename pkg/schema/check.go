package schema

import (
	"fmt"
	"strings"
)

// Issue is a schema authoring problem located by a dotted document path.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) Error() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Check reports structural problems: duplicate names within a scope,
// malformed field paths, duplicate section keys, unknown field types and
// inconsistent repeatable bounds. A nil result means the schema is usable.
//
// Scopes are the flat fields of the schema and its steps, each section, and
// each repeatable item. Fields of non-repeatable sections bind into the same
// top-level value map as flat fields, so a name declared in two sections
// shares one value.
func Check(s *Schema) []Issue {
	if s == nil {
		return []Issue{{Message: "schema is nil"}}
	}
	var issues []Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// bound tracks every name that lands in the top-level value map.
	bound := make(map[string]string)
	checkFields := func(fields []Field, prefix string, scope map[string]string, topLevel bool) {
		for i, field := range fields {
			path := strings.TrimPrefix(fmt.Sprintf("%s.fields.%d", prefix, i), ".")
			name := strings.TrimSpace(field.Name)
			switch {
			case name == "":
				add(path, "field name is required")
			case !validPath(name):
				add(path, "malformed field name %q", name)
			default:
				if prev, ok := scope[name]; ok {
					add(path, "duplicate field name %q (first declared at %s)", name, prev)
				} else {
					scope[name] = path
				}
				if _, ok := bound[name]; topLevel && !ok {
					bound[name] = path
				}
			}
			if !field.Type.Valid() {
				add(path, "unknown field type %q", field.Type)
			}
		}
	}

	keys := make(map[string]string)
	var repeatables []SectionRef
	for _, ref := range s.SectionRefs() {
		prefix := sectionPath(ref)
		if prev, ok := keys[ref.Key]; ok {
			add(prefix, "duplicate section key %q (first used at %s)", ref.Key, prev)
		} else {
			keys[ref.Key] = prefix
		}
		checkFields(ref.Section.Fields, prefix, make(map[string]string), !ref.Section.Repeatable)
		if ref.Section.Repeatable {
			repeatables = append(repeatables, ref)
			checkRepeatable(ref.Section.RepeatableConfig, prefix, add)
		}
	}

	flat := make(map[string]string)
	checkFields(s.Fields, "", flat, true)
	for i, step := range s.Steps {
		checkFields(step.Fields, fmt.Sprintf("steps.%d", i), flat, true)
	}

	for _, ref := range repeatables {
		if prev, ok := bound[ref.Key]; ok {
			add(sectionPath(ref), "repeatable section key %q collides with field %s", ref.Key, prev)
		}
	}

	for i, ds := range s.DataSources {
		if strings.TrimSpace(ds.ID) == "" {
			add(fmt.Sprintf("dataSources.%d", i), "data source id is required")
		}
	}
	for i, us := range s.UploadSources {
		if strings.TrimSpace(us.ID) == "" {
			add(fmt.Sprintf("uploadSources.%d", i), "upload source id is required")
		}
	}
	return issues
}

// Lint reports problems that do not stop a form from loading: conditions
// without a field and unknown operators. Both evaluate to true.
func Lint(s *Schema) []Issue {
	if s == nil {
		return nil
	}
	var issues []Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	lintFields := func(fields []Field, prefix string) {
		for i, field := range fields {
			checkConditions(field.Conditions, strings.TrimPrefix(fmt.Sprintf("%s.fields.%d", prefix, i), "."), add)
		}
	}

	for _, ref := range s.SectionRefs() {
		prefix := sectionPath(ref)
		checkConditions(ref.Section.Conditions, prefix, add)
		lintFields(ref.Section.Fields, prefix)
	}
	lintFields(s.Fields, "")
	for i, step := range s.Steps {
		prefix := fmt.Sprintf("steps.%d", i)
		checkConditions(step.Conditions, prefix, add)
		lintFields(step.Fields, prefix)
	}
	return issues
}

func validPath(name string) bool {
	for _, segment := range strings.Split(name, ".") {
		if strings.TrimSpace(segment) == "" {
			return false
		}
	}
	return true
}

func sectionPath(ref SectionRef) string {
	if ref.Step == TopLevel {
		return fmt.Sprintf("sections.%d", ref.Index)
	}
	return fmt.Sprintf("steps.%d.sections.%d", ref.Step, ref.Index)
}

func checkConditions(c Conditions, path string, add func(string, string, ...any)) {
	for _, slot := range c.Slots() {
		if strings.TrimSpace(slot.Condition.Field) == "" {
			add(path+"."+slot.Name, "condition field is required")
		}
		if op := slot.Condition.Operator; op != "" && !op.Valid() {
			add(path+"."+slot.Name, "unknown operator %q", op)
		}
	}
}

func checkRepeatable(cfg *RepeatableConfig, path string, add func(string, string, ...any)) {
	if cfg == nil {
		return
	}
	path += ".repeatableConfig"
	if cfg.MinItems < 0 || cfg.MaxItems < 0 {
		add(path, "item bounds must not be negative")
	}
	if cfg.MaxItems > 0 && cfg.MinItems > cfg.MaxItems {
		add(path, "minItems (%d) exceeds maxItems (%d)", cfg.MinItems, cfg.MaxItems)
	}
	if cfg.InitialItems != nil {
		if *cfg.InitialItems < cfg.MinItems {
			add(path, "initialItems (%d) is below minItems (%d)", *cfg.InitialItems, cfg.MinItems)
		}
		if cfg.MaxItems > 0 && *cfg.InitialItems > cfg.MaxItems {
			add(path, "initialItems (%d) exceeds maxItems (%d)", *cfg.InitialItems, cfg.MaxItems)
		}
	}
}
