package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// stepNode is one traversable step. Schemas without steps get a single
// implicit node built from the top-level fields and sections.
type stepNode struct {
	index    int
	step     *schema.Step
	fields   []*fieldNode
	sections []*sectionNode
}

func (n *stepNode) conditions() schema.Conditions {
	if n.step == nil {
		return schema.Conditions{}
	}
	return n.step.Conditions
}

type sectionNode struct {
	ref    schema.SectionRef
	fields []*fieldNode
}

type fieldNode struct {
	field   *schema.Field
	rules   validation.RuleSet
	section *sectionNode
}

// repeatable reports whether the field lives inside a repeatable item.
func (n *fieldNode) repeatable() bool {
	return n.section != nil && n.section.ref.Section.Repeatable
}

type layout struct {
	steps []*stepNode
	// global maps non-repeatable field names to their node. A name shared
	// by several sections binds to its first declaration.
	global map[string]*fieldNode
	// sections maps repeatable section keys to their node.
	sections map[string]*sectionNode
}

func buildLayout(s *schema.Schema, opts []validation.Option) (*layout, error) {
	l := &layout{
		global:   make(map[string]*fieldNode),
		sections: make(map[string]*sectionNode),
	}
	var errs []error

	newField := func(f *schema.Field, sec *sectionNode) *fieldNode {
		rules, err := validation.Compile(f.Validation, opts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", f.Name, err))
		}
		node := &fieldNode{field: f, rules: rules, section: sec}
		if _, seen := l.global[f.Name]; !seen && !node.repeatable() {
			l.global[f.Name] = node
		}
		return node
	}
	newFields := func(fields []schema.Field, sec *sectionNode) []*fieldNode {
		out := make([]*fieldNode, 0, len(fields))
		for i := range fields {
			out = append(out, newField(&fields[i], sec))
		}
		return out
	}
	newSections := func(refs []schema.SectionRef) []*sectionNode {
		out := make([]*sectionNode, 0, len(refs))
		for _, ref := range refs {
			sec := &sectionNode{ref: ref}
			sec.fields = newFields(ref.Section.Fields, sec)
			if ref.Section.Repeatable {
				l.sections[ref.Key] = sec
			}
			out = append(out, sec)
		}
		return out
	}

	refsByStep := make(map[int][]schema.SectionRef)
	for _, ref := range s.SectionRefs() {
		refsByStep[ref.Step] = append(refsByStep[ref.Step], ref)
	}

	if len(s.Steps) == 0 {
		node := &stepNode{index: 0}
		node.fields = newFields(s.Fields, nil)
		node.sections = newSections(refsByStep[schema.TopLevel])
		l.steps = []*stepNode{node}
		return l, errors.Join(errs...)
	}

	for i := range s.Steps {
		node := &stepNode{index: i, step: &s.Steps[i]}
		node.fields = newFields(s.Steps[i].Fields, nil)
		node.sections = newSections(refsByStep[i])
		l.steps = append(l.steps, node)
	}
	return l, errors.Join(errs...)
}

// target is a resolved value path.
type target struct {
	node  *fieldNode
	path  string
	index int // item index for repeatable fields, -1 otherwise
}

// resolve maps a value path onto its field descriptor. Repeatable item
// fields are addressed as key.index.field.
func (l *layout) resolve(path string) (target, bool) {
	path = strings.TrimSpace(path)
	if node, ok := l.global[path]; ok {
		return target{node: node, path: path, index: -1}, true
	}
	for key, sec := range l.sections {
		rest, ok := strings.CutPrefix(path, key+".")
		if !ok {
			continue
		}
		idxRaw, name, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxRaw)
		if err != nil || idx < 0 {
			continue
		}
		for _, f := range sec.fields {
			if f.field.Name == name {
				return target{node: f, path: path, index: idx}, true
			}
		}
	}
	return target{}, false
}

// paths lists every known template path; repeatable fields use key.*.name.
func (l *layout) paths() map[string]struct{} {
	out := make(map[string]struct{}, len(l.global))
	for name := range l.global {
		out[name] = struct{}{}
	}
	for key, sec := range l.sections {
		for _, f := range sec.fields {
			out[key+"."+f.field.Name] = struct{}{}
		}
	}
	return out
}
