package form

import (
	"github.com/goliatone/go-formflow/pkg/repeat"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// state is the effective visibility and enablement of a node after its
// ancestors have been applied.
type state struct {
	visible bool
	enabled bool
}

func (st state) inherit(parent state) state {
	return state{
		visible: parent.visible && st.visible,
		enabled: parent.enabled && st.enabled,
	}
}

// fieldVisit is one concrete field instance reached while walking a step.
type fieldVisit struct {
	node   *fieldNode
	path   string
	index  int
	lookup visibility.Lookup
	state  state
}

// Validate checks every visible, enabled field of every visible step and
// records the result as the session errors. Read-only data-sourced fields
// are skipped.
func (s *Session) Validate() map[string]string {
	errs := make(map[string]string)
	for _, idx := range s.visible {
		s.validateNode(s.layout.steps[idx], errs)
	}
	s.errors = errs
	return copyErrors(errs)
}

// ValidateStep checks the active step only.
func (s *Session) ValidateStep() map[string]string {
	errs := make(map[string]string)
	if node := s.currentStep(); node != nil {
		s.validateNode(node, errs)
	}
	s.errors = errs
	return copyErrors(errs)
}

func (s *Session) validateNode(node *stepNode, errs map[string]string) {
	s.walkStep(node, func(v fieldVisit) {
		if !v.state.visible || !v.state.enabled || v.node.field.ReadOnly() {
			return
		}
		value, _ := s.store.Get(v.path)
		if msg, failed := v.node.rules.First(value); failed {
			errs[v.path] = msg
		}
	})
}

// walkStep visits every field instance of a step in render order, carrying
// the step and section state down to each field.
func (s *Session) walkStep(node *stepNode, fn func(fieldVisit)) {
	global := s.lookup()
	stepState := s.conditionState(node.conditions(), global, state{visible: true, enabled: true})

	for _, f := range node.fields {
		fn(s.visitField(f, f.field.Name, -1, global, stepState))
	}
	for _, sec := range node.sections {
		secState := s.conditionState(sec.ref.Section.Conditions, global, stepState)
		if !sec.ref.Section.Repeatable {
			for _, f := range sec.fields {
				fn(s.visitField(f, f.field.Name, -1, global, secState))
			}
			continue
		}
		g := s.groups[sec.ref.Key]
		for i := 0; i < g.Len(); i++ {
			lookup := s.itemLookup(sec.ref.Key, i)
			for _, f := range sec.fields {
				fn(s.visitField(f, repeat.ItemPath(sec.ref.Key, i, f.field.Name), i, lookup, secState))
			}
		}
	}
}

func (s *Session) visitField(f *fieldNode, path string, index int, lookup visibility.Lookup, parent state) fieldVisit {
	return fieldVisit{
		node:   f,
		path:   path,
		index:  index,
		lookup: lookup,
		state:  s.conditionState(f.field.Conditions, lookup, parent),
	}
}

func (s *Session) conditionState(conds schema.Conditions, lookup visibility.Lookup, parent state) state {
	own := state{
		visible: s.resolver.Visible(conds, lookup),
		enabled: s.resolver.Enabled(conds, lookup),
	}
	return own.inherit(parent)
}

func copyErrors(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
