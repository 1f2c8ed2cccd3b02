package visibility

import (
	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Evaluator decides a single condition against the watched value.
type Evaluator interface {
	Evaluate(cond *schema.Condition, value any) bool
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(cond *schema.Condition, value any) bool

// Evaluate delegates to the underlying function.
func (fn EvaluatorFunc) Evaluate(cond *schema.Condition, value any) bool {
	return fn(cond, value)
}

// Resolver combines show/hide and enable/disable slots into visibility and
// enablement decisions. The same algorithm applies to fields, sections and
// steps; ancestors are the caller's concern.
type Resolver struct {
	eval Evaluator
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithEvaluator swaps the condition evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(r *Resolver) {
		if e != nil {
			r.eval = e
		}
	}
}

// NewResolver constructs a Resolver backed by condition.Evaluate.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{eval: EvaluatorFunc(condition.Evaluate)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Visible reports whether a node is shown. A hideWhen that holds wins
// outright; otherwise a present showWhen decides; otherwise the node is shown.
func (r *Resolver) Visible(conds schema.Conditions, lookup Lookup) bool {
	return r.decide(conds.ShowWhen, conds.HideWhen, lookup)
}

// Enabled mirrors Visible with enableWhen and disableWhen.
func (r *Resolver) Enabled(conds schema.Conditions, lookup Lookup) bool {
	return r.decide(conds.EnableWhen, conds.DisableWhen, lookup)
}

func (r *Resolver) decide(allow, deny *schema.Condition, lookup Lookup) bool {
	if deny != nil && r.holds(deny, lookup) {
		return false
	}
	if allow != nil {
		return r.holds(allow, lookup)
	}
	return true
}

func (r *Resolver) holds(cond *schema.Condition, lookup Lookup) bool {
	var value any
	if lookup != nil && cond.Field != "" {
		value, _ = lookup.Lookup(cond.Field)
	}
	return r.eval.Evaluate(cond, value)
}

// WatchedFields returns the deduplicated field references of every populated
// slot across conds, in first-seen order.
func WatchedFields(conds ...schema.Conditions) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range conds {
		for _, slot := range c.Slots() {
			field := slot.Condition.Field
			if field == "" {
				continue
			}
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}
