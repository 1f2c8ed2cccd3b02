package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Outcome reports what a Submit call did.
type Outcome struct {
	// Advanced is true when the call moved to the next visible step.
	Advanced bool
	// Submitted is true when the submission callback ran and succeeded.
	Submitted bool
}

// VisibleSteps returns the schema indexes of the currently visible steps in
// order.
func (s *Session) VisibleSteps() []int {
	return append([]int(nil), s.visible...)
}

// StepIndex returns the active position inside VisibleSteps.
func (s *Session) StepIndex() int {
	return s.index
}

// StepCount returns the number of visible steps.
func (s *Session) StepCount() int {
	return len(s.visible)
}

// IsLast reports whether the active step is the last visible one. A form
// whose steps are all hidden has nothing left to advance to.
func (s *Session) IsLast() bool {
	return s.index >= len(s.visible)-1
}

// Next validates the active step and advances. Values of earlier steps are
// never cleared.
func (s *Session) Next() error {
	if s.submitted {
		return ErrSubmitted
	}
	if s.IsLast() {
		return ErrLastStep
	}
	if fields := s.ValidateStep(); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	s.index++
	s.logger.Debug("advanced step", zap.Int("index", s.index), zap.Int("visible", len(s.visible)))
	return nil
}

// Previous moves back one step without revalidating.
func (s *Session) Previous() error {
	if s.submitted {
		return ErrSubmitted
	}
	if s.index == 0 {
		return ErrFirstStep
	}
	s.index--
	return nil
}

// Submit is the single submit affordance. On a non-final step it behaves as
// Next. On the final step it validates every visible field of every visible
// step and hands the values to the submission callback exactly once.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	if s.submitted {
		return Outcome{}, ErrSubmitted
	}
	if !s.IsLast() {
		if err := s.Next(); err != nil {
			return Outcome{}, err
		}
		return Outcome{Advanced: true}, nil
	}

	if fields := s.Validate(); len(fields) > 0 {
		s.logger.Debug("submission blocked", zap.Int("errors", len(fields)))
		return Outcome{}, &ValidationError{Fields: fields}
	}
	if s.onSubmit != nil {
		if err := s.onSubmit(ctx, s.store.Snapshot()); err != nil {
			return Outcome{}, fmt.Errorf("form: submit: %w", err)
		}
	}
	s.submitted = true
	s.logger.Info("form submitted", zap.String("title", s.schema.Title))
	return Outcome{Submitted: true}, nil
}

// watchSteps subscribes to every field referenced by a step condition.
func (s *Session) watchSteps() {
	var fields []string
	for _, node := range s.layout.steps {
		fields = append(fields, visibility.WatchedFields(node.conditions())...)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		s.store.Subscribe(field, func(store.Change) {
			s.recomputeSteps()
		})
	}
}

// recomputeSteps rebuilds the visible step list and clamps the active index
// to the new last position.
func (s *Session) recomputeSteps() {
	lookup := s.lookup()
	visible := make([]int, 0, len(s.layout.steps))
	for _, node := range s.layout.steps {
		if s.resolver.Visible(node.conditions(), lookup) {
			visible = append(visible, node.index)
		}
	}
	s.visible = visible
	if last := len(visible) - 1; s.index > last {
		s.index = max(last, 0)
		s.logger.Debug("clamped step index", zap.Int("index", s.index))
	}
}

// currentStep returns the active step node, or nil when every step is hidden.
func (s *Session) currentStep() *stepNode {
	if len(s.visible) == 0 {
		return nil
	}
	return s.layout.steps[s.visible[s.index]]
}
