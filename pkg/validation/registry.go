package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Func is a custom validator. A nil error passes; the error text becomes the
// failure message.
type Func func(value any) error

// ErrUnknownValidator is reported when a schema names a validator that was
// never registered.
var ErrUnknownValidator = errors.New("validation: unknown custom validator")

// Registry is the allow-list of custom validators that schemas may reference
// by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under name. Re-registering a name replaces it.
func (r *Registry) Register(name string, fn Func) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("validation: validator name is required")
	}
	if fn == nil {
		return fmt.Errorf("validation: validator %q is nil", trimmed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = make(map[string]Func)
	}
	r.funcs[trimmed] = fn
	return nil
}

// MustRegister is Register that panics on error. Useful during init.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the validator registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.TrimSpace(name)]
	return fn, ok
}

// Names lists registered validators in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
