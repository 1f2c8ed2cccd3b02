// Package async tracks keyed background operations (data source fetches,
// uploads) as loading/success/error states with stale request cancellation.
package async

import (
	"context"
	"errors"
	"sync"
)

// Status is the observable phase of a keyed operation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is what renderers display for a key.
type State struct {
	Status Status `json:"status"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

var (
	// ErrClosed is returned once the tracker has been closed.
	ErrClosed = errors.New("async: tracker closed")
	// ErrSuperseded is returned to a caller whose operation was replaced by a
	// newer one for the same key before it finished.
	ErrSuperseded = errors.New("async: operation superseded")
)

// Func performs one operation. It must honour ctx cancellation.
type Func func(ctx context.Context) (any, error)

type entry struct {
	state  State
	cancel context.CancelFunc
	gen    uint64
}

// Tracker runs at most one operation per key. Starting a new operation for a
// key cancels the in-flight one and its result is discarded. It is safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	wg      sync.WaitGroup
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Run executes fn for key and blocks until it finishes, recording the
// outcome unless a newer operation for key started meanwhile.
func (t *Tracker) Run(ctx context.Context, key string, fn Func) (any, error) {
	runCtx, gen, err := t.begin(ctx, key)
	if err != nil {
		return nil, err
	}
	defer t.wg.Done()
	return t.finish(runCtx, key, gen, fn)
}

// Go is Run in a background goroutine. Close waits for it.
func (t *Tracker) Go(ctx context.Context, key string, fn Func) error {
	runCtx, gen, err := t.begin(ctx, key)
	if err != nil {
		return err
	}
	go func() {
		defer t.wg.Done()
		_, _ = t.finish(runCtx, key, gen, fn)
	}()
	return nil
}

// State returns the state for key; unknown keys are idle.
func (t *Tracker) State(key string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e.state
	}
	return State{Status: StatusIdle}
}

// Set records a state directly, cancelling any in-flight operation for key.
func (t *Tracker) Set(key string, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(key)
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	e.state = state
}

// Snapshot copies every known state.
func (t *Tracker) Snapshot() map[string]State {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]State, len(t.entries))
	for key, e := range t.entries {
		out[key] = e.state
	}
	return out
}

// Cancel aborts the in-flight operation for key, if any. The key returns to
// idle unless it already holds a result.
func (t *Tracker) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	e.gen++
	if e.state.Status == StatusLoading {
		e.state = State{Status: StatusIdle}
	}
}

// Close cancels every in-flight operation and waits for them to return.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	for _, e := range t.entries {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.gen++
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) begin(ctx context.Context, key string) (context.Context, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, 0, ErrClosed
	}
	e := t.entry(key)
	if e.cancel != nil {
		e.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.gen++
	e.state = State{Status: StatusLoading}
	// Paired with Done in Run/Go; added under the lock so Close cannot miss it.
	t.wg.Add(1)
	return runCtx, e.gen, nil
}

func (t *Tracker) finish(ctx context.Context, key string, gen uint64, fn Func) (any, error) {
	value, err := fn(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[key]
	if e == nil || e.gen != gen {
		return nil, ErrSuperseded
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if err != nil {
		e.state = State{Status: StatusError, Error: err.Error()}
		return nil, err
	}
	e.state = State{Status: StatusSuccess, Value: value}
	return value, nil
}

func (t *Tracker) entry(key string) *entry {
	if t.entries == nil {
		t.entries = make(map[string]*entry)
	}
	e, ok := t.entries[key]
	if !ok {
		e = &entry{state: State{Status: StatusIdle}}
		t.entries[key] = e
	}
	return e
}
