// Package store holds the live form values as a nested map addressed by dot
// paths, with per-path change subscriptions.
package store

import (
	"fmt"
	"sort"
	"strings"
)

// Change describes one mutation. Old and New are deep copies.
type Change struct {
	Path string
	Old  any
	New  any
}

// Listener receives changes for the paths it subscribed to.
type Listener func(Change)

type subscription struct {
	id   int
	path string
	fn   Listener
}

// Store is the single live value map of a form session. It is not safe for
// concurrent use; a session has one logical writer.
type Store struct {
	values map[string]any
	subs   []subscription
	nextID int
}

// New seeds a store with a deep copy of initial.
func New(initial map[string]any) *Store {
	return &Store{values: cloneValues(initial)}
}

// Get resolves a dotted path. List elements are addressed by index.
func (s *Store) Get(path string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return getPath(s.values, path)
}

// Values returns the live map. Callers must not mutate it; use Snapshot for a
// copy.
func (s *Store) Values() map[string]any {
	if s == nil {
		return nil
	}
	return s.values
}

// Snapshot returns a deep copy of the current values.
func (s *Store) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return cloneValues(s.values)
}

// Set writes value at path, creating intermediate maps and lists, and
// notifies subscribers whose path overlaps.
func (s *Store) Set(path string, value any) error {
	if s == nil {
		return fmt.Errorf("store: store is nil")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("store: empty path")
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	old, _ := getPath(s.values, path)
	next := deepCopy(value)
	if err := setPath(s.values, path, next); err != nil {
		return err
	}
	s.notify(Change{Path: path, Old: old, New: deepCopy(next)})
	return nil
}

// Delete removes the value at path so later reads report it as undefined. It
// reports whether anything was removed. Deleting a list element sets it to
// nil; use Set with a shorter list to shrink a list.
func (s *Store) Delete(path string) bool {
	if s == nil {
		return false
	}
	path = strings.TrimSpace(path)
	old, ok := getPath(s.values, path)
	if !ok {
		return false
	}
	if !deletePath(s.values, path) {
		return false
	}
	s.notify(Change{Path: path, Old: old})
	return true
}

// Replace swaps the whole value map and notifies every subscriber.
func (s *Store) Replace(values map[string]any) {
	if s == nil {
		return
	}
	old := s.values
	s.values = cloneValues(values)
	s.notify(Change{Old: old, New: cloneValues(s.values)})
}

// Subscribe registers fn for changes that touch path: writes to the path
// itself, to one of its ancestors, or to one of its descendants. An empty
// path receives every change. The returned function unsubscribes.
func (s *Store) Subscribe(path string, fn Listener) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, path: strings.TrimSpace(path), fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Watched lists the distinct subscribed paths, sorted.
func (s *Store) Watched() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.subs))
	var out []string
	for _, sub := range s.subs {
		if _, ok := seen[sub.path]; ok {
			continue
		}
		seen[sub.path] = struct{}{}
		out = append(out, sub.path)
	}
	sort.Strings(out)
	return out
}

func (s *Store) notify(change Change) {
	// Listeners may subscribe or unsubscribe while being notified.
	subs := append([]subscription(nil), s.subs...)
	for _, sub := range subs {
		if overlaps(sub.path, change.Path) {
			sub.fn(change)
		}
	}
}

func overlaps(watched, changed string) bool {
	if watched == "" || changed == "" || watched == changed {
		return true
	}
	return strings.HasPrefix(watched, changed+".") || strings.HasPrefix(changed, watched+".")
}
