// Package repeat manages the items of repeatable sections stored in a shared
// value store.
package repeat

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/defaults"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
)

// ErrUnknownSection is returned when no repeatable section has the key.
var ErrUnknownSection = errors.New("repeat: unknown repeatable section")

// Item is one repeatable instance. Index is positional and shifts when
// earlier siblings are removed; ID is stable for the item's lifetime.
type Item struct {
	ID     string
	Index  int
	Values map[string]any
}

// Group controls one repeatable section. Items live in the store as a list
// of maps under the section key, so field paths are key.index.field.
type Group struct {
	key      string
	section  schema.Section
	minItems int
	maxItems int
	store    *store.Store
	ids      []string
	newID    func() string
	syncing  bool
}

// Option configures a Group.
type Option func(*Group)

// WithIDFunc overrides item id generation.
func WithIDFunc(fn func() string) Option {
	return func(g *Group) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// New binds the repeatable section keyed key to st.
func New(st *store.Store, s *schema.Schema, key string, opts ...Option) (*Group, error) {
	if st == nil {
		return nil, fmt.Errorf("repeat: store is nil")
	}
	ref, ok := s.RepeatableSection(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	return NewForSection(st, ref.Key, *ref.Section, opts...), nil
}

// NewForSection binds an already resolved section.
func NewForSection(st *store.Store, key string, section schema.Section, opts ...Option) *Group {
	minItems, maxItems, _ := section.Bounds()
	g := &Group{
		key:      key,
		section:  section,
		minItems: minItems,
		maxItems: maxItems,
		store:    st,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.reconcile()
	st.Subscribe(key, func(store.Change) {
		if !g.syncing {
			g.reconcile()
		}
	})
	return g
}

// Key returns the section key items are stored under.
func (g *Group) Key() string {
	return g.key
}

// Section returns the bound section descriptor.
func (g *Group) Section() schema.Section {
	return g.section
}

// Bounds returns the minimum and maximum item counts. A zero max is
// unbounded.
func (g *Group) Bounds() (minItems, maxItems int) {
	return g.minItems, g.maxItems
}

// Len returns the current number of items.
func (g *Group) Len() int {
	return len(g.list())
}

// CanAppend reports whether Append would be accepted.
func (g *Group) CanAppend() bool {
	return g.maxItems == 0 || g.Len() < g.maxItems
}

// CanRemove reports whether RemoveAt would be accepted for a valid index.
func (g *Group) CanRemove() bool {
	return g.Len() > g.minItems
}

// Append adds an item built from field defaults, defaultItem and then
// overrides. It is a no-op returning false once maxItems is reached.
func (g *Group) Append(overrides map[string]any) bool {
	if !g.CanAppend() {
		return false
	}
	item := defaults.Item(g.section)
	for k, v := range overrides {
		item[k] = store.Clone(v)
	}
	list := append(append([]any(nil), g.list()...), item)
	g.ids = append(g.ids, g.newID())
	g.write(list)
	return true
}

// RemoveAt deletes the item at index; later items shift down. It is a no-op
// returning false when the index is out of range or the group is at
// minItems.
func (g *Group) RemoveAt(index int) bool {
	list := g.list()
	if index < 0 || index >= len(list) || len(list) <= g.minItems {
		return false
	}
	list = append(list[:index:index], list[index+1:]...)
	g.ids = append(g.ids[:index:index], g.ids[index+1:]...)
	g.write(list)
	return true
}

// Items returns a copy of every item with its id and position.
func (g *Group) Items() []Item {
	list := g.list()
	out := make([]Item, len(list))
	for i, raw := range list {
		values, _ := store.Clone(raw).(map[string]any)
		if values == nil {
			values = map[string]any{}
		}
		out[i] = Item{ID: g.ids[i], Index: i, Values: values}
	}
	return out
}

// ID returns the stable id of the item at index.
func (g *Group) ID(index int) (string, bool) {
	if index < 0 || index >= len(g.ids) {
		return "", false
	}
	return g.ids[index], true
}

// IndexOf maps a stable id to its current position, or -1.
func (g *Group) IndexOf(id string) int {
	for i, candidate := range g.ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// ItemPath returns the store path of field inside the item at index.
func (g *Group) ItemPath(index int, field string) string {
	return ItemPath(g.key, index, field)
}

// ItemPath joins a section key, item index and field name.
func ItemPath(key string, index int, field string) string {
	path := key + "." + strconv.Itoa(index)
	if field == "" {
		return path
	}
	return path + "." + field
}

func (g *Group) list() []any {
	raw, ok := g.store.Get(g.key)
	if !ok {
		return nil
	}
	list, _ := raw.([]any)
	return list
}

func (g *Group) write(list []any) {
	g.syncing = true
	defer func() { g.syncing = false }()
	// The key is a plain map key so Set cannot fail.
	_ = g.store.Set(g.key, list)
}

// reconcile keeps the id arena aligned with the list after external writes.
// Surviving positions keep their ids.
func (g *Group) reconcile() {
	n := len(g.list())
	if len(g.ids) > n {
		g.ids = g.ids[:n]
	}
	for len(g.ids) < n {
		g.ids = append(g.ids, g.newID())
	}
}
