package repeat_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/defaults"
	"github.com/goliatone/go-formflow/pkg/repeat"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
)

func phoneSchema(minItems, maxItems int) *schema.Schema {
	return &schema.Schema{Sections: []schema.Section{{
		Title:            "Phones",
		Repeatable:       true,
		RepeatableConfig: &schema.RepeatableConfig{MinItems: minItems, MaxItems: maxItems, DefaultItem: map[string]any{"kind": "mobile"}},
		Fields: []schema.Field{
			{Name: "kind", Type: schema.TypeSelect, DefaultValue: schema.V("home")},
			{Name: "number", Type: schema.TypeText},
		},
	}}}
}

func sequentialIDs() repeat.Option {
	n := 0
	return repeat.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func newGroup(t *testing.T, s *schema.Schema) (*repeat.Group, *store.Store) {
	t.Helper()
	st := store.New(defaults.Resolve(s, nil))
	g, err := repeat.New(st, s, "phones", sequentialIDs())
	if err != nil {
		t.Fatalf("new group: %v", err)
	}
	return g, st
}

func TestGroup_CardinalityBounds(t *testing.T) {
	g, _ := newGroup(t, phoneSchema(1, 3))
	if g.Len() != 1 {
		t.Fatalf("expected minItems to seed one item, got %d", g.Len())
	}

	accepted := 0
	for i := 0; i < 4; i++ {
		if g.Append(nil) {
			accepted++
		}
	}
	if g.Len() != 3 || accepted != 2 {
		t.Fatalf("append should stop at maxItems: len=%d accepted=%d", g.Len(), accepted)
	}

	for g.RemoveAt(0) {
	}
	if g.Len() != 1 {
		t.Fatalf("remove should stop at minItems, got %d", g.Len())
	}
}

func TestGroup_AppendMergesDefaults(t *testing.T) {
	g, st := newGroup(t, phoneSchema(0, 0))
	if !g.Append(map[string]any{"number": "555"}) {
		t.Fatalf("append rejected")
	}

	want := []any{map[string]any{"kind": "mobile", "number": "555"}}
	got, _ := st.Get("phones")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}
	if path := g.ItemPath(0, "number"); path != "phones.0.number" {
		t.Fatalf("item path = %q", path)
	}
}

func TestGroup_RemoveShiftsIndexesKeepsIDs(t *testing.T) {
	g, st := newGroup(t, phoneSchema(0, 0))
	for _, n := range []string{"a", "b", "c"} {
		g.Append(map[string]any{"number": n})
	}
	idB, _ := g.ID(1)

	if !g.RemoveAt(0) {
		t.Fatalf("remove rejected")
	}
	if v, _ := st.Get("phones.0.number"); v != "b" {
		t.Fatalf("index did not shift, got %v", v)
	}
	if g.IndexOf(idB) != 0 {
		t.Fatalf("stable id lost its item: %d", g.IndexOf(idB))
	}

	var ids []string
	for _, item := range g.Items() {
		ids = append(ids, item.ID)
	}
	if diff := cmp.Diff([]string{"id-2", "id-3"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if g.RemoveAt(5) || g.RemoveAt(-1) {
		t.Fatalf("out of range removal should be rejected")
	}
}

func TestGroup_NotifiesSubscribers(t *testing.T) {
	g, st := newGroup(t, phoneSchema(0, 2))
	var paths []string
	st.Subscribe("phones.0.kind", func(c store.Change) { paths = append(paths, c.Path) })

	g.Append(nil)
	g.RemoveAt(0)
	if diff := cmp.Diff([]string{"phones", "phones"}, paths); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestGroup_ReconcilesExternalWrites(t *testing.T) {
	g, st := newGroup(t, phoneSchema(0, 0))
	if err := st.Set("phones", []any{map[string]any{}, map[string]any{}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if g.Len() != 2 || len(g.Items()) != 2 {
		t.Fatalf("group out of sync: %d", g.Len())
	}
	if id, ok := g.ID(1); !ok || id == "" {
		t.Fatalf("missing id for externally added item")
	}
}

func TestNew_UnknownSection(t *testing.T) {
	_, err := repeat.New(store.New(nil), phoneSchema(0, 0), "missing")
	if !errors.Is(err, repeat.ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestGroup_TypedSliceOverridesSurvive(t *testing.T) {
	s := phoneSchema(0, 0)
	overrides := map[string]any{"phones": []map[string]any{
		{"kind": "work", "number": "1"},
		{"kind": "home", "number": ""},
	}}
	st := store.New(defaults.Resolve(s, overrides))
	g, err := repeat.New(st, s, "phones", sequentialIDs())
	if err != nil {
		t.Fatalf("new group: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("expected override items to be seen, got %d", g.Len())
	}

	g.Append(nil)
	want := []any{
		map[string]any{"kind": "work", "number": "1"},
		map[string]any{"kind": "home", "number": ""},
		map[string]any{"kind": "mobile"},
	}
	got, _ := st.Get("phones")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}
}
