// Package defaults derives the initial value map of a form from its schema.
package defaults

import (
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Resolve walks the schema depth first (fields, sections, then each step's
// fields and sections) and collects default values by dot path. The first
// default declared for a path wins. Repeatable
// sections contribute a list of item maps under their section key, sized by
// initialItems, falling back to minItems. Overrides are merged last at the
// top level; their values replace derived ones wholesale.
//
// The result never aliases schema or override data, so repeated calls with
// the same inputs yield deep-equal maps.
func Resolve(s *schema.Schema, overrides map[string]any) map[string]any {
	values := store.New(nil)
	if s != nil {
		collectFields(values, s.Fields)
		refs := s.SectionRefs()
		collectSections(values, refs, schema.TopLevel)
		for i := range s.Steps {
			collectFields(values, s.Steps[i].Fields)
			collectSections(values, refs, i)
		}
	}

	out := values.Snapshot()
	for key, value := range overrides {
		out[key] = store.Clone(value)
	}
	return out
}

// Item builds the initial value of one repeatable item: field defaults
// overlaid by repeatableConfig.defaultItem.
func Item(section schema.Section) map[string]any {
	item := store.New(nil)
	collectFields(item, section.Fields)
	out := item.Snapshot()
	if cfg := section.RepeatableConfig; cfg != nil {
		for key, value := range cfg.DefaultItem {
			out[key] = store.Clone(value)
		}
	}
	return out
}

// Items builds the initial list for a repeatable section.
func Items(section schema.Section) []any {
	_, _, count := section.Bounds()
	items := make([]any, count)
	for i := range items {
		items[i] = Item(section)
	}
	return items
}

func collectSections(values *store.Store, refs []schema.SectionRef, step int) {
	for _, ref := range refs {
		if ref.Step != step {
			continue
		}
		if ref.Section.Repeatable {
			// Keys are unique per traversal so a write never clobbers a
			// sibling group.
			_ = values.Set(ref.Key, Items(*ref.Section))
			continue
		}
		collectFields(values, ref.Section.Fields)
	}
}

func collectFields(values *store.Store, fields []schema.Field) {
	for _, field := range fields {
		value, ok := field.DefaultValue.Get()
		if !ok || field.Name == "" {
			continue
		}
		// A name shared by several sections keeps its first default.
		if _, taken := values.Get(field.Name); taken {
			continue
		}
		// schema.Check rejects names with empty segments, the only paths Set
		// refuses.
		_ = values.Set(field.Name, value)
	}
}
