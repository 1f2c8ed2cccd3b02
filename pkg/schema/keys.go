package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// TopLevel marks a SectionRef that belongs to Schema.Sections.
const TopLevel = -1

// SectionRef locates a section in traversal order together with the key its
// values are stored under.
type SectionRef struct {
	Step    int
	Index   int
	Ordinal int
	Key     string
	Section *Section
}

// Slug lowercases title and collapses whitespace runs into underscores.
func Slug(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	inSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// SectionKey derives the value key for a section: explicit Name, then the
// slugged Title, then section_<ordinal>.
func SectionKey(section Section, ordinal int) string {
	if name := strings.TrimSpace(section.Name); name != "" {
		return name
	}
	if slug := Slug(section.Title); slug != "" {
		return slug
	}
	return fmt.Sprintf("section_%d", ordinal)
}

// SectionRefs lists every section in traversal order: top-level sections
// first, then each step's sections. The ordinal counts across the whole
// traversal so untitled sections never share a fallback key.
func (s *Schema) SectionRefs() []SectionRef {
	if s == nil {
		return nil
	}
	var refs []SectionRef
	ordinal := 0
	for i := range s.Sections {
		refs = append(refs, SectionRef{
			Step:    TopLevel,
			Index:   i,
			Ordinal: ordinal,
			Key:     SectionKey(s.Sections[i], ordinal),
			Section: &s.Sections[i],
		})
		ordinal++
	}
	for si := range s.Steps {
		step := &s.Steps[si]
		for i := range step.Sections {
			refs = append(refs, SectionRef{
				Step:    si,
				Index:   i,
				Ordinal: ordinal,
				Key:     SectionKey(step.Sections[i], ordinal),
				Section: &step.Sections[i],
			})
			ordinal++
		}
	}
	return refs
}

// RepeatableSection finds a repeatable section by key.
func (s *Schema) RepeatableSection(key string) (SectionRef, bool) {
	for _, ref := range s.SectionRefs() {
		if ref.Key == key && ref.Section.Repeatable {
			return ref, true
		}
	}
	return SectionRef{}, false
}

// Bounds returns the normalised cardinality of a repeatable section. A zero
// max means unbounded.
func (sec Section) Bounds() (minItems, maxItems, initial int) {
	cfg := sec.RepeatableConfig
	if cfg == nil {
		return 0, 0, 0
	}
	minItems = max(cfg.MinItems, 0)
	maxItems = max(cfg.MaxItems, 0)
	initial = minItems
	if cfg.InitialItems != nil {
		initial = max(*cfg.InitialItems, minItems)
	}
	if maxItems > 0 && initial > maxItems {
		initial = maxItems
	}
	return minItems, maxItems, initial
}
