package schema

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	textPolicy *bluemonday.Policy
	richPolicy *bluemonday.Policy
)

// Sanitize cleans author supplied text in place. Titles, labels and
// placeholders become plain text; descriptions keep user-generated-content
// markup. Loaders call it for every document; schemas built in Go are left to
// the caller.
func Sanitize(s *Schema) {
	if s == nil {
		return
	}
	s.Title = sanitizeText(s.Title)
	s.Description = sanitizeRich(s.Description)
	sanitizeFields(s.Fields)
	sanitizeSections(s.Sections)
	for i := range s.Steps {
		step := &s.Steps[i]
		step.Title = sanitizeText(step.Title)
		step.Description = sanitizeRich(step.Description)
		sanitizeFields(step.Fields)
		sanitizeSections(step.Sections)
	}
}

func sanitizeSections(sections []Section) {
	for i := range sections {
		sec := &sections[i]
		sec.Title = sanitizeText(sec.Title)
		sec.Description = sanitizeRich(sec.Description)
		sanitizeFields(sec.Fields)
		if cfg := sec.RepeatableConfig; cfg != nil {
			cfg.AddLabel = sanitizeText(cfg.AddLabel)
			cfg.RemoveLabel = sanitizeText(cfg.RemoveLabel)
		}
	}
}

func sanitizeFields(fields []Field) {
	for i := range fields {
		f := &fields[i]
		f.Label = sanitizeText(f.Label)
		f.Placeholder = sanitizeText(f.Placeholder)
		f.Description = sanitizeRich(f.Description)
		for j := range f.Options {
			f.Options[j].Label = sanitizeText(f.Options[j].Label)
		}
	}
}

func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	text, _ := policies()
	// Decode first so entity encoded markup is stripped too.
	cleaned := text.Sanitize(html.UnescapeString(trimmed))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func sanitizeRich(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	_, rich := policies()
	return strings.TrimSpace(rich.Sanitize(trimmed))
}

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
		richPolicy = bluemonday.UGCPolicy()
	})
	return textPolicy, richPolicy
}
