package converter

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Document is the builder format.
type Document struct {
	Title         string                `json:"title,omitempty"`
	Description   string                `json:"description,omitempty"`
	Sections      []Section             `json:"sections,omitempty"`
	UI            *UI                   `json:"ui,omitempty"`
	DataSources   []schema.DataSource   `json:"dataSources,omitempty"`
	UploadSources []schema.UploadSource `json:"uploadSources,omitempty"`
}

// Section is a canonical section tagged with the id of the step it belongs to.
type Section struct {
	schema.Section
	Step string `json:"step,omitempty"`
}

// UI carries presentation grouping.
type UI struct {
	Steps []Step `json:"steps,omitempty"`
}

// Step groups sections by key and may declare fields of its own.
type Step struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Sections    []string       `json:"sections,omitempty"`
	Fields      []schema.Field `json:"fields,omitempty"`
	schema.Conditions
}

// Issue locates one problem in the builder payload.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Result captures validation outcomes for builder previews. Error holds the
// first problem in human readable form.
type Result struct {
	Valid  bool    `json:"valid"`
	Error  string  `json:"error,omitempty"`
	Issues []Issue `json:"issues,omitempty"`
}

func (r *Result) add(path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) finish() Result {
	r.Valid = len(r.Issues) == 0
	if !r.Valid && r.Error == "" {
		first := r.Issues[0]
		r.Error = first.Message
		if first.Path != "" {
			r.Error = first.Path + ": " + first.Message
		}
	}
	return *r
}

// Validate decodes raw and checks the builder rules: a top-level sections
// array is required when no steps are declared, every step has a title and
// every step has sections or fields.
func Validate(raw []byte) Result {
	_, res := Convert(raw)
	return res
}

// Convert decodes and validates raw, returning the canonical schema when the
// payload is valid.
func Convert(raw []byte) (*schema.Schema, Result) {
	doc, err := Decode(raw)
	if err != nil {
		res := Result{Error: err.Error()}
		res.add("", "%s", err.Error())
		return nil, res.finish()
	}
	return ConvertDocument(doc)
}

// Decode parses a builder payload. Only syntax errors are reported here.
func Decode(raw []byte) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, fmt.Errorf("converter: document is empty")
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("converter: invalid JSON: %w", err)
	}
	return doc, nil
}

// ConvertDocument validates and maps an already decoded document.
func ConvertDocument(doc Document) (*schema.Schema, Result) {
	var res Result
	out := doc.convert(&res)
	if len(res.Issues) > 0 {
		return nil, res.finish()
	}
	for _, issue := range schema.Check(out) {
		res.add(issue.Path, "%s", issue.Message)
	}
	if len(res.Issues) > 0 {
		return nil, res.finish()
	}
	schema.Sanitize(out)
	return out, res.finish()
}

func (d Document) convert(res *Result) *schema.Schema {
	out := &schema.Schema{
		Title:         d.Title,
		Description:   d.Description,
		DataSources:   d.DataSources,
		UploadSources: d.UploadSources,
	}

	var steps []Step
	if d.UI != nil {
		steps = d.UI.Steps
	}
	if len(steps) == 0 {
		if d.Sections == nil {
			res.add("sections", "a sections array is required when no steps are defined")
			return out
		}
		for _, sec := range d.Sections {
			out.Sections = append(out.Sections, sec.Section)
		}
		return out
	}

	keys := make([]string, len(d.Sections))
	byKey := make(map[string]int, len(d.Sections))
	for i, sec := range d.Sections {
		keys[i] = schema.SectionKey(sec.Section, i)
		byKey[keys[i]] = i
	}

	stepIDs := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if id := strings.TrimSpace(step.ID); id != "" {
			stepIDs[id] = struct{}{}
		}
	}
	for i, sec := range d.Sections {
		if id := strings.TrimSpace(sec.Step); id != "" {
			if _, ok := stepIDs[id]; !ok {
				res.add(fmt.Sprintf("sections.%d.step", i), "unknown step %q", id)
			}
		}
	}

	assigned := make([]bool, len(d.Sections))
	for i, step := range steps {
		path := fmt.Sprintf("ui.steps.%d", i)
		if strings.TrimSpace(step.Title) == "" {
			res.add(path, "step title is required")
		}

		var members []int
		for j, ref := range step.Sections {
			idx, ok := byKey[strings.TrimSpace(ref)]
			if !ok {
				res.add(fmt.Sprintf("%s.sections.%d", path, j), "unknown section %q", ref)
				continue
			}
			members = append(members, idx)
		}
		if id := strings.TrimSpace(step.ID); id != "" {
			for idx, sec := range d.Sections {
				if strings.TrimSpace(sec.Step) == id {
					members = append(members, idx)
				}
			}
		}

		converted := schema.Step{
			ID:          step.ID,
			Title:       step.Title,
			Description: step.Description,
			Fields:      step.Fields,
			Conditions:  step.Conditions,
		}
		for _, idx := range members {
			if assigned[idx] {
				continue
			}
			assigned[idx] = true
			sec := d.Sections[idx].Section
			// Regrouping changes traversal ordinals, so an untitled section
			// keeps its builder key as an explicit name.
			if strings.TrimSpace(sec.Name) == "" && schema.Slug(sec.Title) == "" {
				sec.Name = keys[idx]
			}
			converted.Sections = append(converted.Sections, sec)
		}
		if len(converted.Sections) == 0 && len(converted.Fields) == 0 {
			res.add(path, "step must define sections or fields")
		}
		out.Steps = append(out.Steps, converted)
	}

	for i, ok := range assigned {
		if !ok {
			res.add(fmt.Sprintf("sections.%d", i), "section %q is not assigned to any step", keys[i])
		}
	}
	return out
}
