package form

import (
	"github.com/goliatone/go-formflow/pkg/async"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// RenderSet is the filtered view of the active step consumed by renderers.
// Hidden steps, sections and fields are absent.
type RenderSet struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Step        *StepView     `json:"step,omitempty"`
	StepIndex   int           `json:"stepIndex"`
	StepCount   int           `json:"stepCount"`
	IsLast      bool          `json:"isLast"`
	Fields      []FieldView   `json:"fields,omitempty"`
	Sections    []SectionView `json:"sections,omitempty"`
	FormErrors  []string      `json:"formErrors,omitempty"`
}

// StepView describes the active step. It is nil for schemas without steps.
type StepView struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// SectionView is a visible section. Repeatable sections list their items
// instead of Fields.
type SectionView struct {
	Key         string      `json:"key"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Enabled     bool        `json:"enabled"`
	Repeatable  bool        `json:"repeatable,omitempty"`
	Fields      []FieldView `json:"fields,omitempty"`
	Items       []ItemView  `json:"items,omitempty"`
	CanAppend   bool        `json:"canAppend,omitempty"`
	CanRemove   bool        `json:"canRemove,omitempty"`
	AddLabel    string      `json:"addLabel,omitempty"`
	RemoveLabel string      `json:"removeLabel,omitempty"`
}

// ItemView is one repeatable item.
type ItemView struct {
	ID     string      `json:"id"`
	Index  int         `json:"index"`
	Fields []FieldView `json:"fields,omitempty"`
}

// FieldView is a visible field instance.
type FieldView struct {
	Path        string           `json:"path"`
	Name        string           `json:"name"`
	Type        schema.FieldType `json:"type"`
	Widget      string           `json:"widget,omitempty"`
	Label       string           `json:"label,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Description string           `json:"description,omitempty"`
	Cols        int              `json:"cols,omitempty"`
	Options     []schema.Option  `json:"options,omitempty"`
	Enabled     bool             `json:"enabled"`
	ReadOnly    bool             `json:"readOnly,omitempty"`
	Required    bool             `json:"required,omitempty"`
	Value       any              `json:"value,omitempty"`
	// Data is the fetch state of a data-sourced field.
	Data *async.State `json:"data,omitempty"`
	// Upload is the transfer state of a file field.
	Upload *async.State      `json:"upload,omitempty"`
	Error  string            `json:"error,omitempty"`
	Rules  []validation.Rule `json:"rules,omitempty"`
}

// RenderSet builds the view of the active step from the live values.
func (s *Session) RenderSet() RenderSet {
	out := RenderSet{
		Title:       s.schema.Title,
		Description: s.schema.Description,
		StepIndex:   s.index,
		StepCount:   len(s.visible),
		IsLast:      s.IsLast(),
		FormErrors:  s.FormErrors(),
	}
	node := s.currentStep()
	if node == nil {
		return out
	}

	global := s.lookup()
	stepState := s.conditionState(node.conditions(), global, state{visible: true, enabled: true})
	if node.step != nil {
		out.Step = &StepView{
			ID:          node.step.ID,
			Title:       node.step.Title,
			Description: node.step.Description,
			Enabled:     stepState.enabled,
		}
	}

	for _, f := range node.fields {
		if view, ok := s.fieldView(s.visitField(f, f.field.Name, -1, global, stepState)); ok {
			out.Fields = append(out.Fields, view)
		}
	}
	for _, sec := range node.sections {
		secState := s.conditionState(sec.ref.Section.Conditions, global, stepState)
		if !secState.visible {
			continue
		}
		out.Sections = append(out.Sections, s.sectionView(sec, secState))
	}
	return out
}

func (s *Session) sectionView(sec *sectionNode, st state) SectionView {
	section := sec.ref.Section
	view := SectionView{
		Key:         sec.ref.Key,
		Title:       section.Title,
		Description: section.Description,
		Enabled:     st.enabled,
		Repeatable:  section.Repeatable,
	}
	if !section.Repeatable {
		global := s.lookup()
		for _, f := range sec.fields {
			if fv, ok := s.fieldView(s.visitField(f, f.field.Name, -1, global, st)); ok {
				view.Fields = append(view.Fields, fv)
			}
		}
		return view
	}

	g := s.groups[sec.ref.Key]
	view.CanAppend = st.enabled && g.CanAppend()
	view.CanRemove = st.enabled && g.CanRemove()
	if cfg := section.RepeatableConfig; cfg != nil {
		view.AddLabel = cfg.AddLabel
		view.RemoveLabel = cfg.RemoveLabel
	}
	for _, item := range g.Items() {
		lookup := s.itemLookup(sec.ref.Key, item.Index)
		iv := ItemView{ID: item.ID, Index: item.Index}
		for _, f := range sec.fields {
			path := g.ItemPath(item.Index, f.field.Name)
			if fv, ok := s.fieldView(s.visitField(f, path, item.Index, lookup, st)); ok {
				iv.Fields = append(iv.Fields, fv)
			}
		}
		view.Items = append(view.Items, iv)
	}
	return view
}

func (s *Session) fieldView(v fieldVisit) (FieldView, bool) {
	if !v.state.visible {
		return FieldView{}, false
	}
	f := v.node.field
	view := FieldView{
		Path:        v.path,
		Name:        f.Name,
		Type:        f.Type,
		Label:       f.Label,
		Placeholder: f.Placeholder,
		Description: f.Description,
		Cols:        f.Cols,
		Options:     f.Options,
		Enabled:     v.state.enabled,
		ReadOnly:    f.ReadOnly(),
		Required:    v.node.rules.Required(),
		Error:       s.errors[v.path],
		Rules:       v.node.rules.Rules,
	}
	view.Widget, _ = s.widgets.Resolve(*f)
	view.Value, _ = s.store.Get(v.path)

	if f.ReadOnly() && s.data != nil {
		st := s.data.Lookup(f.DataSourceID, f.DataPath)
		view.Data = &st
		if st.Status == async.StatusSuccess {
			view.Value = st.Value
		}
	}
	if f.Type == schema.TypeFile && s.uploader != nil {
		st := s.uploader.State(v.path)
		view.Upload = &st
	}
	return view, true
}
