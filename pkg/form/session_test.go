package form_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/async"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/upload"
)

func roleSchema() *schema.Schema {
	return &schema.Schema{
		Title: "Account",
		Steps: []schema.Step{
			{
				Title:  "Profile",
				Fields: []schema.Field{{Name: "role", Type: schema.TypeSelect, DefaultValue: schema.V("admin")}},
			},
			{
				Title:      "Admin",
				Conditions: schema.Conditions{ShowWhen: schema.Equals("role", "admin")},
				Fields: []schema.Field{{
					Name:       "level",
					Type:       schema.TypeNumber,
					Validation: schema.ValidationSpec{Required: schema.On()},
				}},
			},
			{
				Title:  "Confirm",
				Fields: []schema.Field{{Name: "notes", Type: schema.TypeTextarea}},
			},
		},
	}
}

func TestSessionClampsIndexWhenActiveStepDisappears(t *testing.T) {
	sess, err := form.New(roleSchema())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, sess.VisibleSteps()); diff != "" {
		t.Fatalf("visible steps mismatch (-want +got):\n%s", diff)
	}
	if err := sess.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := sess.SetValue("level", 3); err != nil {
		t.Fatalf("set level: %v", err)
	}
	if err := sess.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := sess.StepIndex(); got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}

	if err := sess.SetValue("role", "user"); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if diff := cmp.Diff([]int{0, 2}, sess.VisibleSteps()); diff != "" {
		t.Fatalf("visible steps mismatch (-want +got):\n%s", diff)
	}
	if got := sess.StepIndex(); got != 1 {
		t.Fatalf("expected clamped index 1, got %d", got)
	}
	if !sess.IsLast() {
		t.Fatalf("expected last step after clamp")
	}
	if got := sess.RenderSet().Step.Title; got != "Confirm" {
		t.Fatalf("expected Confirm step, got %q", got)
	}
}

func TestSessionHiddenStepDoesNotBlockSubmit(t *testing.T) {
	var submitted []map[string]any
	sess, err := form.New(roleSchema(),
		form.WithValues(map[string]any{"role": "user"}),
		form.WithSubmit(func(_ context.Context, values map[string]any) error {
			submitted = append(submitted, values)
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := sess.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit on first step: %v", err)
	}
	if !out.Advanced || out.Submitted {
		t.Fatalf("expected advance, got %+v", out)
	}
	if len(submitted) != 0 {
		t.Fatalf("callback ran before final step")
	}

	out, err = sess.Submit(context.Background())
	if err != nil {
		t.Fatalf("final submit: %v", err)
	}
	if !out.Submitted {
		t.Fatalf("expected submission, got %+v", out)
	}
	if len(submitted) != 1 {
		t.Fatalf("expected one callback, got %d", len(submitted))
	}
	if diff := cmp.Diff(map[string]any{"role": "user"}, submitted[0]); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}

	if _, err := sess.Submit(context.Background()); !errors.Is(err, form.ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
}

func TestSessionAgeMinimum(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{{
		Name: "age",
		Type: schema.TypeNumber,
		Validation: schema.ValidationSpec{
			Min: schema.Limit(18, "too young"),
		},
	}}}

	calls := 0
	sess, err := form.New(s, form.WithSubmit(func(context.Context, map[string]any) error {
		calls++
		return nil
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := sess.SetValue("age", 17); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, err = sess.Submit(context.Background())
	var verr *form.ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, form.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if diff := cmp.Diff(map[string]string{"age": "too young"}, verr.Fields); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if calls != 0 {
		t.Fatalf("callback ran on invalid input")
	}

	if err := sess.SetValue("age", 18); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := sess.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one callback, got %d", calls)
	}
}

func TestSessionRequiredMessageRoundTrip(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{{
		Name:       "x",
		Type:       schema.TypeText,
		Validation: schema.ValidationSpec{Required: schema.On("X required")},
	}}}
	sess, err := form.New(s, form.WithValues(map[string]any{"x": ""}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"x": "X required"}, sess.Validate()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if err := sess.SetValue("x", "filled"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := sess.Validate(); len(got) != 0 {
		t.Fatalf("expected no errors, got %v", got)
	}
}

func TestSessionClearFieldsOnChange(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{
			Name:         "country",
			Type:         schema.TypeRadio,
			DefaultValue: schema.V("pt"),
			ClearFields:  []string{"dependent"},
			Options:      []schema.Option{{Label: "Portugal", Value: "pt"}, {Label: "Spain", Value: "es"}},
		},
		{Name: "dependent", Type: schema.TypeText, DefaultValue: schema.V("Lisbon")},
	}}
	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := sess.SetValue("country", "pt"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := sess.Value("dependent"); got != "Lisbon" {
		t.Fatalf("unchanged value must not clear dependents, got %v", got)
	}

	if err := sess.SetValue("country", "es"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, ok := sess.Value("dependent"); ok {
		t.Fatalf("expected dependent cleared, got %v", got)
	}
}

func TestSessionClearFieldsInsideRepeatableItem(t *testing.T) {
	s := &schema.Schema{Sections: []schema.Section{{
		Name:       "contacts",
		Repeatable: true,
		RepeatableConfig: &schema.RepeatableConfig{
			InitialItems: schema.Items(2),
			DefaultItem:  map[string]any{"kind": "email", "value": "x"},
		},
		Fields: []schema.Field{
			{Name: "kind", Type: schema.TypeSelect, ClearFields: []string{"value"}},
			{Name: "value", Type: schema.TypeText},
		},
	}}}
	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sess.SetValue("contacts.1.kind", "phone"); err != nil {
		t.Fatalf("set: %v", err)
	}
	want := []any{
		map[string]any{"kind": "email", "value": "x"},
		map[string]any{"kind": "phone"},
	}
	if diff := cmp.Diff(want, sess.Values()["contacts"]); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionFieldConditions(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{Name: "hasPet", Type: schema.TypeCheckbox, DefaultValue: schema.V(false)},
		{
			Name:       "petName",
			Type:       schema.TypeText,
			Conditions: schema.Conditions{ShowWhen: schema.Equals("hasPet", true)},
			Validation: schema.ValidationSpec{Required: schema.On()},
		},
		{
			Name:       "vet",
			Type:       schema.TypeText,
			Conditions: schema.Conditions{DisableWhen: schema.Equals("hasPet", false)},
			Validation: schema.ValidationSpec{Required: schema.On()},
		},
	}}
	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if got := sess.Validate(); len(got) != 0 {
		t.Fatalf("hidden and disabled fields must not block, got %v", got)
	}
	rs := sess.RenderSet()
	if len(rs.Fields) != 2 || rs.Fields[0].Name != "hasPet" || rs.Fields[1].Name != "vet" {
		t.Fatalf("unexpected render set %+v", rs.Fields)
	}
	if rs.Fields[1].Enabled {
		t.Fatalf("expected vet disabled")
	}

	if err := sess.SetValue("hasPet", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	want := map[string]string{
		"petName": "This field is required",
		"vet":     "This field is required",
	}
	if diff := cmp.Diff(want, sess.Validate()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := sess.RenderSet().Fields[1].Error; got != "This field is required" {
		t.Fatalf("expected error on rendered field, got %q", got)
	}
}

func TestSessionMalformedConditionsKeepFieldsVisible(t *testing.T) {
	raw := `{"fields": [
	  {"name": "a", "type": "text", "showWhen": {"equals": "x"}},
	  {"name": "b", "type": "text", "showWhen": {"field": "a", "operator": "contains", "value": "x"}},
	  {"name": "c", "type": "text", "hideWhen": {"operator": "equals", "value": ""}}]}`
	s, err := schema.ParseBytes([]byte(raw), "conditions.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if issues := schema.Lint(s); len(issues) != 3 {
		t.Fatalf("expected three lint warnings, got %v", issues)
	}

	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var names []string
	for _, f := range sess.RenderSet().Fields {
		names = append(names, f.Name)
	}
	// A fieldless hideWhen evaluates to true, so c is hidden.
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Fatalf("visible fields mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionSectionsShareFieldNames(t *testing.T) {
	required := schema.ValidationSpec{Required: schema.On()}
	s := &schema.Schema{Sections: []schema.Section{
		{Title: "Home", Fields: []schema.Field{{Name: "city", Type: schema.TypeText, Validation: required, DefaultValue: schema.V("Porto")}}},
		{Title: "Work", Fields: []schema.Field{{Name: "city", Type: schema.TypeText, Validation: required, DefaultValue: schema.V("Braga")}}},
	}}
	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if v, _ := sess.Value("city"); v != "Porto" {
		t.Fatalf("first declared default should win, got %v", v)
	}

	if err := sess.SetValue("city", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"city": "This field is required"}, sess.Validate()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if err := sess.SetValue("city", "Lisbon"); err != nil {
		t.Fatalf("set: %v", err)
	}
	rs := sess.RenderSet()
	if len(rs.Sections) != 2 {
		t.Fatalf("expected both sections, got %d", len(rs.Sections))
	}
	for _, sec := range rs.Sections {
		if got := sec.Fields[0].Value; got != "Lisbon" {
			t.Fatalf("section %s: expected shared value, got %v", sec.Title, got)
		}
	}
}

func TestSessionHiddenSectionHidesFields(t *testing.T) {
	s := &schema.Schema{
		Fields: []schema.Field{{Name: "mode", Type: schema.TypeRadio, DefaultValue: schema.V("simple")}},
		Sections: []schema.Section{{
			Title:      "Advanced",
			Conditions: schema.Conditions{HideWhen: schema.Equals("mode", "simple")},
			Fields: []schema.Field{{
				Name:       "threads",
				Type:       schema.TypeNumber,
				Conditions: schema.Conditions{ShowWhen: schema.IsEmpty("nothing")},
				Validation: schema.ValidationSpec{Required: schema.On()},
			}},
		}},
	}
	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := sess.Validate(); len(got) != 0 {
		t.Fatalf("expected hidden section to skip validation, got %v", got)
	}
	if got := len(sess.RenderSet().Sections); got != 0 {
		t.Fatalf("expected no rendered sections, got %d", got)
	}

	if err := sess.SetValue("mode", "advanced"); err != nil {
		t.Fatalf("set: %v", err)
	}
	rs := sess.RenderSet()
	if len(rs.Sections) != 1 || rs.Sections[0].Key != "advanced" {
		t.Fatalf("unexpected sections %+v", rs.Sections)
	}
	if _, ok := sess.Validate()["threads"]; !ok {
		t.Fatalf("expected threads to be validated once visible")
	}
}

func TestSessionRepeatableItems(t *testing.T) {
	s := &schema.Schema{Sections: []schema.Section{{
		Title:            "Phone Numbers",
		Repeatable:       true,
		RepeatableConfig: &schema.RepeatableConfig{MinItems: 1, MaxItems: 3},
		Fields: []schema.Field{
			{Name: "kind", Type: schema.TypeSelect, DefaultValue: schema.V("mobile")},
			{
				Name:       "ext",
				Type:       schema.TypeText,
				Conditions: schema.Conditions{ShowWhen: schema.Equals("kind", "work")},
				Validation: schema.ValidationSpec{Required: schema.On("ext required")},
			},
		},
	}}}
	sess, err := form.New(s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	for i := 0; i < 4; i++ {
		sess.AppendItem("phone_numbers", nil)
	}
	g, ok := sess.Group("phone_numbers")
	if !ok || g.Len() != 3 {
		t.Fatalf("expected 3 items")
	}

	if err := sess.SetValue("phone_numbers.2.kind", "work"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"phone_numbers.2.ext": "ext required"}, sess.Validate()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	section := sess.RenderSet().Sections[0]
	if section.CanAppend || !section.CanRemove {
		t.Fatalf("unexpected affordances %+v", section)
	}
	if got := len(section.Items[2].Fields); got != 2 {
		t.Fatalf("expected ext visible in item 2, got %d fields", got)
	}
	if got := len(section.Items[0].Fields); got != 1 {
		t.Fatalf("expected ext hidden in item 0, got %d fields", got)
	}

	for i := 0; i < 5; i++ {
		sess.RemoveItem("phone_numbers", 0)
	}
	if g.Len() != 1 {
		t.Fatalf("expected floor of 1 item, got %d", g.Len())
	}
	if got := sess.Errors(); len(got) != 0 {
		t.Fatalf("expected item errors dropped, got %v", got)
	}
}

func TestSessionPreviousAndNextBounds(t *testing.T) {
	sess, err := form.New(roleSchema(), form.WithValues(map[string]any{"role": "user"}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sess.Previous(); !errors.Is(err, form.ErrFirstStep) {
		t.Fatalf("expected ErrFirstStep, got %v", err)
	}
	if err := sess.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := sess.Next(); !errors.Is(err, form.ErrLastStep) {
		t.Fatalf("expected ErrLastStep, got %v", err)
	}
	if err := sess.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if sess.StepIndex() != 0 {
		t.Fatalf("expected index 0")
	}
}

func TestSessionNextBlocksOnInvalidStep(t *testing.T) {
	sess, err := form.New(roleSchema())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sess.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	err = sess.Next()
	if !errors.Is(err, form.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if sess.StepIndex() != 1 {
		t.Fatalf("step must not change on failure")
	}
}

func TestSessionAllStepsHidden(t *testing.T) {
	s := &schema.Schema{Steps: []schema.Step{{
		Conditions: schema.Conditions{ShowWhen: schema.Equals("extras.flag", true)},
	}}}
	submitted := false
	sess, err := form.New(s, form.WithSubmit(func(context.Context, map[string]any) error {
		submitted = true
		return nil
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if sess.StepCount() != 0 || !sess.IsLast() {
		t.Fatalf("expected no visible steps")
	}
	if rs := sess.RenderSet(); rs.Step != nil {
		t.Fatalf("expected no active step")
	}
	if _, err := sess.Submit(context.Background()); err != nil || !submitted {
		t.Fatalf("expected submission, err=%v", err)
	}
}

func TestSessionExtrasDriveConditions(t *testing.T) {
	s := &schema.Schema{Steps: []schema.Step{
		{Title: "One"},
		{Title: "Two", Conditions: schema.Conditions{ShowWhen: schema.Equals("extras.flag", true)}},
	}}
	sess, err := form.New(s, form.WithExtras(map[string]any{"flag": true}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if sess.StepCount() != 2 {
		t.Fatalf("expected both steps visible, got %d", sess.StepCount())
	}
}

func TestSessionSubmitError(t *testing.T) {
	boom := errors.New("boom")
	s := &schema.Schema{Fields: []schema.Field{{Name: "a", Type: schema.TypeText}}}
	sess, err := form.New(s, form.WithSubmit(func(context.Context, map[string]any) error {
		return boom
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := sess.Submit(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped callback error, got %v", err)
	}
	if sess.Submitted() {
		t.Fatalf("failed callback must not mark the form submitted")
	}
}

func TestNewRejectsInvalidSchema(t *testing.T) {
	s := &schema.Schema{Fields: []schema.Field{
		{Name: "a", Type: schema.TypeText},
		{Name: "a", Type: schema.TypeText},
	}}
	if _, err := form.New(s); !errors.Is(err, form.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

type stubData map[string]async.State

func (d stubData) Lookup(id, path string) async.State {
	return d[id+":"+path]
}

type stubUploader struct {
	calls []string
	value any
}

func (u *stubUploader) Upload(_ context.Context, path, id string, files []upload.File) (any, error) {
	u.calls = append(u.calls, path+"@"+id)
	return u.value, nil
}

func (u *stubUploader) State(string) async.State {
	return async.State{Status: async.StatusSuccess, Value: u.value}
}

func TestSessionCollaborators(t *testing.T) {
	s := &schema.Schema{
		Fields: []schema.Field{
			{Name: "rate", Type: schema.TypeNumber, DataSourceID: "fx", DataPath: "eur", Validation: schema.ValidationSpec{Required: schema.On()}},
			{Name: "avatar", Type: schema.TypeFile, UploadSourceID: "media"},
		},
		DataSources:   []schema.DataSource{{ID: "fx", URL: "https://example.test/fx"}},
		UploadSources: []schema.UploadSource{{ID: "media", URL: "https://example.test/upload"}},
	}
	up := &stubUploader{value: "https://cdn.example.test/a.png"}
	sess, err := form.New(s,
		form.WithDataSources(stubData{"fx:eur": {Status: async.StatusSuccess, Value: 1.1}}),
		form.WithUploader(up),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := sess.Upload(context.Background(), "avatar", []upload.File{{Name: "a.png", Data: []byte("x")}}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if diff := cmp.Diff([]string{"avatar@media"}, up.calls); diff != "" {
		t.Fatalf("upload calls mismatch (-want +got):\n%s", diff)
	}
	if got, _ := sess.Value("avatar"); got != "https://cdn.example.test/a.png" {
		t.Fatalf("expected uploaded value, got %v", got)
	}
	if got := sess.Validate(); len(got) != 0 {
		t.Fatalf("read-only fields must not be validated, got %v", got)
	}

	fields := sess.RenderSet().Fields
	if !fields[0].ReadOnly || fields[0].Value != 1.1 || fields[0].Data == nil {
		t.Fatalf("unexpected data field view %+v", fields[0])
	}
	if fields[0].Widget != "read-only" {
		t.Fatalf("expected read-only widget, got %q", fields[0].Widget)
	}
	if fields[1].Upload == nil || fields[1].Upload.Status != async.StatusSuccess {
		t.Fatalf("expected upload state on file field")
	}

	if err := sess.Upload(context.Background(), "rate", nil); err == nil {
		t.Fatalf("expected error for non-file field")
	}
}
