package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func errorSchema() *schema.Schema {
	return &schema.Schema{
		Fields: []schema.Field{
			{Name: "name", Type: schema.TypeText},
			{Name: "owner.email", Type: schema.TypeEmail},
			{Name: "owner.phone", Type: schema.TypeText},
			{Name: "tags", Type: schema.TypeMultiSelect},
		},
		Sections: []schema.Section{{
			Name:       "contacts",
			Repeatable: true,
			RepeatableConfig: &schema.RepeatableConfig{
				InitialItems: schema.Items(2),
			},
			Fields: []schema.Field{{Name: "email", Type: schema.TypeEmail}},
		}},
	}
}

func TestMapErrorPayload(t *testing.T) {
	sess, err := form.New(errorSchema())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	payload := map[string][]string{
		"/body/name":                 {"Name is required", " Name is required "},
		"body.owner.email":           {"Email invalid"},
		"$.body.tags[0]":             {"Tags must be unique"},
		"/data/contacts/1/email":     {"Contact email invalid"},
		"non_field_errors":           {"Form level error"},
		"body/owner/phone/~1number":  {"Phone malformed"},
		"request/body/unknown-field": {"Should fall back to form errors"},
		"":                           {"Unscoped form error"},
	}

	mapped := sess.MapErrorPayload(payload)

	wantFields := map[string][]string{
		"name":             {"Name is required"},
		"owner.email":      {"Email invalid"},
		"tags":             {"Tags must be unique"},
		"contacts.1.email": {"Contact email invalid"},
		"owner.phone":      {"Phone malformed"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Form level error", "Should fall back to form errors", "Unscoped form error"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyServerErrors(t *testing.T) {
	sess, err := form.New(errorSchema())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sess.ApplyServerErrors(map[string][]string{
		"contacts.0.email": {"taken", "invalid"},
		"form":             {"try again"},
	})

	if diff := cmp.Diff(map[string]string{"contacts.0.email": "taken"}, sess.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	rs := sess.RenderSet()
	if diff := cmp.Diff([]string{"try again"}, rs.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if got := rs.Sections[0].Items[0].Fields[0].Error; got != "taken" {
		t.Fatalf("expected rendered item error, got %q", got)
	}

	if err := sess.SetValue("contacts.0.email", "a@b.co"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := sess.Errors(); len(got) != 0 {
		t.Fatalf("expected error cleared on edit, got %v", got)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := form.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
