package schema_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const profileJSON = `{
  "title": "Profile",
  "fields": [
    {"name": "role", "type": "radio", "clearFields": ["team"],
     "options": [{"label": "Admin", "value": "admin"}, {"label": "User", "value": "user"}]},
    {"name": "team", "type": "select", "showWhen": {"field": "role", "equals": "admin"}},
    {"name": "age", "type": "number", "defaultValue": 21,
     "validation": {"required": "Age required", "min": {"value": 18, "message": "too young"}, "max": 130}}
  ],
  "sections": [
    {"title": "Contacts", "repeatable": true,
     "repeatableConfig": {"minItems": 1, "maxItems": 3, "defaultItem": {"kind": "email"}},
     "fields": [{"name": "kind", "type": "text"}, {"name": "value", "type": "email", "validation": {"email": true}}]}
  ]
}`

const profileYAML = `
title: Profile
fields:
  - name: role
    type: radio
    clearFields: [team]
    options:
      - {label: Admin, value: admin}
      - {label: User, value: user}
  - name: team
    type: select
    showWhen: {field: role, equals: admin}
  - name: age
    type: number
    defaultValue: 21
    validation:
      required: Age required
      min: {value: 18, message: too young}
      max: 130
sections:
  - title: Contacts
    repeatable: true
    repeatableConfig:
      minItems: 1
      maxItems: 3
      defaultItem: {kind: email}
    fields:
      - {name: kind, type: text}
      - name: value
        type: email
        validation: {email: true}
`

var valueComparer = cmp.Comparer(func(a, b schema.Value) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	return aok == bok && cmp.Equal(av, bv)
})

func TestParse_JSON(t *testing.T) {
	s, err := schema.ParseBytes([]byte(profileJSON), "profile.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := len(s.Fields); got != 3 {
		t.Fatalf("expected 3 fields, got %d", got)
	}
	team := s.Fields[1]
	if team.ShowWhen == nil || team.ShowWhen.Field != "role" {
		t.Fatalf("showWhen not decoded: %#v", team.Conditions)
	}
	if v, ok := team.ShowWhen.Equals.Get(); !ok || v != "admin" {
		t.Fatalf("equals operand mismatch: %v (set=%v)", v, ok)
	}

	age := s.Fields[2]
	if v, ok := age.DefaultValue.Get(); !ok || v != float64(21) {
		t.Fatalf("default value mismatch: %v (set=%v)", v, ok)
	}
	rules := age.Validation
	if !rules.Required.Enabled || rules.Required.Message != "Age required" {
		t.Fatalf("required flag mismatch: %#v", rules.Required)
	}
	if diff := cmp.Diff(&schema.Bound{Value: 18, Message: "too young"}, rules.Min); diff != "" {
		t.Fatalf("min bound mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&schema.Bound{Value: 130}, rules.Max); diff != "" {
		t.Fatalf("max bound mismatch (-want +got):\n%s", diff)
	}

	if s.Fields[0].DefaultValue.IsSet() {
		t.Fatalf("role should not carry a default value")
	}

	contacts := s.Sections[0]
	if !contacts.Repeatable || contacts.RepeatableConfig == nil {
		t.Fatalf("repeatable config missing: %#v", contacts)
	}
	if contacts.RepeatableConfig.DefaultItem["kind"] != "email" {
		t.Fatalf("default item mismatch: %#v", contacts.RepeatableConfig.DefaultItem)
	}
	if !contacts.Fields[1].Validation.Email.Enabled {
		t.Fatalf("email flag not decoded")
	}
}

func TestParse_YAMLMatchesJSON(t *testing.T) {
	fromJSON, err := schema.ParseBytes([]byte(profileJSON), "profile.json")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	fromYAML, err := schema.ParseBytes([]byte(profileYAML), "profile.yaml")
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}

	if diff := cmp.Diff(fromJSON, fromYAML, valueComparer); diff != "" {
		t.Fatalf("yaml decode mismatch (-json +yaml):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := schema.ParseBytes([]byte("   "), "blank.json"); !errors.Is(err, schema.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := schema.ParseBytes([]byte("- just\n- a list\n"), "list.yaml"); err == nil {
		t.Fatalf("expected error for non-mapping document")
	}
	if _, err := schema.ParseBytes([]byte(`{"fields": [{"name": "a", "validation": {"min": "x"}}]}`), "bad.json"); err == nil {
		t.Fatalf("expected error for malformed bound")
	}
}

func TestParse_SanitizesText(t *testing.T) {
	raw := `{"title": "<b>Sign</b> up", "description": "<p>Hello</p><script>alert(1)</script>",
	  "fields": [{"name": "a", "type": "text", "label": "Name <i>first</i>"}]}`
	s, err := schema.ParseBytes([]byte(raw), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Title != "Sign up" {
		t.Fatalf("title not stripped: %q", s.Title)
	}
	if s.Description != "<p>Hello</p>" {
		t.Fatalf("description not sanitised: %q", s.Description)
	}
	if s.Fields[0].Label != "Name first" {
		t.Fatalf("label not stripped: %q", s.Fields[0].Label)
	}
}

func TestParse_StripsEncodedMarkup(t *testing.T) {
	raw := `{"fields": [
	  {"name": "a", "type": "text", "label": "&lt;img src=x onerror=alert(1)&gt;Avatar"},
	  {"name": "b", "type": "text", "label": "Terms &amp; conditions", "placeholder": "&lt;b&gt;bold&lt;/b&gt;"}]}`
	s, err := schema.ParseBytes([]byte(raw), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := []string{s.Fields[0].Label, s.Fields[1].Label, s.Fields[1].Placeholder}
	want := []string{"Avatar", "Terms & conditions", "bold"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sanitised text mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/profile.json": {Data: []byte(profileJSON)},
		"forms/profile.yml":  {Data: []byte(profileYAML)},
		"forms/README.md":    {Data: []byte("# ignored")},
	}

	schemas, err := schema.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if got := len(schemas); got != 2 {
		t.Fatalf("expected 2 schemas, got %d", got)
	}
	if schemas["forms/profile.yml"].Title != "Profile" {
		t.Fatalf("yaml schema not loaded: %#v", schemas["forms/profile.yml"])
	}

	empty, err := schema.LoadFS(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("nil fs should yield empty map, got %v (%v)", empty, err)
	}
}

func TestFieldMarshalRoundTripKeepsDefault(t *testing.T) {
	field := schema.Field{Name: "count", Type: schema.TypeNumber, DefaultValue: schema.V(float64(3))}
	s := &schema.Schema{Fields: []schema.Field{field}}

	raw, err := schema.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := schema.ParseBytes(raw, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(s, back, valueComparer); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/profile.yaml":
			_, _ = w.Write([]byte(profileYAML))
		case "/broken.json":
			_, _ = w.Write([]byte("{"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := schema.LoadURL(context.Background(), srv.Client(), srv.URL+"/profile.yaml")
	if err != nil {
		t.Fatalf("load url: %v", err)
	}
	if s.Title != "Profile" {
		t.Fatalf("unexpected title %q", s.Title)
	}

	if _, err := schema.LoadURL(context.Background(), srv.Client(), srv.URL+"/missing.json"); err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := schema.LoadURL(context.Background(), srv.Client(), srv.URL+"/broken.json"); err == nil || !strings.Contains(err.Error(), "schema: parse url") {
		t.Fatalf("expected parse error naming the url, got %v", err)
	}
}

func TestSourceFromURL_RejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://example.com/form.json"} {
		if _, err := schema.SourceFromURL(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	if !schema.IsURL("HTTPS://example.com/form.json") || schema.IsURL("forms/profile.json") {
		t.Fatalf("IsURL misclassified input")
	}
}
