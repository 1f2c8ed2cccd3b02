// Package formflow is the quick start surface of the form engine: load a
// schema, resolve its defaults and run a session.
package formflow

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/converter"
	"github.com/goliatone/go-formflow/pkg/defaults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Schema aliases schema.Schema so callers of the quick start API need a
// single import.
type Schema = schema.Schema

// Session aliases form.Session.
type Session = form.Session

// RenderSet aliases form.RenderSet.
type RenderSet = form.RenderSet

// SessionOption aliases form.Option.
type SessionOption = form.Option

// Load reads a JSON or YAML schema from disk.
func Load(path string) (*schema.Schema, error) {
	return schema.LoadFile(path)
}

// Parse decodes an in-memory JSON or YAML schema.
func Parse(raw []byte) (*schema.Schema, error) {
	return schema.ParseBytes(raw, "inline")
}

// Defaults resolves the initial value map of s with overrides merged last.
func Defaults(s *schema.Schema, overrides map[string]any) map[string]any {
	return defaults.Resolve(s, overrides)
}

// NewSession starts a form session for s.
func NewSession(s *schema.Schema, options ...form.Option) (*form.Session, error) {
	return form.New(s, options...)
}

// Convert validates a builder document and returns the canonical schema.
func Convert(raw []byte) (*schema.Schema, converter.Result) {
	return converter.Convert(raw)
}

// ImportOpenAPI maps the request body of operationID onto a schema.
func ImportOpenAPI(ctx context.Context, raw []byte, operationID string, options ...openapi.Option) (*schema.Schema, error) {
	return openapi.NewImporter(options...).Import(ctx, raw, operationID)
}
