// Package converter accepts the flat authoring format used by schema builders
// (top-level sections, each tagged with an optional step id, plus ui.steps)
// and maps it onto the canonical schema.Schema.
//
// Validation never panics and never returns a Go error: malformed payloads
// are reported through Result so callers decide how to surface them.
package converter
