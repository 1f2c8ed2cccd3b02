// Package form runs a schema as an interactive session: it owns the live
// value store, decides which steps, sections and fields are visible and
// enabled, validates them, and sequences steps up to a single submission.
//
// A Session is not safe for concurrent use. Renderers read RenderSet after
// every mutation; data source and upload collaborators feed it values.
package form
