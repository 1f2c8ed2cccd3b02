// Package schema defines the declarative form description consumed by the
// formflow engine: flat fields, grouped sections and ordered steps, each with
// optional show/hide/enable/disable conditions. Schemas are authored once and
// treated as read-only; per-session state lives in pkg/form.
//
// Documents can be written in JSON or YAML. Presence-sensitive operands such as
// `equals: null` or `defaultValue: null` are tracked through Value so that an
// explicit null is distinguishable from an omitted key.
package schema
