// Package visibility resolves show/hide and enable/disable conditions for
// fields, sections and steps against live form values.
package visibility
