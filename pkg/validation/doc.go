// Package validation compiles declarative per-field validation specs into
// executable rule sets. Rules run in a fixed order (required, minLength,
// maxLength, min, max, pattern, custom) so the first failure is stable.
package validation
