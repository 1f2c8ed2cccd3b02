// Package condition evaluates single-field conditions against a watched
// value. Evaluation is pure and never fails: malformed conditions pass and
// values that cannot be compared make the comparison false.
package condition
