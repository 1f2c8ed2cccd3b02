// Package openapi imports the JSON request body of an OpenAPI 3 operation as a
// form schema. Objects become sections, arrays of objects become repeatable
// sections and JSON Schema keywords map onto validation rules.
package openapi
