// Package server exposes the form engine over HTTP.
//
// Every endpoint is stateless: requests carry the schema document together
// with the values to evaluate, and responses are JSON.
//
//	POST /v1/defaults    initial value map for a schema
//	POST /v1/evaluate    visible steps and the render set of the first step
//	POST /v1/validate    field errors for a set of values
//	POST /v1/errors      server error payload mapped onto field paths
//	POST /v1/convert     converter document to schema, with issues
//	GET  /healthz        liveness probe
package server
