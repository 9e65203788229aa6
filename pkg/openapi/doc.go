// Package openapi lifts the request body schema of an OpenAPI 3 operation
// into a form schema. kin-openapi validates the document and locates the
// operation; the schema itself is read from the raw document so property
// order survives.
package openapi
