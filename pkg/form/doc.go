// Package form is the stateful shell around the form core. A Form owns the
// schema, UI schema and validator wiring; every Change or Submit produces a
// fresh State snapshot holding the form data with defaults applied, the id
// tree and every error view. Fields derives the ordered field tree renderers
// walk.
//
// A Form is not safe for concurrent mutation.
package form
