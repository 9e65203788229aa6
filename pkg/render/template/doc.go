// Package template defines the template engine seam the HTML renderers use.
// The gotemplate subpackage provides the pongo2-backed implementation.
package template
