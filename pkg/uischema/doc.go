// Package uischema models the auxiliary UI schema that travels alongside a
// form schema. A UI schema is a free-form tree keyed like the data it
// describes; "ui:" prefixed keys configure the node they sit on (order,
// widget, help text, root id) and every other key addresses a child property.
// The package also loads UI schema documents from a filesystem into a Store
// keyed by form id, expanding shared ui:order presets on the way.
package uischema
