package schema

import "fmt"

// InvalidSchemaError reports a schema document that cannot be used at all,
// most commonly a root that is not a mapping.
type InvalidSchemaError struct {
	Reason string
}

func (e *InvalidSchemaError) Error() string {
	if e == nil || e.Reason == "" {
		return "schema: invalid schema"
	}
	return fmt.Sprintf("schema: invalid schema: %s", e.Reason)
}

// DefinitionNotFoundError reports a $ref whose target is missing from the
// definitions mapping.
type DefinitionNotFoundError struct {
	Ref string
}

func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("could not find a definition for %s", e.Ref)
}
