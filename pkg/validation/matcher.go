package validation

import (
	"github.com/goliatone/go-formschema/pkg/jsonschema"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// Matcher adapts a validator into a branch matcher: an anyOf/oneOf option
// matches when the form data validates against it.
func Matcher(v Validator) jsonschema.BranchMatcher {
	if v == nil {
		v = NewJSONSchemaValidator()
	}
	return jsonschema.BranchMatcherFunc(func(formData any, option *schema.Schema, definitions map[string]*schema.Schema) bool {
		if option == nil {
			return false
		}
		target := option
		if len(definitions) > 0 && option.Definitions == nil {
			target = option.Clone()
			target.Definitions = definitions
		}
		errs, err := v.Validate(formData, target)
		return err == nil && len(errs) == 0
	})
}
