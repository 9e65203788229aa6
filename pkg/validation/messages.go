package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// MessageFormatter renders the message for a failed keyword. argument is the
// keyword's value on the failing schema node (the missing name for
// "required"); fallback is the validator's own message.
type MessageFormatter func(keyword string, argument any, fallback string) string

// DefaultMessageFormatter produces the form-facing messages, e.g.
// "does not meet minimum length of 10" or "is a required property".
func DefaultMessageFormatter(keyword string, argument any, fallback string) string {
	arg := formatArgument(argument)
	switch keyword {
	case "required":
		return "is a required property"
	case "type":
		return "is not of a type(s) " + arg
	case "minLength", "minItems":
		return "does not meet minimum length of " + arg
	case "maxLength", "maxItems":
		return "does not meet maximum length of " + arg
	case "minProperties":
		return "does not meet minimum property length of " + arg
	case "maxProperties":
		return "does not meet maximum property length of " + arg
	case "minimum":
		return "must be greater than or equal to " + arg
	case "maximum":
		return "must be less than or equal to " + arg
	case "exclusiveMinimum":
		return "must be strictly greater than " + arg
	case "exclusiveMaximum":
		return "must be strictly less than " + arg
	case "multipleOf":
		return "is not a multiple of (divisible by) " + arg
	case "pattern":
		return `does not match pattern "` + arg + `"`
	case "format":
		return `does not conform to the "` + arg + `" format`
	case "enum":
		return "is not one of enum values: " + arg
	case "const":
		return "does not exactly match expected constant: " + arg
	case "uniqueItems":
		return "contains duplicate item"
	case "additionalProperties":
		return `is not allowed to have the additional property "` + arg + `"`
	case "additionalItems":
		return "is not allowed to have additional items"
	case "oneOf":
		return "is not exactly one from " + wrapRefs(argument)
	case "anyOf":
		return "is not any of " + wrapRefs(argument)
	case "not":
		return "is of prohibited type"
	}
	return fallback
}

func formatArgument(argument any) string {
	switch typed := argument.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case []string:
		return strings.Join(typed, ",")
	case []any:
		parts := make([]string, len(typed))
		for idx, entry := range typed {
			parts[idx] = formatArgument(entry)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(typed)
	}
}

func wrapRefs(argument any) string {
	refs, _ := argument.([]string)
	parts := make([]string, len(refs))
	for idx, ref := range refs {
		parts[idx] = "<" + ref + ">"
	}
	return strings.Join(parts, ",")
}
