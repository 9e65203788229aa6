package defaults

import "github.com/goliatone/go-formschema/pkg/schema"

// MergeOption configures MergeObjects.
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	concatArrays bool
}

// WithConcatArrays appends override arrays to base arrays instead of
// replacing them.
func WithConcatArrays() MergeOption {
	return func(opts *mergeOptions) {
		opts.concatArrays = true
	}
}

// MergeObjects deep merges override onto a copy of base. Only maps merge
// recursively; arrays and scalars from override replace the base value.
// Neither input is modified.
func MergeObjects(base, override map[string]any, options ...MergeOption) map[string]any {
	opts := mergeOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	return mergeObjects(base, override, opts)
}

func mergeObjects(base, override map[string]any, opts mergeOptions) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for key, value := range base {
		out[key] = schema.CloneValue(value)
	}
	for key, value := range override {
		current, exists := out[key]
		if !exists {
			out[key] = schema.CloneValue(value)
			continue
		}
		currentMap, leftIsMap := current.(map[string]any)
		valueMap, rightIsMap := value.(map[string]any)
		if leftIsMap && rightIsMap {
			out[key] = mergeObjects(currentMap, valueMap, opts)
			continue
		}
		if opts.concatArrays {
			left, leftIsList := current.([]any)
			right, rightIsList := value.([]any)
			if leftIsList && rightIsList {
				merged := make([]any, 0, len(left)+len(right))
				merged = append(merged, left...)
				merged = append(merged, schema.CloneValue(right).([]any)...)
				out[key] = merged
				continue
			}
		}
		out[key] = schema.CloneValue(value)
	}
	return out
}

func isObject(value any) bool {
	_, ok := value.(map[string]any)
	return ok
}
