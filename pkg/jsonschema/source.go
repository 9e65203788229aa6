package jsonschema

import "github.com/goliatone/go-formschema/pkg/schema"

// Source and Document are shared with pkg/schema so loaders and the bundler
// speak the same types.
type (
	Source     = schema.Source
	SourceKind = schema.SourceKind
	Document   = schema.Document
)

const (
	SourceKindFile = schema.SourceKindFile
	SourceKindFS   = schema.SourceKindFS
	SourceKindURL  = schema.SourceKindURL
)

// NewDocument wraps raw with its origin.
func NewDocument(src Source, raw []byte) (Document, error) {
	return schema.NewDocument(src, raw)
}
