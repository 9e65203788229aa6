package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goliatone/go-formschema/pkg/schema"
)

const (
	defaultMaxDocumentBytes = int64(5 << 20)
	defaultMaxDocuments     = 128
)

// BundleOptions configures external $ref bundling.
type BundleOptions struct {
	// AllowHTTPRefs toggles HTTP/HTTPS ref resolution.
	AllowHTTPRefs bool
	// AllowPathTraversal permits refs to escape the root directory.
	AllowPathTraversal bool
	// MaxDocumentBytes caps the size of any single referenced document.
	MaxDocumentBytes int64
	// MaxDocuments caps the number of unique documents loaded while bundling.
	MaxDocuments int
}

// Bundler inlines external $ref targets into the root document's definitions
// so the rest of the pipeline only deals with local "#/definitions/..."
// pointers. Every external document becomes one definition named after its
// file; refs into it are rewritten to "#/definitions/<name>/<fragment>".
type Bundler struct {
	loader Loader
	opts   BundleOptions
}

type bundleSession struct {
	loader Loader
	opts   BundleOptions
	cache  map[string]*bundledDocument
	names  map[string]struct{}
	defs   map[string]*schema.Schema
	root   *bundledDocument
}

type bundledDocument struct {
	key      string
	kind     schema.SourceKind
	location string
	baseDir  string
	name     string
	schema   *schema.Schema
}

// NewBundler constructs a bundler with the supplied loader and options.
func NewBundler(loader Loader, opts BundleOptions) *Bundler {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = defaultMaxDocuments
	}
	return &Bundler{loader: loader, opts: opts}
}

// Load fetches src through the loader and bundles it.
func (b *Bundler) Load(ctx context.Context, src Source) (*schema.Schema, error) {
	if b == nil || b.loader == nil {
		return nil, errors.New("jsonschema bundler: loader is nil")
	}
	doc, err := b.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return b.Bundle(ctx, doc)
}

// Bundle parses doc and inlines every external $ref it reaches.
func (b *Bundler) Bundle(ctx context.Context, doc Document) (*schema.Schema, error) {
	if b == nil {
		return nil, errors.New("jsonschema bundler: bundler is nil")
	}
	if doc.Source() == nil {
		return nil, errors.New("jsonschema bundler: source is nil")
	}
	if int64(len(doc.Raw())) > b.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("jsonschema bundler: document too large (%d bytes)", len(doc.Raw()))
	}
	root, err := doc.Decode()
	if err != nil {
		return nil, err
	}

	session := &bundleSession{
		loader: b.loader,
		opts:   b.opts,
		cache:  make(map[string]*bundledDocument),
		names:  make(map[string]struct{}),
		defs:   make(map[string]*schema.Schema),
	}
	key, location, baseDir, err := session.canonicalLocation(doc.Source())
	if err != nil {
		return nil, err
	}
	for name := range root.Definitions {
		session.names[name] = struct{}{}
	}
	session.root = &bundledDocument{
		key:      key,
		kind:     doc.Source().Kind(),
		location: location,
		baseDir:  baseDir,
		schema:   root,
	}
	session.cache[key] = session.root

	if err := session.walk(ctx, session.root, root); err != nil {
		return nil, err
	}
	if len(session.defs) > 0 {
		if root.Definitions == nil {
			root.Definitions = make(map[string]*schema.Schema, len(session.defs))
		}
		for name, def := range session.defs {
			root.Definitions[name] = def
		}
	}
	return root, nil
}

func (s *bundleSession) walk(ctx context.Context, doc *bundledDocument, node *schema.Schema) error {
	if node == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if node.Ref != "" {
		rewritten, err := s.rewriteRef(ctx, doc, node.Ref)
		if err != nil {
			return err
		}
		node.Ref = rewritten
	}

	for _, child := range node.Properties.All() {
		if err := s.walk(ctx, doc, child); err != nil {
			return err
		}
	}
	for _, def := range node.Definitions {
		if err := s.walk(ctx, doc, def); err != nil {
			return err
		}
	}
	children := []*schema.Schema{node.Items, node.AdditionalItems}
	children = append(children, node.TupleItems...)
	children = append(children, node.AllOf...)
	children = append(children, node.AnyOf...)
	children = append(children, node.OneOf...)
	for _, child := range children {
		if err := s.walk(ctx, doc, child); err != nil {
			return err
		}
	}
	return nil
}

func (s *bundleSession) rewriteRef(ctx context.Context, doc *bundledDocument, ref string) (string, error) {
	refPath, fragment := splitRef(ref)
	if strings.TrimSpace(fragment) != "" && !strings.HasPrefix(fragment, "/") {
		return "", fmt.Errorf("jsonschema bundler: anchor refs are not supported (%s)", ref)
	}
	if refPath == "" {
		if doc == s.root {
			return ref, nil
		}
		return inlinedPointer(doc.name, fragment), nil
	}

	parsed, err := url.Parse(refPath)
	if err != nil {
		return "", fmt.Errorf("jsonschema bundler: invalid ref %q", ref)
	}

	var src Source
	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		if !s.opts.AllowHTTPRefs {
			return "", fmt.Errorf("jsonschema bundler: http refs disabled (%s)", ref)
		}
		src = schema.SourceFromURL(parsed.String())
	case parsed.Scheme == "file":
		src = schema.SourceFromFile(parsed.Path)
	case parsed.Scheme != "":
		return "", fmt.Errorf("jsonschema bundler: unsupported ref scheme %q", parsed.Scheme)
	default:
		src, err = s.resolveRelativeSource(doc, parsed.Path)
		if err != nil {
			return "", err
		}
	}

	target, err := s.loadDocument(ctx, src)
	if err != nil {
		return "", err
	}
	if target == s.root {
		if fragment == "" {
			return "", fmt.Errorf("jsonschema bundler: ref %q points back at the root document", ref)
		}
		return "#" + fragment, nil
	}
	return inlinedPointer(target.name, fragment), nil
}

// inlinedPointer maps a fragment of an inlined document onto its definition.
// $defs is folded into definitions on decode, so pointers follow suit.
func inlinedPointer(name, fragment string) string {
	pointer := definitionsPrefix + escapeJSONPointer(name)
	if fragment == "" || fragment == "/" {
		return pointer
	}
	if strings.HasPrefix(fragment, "/$defs/") {
		fragment = "/definitions/" + strings.TrimPrefix(fragment, "/$defs/")
	}
	return pointer + fragment
}

func (s *bundleSession) loadDocument(ctx context.Context, src Source) (*bundledDocument, error) {
	key, location, baseDir, err := s.canonicalLocation(src)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}
	if len(s.cache) >= s.opts.MaxDocuments {
		return nil, fmt.Errorf("jsonschema bundler: exceeded max documents (%d)", s.opts.MaxDocuments)
	}

	doc, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if int64(len(doc.Raw())) > s.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("jsonschema bundler: document too large (%d bytes)", len(doc.Raw()))
	}
	parsed, err := doc.Decode()
	if err != nil {
		return nil, err
	}

	loaded := &bundledDocument{
		key:      key,
		kind:     src.Kind(),
		location: location,
		baseDir:  baseDir,
		name:     s.uniqueName(location),
		schema:   parsed,
	}
	s.cache[key] = loaded
	s.defs[loaded.name] = parsed

	if err := s.walk(ctx, loaded, parsed); err != nil {
		return nil, err
	}
	return loaded, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func (s *bundleSession) uniqueName(location string) string {
	base := path.Base(strings.ReplaceAll(location, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = unsafeNameChars.ReplaceAllString(base, "_")
	if base == "" || base == "." {
		base = "external"
	}
	name := base
	for idx := 2; ; idx++ {
		if _, taken := s.names[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, idx)
	}
	s.names[name] = struct{}{}
	return name
}

func (s *bundleSession) resolveRelativeSource(doc *bundledDocument, refPath string) (Source, error) {
	switch doc.kind {
	case SourceKindFile:
		resolved, err := s.cleanFilePath(doc.baseDir, refPath)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromFile(resolved), nil
	case SourceKindFS:
		resolved, err := s.cleanFSPath(doc.baseDir, refPath)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromFS(resolved), nil
	case SourceKindURL:
		if !s.opts.AllowHTTPRefs {
			return nil, fmt.Errorf("jsonschema bundler: http refs disabled (%s)", refPath)
		}
		base, err := url.Parse(doc.location)
		if err != nil {
			return nil, err
		}
		rel, err := url.Parse(refPath)
		if err != nil {
			return nil, err
		}
		return schema.SourceFromURL(base.ResolveReference(rel).String()), nil
	default:
		return nil, errors.New("jsonschema bundler: unsupported source kind")
	}
}

func (s *bundleSession) canonicalLocation(src Source) (string, string, string, error) {
	if src == nil {
		return "", "", "", errors.New("jsonschema bundler: source is nil")
	}
	location := src.Location()
	switch src.Kind() {
	case SourceKindFile:
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", "", "", err
		}
		return "file:" + abs, abs, filepath.Dir(abs), nil
	case SourceKindFS:
		cleaned := path.Clean(strings.TrimPrefix(location, "/"))
		return "fs:" + cleaned, cleaned, path.Dir(cleaned), nil
	case SourceKindURL:
		return "url:" + location, location, path.Dir(location), nil
	default:
		return "", "", "", errors.New("jsonschema bundler: unsupported source kind")
	}
}

func (s *bundleSession) cleanFilePath(baseDir, refPath string) (string, error) {
	candidate := refPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, refPath)
	}
	candidate = filepath.Clean(candidate)
	if s.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := baseDir
	if s.root != nil {
		root = s.root.baseDir
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("jsonschema bundler: ref path escapes root (%s)", refPath)
	}
	return candidate, nil
}

func (s *bundleSession) cleanFSPath(baseDir, refPath string) (string, error) {
	candidate := strings.TrimPrefix(path.Clean(path.Join(baseDir, refPath)), "/")
	if s.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := baseDir
	if s.root != nil {
		root = s.root.baseDir
	}
	root = strings.TrimPrefix(path.Clean(root), "/")
	if root == "." || root == "" {
		if strings.HasPrefix(candidate, "..") {
			return "", fmt.Errorf("jsonschema bundler: ref path escapes root (%s)", refPath)
		}
		return candidate, nil
	}
	if candidate == root || strings.HasPrefix(candidate, root+"/") {
		return candidate, nil
	}
	return "", fmt.Errorf("jsonschema bundler: ref path escapes root (%s)", refPath)
}
