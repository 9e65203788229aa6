package render

import (
	"errors"
	"fmt"
	"mime"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-formschema/pkg/render/template"
)

// ErrUnknownRenderer is returned by lookups that match no renderer.
var ErrUnknownRenderer = errors.New("render: unknown renderer")

// Registry holds renderers in registration order and looks them up by name
// or by media type.
type Registry struct {
	mu        sync.RWMutex
	renderers []Renderer
}

// NewRegistry returns a registry holding renderers. It fails on the first
// renderer without a name or with a name already taken.
func NewRegistry(renderers ...Renderer) (*Registry, error) {
	r := &Registry{}
	for _, renderer := range renderers {
		if err := r.Register(renderer); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry holds the html renderer over engine followed by the
// text renderer.
func NewDefaultRegistry(engine template.TemplateRenderer) *Registry {
	return &Registry{renderers: []Renderer{NewHTMLRenderer(engine), TextRenderer{}}}
}

// Register appends renderer.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return errors.New("render: renderer is required")
	}
	name := renderer.Name()
	if name == "" {
		return errors.New("render: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.renderers, func(existing Renderer) bool { return existing.Name() == name }) {
		return fmt.Errorf("render: renderer %q already registered", name)
	}
	r.renderers = append(r.renderers, renderer)
	return nil
}

// Get returns the renderer called name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, renderer := range r.renderers {
		if renderer.Name() == name {
			return renderer, nil
		}
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownRenderer, name, strings.Join(r.names(), ", "))
}

// ForMediaType returns the first renderer whose content type matches one of
// the media ranges of an Accept header. "*/*", "type/*" and an empty header
// match the first registered renderer of that range. Quality values are
// ignored; ranges are tried in header order.
func (r *Registry) ForMediaType(accept string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.renderers) == 0 {
		return nil, fmt.Errorf("%w: registry is empty", ErrUnknownRenderer)
	}
	if strings.TrimSpace(accept) == "" {
		return r.renderers[0], nil
	}
	for _, part := range strings.Split(accept, ",") {
		wanted, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		for _, renderer := range r.renderers {
			offered, _, err := mime.ParseMediaType(renderer.ContentType())
			if err != nil {
				continue
			}
			if mediaMatch(wanted, offered) {
				return renderer, nil
			}
		}
	}
	return nil, fmt.Errorf("%w for %q", ErrUnknownRenderer, accept)
}

// Names lists renderer names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.renderers))
	for _, renderer := range r.renderers {
		out = append(out, renderer.Name())
	}
	return out
}

func mediaMatch(wanted, offered string) bool {
	if wanted == "*/*" || wanted == offered {
		return true
	}
	if prefix, ok := strings.CutSuffix(wanted, "/*"); ok {
		return strings.HasPrefix(offered, prefix+"/")
	}
	return false
}
