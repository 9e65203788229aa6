package uischema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formschema/pkg/schema"
)

// PresetPrefix marks a ui:order value that names a fieldOrderPresets entry.
const PresetPrefix = "@"

// Store keeps the UI schemas parsed from a set of documents, keyed by form
// id. It is safe for concurrent readers when treated as immutable after
// construction.
type Store struct {
	forms   map[string]UISchema
	sources map[string]string
}

type documentFile struct {
	FieldOrderPresets map[string][]string       `json:"fieldOrderPresets" yaml:"fieldOrderPresets"`
	Forms             map[string]map[string]any `json:"forms" yaml:"forms"`
}

// Parse decodes a single UI schema tree from JSON or YAML.
func Parse(raw []byte) (UISchema, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return UISchema{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = nil
		if yamlErr := yaml.Unmarshal(raw, &payload); yamlErr != nil {
			return nil, fmt.Errorf("uischema: invalid JSON or YAML: %w", yamlErr)
		}
	}
	normalized, _ := schema.NormalizeValue(payload).(map[string]any)
	if normalized == nil {
		normalized = map[string]any{}
	}
	return UISchema(normalized), nil
}

// LoadFS walks the provided filesystem and parses JSON/YAML UI schema
// documents. Each document lists forms under "forms" and may declare
// fieldOrderPresets shared by the forms in that file. When fsys is nil or no
// documents are present, the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]UISchema), sources: make(map[string]string)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("uischema: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		presets, err := normalisePresets(doc.FieldOrderPresets, path)
		if err != nil {
			return err
		}

		for formID, raw := range doc.Forms {
			id := strings.TrimSpace(formID)
			if id == "" {
				return fmt.Errorf("uischema: file %s defines an empty form id", path)
			}
			if previous, exists := store.sources[id]; exists {
				return fmt.Errorf("uischema: duplicate form %q (files %s and %s)", id, previous, path)
			}
			normalized, _ := schema.NormalizeValue(raw).(map[string]any)
			ui, err := ExpandPresets(UISchema(normalized), presets)
			if err != nil {
				return fmt.Errorf("uischema: form %q (file %s): %w", id, path, err)
			}
			store.forms[id] = ui
			store.sources[id] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns the UI schema for the supplied form id.
func (s *Store) Form(id string) (UISchema, bool) {
	if s == nil {
		return nil, false
	}
	ui, ok := s.forms[id]
	return ui, ok
}

// Source returns the file a form was loaded from.
func (s *Store) Source(id string) string {
	if s == nil {
		return ""
	}
	return s.sources[id]
}

// Forms lists the stored form ids in sorted order.
func (s *Store) Forms() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.forms))
	for id := range s.forms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

// ExpandPresets returns a copy of ui where every ui:order written as
// "@name" is replaced by the named preset. Referencing an unknown preset is
// an error.
func ExpandPresets(ui UISchema, presets map[string][]string) (UISchema, error) {
	if ui == nil {
		return UISchema{}, nil
	}
	out := ui.Clone()
	if err := expandNode(out, presets, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func expandNode(node map[string]any, presets map[string][]string, path string) error {
	for key, value := range node {
		if key == KeyOrder {
			name, ok := value.(string)
			if !ok {
				continue
			}
			ref := strings.TrimSpace(name)
			if !strings.HasPrefix(ref, PresetPrefix) {
				return fmt.Errorf("%s%s must be a list or a %q preset reference", path, KeyOrder, PresetPrefix)
			}
			preset, ok := presets[strings.TrimPrefix(ref, PresetPrefix)]
			if !ok {
				return fmt.Errorf("%s%s references unknown preset %q", path, KeyOrder, ref)
			}
			order := make([]any, len(preset))
			for idx, entry := range preset {
				order[idx] = entry
			}
			node[key] = order
			continue
		}
		child, ok := value.(map[string]any)
		if !ok {
			if typed, isUI := value.(UISchema); isUI {
				child = typed
			} else {
				continue
			}
		}
		if err := expandNode(child, presets, path+key+"."); err != nil {
			return err
		}
	}
	return nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("uischema: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return documentFile{}, fmt.Errorf("uischema: parse %s: invalid JSON or YAML", source)
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func normalisePresets(raw map[string][]string, source string) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(raw))
	for name, pattern := range raw {
		trimmedName := strings.TrimSpace(name)
		if trimmedName == "" {
			return nil, fmt.Errorf("uischema: file %s defines a fieldOrderPresets entry with an empty name", source)
		}
		if len(pattern) == 0 {
			return nil, fmt.Errorf("uischema: file %s preset %q is empty", source, trimmedName)
		}
		cloned := make([]string, len(pattern))
		for idx, entry := range pattern {
			value := strings.TrimSpace(entry)
			if value == "" {
				return nil, fmt.Errorf("uischema: file %s preset %q contains an empty entry at index %d", source, trimmedName, idx)
			}
			cloned[idx] = value
		}
		out[trimmedName] = cloned
	}
	return out, nil
}
