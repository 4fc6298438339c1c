package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Descriptor is the optional content of a module file. It names the catalog
// factory to instantiate and the options passed to Configurable plugins.
type Descriptor struct {
	Factory     string                 `json:"factory,omitempty" yaml:"factory,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

const descriptorSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"factory": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"config": {"type": "object"}
	},
	"additionalProperties": false
}`

var compiledDescriptorSchema = jsonschema.MustCompileString("plugdir://descriptor.schema.json", descriptorSchema)

// IsDescriptor reports whether path has a descriptor extension.
func IsDescriptor(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDescriptor reads and validates the descriptor at path.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	d, err := ParseDescriptor(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return d, nil
}

// ParseDescriptor decodes a YAML (.yaml, .yml) or JSON (.json) descriptor and
// validates it against the descriptor schema. An empty document is a valid
// descriptor with no fields set.
func ParseDescriptor(data []byte, ext string) (*Descriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Descriptor{}, nil
	}

	var doc interface{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing YAML: %v", ErrInvalidDescriptor, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing JSON: %v", ErrInvalidDescriptor, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q: use .json, .yaml, or .yml", ErrInvalidDescriptor, ext)
	}

	// Round-trip through JSON so YAML scalars take the shapes the schema
	// validator and Configurable plugins expect.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	var generic interface{}
	if err := json.Unmarshal(normalized, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if err := compiledDescriptorSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	var d Descriptor
	if err := json.Unmarshal(normalized, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return &d, nil
}
