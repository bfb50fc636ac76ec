package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/ipxgraph/internal/models"
)

// Extension is a YAML rule file merged over a registry. It can add type
// pairs, categories, expected outputs and coverage rules, or replace
// existing entries with the same identity.
//
//	mappings:
//	  - source: ipxact_component
//	    target: testbench_top
//	    categories:
//	      - category: bus_interface
//	        required_fields: [bus_interface_name, agent_class]
//	        description: Each bus interface needs a testbench agent
//	expected_outputs:
//	  - element_key: bus_interfaces
//	    targets:
//	      - target_type: testbench_top
//	coverage:
//	  - element_key: bus_interfaces
//	    mapping_category: bus_interface
//	    identifying_field: bus_interface_name
//	    target_types: [testbench_top]
type Extension struct {
	Mappings        []MappingEntry  `yaml:"mappings" validate:"dive"`
	ExpectedOutputs []OutputEntry   `yaml:"expected_outputs" validate:"dive"`
	Coverage        []CoverageCheck `yaml:"coverage" validate:"dive"`
}

// MappingEntry lists category specs for one source/target type pair.
type MappingEntry struct {
	Source     models.NodeType `yaml:"source" validate:"required"`
	Target     models.NodeType `yaml:"target" validate:"required"`
	Categories []CategorySpec  `yaml:"categories" validate:"required,min=1,dive"`
}

// OutputEntry lists expected outputs for one element kind.
type OutputEntry struct {
	ElementKey models.ElementKind `yaml:"element_key" validate:"required"`
	Targets    []ExpectedOutput   `yaml:"targets" validate:"required,min=1,dive"`
}

var validate = validator.New()

// ParseExtension decodes and checks an extension document. Unknown keys are
// rejected.
func ParseExtension(data []byte) (*Extension, error) {
	var ext Extension
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ext); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := validate.Struct(&ext); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &ext, nil
}

// LoadExtension reads an extension file.
func LoadExtension(path string) (*Extension, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema extension: %w", err)
	}
	ext, err := ParseExtension(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ext, nil
}

// Extend returns a new registry with ext merged over r. r is not modified.
func (r *Registry) Extend(ext *Extension) (*Registry, error) {
	b := r.Builder()
	for _, e := range ext.Mappings {
		b.Mapping(e.Source, e.Target, e.Categories...)
	}
	for _, e := range ext.ExpectedOutputs {
		b.Outputs(e.ElementKey, e.Targets...)
	}
	b.Coverage(ext.Coverage...)
	return b.Build()
}

// Load returns the built-in registry, extended by the file at extensionPath
// when it is non-empty.
func Load(extensionPath string) (*Registry, error) {
	reg := Default()
	if extensionPath == "" {
		return reg, nil
	}
	ext, err := LoadExtension(extensionPath)
	if err != nil {
		return nil, err
	}
	return reg.Extend(ext)
}
