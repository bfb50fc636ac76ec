// Package schema holds the registry of completeness rules the validator
// applies: which mapping categories and fields each source/target type pair
// must carry, which output types each declared element kind requires, and
// how individual elements are matched for coverage.
//
// A Registry is immutable once built. Extending it produces a new Registry.
package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nvandessel/ipxgraph/internal/models"
)

// ErrInvalid is returned for malformed registry entries.
var ErrInvalid = errors.New("invalid schema")

// Condition requires at least MinCount names under ElementKey in the source
// node's defined elements.
type Condition struct {
	ElementKey models.ElementKind `json:"element_key" yaml:"element_key" validate:"required"`
	MinCount   int                `json:"min_count" yaml:"min_count" validate:"min=1"`
}

// Holds evaluates the condition. A nil condition always holds.
func (c *Condition) Holds(elems models.DefinedElements) bool {
	if c == nil {
		return true
	}
	return len(elems[c.ElementKey]) >= c.MinCount
}

func (c *Condition) String() string {
	if c == nil {
		return "always"
	}
	return fmt.Sprintf("len(%s) >= %d", c.ElementKey, c.MinCount)
}

// CategorySpec is one mapping category expected on an edge, with the fields
// every entry of that category must carry.
type CategorySpec struct {
	Category       models.MappingCategory `json:"category" yaml:"category" validate:"required"`
	RequiredFields []string               `json:"required_fields" yaml:"required_fields" validate:"required,min=1,dive,required"`
	Description    string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Conditional    bool                   `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	Condition      *Condition             `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Applies reports whether the spec is in force for a source node. Non
// conditional specs always apply.
func (s CategorySpec) Applies(elems models.DefinedElements) bool {
	return !s.Conditional || s.Condition.Holds(elems)
}

// ExpectedOutput is a node type a declared element kind must have an
// outgoing edge to.
type ExpectedOutput struct {
	TargetType  models.NodeType `json:"target_type" yaml:"target_type" validate:"required"`
	Conditional bool            `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	Condition   *Condition      `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Applies reports whether the output is required for a source node.
func (o ExpectedOutput) Applies(elems models.DefinedElements) bool {
	return !o.Conditional || o.Condition.Holds(elems)
}

// CoverageCheck matches each element name declared under ElementKey against
// the IdentifyingField values of MappingCategory entries on edges to any of
// TargetTypes.
type CoverageCheck struct {
	ElementKey       models.ElementKind     `json:"element_key" yaml:"element_key" validate:"required"`
	MappingCategory  models.MappingCategory `json:"mapping_category" yaml:"mapping_category" validate:"required"`
	IdentifyingField string                 `json:"identifying_field" yaml:"identifying_field" validate:"required"`
	TargetTypes      []models.NodeType      `json:"target_types" yaml:"target_types" validate:"required,min=1"`
}

// TypePair keys the mapping table.
type TypePair struct {
	Source models.NodeType
	Target models.NodeType
}

func (p TypePair) String() string {
	return fmt.Sprintf("%s -> %s", p.Source, p.Target)
}

// Registry is the immutable rule set. The zero value is an empty registry.
type Registry struct {
	mappings  map[TypePair][]CategorySpec
	pairOrder []TypePair
	outputs   map[models.ElementKind][]ExpectedOutput
	kindOrder []models.ElementKind
	coverage  []CoverageCheck
}

// Builder accumulates entries for a Registry. Entries are validated when
// Build is called.
type Builder struct {
	reg  Registry
	errs []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{reg: Registry{
		mappings: make(map[TypePair][]CategorySpec),
		outputs:  make(map[models.ElementKind][]ExpectedOutput),
	}}
}

// Mapping adds category specs for a type pair. A spec whose category is
// already registered for the pair replaces it in place.
func (b *Builder) Mapping(src, tgt models.NodeType, specs ...CategorySpec) *Builder {
	pair := TypePair{Source: src, Target: tgt}
	if !src.Valid() || !tgt.Valid() {
		b.errs = append(b.errs, fmt.Errorf("mapping %s: unknown node type", pair))
		return b
	}
	existing, ok := b.reg.mappings[pair]
	if !ok {
		b.reg.pairOrder = append(b.reg.pairOrder, pair)
	}
	for _, spec := range specs {
		if err := checkSpec(spec); err != nil {
			b.errs = append(b.errs, fmt.Errorf("mapping %s: %w", pair, err))
			continue
		}
		spec = cloneSpec(spec)
		if i := slices.IndexFunc(existing, func(s CategorySpec) bool { return s.Category == spec.Category }); i >= 0 {
			existing[i] = spec
		} else {
			existing = append(existing, spec)
		}
	}
	b.reg.mappings[pair] = existing
	return b
}

// Outputs adds expected outputs for an element kind. An output whose target
// type is already registered for the kind replaces it in place.
func (b *Builder) Outputs(kind models.ElementKind, outs ...ExpectedOutput) *Builder {
	if !kind.Valid() {
		b.errs = append(b.errs, fmt.Errorf("outputs: unknown element kind %q", kind))
		return b
	}
	existing, ok := b.reg.outputs[kind]
	if !ok {
		b.reg.kindOrder = append(b.reg.kindOrder, kind)
	}
	for _, out := range outs {
		if !out.TargetType.Valid() {
			b.errs = append(b.errs, fmt.Errorf("outputs %s: unknown target type %q", kind, out.TargetType))
			continue
		}
		if err := checkCondition(out.Conditional, out.Condition); err != nil {
			b.errs = append(b.errs, fmt.Errorf("outputs %s -> %s: %w", kind, out.TargetType, err))
			continue
		}
		out.Condition = cloneCondition(out.Condition)
		if i := slices.IndexFunc(existing, func(o ExpectedOutput) bool { return o.TargetType == out.TargetType }); i >= 0 {
			existing[i] = out
		} else {
			existing = append(existing, out)
		}
	}
	b.reg.outputs[kind] = existing
	return b
}

// Coverage adds coverage rules. A rule with the same element key, category,
// identifying field and target types as an existing one replaces it.
func (b *Builder) Coverage(checks ...CoverageCheck) *Builder {
	for _, c := range checks {
		if err := checkCoverage(c); err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		c.TargetTypes = slices.Clone(c.TargetTypes)
		i := slices.IndexFunc(b.reg.coverage, func(x CoverageCheck) bool {
			return x.ElementKey == c.ElementKey && x.MappingCategory == c.MappingCategory &&
				x.IdentifyingField == c.IdentifyingField && slices.Equal(x.TargetTypes, c.TargetTypes)
		})
		if i >= 0 {
			b.reg.coverage[i] = c
		} else {
			b.reg.coverage = append(b.reg.coverage, c)
		}
	}
	return b
}

// Build returns the registry, or every entry error joined under ErrInvalid.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(b.errs...))
	}
	reg := b.reg.clone()
	return &reg, nil
}

// Builder returns a builder seeded with a copy of r, for extension.
func (r *Registry) Builder() *Builder {
	b := NewBuilder()
	b.reg = r.clone()
	return b
}

// MappingSpecs returns the category specs for a type pair and whether the
// pair has a schema at all.
func (r *Registry) MappingSpecs(src, tgt models.NodeType) ([]CategorySpec, bool) {
	specs, ok := r.mappings[TypePair{Source: src, Target: tgt}]
	if !ok {
		return nil, false
	}
	out := make([]CategorySpec, len(specs))
	for i, s := range specs {
		out[i] = cloneSpec(s)
	}
	return out, true
}

// TypePairs returns every type pair with a mapping schema, in registration order.
func (r *Registry) TypePairs() []TypePair {
	return slices.Clone(r.pairOrder)
}

// IsSourceType reports whether t is the source of any type pair with a
// mapping schema.
func (r *Registry) IsSourceType(t models.NodeType) bool {
	return slices.ContainsFunc(r.pairOrder, func(p TypePair) bool { return p.Source == t })
}

// ElementKinds returns the element kinds with expected outputs, in
// registration order.
func (r *Registry) ElementKinds() []models.ElementKind {
	return slices.Clone(r.kindOrder)
}

// ExpectedOutputs returns the outputs required by an element kind.
func (r *Registry) ExpectedOutputs(kind models.ElementKind) []ExpectedOutput {
	outs := make([]ExpectedOutput, len(r.outputs[kind]))
	for i, o := range r.outputs[kind] {
		o.Condition = cloneCondition(o.Condition)
		outs[i] = o
	}
	return outs
}

// CoverageChecks returns the element coverage rules in registration order.
func (r *Registry) CoverageChecks() []CoverageCheck {
	out := make([]CoverageCheck, len(r.coverage))
	for i, c := range r.coverage {
		c.TargetTypes = slices.Clone(c.TargetTypes)
		out[i] = c
	}
	return out
}

func (r *Registry) clone() Registry {
	c := Registry{
		mappings:  make(map[TypePair][]CategorySpec, len(r.mappings)),
		pairOrder: slices.Clone(r.pairOrder),
		outputs:   make(map[models.ElementKind][]ExpectedOutput, len(r.outputs)),
		kindOrder: slices.Clone(r.kindOrder),
	}
	for pair, specs := range r.mappings {
		cp := make([]CategorySpec, len(specs))
		for i, s := range specs {
			cp[i] = cloneSpec(s)
		}
		c.mappings[pair] = cp
	}
	for kind, outs := range r.outputs {
		cp := make([]ExpectedOutput, len(outs))
		for i, o := range outs {
			o.Condition = cloneCondition(o.Condition)
			cp[i] = o
		}
		c.outputs[kind] = cp
	}
	c.coverage = r.CoverageChecks()
	return c
}

func checkSpec(s CategorySpec) error {
	if !s.Category.Valid() {
		return fmt.Errorf("unknown mapping category %q", s.Category)
	}
	if len(s.RequiredFields) == 0 {
		return fmt.Errorf("category %s: no required fields", s.Category)
	}
	for _, f := range s.RequiredFields {
		if f == "" || f == "category" {
			return fmt.Errorf("category %s: invalid required field %q", s.Category, f)
		}
	}
	if err := checkCondition(s.Conditional, s.Condition); err != nil {
		return fmt.Errorf("category %s: %w", s.Category, err)
	}
	return nil
}

func checkCondition(conditional bool, c *Condition) error {
	if c == nil {
		return nil
	}
	if !conditional {
		return errors.New("condition given on a non-conditional entry")
	}
	if !c.ElementKey.Valid() {
		return fmt.Errorf("condition: unknown element kind %q", c.ElementKey)
	}
	if c.MinCount < 1 {
		return fmt.Errorf("condition: min_count must be at least 1, got %d", c.MinCount)
	}
	return nil
}

func checkCoverage(c CoverageCheck) error {
	if !c.ElementKey.Valid() {
		return fmt.Errorf("coverage: unknown element kind %q", c.ElementKey)
	}
	if !c.MappingCategory.Valid() {
		return fmt.Errorf("coverage %s: unknown mapping category %q", c.ElementKey, c.MappingCategory)
	}
	if c.IdentifyingField == "" {
		return fmt.Errorf("coverage %s/%s: identifying field is empty", c.ElementKey, c.MappingCategory)
	}
	if len(c.TargetTypes) == 0 {
		return fmt.Errorf("coverage %s/%s: no target types", c.ElementKey, c.MappingCategory)
	}
	for _, t := range c.TargetTypes {
		if !t.Valid() {
			return fmt.Errorf("coverage %s/%s: unknown target type %q", c.ElementKey, c.MappingCategory, t)
		}
	}
	return nil
}

func cloneSpec(s CategorySpec) CategorySpec {
	s.RequiredFields = slices.Clone(s.RequiredFields)
	s.Condition = cloneCondition(s.Condition)
	return s
}

func cloneCondition(c *Condition) *Condition {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
