// Package validate audits an artifact graph against a schema registry in
// three independent passes: required output edges per declared element kind,
// required mapping categories and fields per edge, and per-element coverage
// of declared elements by mapping entries.
package validate

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/nvandessel/ipxgraph/internal/models"
	"github.com/nvandessel/ipxgraph/internal/schema"
	"github.com/nvandessel/ipxgraph/internal/store"
)

// Validator runs the three passes. It only reads the graph and registry.
type Validator struct {
	graph  store.Reader
	schema *schema.Registry
	logger *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for run summaries.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Validator over graph. A nil registry means schema.Default().
func New(graph store.Reader, reg *schema.Registry, opts ...Option) *Validator {
	if reg == nil {
		reg = schema.Default()
	}
	v := &Validator{graph: graph, schema: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs levels 1 to 3 in order and returns the combined report.
func (v *Validator) Validate() *Report {
	return v.Run(LevelStructural, LevelFields, LevelCoverage)
}

// Run executes the given levels in the order given.
func (v *Validator) Run(levels ...Level) *Report {
	r := &Report{}
	nodes := v.graph.Nodes()
	for _, l := range levels {
		switch l {
		case LevelStructural:
			v.structural(r, nodes)
		case LevelFields:
			v.fields(r)
		case LevelCoverage:
			v.coverage(r, nodes)
		}
	}

	v.logger.Info("validation complete",
		zap.Int("findings", len(r.Findings)),
		zap.Int("passes", r.Count(SeverityPass)),
		zap.Int("warnings", r.Count(SeverityWarning)),
		zap.Int("failures", r.Count(SeverityFail)),
		zap.Float64("coverage_pct", r.CoveragePct()),
	)
	return r
}

// structural checks that every element kind a node declares has an outgoing
// edge to each required output type. Only nodes whose type is a mapping
// source in the registry are warned about empty defined_elements.
func (v *Validator) structural(r *Report, nodes []models.ArtifactNode) {
	for _, n := range nodes {
		if !n.HasElements() {
			if v.schema.IsSourceType(n.Type) {
				r.add(Finding{
					Severity: SeverityWarning,
					Level:    LevelStructural,
					Subject:  n.ID,
					Message: fmt.Sprintf("%s %q declares no defined_elements; structural and coverage checks skipped",
						n.Type, n.Name),
				})
			}
			continue
		}

		targetsByType := make(map[models.NodeType][]string)
		for _, e := range v.graph.GetEdges(n.ID, store.DirectionOutbound, "") {
			if tgt, ok := v.graph.GetNode(e.TargetID); ok {
				targetsByType[tgt.Type] = append(targetsByType[tgt.Type], tgt.ID)
			}
		}

		for _, kind := range v.schema.ElementKinds() {
			elems := n.Elements(kind)
			if len(elems) == 0 {
				continue
			}
			for _, out := range v.schema.ExpectedOutputs(kind) {
				if !out.Applies(n.DefinedElements) {
					continue
				}
				if targets := targetsByType[out.TargetType]; len(targets) > 0 {
					r.add(Finding{
						Severity: SeverityPass,
						Level:    LevelStructural,
						Subject:  n.ID,
						Target:   targets[0],
						Category: string(kind),
						Message:  fmt.Sprintf("edge exists: %s -> %s", n.Name, out.TargetType),
					})
					continue
				}
				r.add(Finding{
					Severity: SeverityFail,
					Level:    LevelStructural,
					Subject:  n.ID,
					Category: string(kind),
					Message: fmt.Sprintf("missing edge: %q defines %s %v but has no edge to any %s node",
						n.Name, kind, elems, out.TargetType),
					Details: map[string]any{
						"element_key":          string(kind),
						"element_values":       slices.Clone(elems),
						"expected_target_type": string(out.TargetType),
					},
				})
			}
		}
	}
}

// fields checks every edge against the mapping specs of its type pair.
func (v *Validator) fields(r *Report) {
	for _, e := range v.graph.Edges() {
		src, ok1 := v.graph.GetNode(e.SourceID)
		tgt, ok2 := v.graph.GetNode(e.TargetID)
		if !ok1 || !ok2 {
			continue
		}
		edgeID := e.ID()

		specs, ok := v.schema.MappingSpecs(src.Type, tgt.Type)
		if !ok {
			r.add(Finding{
				Severity: SeverityInfo,
				Level:    LevelFields,
				Subject:  edgeID,
				Target:   tgt.ID,
				Message: fmt.Sprintf("no mapping schema defined for %s -> %s; consider extending the schema registry",
					src.Type, tgt.Type),
			})
			continue
		}

		for _, spec := range specs {
			entries := e.DetailsFor(spec.Category)
			if len(entries) == 0 {
				switch {
				case !spec.Conditional:
					r.add(Finding{
						Severity: SeverityFail,
						Level:    LevelFields,
						Subject:  edgeID,
						Target:   tgt.ID,
						Category: string(spec.Category),
						Message: fmt.Sprintf("missing mapping category %q in %s -> %s; required fields %v (%s)",
							spec.Category, src.Name, tgt.Name, spec.RequiredFields, spec.Description),
						Details: map[string]any{"required_fields": slices.Clone(spec.RequiredFields)},
					})
				case spec.Applies(src.DefinedElements):
					r.add(Finding{
						Severity: SeverityWarning,
						Level:    LevelFields,
						Subject:  edgeID,
						Target:   tgt.ID,
						Category: string(spec.Category),
						Message: fmt.Sprintf("conditional mapping %q not present in %s -> %s; verify it is intentionally omitted (%s)",
							spec.Category, src.Name, tgt.Name, spec.Description),
						Details: map[string]any{"condition": spec.Condition.String()},
					})
				}
				continue
			}

			for i, entry := range entries {
				missing := entry.MissingFields(spec.RequiredFields)
				if len(missing) > 0 {
					r.add(Finding{
						Severity: SeverityFail,
						Level:    LevelFields,
						Subject:  edgeID,
						Target:   tgt.ID,
						Category: string(spec.Category),
						Message: fmt.Sprintf("incomplete mapping: %q entry #%d in %s -> %s is missing fields %v",
							spec.Category, i, src.Name, tgt.Name, missing),
						Details: map[string]any{
							"entry_index":    i,
							"missing_fields": missing,
							"present_fields": slices.Sorted(maps.Keys(entry.Fields)),
						},
					})
					continue
				}
				r.add(Finding{
					Severity: SeverityPass,
					Level:    LevelFields,
					Subject:  edgeID,
					Target:   tgt.ID,
					Category: string(spec.Category),
					Message:  fmt.Sprintf("mapping complete: %q entry #%d in %s -> %s", spec.Category, i, src.Name, tgt.Name),
				})
			}
		}
	}
}

// coverage checks that each declared element name appears as the
// identifying field of some mapping entry on an edge to a rule's target types.
func (v *Validator) coverage(r *Report, nodes []models.ArtifactNode) {
	checks := v.schema.CoverageChecks()
	for _, n := range nodes {
		if !n.HasElements() {
			continue
		}
		outgoing := v.graph.GetEdges(n.ID, store.DirectionOutbound, "")

		for _, check := range checks {
			declared := dedupe(n.Elements(check.ElementKey))
			if len(declared) == 0 {
				continue
			}

			mapped := make(map[string]bool)
			var targets []string
			for _, e := range outgoing {
				tgt, ok := v.graph.GetNode(e.TargetID)
				if !ok || !slices.Contains(check.TargetTypes, tgt.Type) {
					continue
				}
				targets = append(targets, tgt.ID)
				for _, d := range e.DetailsFor(check.MappingCategory) {
					if val := d.Value(check.IdentifyingField); val != "" {
						mapped[val] = true
					}
				}
			}

			var covered, missing []string
			for _, name := range declared {
				if mapped[name] {
					covered = append(covered, name)
				} else {
					missing = append(missing, name)
				}
			}
			var extra []string
			for name := range mapped {
				if !slices.Contains(declared, name) {
					extra = append(extra, name)
				}
			}
			slices.Sort(extra)

			details := map[string]any{
				"element_key":  string(check.ElementKey),
				"target_types": typeNames(check.TargetTypes),
				"defined":      declared,
				"covered":      nonNil(covered),
				"coverage_pct": coverage(len(covered), len(missing)),
			}
			if len(extra) > 0 {
				details["extra"] = extra
			}

			f := Finding{
				Level:    LevelCoverage,
				Subject:  n.ID,
				Category: string(check.MappingCategory),
				Details:  details,
			}
			if len(targets) == 1 {
				f.Target = targets[0]
			}

			switch {
			case len(missing) == 0:
				f.Severity = SeverityPass
				f.Message = fmt.Sprintf("full coverage: all %d %s in %q have %q mappings",
					len(declared), check.ElementKey, n.Name, check.MappingCategory)
			case len(targets) == 0:
				f.Severity = SeverityFail
				details["missing"] = missing
				f.Message = fmt.Sprintf("no coverage: %q has no edge to any of [%s], so none of its %d %s are mapped: %v",
					n.Name, strings.Join(typeNames(check.TargetTypes), ", "), len(declared), check.ElementKey, missing)
			default:
				f.Severity = SeverityFail
				details["missing"] = missing
				f.Message = fmt.Sprintf("incomplete coverage: %d/%d %s in %q have no %q mapping: %v",
					len(missing), len(declared), check.ElementKey, n.Name, check.MappingCategory, missing)
			}
			if len(extra) > 0 {
				f.Message += fmt.Sprintf(" (mapped but not declared: %v)", extra)
			}
			r.add(f)
		}
	}
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func typeNames(types []models.NodeType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
